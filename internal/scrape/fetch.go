package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultFetchTimeout bounds each page fetch so a hung origin cannot stall
// an ingestion cycle indefinitely.
const defaultFetchTimeout = 30 * time.Second

// Fetcher retrieves raw page content over HTTP with a bounded timeout.
// Safe for concurrent use.
type Fetcher struct {
	// client is the shared HTTP client.
	client *http.Client
	// userAgent is sent with every fetch request.
	userAgent string
}

// NewFetcher constructs a Fetcher. A non-positive timeout selects the
// default of 30 seconds.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = "semsearch/1.0 (article ingestion)"
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch retrieves the raw content of url. Any non-200 status is a fetch
// failure — the cycle logs it and retries on the next interval.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape: unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape: reading body: %w", err)
	}

	return body, nil
}
