package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/davrd/semsearch/internal/scrape"
)

// postScraping drives a request against the given scraping control path.
func postScraping(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleStartScraping_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testDeps())

	w := postScraping(t, s, "/start_scraping", `{"url":"https://example.com/feed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "scraping started") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestHandleStartScraping_Duplicate(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	deps.Supervisor = &fakeTracker{startErr: scrape.ErrAlreadyTracking}
	s := newTestServer(t, deps)

	w := postScraping(t, s, "/start_scraping", `{"url":"https://example.com/feed"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestHandleStartScraping_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{oops`},
		{"missing url", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testDeps())
			w := postScraping(t, s, "/start_scraping", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestHandleStartScraping_SupervisorFailure(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	deps.Supervisor = &fakeTracker{startErr: scrape.ErrClosed}
	s := newTestServer(t, deps)

	w := postScraping(t, s, "/start_scraping", `{"url":"https://example.com/feed"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHandleStopScraping_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testDeps())

	w := postScraping(t, s, "/stop_scraping", `{"url":"https://example.com/feed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleStopScraping_Unknown(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	deps.Supervisor = &fakeTracker{stopErr: scrape.ErrNotTracking}
	s := newTestServer(t, deps)

	w := postScraping(t, s, "/stop_scraping", `{"url":"https://example.com/feed"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// TestScrapingRoutes_RequireAuth verifies that the control endpoints enforce
// Bearer auth when an API key is configured, while /search stays open.
func TestScrapingRoutes_RequireAuth(t *testing.T) {
	t.Parallel()

	deps := testDeps()
	s, err := New(deps, &Config{
		Logger: discardLogger(),
		APIKey: "secret",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	w := postScraping(t, s, "/start_scraping", `{"url":"https://example.com/feed"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/start_scraping",
		strings.NewReader(`{"url":"https://example.com/feed"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d — body: %s", rec.Code, rec.Body.String())
	}

	// /search is not behind auth.
	wSearch := postSearch(t, s, `{"query":"q","user_id":"u1"}`)
	if wSearch.Code != http.StatusOK {
		t.Fatalf("expected 200 on /search without token, got %d", wSearch.Code)
	}
}
