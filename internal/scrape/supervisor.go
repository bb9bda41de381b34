package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/davrd/semsearch/internal/search"
)

// Tracking errors returned by Start and Stop.
var (
	// ErrAlreadyTracking is returned by Start when the URL already has a
	// live ingestion loop. Duplicate starts are a no-op — never a second task.
	ErrAlreadyTracking = errors.New("scrape: url already tracked")

	// ErrNotTracking is returned by Stop for a URL with no live loop.
	ErrNotTracking = errors.New("scrape: url not tracked")

	// ErrClosed is returned by Start after the supervisor has shut down.
	ErrClosed = errors.New("scrape: supervisor closed")
)

// Cycle failure kinds, used to partition the cycle outcome metric.
var (
	errFetch = errors.New("fetch failed")
	errParse = errors.New("parse failed")
)

// Config holds the supervisor's timing and concurrency settings.
type Config struct {
	// Interval is the pause between ingestion cycles per URL (default: 1h).
	Interval time.Duration

	// CycleTimeout bounds one whole fetch→extract→embed→upsert pass
	// (default: 10m). A cycle that overruns is cancelled and retried on
	// the next interval.
	CycleTimeout time.Duration

	// Workers is the size of the shared embed/upsert worker pool shared by
	// all tracked URLs (default: 4).
	Workers int
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = 10 * time.Minute
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// Supervisor owns one background ingestion loop per tracked URL. Each loop
// runs a cycle immediately on start and then on a fixed interval; cycle
// failures are logged and never stop the loop. Loops share nothing but the
// worker pool and the index, which is concurrent-safe by contract.
type Supervisor struct {
	// embedder converts article text to vectors.
	embedder search.Embedder
	// index receives the upserts.
	index search.Index
	// fetcher retrieves tracked pages.
	fetcher *Fetcher
	// cfg holds the resolved configuration.
	cfg Config
	// pool runs per-article embed+upsert jobs for all loops.
	pool *ants.Pool
	// log is the structured logger for cycle outcomes.
	log *slog.Logger
	// metrics holds the prometheus instruments for this supervisor.
	metrics *supervisorMetrics

	// mu protects tasks and closed.
	mu sync.Mutex
	// tasks maps tracked URL to its loop's cancel function.
	tasks map[string]context.CancelFunc
	// closed is set once Close has run; Start then fails.
	closed bool
	// wg tracks live loops for bounded shutdown.
	wg sync.WaitGroup
}

// NewSupervisor constructs a Supervisor. reg may be nil to skip metric
// registration (tests). Call Close to stop all loops and release the pool.
func NewSupervisor(embedder search.Embedder, index search.Index, fetcher *Fetcher, cfg Config, reg prometheus.Registerer, log *slog.Logger) (*Supervisor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("scrape: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("scrape: index must not be nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("scrape: fetcher must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.defaults()

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("scrape: create worker pool: %w", err)
	}

	return &Supervisor{
		embedder: embedder,
		index:    index,
		fetcher:  fetcher,
		cfg:      cfg,
		pool:     pool,
		log:      log,
		metrics:  newSupervisorMetrics(reg),
		tasks:    make(map[string]context.CancelFunc),
	}, nil
}

// Start begins a background ingestion loop for rawURL. At most one loop per
// URL exists; a duplicate start returns ErrAlreadyTracking without spawning
// anything. The first cycle runs immediately.
func (s *Supervisor) Start(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("scrape: invalid url %q", rawURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.tasks[rawURL]; ok {
		return ErrAlreadyTracking
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.tasks[rawURL] = cancel
	s.wg.Add(1)
	go s.loop(ctx, rawURL)

	s.log.Info("scrape: tracking started",
		slog.String("url", rawURL),
		slog.Duration("interval", s.cfg.Interval),
	)
	return nil
}

// Stop cancels the ingestion loop for rawURL. The in-flight cycle, if any,
// is cancelled cooperatively.
func (s *Supervisor) Stop(rawURL string) error {
	s.mu.Lock()
	cancel, ok := s.tasks[rawURL]
	if ok {
		delete(s.tasks, rawURL)
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotTracking
	}
	cancel()
	s.log.Info("scrape: tracking stopped", slog.String("url", rawURL))
	return nil
}

// Tracked returns the sorted list of URLs with live loops.
func (s *Supervisor) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.tasks))
	for u := range s.tasks {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Close cancels every loop, waits for them to finish, and releases the
// worker pool. In-flight cycles observe the cancellation and return within
// the collaborator timeouts.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	for u, cancel := range s.tasks {
		cancel()
		delete(s.tasks, u)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.pool.Release()
}

// loop runs ingestion cycles for one URL until its context is cancelled.
func (s *Supervisor) loop(ctx context.Context, url string) {
	defer s.wg.Done()

	s.cycle(ctx, url)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx, url)
		}
	}
}

// cycle runs one bounded ingestion pass and records its outcome. Failures
// are logged, never propagated — the loop always rearms.
func (s *Supervisor) cycle(ctx context.Context, url string) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	stored, err := s.RunOnce(ctx, url)

	outcome := "ok"
	switch {
	case errors.Is(err, errFetch):
		outcome = "fetch_error"
	case errors.Is(err, errParse):
		outcome = "parse_error"
	case err == nil && stored == 0:
		outcome = "empty"
	case err != nil:
		outcome = "error"
	}

	s.metrics.cyclesTotal.WithLabelValues(outcome).Inc()
	s.metrics.cycleDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.log.Error("scrape: cycle failed",
			slog.String("url", url),
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)
		return
	}
	s.log.Info("scrape: cycle complete",
		slog.String("url", url),
		slog.Int("articles_stored", stored),
		slog.Duration("duration", time.Since(start)),
	)
}

// RunOnce executes a single fetch→extract→embed→upsert pass for url and
// returns the number of articles stored. Used by every scheduled cycle and
// by the one-shot `semsearch scrape` command.
func (s *Supervisor) RunOnce(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CycleTimeout)
	defer cancel()

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errFetch, err)
	}

	articles, err := Extract(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errParse, err)
	}
	if len(articles) == 0 {
		s.log.Warn("scrape: no articles extracted", slog.String("url", url))
		return 0, nil
	}

	// Each article embeds and upserts independently on the shared pool, so
	// one bad record cannot block the rest of the page.
	var wg sync.WaitGroup
	var stored atomic.Int64
	for _, a := range articles {
		wg.Add(1)
		job := func() {
			defer wg.Done()
			if err := s.ingest(ctx, a); err != nil {
				s.metrics.recordFailures.Inc()
				s.log.Error("scrape: article ingest failed",
					slog.String("url", url),
					slog.String("link", a.Link),
					slog.Any("error", err),
				)
				return
			}
			stored.Add(1)
			s.metrics.recordsTotal.Inc()
		}
		if err := s.pool.Submit(job); err != nil {
			wg.Done()
			s.metrics.recordFailures.Inc()
			s.log.Error("scrape: submit to pool failed",
				slog.String("url", url),
				slog.Any("error", err),
			)
		}
	}
	wg.Wait()

	return int(stored.Load()), nil
}

// ingest embeds one article's text and upserts it into the index.
func (s *Supervisor) ingest(ctx context.Context, a search.Article) error {
	embeddings, err := s.embedder.Embed(ctx, []string{a.Text()})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embed: empty result")
	}
	if err := s.index.Upsert(ctx, []search.Article{a}, embeddings[:1]); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}
