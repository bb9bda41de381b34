package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/davrd/semsearch/internal/search"
)

// errLedgerDown simulates a quota store failure.
var errLedgerDown = errors.New("ledger unavailable")

// okHandler is a trivial handler used to observe middleware pass-through.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// fakeSearcher records calls and returns canned matches or an error.
type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	matches []search.Match
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]search.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.matches, f.err
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLedger returns a scripted quota decision.
type fakeLedger struct {
	mu       sync.Mutex
	calls    int
	count    int64
	exceeded bool
	err      error
}

func (f *fakeLedger) RecordAndCheck(_ context.Context, _ string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.count++
	return f.count, f.exceeded, f.err
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeThrottle allows or rejects every request.
type fakeThrottle struct {
	allow bool
}

func (f *fakeThrottle) Allow(string) bool     { return f.allow }
func (f *fakeThrottle) Window() time.Duration { return time.Minute }

// fakeCache is a plain map cache with no TTL, adequate for handler tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]search.Match
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]search.Match)}
}

func (f *fakeCache) Get(key string) ([]search.Match, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.entries[key]
	return m, ok
}

func (f *fakeCache) Put(key string, matches []search.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = matches
}

// fakeTracker returns scripted errors from Start and Stop.
type fakeTracker struct {
	startErr error
	stopErr  error
	tracked  []string
}

func (f *fakeTracker) Start(string) error { return f.startErr }
func (f *fakeTracker) Stop(string) error  { return f.stopErr }
func (f *fakeTracker) Tracked() []string  { return f.tracked }

// testDeps returns a Deps where every admission step passes.
func testDeps() Deps {
	return Deps{
		Searcher:   &fakeSearcher{matches: []search.Match{{ID: "https://example.com/a", Score: 0.9}}},
		Quota:      &fakeLedger{},
		Limiter:    &fakeThrottle{allow: true},
		Cache:      newFakeCache(),
		Supervisor: &fakeTracker{},
	}
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestServer builds a Server with passing fakes and a private registry.
func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	s, err := New(deps, &Config{
		Logger:   slog.New(slog.DiscardHandler),
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}
