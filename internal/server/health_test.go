package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger is a test double for the Pinger interface.
type fakePinger struct {
	// name is returned by Name().
	name string
	// err is returned by Ping(); nil means healthy.
	err error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// getReady drives a GET /api/ready request through the handler chain.
func getReady(t *testing.T, s *Server) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// TestHandleHealth_OK verifies that GET /health returns 200 with a JSON
// body containing {"status":"ok"}.
func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testDeps())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d — body: %s", w.Code, w.Body.String())
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: expected %q, got %q", "ok", body["status"])
	}
}

// TestHandleReady_NoPingers verifies that /api/ready returns 200 with
// ready:true when no pingers are registered (liveness-only mode).
func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testDeps())

	w := getReady(t, s)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Ready {
		t.Error("expected ready:true with no pingers")
	}
}

// TestHandleReady_AllHealthy verifies 200 with per-dependency checks when
// every probe succeeds.
func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testDeps())
	s.pingers = []Pinger{
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "embedder"},
	}

	w := getReady(t, s)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// TestHandleReady_OneFailing verifies 503 and a populated error field when a
// dependency probe fails.
func TestHandleReady_OneFailing(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testDeps())
	s.pingers = []Pinger{
		&fakePinger{name: "qdrant"},
		&fakePinger{name: "embedder", err: errors.New("connection refused")},
	}

	w := getReady(t, s)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Ready {
		t.Error("expected ready:false")
	}
	if len(resp.Checks) != 2 || resp.Checks[1].OK || resp.Checks[1].Error == "" {
		t.Errorf("unexpected checks: %+v", resp.Checks)
	}
}

// TestMultiPinger verifies the first failing probe is reported with its name.
func TestMultiPinger(t *testing.T) {
	t.Parallel()

	m := NewMultiPinger(
		&fakePinger{name: "a"},
		&fakePinger{name: "b", err: errors.New("down")},
		&fakePinger{name: "c"},
	)

	err := m.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error from failing pinger")
	}
	if got := err.Error(); got != "b: down" {
		t.Errorf("expected %q, got %q", "b: down", got)
	}
}
