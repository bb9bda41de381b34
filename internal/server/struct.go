package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/davrd/semsearch/internal/search"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// APIKey is the Bearer token required on the scraping control routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's prometheus metrics and backs GET /metrics.
	// If nil, a private registry is created (hermetic tests).
	Registry *prometheus.Registry
}

// Deps holds the collaborators the handlers delegate to. Production wiring
// passes the concrete types from their packages; tests inject fakes.
type Deps struct {
	// Searcher executes an admitted search request.
	Searcher searcher
	// Quota is the per-client usage ledger consulted on every search.
	Quota ledger
	// Limiter is the per-address request throttle.
	Limiter throttle
	// Cache is the short-TTL search response cache.
	Cache resultCache
	// Supervisor owns the background ingestion loops.
	Supervisor tracker
}

// searcher is the interface handleSearch calls to run an admitted query.
// *search.Orchestrator satisfies it.
type searcher interface {
	Search(ctx context.Context, query string, topK int) ([]search.Match, error)
}

// ledger is the slice of quota.Ledger the search handler needs.
type ledger interface {
	RecordAndCheck(ctx context.Context, clientID string) (count int64, exceeded bool, err error)
}

// throttle is the slice of ratelimit.Limiter the search handler needs.
type throttle interface {
	Allow(key string) bool
	Window() time.Duration
}

// resultCache is the slice of cache.Cache the search handler needs.
type resultCache interface {
	Get(key string) ([]search.Match, bool)
	Put(key string, matches []search.Match)
}

// tracker is the slice of scrape.Supervisor the scraping handlers need.
type tracker interface {
	Start(url string) error
	Stop(url string) error
	Tracked() []string
}

// Server is the HTTP server that exposes the search and scraping API.
type Server struct {
	// deps holds the handler collaborators.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the prometheus instruments owned by this server.
	metrics *serverMetrics
}

// searchRequest is the JSON body for POST /search.
type searchRequest struct {
	// Query is the natural language search text.
	Query string `json:"query"`
	// UserID identifies the client for quota accounting.
	UserID string `json:"user_id"`
	// TopK is the number of matches to return (default: 3).
	TopK int `json:"top_k"`
}

// searchResponse is the JSON response for POST /search.
type searchResponse struct {
	// Matches is the ranked result list, best first.
	Matches []search.Match `json:"matches"`
}

// scrapingRequest is the JSON body for POST /start_scraping and POST /stop_scraping.
type scrapingRequest struct {
	// URL is the page to track or untrack.
	URL string `json:"url"`
}

// messageResponse is the JSON body for successful scraping control calls.
type messageResponse struct {
	// Message is a human-readable confirmation.
	Message string `json:"message"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	// Error is a human-readable failure reason.
	Error string `json:"error"`
}
