// Package ratelimit provides the per-client request throttle for the search
// API. Each client key (the remote network address) gets a token bucket that
// refills at limit-per-window, so a client can spend its whole allowance in
// a burst and is then held to the sustained rate — a sliding window in
// effect. State lives in-process: there is no backing store that can fail,
// which removes the fail-open-on-store-error hazard a shared external
// limiter store would carry.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultLimit is the number of requests allowed per window when no
	// explicit limit is configured.
	DefaultLimit = 5

	// DefaultWindow is the throttle window when none is configured.
	DefaultWindow = time.Minute
)

// clientLimiter holds a token bucket and the last time it was seen, used to
// evict stale entries from the limiter map.
type clientLimiter struct {
	// limiter is the per-client token bucket.
	limiter *rate.Limiter
	// lastSeen is updated on every request from this client.
	lastSeen time.Time
}

// Limiter enforces a per-client request limit. Safe for concurrent use.
// Stale client entries are evicted periodically to bound memory usage.
type Limiter struct {
	// mu protects the clients map.
	mu sync.Mutex
	// clients maps client key to its per-client state.
	clients map[string]*clientLimiter
	// limit is the number of requests allowed per window.
	limit int
	// window is the throttle window duration.
	window time.Duration
	// log is the structured logger for throttle decisions.
	log *slog.Logger
	// stopCh stops the background eviction goroutine.
	stopCh chan struct{}
	// stopOnce guards double Close.
	stopOnce sync.Once
}

// New constructs a Limiter allowing limit requests per window per client key
// and starts the background eviction goroutine. Call Close to stop it.
// Non-positive limit or window select the defaults (5 per minute).
func New(limit int, window time.Duration, log *slog.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = slog.Default()
	}

	l := &Limiter{
		clients: make(map[string]*clientLimiter),
		limit:   limit,
		window:  window,
		log:     log,
		stopCh:  make(chan struct{}),
	}

	go l.evictLoop()

	return l
}

// Allow reports whether the client identified by key may proceed, consuming
// one token if so. Rejections have no side effect beyond the decision log.
func (l *Limiter) Allow(key string) bool {
	allowed := l.bucket(key).Allow()
	if !allowed {
		l.log.Warn("rate limit exceeded", slog.String("client", key))
	}
	return allowed
}

// Window returns the configured throttle window, used by callers to fill
// the Retry-After response header.
func (l *Limiter) Window() time.Duration { return l.window }

// bucket returns the token bucket for the given key, creating one if it
// does not already exist.
func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[key]
	if !ok {
		// Refill at limit/window with burst = limit: the full allowance is
		// available immediately, then replenishes one token per window/limit.
		r := rate.Limit(float64(l.limit) / l.window.Seconds())
		entry = &clientLimiter{limiter: rate.NewLimiter(r, l.limit)}
		l.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// evictLoop removes client entries that have not been seen for more than
// three windows. Runs in a background goroutine until Close.
func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

// evict removes stale client entries. An entry older than three windows has
// a fully refilled bucket, so dropping it does not change any decision.
func (l *Limiter) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-3 * l.window)
	for key, entry := range l.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Close stops the background eviction goroutine. Safe to call twice.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
