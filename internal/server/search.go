package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/davrd/semsearch/internal/cache"
	"github.com/davrd/semsearch/internal/logging"
	"github.com/davrd/semsearch/internal/search"
)

// maxTopK bounds the result count a client may request.
const maxTopK = 100

// handleSearch handles POST /search. Admission runs in a fixed order:
//
//	validate → cache get → rate limit → quota → orchestrator → cache put
//
// A cache hit returns before the limiter and the ledger are consulted, so
// cached repeats cost a client nothing. Every request that reaches the quota
// step increments the ledger exactly once, whether or not the search itself
// later succeeds.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	outcome := outcomeError
	defer func() {
		s.metrics.searchRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.searchDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be between 0 and %d", maxTopK))
		return
	}

	key := cache.Key(req.Query, req.UserID, req.TopK)
	if matches, ok := s.deps.Cache.Get(key); ok {
		log.Debug("search: cache hit", slog.String("user_id", req.UserID))
		outcome = outcomeCacheHit
		writeJSON(w, http.StatusOK, searchResponse{Matches: matches})
		return
	}

	addr := clientIP(r)
	if !s.deps.Limiter.Allow(addr) {
		outcome = outcomeThrottled
		w.Header().Set("Retry-After", strconv.Itoa(int(s.deps.Limiter.Window().Seconds())))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	count, exceeded, err := s.deps.Quota.RecordAndCheck(r.Context(), req.UserID)
	if err != nil {
		log.Error("search: quota check failed",
			slog.String("user_id", req.UserID),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "quota check failed")
		return
	}
	if exceeded {
		log.Warn("search: quota exceeded",
			slog.String("user_id", req.UserID),
			slog.Int64("request_count", count),
		)
		outcome = outcomeQuotaExceeded
		writeError(w, http.StatusTooManyRequests, "request quota exceeded")
		return
	}

	matches, err := s.deps.Searcher.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		log.Error("search: failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if matches == nil {
		// Keep the JSON shape stable: "matches":[] rather than null.
		matches = []search.Match{}
	}

	s.deps.Cache.Put(key, matches)

	log.Info("search: complete",
		slog.String("user_id", req.UserID),
		slog.Int("matches", len(matches)),
		slog.Int64("request_count", count),
	)
	outcome = outcomeOK
	writeJSON(w, http.StatusOK, searchResponse{Matches: matches})
}
