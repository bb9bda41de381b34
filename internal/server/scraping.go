package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/davrd/semsearch/internal/logging"
	"github.com/davrd/semsearch/internal/scrape"
)

// handleStartScraping handles POST /start_scraping. Starting a URL that is
// already tracked returns 409 without spawning a second loop.
func (s *Server) handleStartScraping(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req scrapingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	err := s.deps.Supervisor.Start(req.URL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messageResponse{Message: "scraping started for " + req.URL})

	case errors.Is(err, scrape.ErrAlreadyTracking):
		writeError(w, http.StatusConflict, "url is already being scraped")

	case strings.Contains(err.Error(), "invalid url"):
		writeError(w, http.StatusBadRequest, "invalid url")

	default:
		log.Error("scraping start failed",
			slog.String("url", req.URL),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "could not start scraping")
	}
}

// handleStopScraping handles POST /stop_scraping.
func (s *Server) handleStopScraping(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req scrapingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	err := s.deps.Supervisor.Stop(req.URL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messageResponse{Message: "scraping stopped for " + req.URL})

	case errors.Is(err, scrape.ErrNotTracking):
		writeError(w, http.StatusNotFound, "url is not being scraped")

	default:
		log.Error("scraping stop failed",
			slog.String("url", req.URL),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "could not stop scraping")
	}
}
