package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/davrd/semsearch/internal/cache"
	"github.com/davrd/semsearch/internal/logging"
	"github.com/davrd/semsearch/internal/quota"
	"github.com/davrd/semsearch/internal/ratelimit"
	"github.com/davrd/semsearch/internal/scrape"
	"github.com/davrd/semsearch/internal/search"
	"github.com/davrd/semsearch/internal/server"
)

// NewServeCmd constructs the `semsearch serve` command, which starts the HTTP
// server and the background ingestion loops.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the semsearch HTTP server",
		Long: `Start the semsearch HTTP server.

The server exposes the search API (POST /search) behind per-client rate
limiting, a usage quota, and a short-TTL response cache, plus the scraping
control endpoints (POST /start_scraping, POST /stop_scraping) and the
operational surface (GET /health, GET /api/ready, GET /metrics).

URLs listed in SCRAPE_URLS (comma-separated) are tracked from boot.

Examples:
  semsearch serve
  semsearch serve --port 9090
  EMBEDDING_PROVIDER=openai semsearch serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// An unreachable index is a startup failure, not a degraded mode —
			// the service has nothing to search without it.
			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = idx.Close() }()

			orchestrator, err := search.NewOrchestrator(emb, idx, envInt("SEARCH_TOP_K", 3))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// Open the quota ledger. SEMSEARCH_QUOTA_DB overrides the default
			// path (~/.semsearch/ledger.db).
			dbPath := os.Getenv("SEMSEARCH_QUOTA_DB")
			if dbPath == "" {
				dbPath, err = quota.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
			}
			ledger, err := quota.Open(dbPath, int64(envInt("QUOTA_THRESHOLD", quota.DefaultThreshold)))
			if err != nil {
				return fmt.Errorf("serve: open quota ledger: %w", err)
			}
			defer func() { _ = ledger.Close() }()
			log.Info("quota ledger opened", slog.String("path", dbPath))

			limiter := ratelimit.New(
				envInt("RATE_LIMIT_REQUESTS", ratelimit.DefaultLimit),
				envDurationSeconds("RATE_LIMIT_WINDOW_SECONDS", ratelimit.DefaultWindow),
				log,
			)
			defer limiter.Close()

			resultCache := cache.New(
				envDurationSeconds("CACHE_TTL_SECONDS", cache.DefaultTTL),
				envInt("CACHE_MAX_ENTRIES", cache.DefaultMaxEntries),
			)

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			fetcher := scrape.NewFetcher(30*time.Second, "")
			supervisor, err := scrape.NewSupervisor(emb, idx, fetcher, scrapeConfigFromEnv(), registry, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer supervisor.Close()

			// Boot-time tracked URLs. A bad entry is logged and skipped, not fatal.
			for _, u := range strings.Split(os.Getenv("SCRAPE_URLS"), ",") {
				u = strings.TrimSpace(u)
				if u == "" {
					continue
				}
				if err := supervisor.Start(u); err != nil {
					log.Warn("serve: could not start tracking boot URL",
						slog.String("url", u),
						slog.Any("error", err),
					)
				}
			}

			pingers := []server.Pinger{idx}
			if probeURL, ok := embedderProbeURL(); ok {
				pingers = append(pingers, server.NewHTTPPinger(probeURL, "embedder"))
			}

			srv, err := server.New(server.Deps{
				Searcher:   orchestrator,
				Quota:      ledger,
				Limiter:    limiter,
				Cache:      resultCache,
				Supervisor: supervisor,
			}, &server.Config{
				Host:     host,
				Port:     port,
				Logger:   log,
				Pingers:  pingers,
				APIKey:   os.Getenv("SEMSEARCH_API_KEY"),
				Registry: registry,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
