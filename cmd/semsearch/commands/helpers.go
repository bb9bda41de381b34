package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/davrd/semsearch/internal/embedder"
	"github.com/davrd/semsearch/internal/index"
	"github.com/davrd/semsearch/internal/scrape"
	"github.com/davrd/semsearch/internal/search"
)

// envInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envDurationSeconds reads an env var holding a second count and returns it
// as a duration, or fallback when unset or unparseable.
func envDurationSeconds(key string, fallback time.Duration) time.Duration {
	if v := envInt(key, 0); v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}

// buildEmbedder validates the embedding configuration and constructs the
// embedder from the environment.
func buildEmbedder(log *slog.Logger) (search.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	log.Info("embedder initialised", slog.String("backend", embedder.Backend()))
	return emb, nil
}

// buildIndex connects to Qdrant using the environment configuration and
// ensures the collection exists. The vector size follows the embedding
// backend's default unless EMBEDDING_DIMENSIONS overrides it.
func buildIndex(ctx context.Context, log *slog.Logger) (*index.Qdrant, error) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		host = "localhost"
	}
	collection := os.Getenv("QDRANT_COLLECTION")
	if collection == "" {
		collection = "articles"
	}

	idx, err := index.New(ctx, &index.Config{
		Host:       host,
		Port:       envInt("QDRANT_PORT", 6334),
		Collection: collection,
		VectorSize: uint64(embedder.DefaultDimensions(embedder.Backend())),
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant at %s: %w", host, err)
	}
	log.Info("index initialised",
		slog.String("host", host),
		slog.String("collection", collection),
	)
	return idx, nil
}

// scrapeConfigFromEnv resolves the ingestion supervisor settings.
func scrapeConfigFromEnv() scrape.Config {
	return scrape.Config{
		Interval:     envDurationSeconds("SCRAPE_INTERVAL_SECONDS", time.Hour),
		CycleTimeout: envDurationSeconds("SCRAPE_TIMEOUT_SECONDS", 10*time.Minute),
		Workers:      envInt("SCRAPE_WORKERS", 4),
	}
}

// embedderProbeURL returns the HTTP endpoint to probe for embedder readiness.
// Only the ollama backend exposes an unauthenticated endpoint worth probing;
// for the hosted backends ok is false and no probe is registered.
func embedderProbeURL() (string, bool) {
	if embedder.Backend() != "ollama" {
		return "", false
	}
	host := os.Getenv("EMBEDDING_ENDPOINT")
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	return host, true
}
