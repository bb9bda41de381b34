// Package config provides YAML-based configuration for semsearch.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. SEMSEARCH_CONFIG environment variable
//  3. ~/.semsearch/config.yaml
//  4. ./semsearch.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Qdrant configures the Qdrant vector store connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// RateLimit configures per-client request throttling.
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	// Quota configures the per-client usage ledger.
	Quota QuotaConfig `yaml:"quota"`

	// Cache configures the search response cache.
	Cache CacheConfig `yaml:"cache"`

	// Scrape configures the background article ingestion.
	Scrape ScrapeConfig `yaml:"scrape"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for scraping control endpoints.
	// Prefer env var SEMSEARCH_API_KEY.
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// RateLimitConfig holds per-client throttling settings.
type RateLimitConfig struct {
	// Requests is the number of requests permitted per window.
	Requests int `yaml:"requests"`
	// WindowSeconds is the length of the throttle window in seconds.
	WindowSeconds int `yaml:"window_seconds"`
}

// QuotaConfig holds per-client usage ledger settings.
type QuotaConfig struct {
	// Threshold is the number of requests a client may make before 429s.
	Threshold int `yaml:"threshold"`
	// DBPath is the SQLite ledger database path.
	DBPath string `yaml:"db_path"`
}

// CacheConfig holds search response cache settings.
type CacheConfig struct {
	// TTLSeconds is how long a cached response stays fresh.
	TTLSeconds int `yaml:"ttl_seconds"`
	// MaxEntries bounds the number of cached responses.
	MaxEntries int `yaml:"max_entries"`
}

// ScrapeConfig holds background ingestion settings.
type ScrapeConfig struct {
	// IntervalSeconds is the delay between ingestion cycles per URL.
	IntervalSeconds int `yaml:"interval_seconds"`
	// TimeoutSeconds bounds a single ingestion cycle.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Workers is the size of the shared embed/upsert worker pool.
	Workers int `yaml:"workers"`
	// URLs lists pages to start tracking at boot.
	URLs []string `yaml:"urls"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"SEMSEARCH_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"RATE_LIMIT_REQUESTS", func(c *Config) string { return intStr(c.RateLimit.Requests) }},
	{"RATE_LIMIT_WINDOW_SECONDS", func(c *Config) string { return intStr(c.RateLimit.WindowSeconds) }},
	{"QUOTA_THRESHOLD", func(c *Config) string { return intStr(c.Quota.Threshold) }},
	{"SEMSEARCH_QUOTA_DB", func(c *Config) string { return c.Quota.DBPath }},
	{"CACHE_TTL_SECONDS", func(c *Config) string { return intStr(c.Cache.TTLSeconds) }},
	{"CACHE_MAX_ENTRIES", func(c *Config) string { return intStr(c.Cache.MaxEntries) }},
	{"SCRAPE_INTERVAL_SECONDS", func(c *Config) string { return intStr(c.Scrape.IntervalSeconds) }},
	{"SCRAPE_TIMEOUT_SECONDS", func(c *Config) string { return intStr(c.Scrape.TimeoutSeconds) }},
	{"SCRAPE_WORKERS", func(c *Config) string { return intStr(c.Scrape.Workers) }},
	{"SCRAPE_URLS", func(c *Config) string { return strings.Join(c.Scrape.URLs, ",") }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("SEMSEARCH_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".semsearch", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("semsearch.yaml"); err == nil {
		return "semsearch.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
