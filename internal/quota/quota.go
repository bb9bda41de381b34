// Package quota provides the SQLite-backed per-client request ledger.
// Every search attempt increments the client's counter; once the counter
// passes the configured threshold, further requests are rejected. The
// counter is a lifetime cap — it never resets on its own (an explicit Reset
// exists for operators). This is deliberately a separate policy from the
// short-window rate limiter.
package quota

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// DefaultThreshold is the request count above which a client is rejected
// when no explicit threshold is configured.
const DefaultThreshold = 5

// Ledger records per-client request counts and reports quota exceedance.
// Implementations must serialize concurrent increments for the same client
// (no lost updates) and be safe for concurrent use across clients.
type Ledger interface {
	// RecordAndCheck atomically increments the client's request count and
	// reports the post-increment count and whether it exceeds the threshold.
	RecordAndCheck(ctx context.Context, clientID string) (count int64, exceeded bool, err error)

	// Reset zeroes the client's request count. Operator escape hatch —
	// not exposed over HTTP.
	Reset(ctx context.Context, clientID string) error

	// Close releases any resources held by the ledger.
	Close() error
}

// SQLiteLedger is a Ledger backed by a local SQLite database.
type SQLiteLedger struct {
	// db is the underlying database connection pool.
	db *sql.DB

	// threshold is the request count above which a client is rejected.
	threshold int64
}

// DefaultDBPath returns the default path for the quota ledger database.
// It resolves to ~/.semsearch/ledger.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("quota: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".semsearch")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("quota: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteLedger at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
// threshold <= 0 selects DefaultThreshold.
func Open(path string, threshold int64) (*SQLiteLedger, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("quota: open %s: %w", path, err)
	}
	// A single writer connection serializes increments and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db, threshold: threshold}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// migrate creates the schema if it does not already exist.
func (l *SQLiteLedger) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS client_quota (
    client_id     TEXT    PRIMARY KEY,
    request_count INTEGER NOT NULL DEFAULT 0 CHECK(request_count >= 0),
    updated_at    INTEGER NOT NULL  -- Unix timestamp (seconds)
);
`
	if _, err := l.db.Exec(ddl); err != nil {
		return fmt.Errorf("quota: migrate: %w", err)
	}
	return nil
}

// RecordAndCheck atomically loads-or-creates the client row, increments its
// request count, and reports whether the post-increment count exceeds the
// threshold. The upsert-and-return runs as one statement, so concurrent
// callers for the same client always observe distinct, monotonic counts.
func (l *SQLiteLedger) RecordAndCheck(ctx context.Context, clientID string) (int64, bool, error) {
	const q = `
INSERT INTO client_quota (client_id, request_count, updated_at)
VALUES (?, 1, ?)
ON CONFLICT(client_id) DO UPDATE SET
    request_count = request_count + 1,
    updated_at    = excluded.updated_at
RETURNING request_count`

	var count int64
	if err := l.db.QueryRowContext(ctx, q, clientID, time.Now().Unix()).Scan(&count); err != nil {
		return 0, false, fmt.Errorf("quota: record %s: %w", clientID, err)
	}
	return count, count > l.threshold, nil
}

// Reset zeroes the client's request count. Resetting an unknown client is a
// no-op, not an error.
func (l *SQLiteLedger) Reset(ctx context.Context, clientID string) error {
	const q = `UPDATE client_quota SET request_count = 0, updated_at = ? WHERE client_id = ?`
	if _, err := l.db.ExecContext(ctx, q, time.Now().Unix(), clientID); err != nil {
		return fmt.Errorf("quota: reset %s: %w", clientID, err)
	}
	return nil
}

// Threshold returns the configured quota threshold.
func (l *SQLiteLedger) Threshold() int64 { return l.threshold }

// Close releases the database connection pool.
func (l *SQLiteLedger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("quota: close: %w", err)
	}
	return nil
}
