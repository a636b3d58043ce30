// Package kvstore provides the durable key-value persistence used for
// session state. Values are scoped per origin, one row per key, and
// survive process restart.
package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wms-platform/heatmap-portal/pkg/logging"
)

// Metrics records KV operation outcomes
type Metrics interface {
	RecordKVOperation(operation string, success bool)
}

// Store is a SQLite-backed key-value store
type Store struct {
	db      *sql.DB
	origin  string
	logger  *logging.Logger
	metrics Metrics
}

// Open opens (creating if needed) the store at dbPath. Keys are namespaced
// by origin so multiple deployments can share one file.
func Open(dbPath, origin string, logger *logging.Logger, m Metrics) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping kv store: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv_entries (
			origin     TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (origin, key)
		)
	`); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("failed to create kv table: %w (also failed to close db: %v)", err, cerr)
		}
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Store{
		db:      db,
		origin:  origin,
		logger:  logger.WithComponent("kvstore"),
		metrics: m,
	}, nil
}

// Get returns the value for key and whether it exists
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE origin = ? AND key = ?",
		s.origin, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		s.metrics.RecordKVOperation("get", true)
		return "", false, nil
	}
	if err != nil {
		s.metrics.RecordKVOperation("get", false)
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	s.metrics.RecordKVOperation("get", true)
	s.logger.DatabaseQuery(ctx, "kvstore", "get", time.Since(start), true)
	return value, true, nil
}

// Set stores value under key, replacing any existing value
func (s *Store) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (origin, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (origin, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, s.origin, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.metrics.RecordKVOperation("set", false)
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	s.metrics.RecordKVOperation("set", true)
	s.logger.DatabaseQuery(ctx, "kvstore", "set", time.Since(start), true)
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_entries WHERE origin = ? AND key = ?",
		s.origin, key,
	)
	if err != nil {
		s.metrics.RecordKVOperation("remove", false)
		return fmt.Errorf("kv remove %q: %w", key, err)
	}
	s.metrics.RecordKVOperation("remove", true)
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
