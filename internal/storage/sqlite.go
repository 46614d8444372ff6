// Package storage persists mapping runs in SQLite so that re-running
// the same template, data, and strategy returns the cached result
// instead of repeating the match.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mapflow/mapflow/internal/common"
	"github.com/mapflow/mapflow/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the SQLite-backed mapping cache.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and migrates) the cache database at dbPath,
// creating parent directories as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: empty database path", common.ErrInvalidConfig)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RunKey derives the cache key for a mapping run from the raw template
// bytes, raw data bytes, and the strategy name. Any change to any of
// the three yields a different key.
func RunKey(template, data []byte, strategy string) string {
	h := sha256.New()
	h.Write(template)
	h.Write([]byte{0})
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(strategy))
	return hex.EncodeToString(h.Sum(nil))
}

// GetRun returns the cached mapping set for a key, or ErrNotFound.
func (s *SQLiteStore) GetRun(ctx context.Context, key string) (*model.MappingSet, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT mapping_json FROM mapping_runs WHERE run_key = ?`, key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping run: %w", err)
	}

	var set model.MappingSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("failed to decode cached mapping run: %w", err)
	}
	return &set, nil
}

// PutRun stores (or replaces) the mapping set under the key.
// Last write wins.
func (s *SQLiteStore) PutRun(ctx context.Context, key string, set *model.MappingSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode mapping run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mapping_runs (run_key, mapping_id, method, mapping_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_key) DO UPDATE SET
			mapping_id = excluded.mapping_id,
			method = excluded.method,
			mapping_json = excluded.mapping_json,
			created_at = excluded.created_at
	`, key, set.ID, set.Method, payload, set.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store mapping run: %w", err)
	}
	return nil
}

// DeleteRun removes one cached run. Missing keys are not an error.
func (s *SQLiteStore) DeleteRun(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mapping_runs WHERE run_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete mapping run: %w", err)
	}
	return nil
}

// Clear removes every cached run and returns how many were deleted.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mapping_runs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear mapping cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared rows: %w", err)
	}
	return n, nil
}

// Count returns the number of cached runs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mapping_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mapping runs: %w", err)
	}
	return n, nil
}
