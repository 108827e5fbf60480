// Package storage persists the whole application state as a single JSON
// document under one key in a local SQLite database. The document is written
// inside a transaction so readers only ever observe the old or the new value.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// StateKey is the fixed key the state document lives under, kept from the
// original deployment so imported backups stay compatible.
const StateKey = "financeApp"

var ErrMalformedDocument = errors.New("malformed state document")

type StateStore struct {
	db   *sql.DB
	key  string
	seed func(time.Time) core.AppState
}

// NewStateStore opens (and migrates) the database at dbPath. seed provides
// the fallback state for first runs and unreadable documents; nil means
// core.SeedState.
func NewStateStore(dbPath string, seed func(time.Time) core.AppState) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if seed == nil {
		seed = core.SeedState
	}

	return &StateStore{db: db, key: StateKey, seed: seed}, nil
}

func (s *StateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the persisted state. A missing or unparseable document falls
// back to the seed state; only infrastructure failures surface as errors.
func (s *StateStore) Load(ctx context.Context) (core.AppState, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM app_state WHERE key = ?`, s.key).Scan(&document)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		slog.InfoContext(ctx, "No stored state, using seed", "key", s.key)
		return s.seed(time.Now()), nil
	case err != nil:
		return core.AppState{}, fmt.Errorf("load state: %w", err)
	}

	var state core.AppState
	if err := json.Unmarshal([]byte(document), &state); err != nil {
		slog.WarnContext(ctx, "Stored state unreadable, falling back to seed",
			"key", s.key, "error", err)
		return s.seed(time.Now()), nil
	}
	return state, nil
}

// Save replaces the stored document with the serialized state. The upsert
// runs in a transaction, so a failed write leaves the previous document
// intact.
func (s *StateStore) Save(ctx context.Context, state core.AppState) error {
	document, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.put(ctx, document); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Export returns the stored document verbatim, or the serialized seed when
// nothing has been stored yet.
func (s *StateStore) Export(ctx context.Context) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM app_state WHERE key = ?`, s.key).Scan(&document)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		raw, err := json.Marshal(s.seed(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("marshal seed state: %w", err)
		}
		return raw, nil
	case err != nil:
		return nil, fmt.Errorf("export state: %w", err)
	}
	return []byte(document), nil
}

// Import replaces the stored document with raw after checking that it parses
// as an application state. A malformed document is rejected and the existing
// document stays untouched. The replacement takes effect on next load.
func (s *StateStore) Import(ctx context.Context, raw []byte) error {
	var state core.AppState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := s.put(ctx, raw); err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	slog.InfoContext(ctx, "State document imported", "key", s.key, "bytes", len(raw))
	return nil
}

// Erase removes the stored document. The next Load starts from the seed.
func (s *StateStore) Erase(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM app_state WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("erase state: %w", err)
	}
	slog.InfoContext(ctx, "State document erased", "key", s.key)
	return nil
}

func (s *StateStore) put(ctx context.Context, document []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_state (key, document, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		s.key, string(document))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ExportFilename names a backup artifact for the given day.
func ExportFilename(now time.Time) string {
	return "finance-backup-" + now.Format("2006-01-02") + ".json"
}
