// Package store handles SQLite persistence of the locally mirrored state.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/fieldclock/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Keys of the mirrored state.
const (
	KeyCurrentTech    = "current_tech"
	KeyClockSession   = "clock_session"
	KeyTimeEntries    = "time_entries"
	KeyMileageEntries = "mileage_entries"
)

// Store is a string-keyed JSON value store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get decodes the value stored under key into dst. It reports false when the
// key is absent.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key string, value any) error {
	return put(ctx, s.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, db execer, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().Format(time.RFC3339Nano))
	return err
}

// LoadSnapshot reads the mirrored state. Missing keys leave zero values.
func (s *Store) LoadSnapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	if _, err := s.Get(ctx, KeyCurrentTech, &snap.Technician); err != nil {
		return model.Snapshot{}, err
	}
	if _, err := s.Get(ctx, KeyClockSession, &snap.Clock); err != nil {
		return model.Snapshot{}, err
	}
	if _, err := s.Get(ctx, KeyTimeEntries, &snap.TimeEntries); err != nil {
		return model.Snapshot{}, err
	}
	if _, err := s.Get(ctx, KeyMileageEntries, &snap.MileageEntries); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// SaveSnapshot rewrites every mirrored key in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	timeEntries := snap.TimeEntries
	if timeEntries == nil {
		timeEntries = []model.TimeEntry{}
	}
	mileageEntries := snap.MileageEntries
	if mileageEntries == nil {
		mileageEntries = []model.MileageEntry{}
	}
	values := []struct {
		key   string
		value any
	}{
		{KeyCurrentTech, snap.Technician},
		{KeyClockSession, snap.Clock},
		{KeyTimeEntries, timeEntries},
		{KeyMileageEntries, mileageEntries},
	}
	for _, v := range values {
		if err = put(ctx, tx, v.key, v.value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Clear removes all mirrored state.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	return err
}
