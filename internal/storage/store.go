// Package storage provides the durable key/value blob store backing the
// popup. Values are JSON documents kept in a single SQLite table.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jwulff/trustguard/internal/model"

	_ "modernc.org/sqlite"
)

// Reserved keys. Only KeySettings and KeyPreferences are read or written by
// the popup itself; the rest belong to the background process.
const (
	KeySettings       = "settings"
	KeySessionHistory = "session_history"
	KeyStatistics     = "statistics"
	KeyAlertHistory   = "alert_history"
	KeyCache          = "cache"
	KeyPreferences    = "ui_preferences"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updatedAt REAL NOT NULL
	);
`

// Store is a SQLite-backed key/value store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "trustguard", "popup.sqlite")
}

// Open opens (creating if needed) the database at path with WAL.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key. ok is false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	var text string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(text), true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("set %s: value is not valid JSON", key)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
	`, key, string(value), unixFromTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or nil if it is absent.
func (s *Store) UpdatedAt(ctx context.Context, key string) (*time.Time, error) {
	var ts float64
	err := s.db.QueryRowContext(ctx, `SELECT updatedAt FROM kv WHERE key = ?`, key).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updatedAt %s: %w", key, err)
	}
	t := timeFromUnix(ts)
	return &t, nil
}

// LoadSettings returns the persisted settings. ok is false when nothing has
// been saved yet.
func (s *Store) LoadSettings(ctx context.Context) (model.ExtensionSettings, bool, error) {
	var settings model.ExtensionSettings
	ok, err := s.getJSON(ctx, KeySettings, &settings)
	return settings, ok, err
}

// SaveSettings persists the settings record.
func (s *Store) SaveSettings(ctx context.Context, settings model.ExtensionSettings) error {
	return s.setJSON(ctx, KeySettings, settings)
}

type preferences struct {
	Theme string `json:"theme"`
}

// LoadTheme returns the persisted theme name, or "" when none was saved.
func (s *Store) LoadTheme(ctx context.Context) (string, error) {
	var p preferences
	if _, err := s.getJSON(ctx, KeyPreferences, &p); err != nil {
		return "", err
	}
	return p.Theme, nil
}

// SaveTheme persists the theme name.
func (s *Store) SaveTheme(ctx context.Context, theme string) error {
	return s.setJSON(ctx, KeyPreferences, preferences{Theme: theme})
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// unixFromTime returns t as the fractional Unix seconds kept in updatedAt.
func unixFromTime(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func timeFromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
