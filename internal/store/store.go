package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// ErrNotFound is returned when a key or setting does not exist.
var ErrNotFound = errors.New("not found")

// Store is the device's durable state: namespaced key-value buckets, the
// settings table and the session log, all in one SQLite file.
type Store struct {
	db *sql.DB
}

// Every write is synchronous so a power cut loses at most the write in
// flight.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=FULL",
	"PRAGMA busy_timeout=5000",
}

// New opens (or creates) the SQLite database at dbPath and brings its schema
// up to date.
func New(dbPath string) (*Store, error) {
	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection: an in-memory database is private to its connection
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory returns a store that lives only as long as the process.
func NewMemory() (*Store, error) {
	return New(memoryPath)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations[i] moves the schema from user_version i to i+1.
var migrations = []string{
	`
	CREATE TABLE kv (
		bucket      TEXT NOT NULL,
		key         TEXT NOT NULL,
		value       BLOB NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		PRIMARY KEY (bucket, key)
	);

	CREATE TABLE session_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		day         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		minutes     INTEGER NOT NULL DEFAULT 0,
		completed   INTEGER NOT NULL DEFAULT 0,
		ended_at    TEXT NOT NULL
	);
	CREATE INDEX idx_session_log_day ON session_log(day);

	CREATE TABLE settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	INSERT INTO settings (key, value) VALUES
		('pomodoro_mode',        'classic'),
		('pomodoro_work',        '25'),
		('pomodoro_short_break', '5'),
		('pomodoro_long_break',  '15'),
		('pomodoro_sessions',    '4'),
		('auto_start_breaks',    'true'),
		('auto_start_work',      'false');
	`,
}

// SchemaVersion is the user_version a fully migrated database reports.
func SchemaVersion() int { return len(migrations) }

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		if err := s.step(v); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// step applies one migration and bumps user_version in the same transaction.
func (s *Store) step(from int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migrations[from]); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return err
	}
	return tx.Commit()
}

// DefaultDBPath returns ~/.config/pomotick/pomotick.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "pomotick", "pomotick.db"), nil
}
