package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists cached upstream responses so archive data survives
// restarts. Expired rows are deleted when read.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS response_cache (
			cache_key TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating response_cache table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the live value for key.
func (s *SQLiteStore) Get(key string, now time.Time) ([]byte, bool, error) {
	var (
		body      []byte
		expiresAt int64
	)
	err := s.db.QueryRow(
		`SELECT body, expires_at FROM response_cache WHERE cache_key = ?`, key,
	).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if now.UnixNano() > expiresAt {
		if _, err := s.db.Exec(`DELETE FROM response_cache WHERE cache_key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("evicting cache entry: %w", err)
		}
		return nil, false, nil
	}
	return body, true, nil
}

// Set stores value under key until expiresAt.
func (s *SQLiteStore) Set(key string, value []byte, expiresAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO response_cache (cache_key, body, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET body = excluded.body, expires_at = excluded.expires_at
	`, key, value, expiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
