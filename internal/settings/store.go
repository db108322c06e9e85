// Package settings is the agent's persistent key/JSON-value store. It backs
// agent identity, authorized-hub records, tracked shortcuts, and the
// event-publishing workaround described in internal/events.
package settings

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Reserved key prefix for UI-polled event records (see internal/events).
const EventKeyPrefix = "_event_"

// Store is a synchronous key/JSON-value map backed by SQLite. The agent's
// main loop is the sole writer; callers are not expected to use Store
// concurrently from multiple goroutines without external synchronization,
// mirroring the single-writer-per-process model of the rest of the agent.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the settings database at dsn. Pass
// ":memory:" for an ephemeral in-process store, used by tests.
func Open(dsn string) (*Store, error) {
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads the raw JSON value stored at key into dest. Returns ok=false if
// the key does not exist; dest is left untouched in that case.
func (s *Store) Get(key string, dest any) (ok bool, err error) {
	var raw string
	err = s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// GetString is a convenience wrapper for plain string values.
func (s *Store) GetString(key, fallback string) string {
	var v string
	ok, err := s.Get(key, &v)
	if err != nil || !ok {
		return fallback
	}
	return v
}

// GetBool is a convenience wrapper for plain boolean values.
func (s *Store) GetBool(key string, fallback bool) bool {
	var v bool
	ok, err := s.Get(key, &v)
	if err != nil || !ok {
		return fallback
	}
	return v
}

// Set marshals value as JSON and stores it at key.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key, if present. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns all keys whose name begins with prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM settings WHERE key LIKE ?", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
