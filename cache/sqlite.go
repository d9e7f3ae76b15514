package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is a Store backed by an SQLite database file.
// Scalar entries and hash records live in separate tables.
// Expiry times are stored as unix seconds, zero meaning no expiry.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore creates a new store with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) SQLiteStore {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		expires INTEGER,
		value BLOB
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS records (
		key TEXT,
		field TEXT,
		value TEXT,
		expires INTEGER,
		PRIMARY KEY (key, field)
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS entries_expires_idx ON entries (expires)")
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var expires int64
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT expires, value FROM entries WHERE key = ?", key).Scan(&expires, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expires > 0 && time.Now().After(time.Unix(expires, 0)) {
		return nil, false, nil
	}
	return value, true, nil
}

func (s SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, expires, value) VALUES (?, ?, ?)",
		key, unixExpiry(ttl), value)
	return err
}

func (s SQLiteStore) HGet(ctx context.Context, key string) (map[string]string, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT field, value, expires FROM records WHERE key = ?", key)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	fields := make(map[string]string)
	var expires int64
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value, &expires); err != nil {
			return nil, false, err
		}
		fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	// every row carries the same expiry, refreshed on each write
	if expires > 0 && time.Now().After(time.Unix(expires, 0)) {
		return nil, false, nil
	}
	return fields, true, nil
}

func (s SQLiteStore) HSet(ctx context.Context, key, field, value string, ttl time.Duration) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	expires := unixExpiry(ttl)
	// refresh the expiry of the whole record, then upsert the field
	if _, err := s.db.ExecContext(ctx,
		"UPDATE records SET expires = ? WHERE key = ?", expires, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO records (key, field, value, expires) VALUES (?, ?, ?, ?)",
		key, field, value, expires)
	return err
}

func (s SQLiteStore) Delete(ctx context.Context, key string) (bool, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	var removed int64
	for _, table := range []string{"entries", "records"} {
		result, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE key = ?", key)
		if err != nil {
			return false, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, err
		}
		removed += rows
	}
	return removed > 0, nil
}

func unixExpiry(ttl time.Duration) int64 {
	if ttl == 0 {
		return 0
	}
	return time.Now().Add(ttl).Unix()
}
