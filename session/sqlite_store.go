package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_kv (
	k          TEXT PRIMARY KEY,
	v          BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

const sqliteSessionKey = "current"

// SQLiteStore persists the session in a single-row key-value table, the way the
// on-device key-value store of a mobile app does.
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
}

// OpenSQLiteStore creates or opens the database at path and initializes the schema.
func OpenSQLiteStore(path string, sealer *Sealer) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session schema: %w", err)
	}

	return &SQLiteStore{db: db, sealer: sealer}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (Session, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM session_kv WHERE k = ?`, sqliteSessionKey).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Anonymous(), nil
		}
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return unmarshal(s.sealer, blob)
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	blob, err := marshal(s.sealer, sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_kv (k, v, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		sqliteSessionKey, blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE k = ?`, sqliteSessionKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
