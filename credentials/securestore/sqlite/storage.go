// Package sqlite is a SecureStorage backed by a single SQLite file. Values
// arrive already sealed by the credential store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-session/credentials"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	_ "modernc.org/sqlite"
)

type Storage struct {
	db  *sql.DB
	now func() time.Time
}

var _ credentials.SecureStorage = (*Storage)(nil)

// Open opens (or creates) the database at dsn and applies migrations. Pragmas
// can be passed in the DSN, e.g. "keychain.db?_pragma=busy_timeout(5000)".
func Open(dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[sqlite.Open] open %s", dsn)
	}
	s := &Storage{db: db, now: time.Now}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrapf(err, "[sqlite.Open] migrations")
	}
	return s, nil
}

func (s *Storage) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secure_records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "[sqlite.Read] %s", key)
	}
	return value, nil
}

func (s *Storage) Write(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secure_records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().Unix())
	if err != nil {
		return apperrors.Wrapf(err, "[sqlite.Write] %s", key)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM secure_records WHERE key = ?`, key)
	if err != nil {
		return apperrors.Wrapf(err, "[sqlite.Delete] %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(err, "[sqlite.Delete] rows affected")
	}
	if n == 0 {
		return credentials.ErrNotFound
	}
	return nil
}
