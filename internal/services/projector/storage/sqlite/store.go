// Package sqlite persists projector read models in SQLite. Each projection is
// stored as one JSON document per row; link and outbox tables are relational.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/louisbranch/courtapps/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/courtapps/internal/services/projector/storage"
	"github.com/louisbranch/courtapps/internal/services/projector/storage/sqlite/migrations"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides a SQLite-backed implementation of storage.Store.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open opens the store at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return NewWithDB(sqlDB), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(sqlDB *sql.DB) *Store {
	return &Store{sqlDB: sqlDB, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the underlying database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// getDocument loads one JSON document row.
func getDocument[T any](ctx context.Context, s *Store, query, kind, key string) (T, error) {
	var out T
	if err := s.ready(ctx); err != nil {
		return out, err
	}
	var document string
	err := s.sqlDB.QueryRowContext(ctx, query, key).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return out, storage.ErrNotFound
	}
	if err != nil {
		return out, storage.Failure(fmt.Sprintf("get %s %s", kind, key), err)
	}
	if err := json.Unmarshal([]byte(document), &out); err != nil {
		return out, storage.Failure(fmt.Sprintf("decode %s %s", kind, key), err)
	}
	return out, nil
}

func encodeDocument(kind, key string, v any) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", storage.Failure("put "+kind, fmt.Errorf("%s id is required", kind))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", storage.Failure(fmt.Sprintf("encode %s %s", kind, key), err)
	}
	return string(data), nil
}

func (s *Store) exec(ctx context.Context, operation, query string, args ...any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, query, args...); err != nil {
		return storage.Failure(operation, err)
	}
	return nil
}

func (s *Store) queryIDs(ctx context.Context, operation, query string, args ...any) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Failure(operation, err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storage.Failure(operation, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failure(operation, err)
	}
	return ids, nil
}

func isSQLiteBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
