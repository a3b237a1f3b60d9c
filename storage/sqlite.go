package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var _ Store = (*SqliteStore)(nil)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SqliteStore is an embedded, file-backed store. Each Set is a single
// upsert so a collection is either fully replaced or left untouched.
type SqliteStore struct {
	pool *sqlitex.Pool
	path string
}

// OpenSqlite opens (and creates if needed) the database at path.
func OpenSqlite(path string, poolSize int) (*SqliteStore, error) {
	if path == "" {
		return nil, errors.New("[storage.OpenSqlite] path is required")
	}
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "[storage.OpenSqlite] opening %s", path)
	}
	return &SqliteStore{pool: pool, path: path}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		kvSchema,
	}
	for _, stmt := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, stmt, nil); err != nil {
			return fmt.Errorf("storage: %s: %w", stmt, err)
		}
	}
	return nil
}

func (s *SqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[SqliteStore.Get] pool.Take")
	}
	defer s.pool.Put(conn)

	var (
		value []byte
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = []byte(stmt.ColumnText(0))
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "[SqliteStore.Get] %s", key)
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *SqliteStore) Set(ctx context.Context, key string, value []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return errors.Wrap(err, "[SqliteStore.Set] pool.Take")
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{key, string(value), time.Now().UnixMilli()},
		})
	if err != nil {
		return errors.Wrapf(err, "[SqliteStore.Set] %s", key)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return errors.Wrapf(err, "[SqliteStore.Close] %s", s.path)
	}
	return nil
}
