// Package sqldb keeps snapshots in a single key/value table of a SQL
// database. SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) are
// supported.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/LeJamon/goProgIndex/internal/storage/database"
)

// Dialect names the SQL flavour of a connection.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const table = "progindex_kv"

func (d Dialect) driver() (string, error) {
	switch d {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", d)
	}
}

func (d Dialect) blobType() string {
	if d == Postgres {
		return "BYTEA"
	}
	return "BLOB"
}

func (d Dialect) arg(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

type DB struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect Dialect
}

var _ database.DB = (*DB)(nil)

// Open connects to dsn and creates the table when missing. For SQLite the
// dsn is a file path.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	if dialect == SQLite && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	schema := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (k %s PRIMARY KEY, v %s NOT NULL)",
		table, dialect.blobType(), dialect.blobType())
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db: sqlDB, dialect: dialect}, nil
}

func (s *DB) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, database.ErrDBClosed
	}
	return s.db, nil
}

func (s *DB) upsertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT (k) DO UPDATE SET v = excluded.v",
		table, s.dialect.arg(1), s.dialect.arg(2))
}

func (s *DB) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE k = %s", table, s.dialect.arg(1))
}

func (s *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var v []byte
	q := fmt.Sprintf("SELECT v FROM %s WHERE k = %s", table, s.dialect.arg(1))
	err = db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *DB) Write(ctx context.Context, key, value []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, s.upsertSQL(), key, value)
	return err
}

func (s *DB) Delete(ctx context.Context, key []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, s.deleteSQL(), key)
	return err
}

func (s *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch op.Type {
		case database.BatchPut:
			_, err = tx.ExecContext(ctx, s.upsertSQL(), op.Key, op.Value)
		case database.BatchDelete:
			_, err = tx.ExecContext(ctx, s.deleteSQL(), op.Key)
		default:
			err = fmt.Errorf("unknown batch operation type: %d", op.Type)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []interface{}
	)
	if start != nil {
		args = append(args, start)
		where = append(where, "k >= "+s.dialect.arg(len(args)))
	}
	if end != nil {
		args = append(args, end)
		where = append(where, "k < "+s.dialect.arg(len(args)))
	}
	q := fmt.Sprintf("SELECT k, v FROM %s", table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY k"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &Iterator{rows: rows}, nil
}

func (s *DB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type Iterator struct {
	rows  *sql.Rows
	key   []byte
	value []byte
	err   error
}

func (it *Iterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	var k, v []byte
	if err := it.rows.Scan(&k, &v); err != nil {
		it.err = err
		return false
	}
	it.key, it.value = k, v
	return true
}

func (it *Iterator) Key() []byte   { return it.key }
func (it *Iterator) Value() []byte { return it.value }

func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *Iterator) Close() error {
	return it.rows.Close()
}
