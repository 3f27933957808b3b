// Package storage opens the database backend configured for snapshots.
package storage

import (
	"context"
	"fmt"

	"github.com/LeJamon/goProgIndex/internal/storage/database"
	"github.com/LeJamon/goProgIndex/internal/storage/database/leveldb"
	"github.com/LeJamon/goProgIndex/internal/storage/database/pebble"
	"github.com/LeJamon/goProgIndex/internal/storage/database/sqldb"
)

// Backends lists the accepted backend names.
var Backends = []string{"pebble", "leveldb", "sqlite", "postgres"}

// Open returns the backend named by backend. path is used by the embedded
// stores, dsn by postgres; sqlite takes dsn when set and path otherwise.
func Open(ctx context.Context, backend, path, dsn string) (database.DB, error) {
	switch backend {
	case "pebble":
		return pebble.Open(path)
	case "leveldb":
		return leveldb.Open(path)
	case "sqlite":
		if dsn == "" {
			dsn = path
		}
		return sqldb.Open(ctx, sqldb.SQLite, dsn)
	case "postgres":
		return sqldb.Open(ctx, sqldb.Postgres, dsn)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", backend)
	}
}
