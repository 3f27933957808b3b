package sqldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goProgIndex/internal/storage/database/dbtest"
)

func TestSQLite(t *testing.T) {
	db, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	dbtest.Run(t, db)
}

// Set PROGINDEX_TEST_POSTGRES_DSN to run against a live server.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("PROGINDEX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PROGINDEX_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(context.Background(), Postgres, dsn)
	require.NoError(t, err)
	_, err = db.db.Exec("DELETE FROM " + table)
	require.NoError(t, err)
	dbtest.Run(t, db)
}

func TestDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "x")
	assert.Error(t, err)

	assert.Equal(t, "$2", Postgres.arg(2))
	assert.Equal(t, "?", SQLite.arg(2))
	assert.Equal(t, "BYTEA", Postgres.blobType())
}
