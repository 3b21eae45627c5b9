// Package storagetest provides migrated throwaway databases for package tests.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/platinummonkey/contactbook/pkg/storage"
	"github.com/stretchr/testify/require"
)

// OpenSQLite opens a migrated SQLite database in a temp dir that is closed when t finishes
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "contactbook_test.db") + "?_busy_timeout=5000"

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(ctx, db, storage.DriverSQLite))
	return db
}
