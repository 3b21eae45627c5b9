package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempSQLite(t *testing.T) *sql.DB {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		db, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("missing dsn", func(t *testing.T) {
		db, err := Open(context.Background(), Config{Driver: DriverSQLite})
		assert.Nil(t, db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DSN is required")
	})

	t.Run("sqlite temp file", func(t *testing.T) {
		db := openTempSQLite(t)
		assert.NoError(t, db.Ping())
	})

	t.Run("sqlite memory is pinned to one connection", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DSN = ":memory:"
		db, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})
}

func TestMigrate(t *testing.T) {
	t.Run("creates tables", func(t *testing.T) {
		db := openTempSQLite(t)
		require.NoError(t, Migrate(context.Background(), db, DriverSQLite))

		for _, table := range []string{"accounts", "request_history", "contacts"} {
			var name string
			err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
			require.NoError(t, err, table)
			assert.Equal(t, table, name)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := openTempSQLite(t)
		require.NoError(t, Migrate(context.Background(), db, DriverSQLite))
		require.NoError(t, Migrate(context.Background(), db, DriverSQLite))
	})

	t.Run("unknown driver", func(t *testing.T) {
		err := Migrate(context.Background(), nil, "oracle")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no migrations for driver")
	})

	t.Run("goose failure is wrapped", func(t *testing.T) {
		orig := gooseUpContext
		defer func() { gooseUpContext = orig }()
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			assert.Equal(t, "postgres", dir)
			return errors.New("boom")
		}

		err := Migrate(context.Background(), nil, DriverPostgres)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to run migrations")
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(nil))
	})

	t.Run("postgres unique violation", func(t *testing.T) {
		err := &pq.Error{Code: "23505"}
		assert.True(t, IsUniqueViolation(err))
		assert.True(t, IsUniqueViolation(errors.Join(errors.New("insert"), err)))
	})

	t.Run("postgres other error", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	})

	t.Run("sqlite unique violation", func(t *testing.T) {
		db := openTempSQLite(t)
		_, err := db.Exec(`CREATE TABLE t (name TEXT UNIQUE)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO t (name) VALUES ('a')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO t (name) VALUES ('a')`)
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(errors.New("duplicate")))
	})
}

func TestWithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx, "UPDATE accounts SET username = $1", "x")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		want := errors.New("fail")
		err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			return want
		})
		assert.ErrorIs(t, err, want)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and rethrows on panic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
				panic("kaboom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
