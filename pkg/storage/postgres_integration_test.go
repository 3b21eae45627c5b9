//go:build integration

package storage_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/platinummonkey/contactbook/pkg/audit"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/contacts"
	"github.com/platinummonkey/contactbook/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// openPostgres runs a throwaway PostgreSQL container and returns a migrated pool
func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("contactbook_test"),
		postgres.WithUsername("contactbook"),
		postgres.WithPassword("contactbook"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.Driver = storage.DriverPostgres
	cfg.DSN = dsn
	db, err := storage.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(ctx, db, storage.DriverPostgres))
	return db
}

func TestPostgres(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()

	accounts := auth.NewDBAccountStore(db)
	alice := &auth.Account{Username: "alice", PasswordHash: "h", Salt: "s"}
	bob := &auth.Account{Username: "bob", PasswordHash: "h", Salt: "s"}
	require.NoError(t, accounts.Create(ctx, alice))
	require.NoError(t, accounts.Create(ctx, bob))

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, storage.Migrate(ctx, db, storage.DriverPostgres))
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := accounts.Create(ctx, &auth.Account{Username: "alice", PasswordHash: "h2", Salt: "s2"})
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("history purge is per account", func(t *testing.T) {
		history := audit.NewDBStore(db)
		for _, id := range []int64{alice.ID, alice.ID, bob.ID} {
			require.NoError(t, history.Record(ctx, &audit.HistoryRecord{
				UserID:      id,
				HTTPMethod:  "POST",
				Path:        "/api/contacts",
				QueryString: "?source=import",
				BodyContent: `{"name":"Carol"}`,
				Timestamp:   time.Now().UTC(),
			}))
		}

		purged, err := history.PurgeByUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), purged)

		left, err := history.ListByUser(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "?source=import", left[0].QueryString)
	})

	t.Run("contact search escapes wildcards", func(t *testing.T) {
		store := contacts.NewDBStore(db)
		_, err := store.Create(ctx, alice.ID, contacts.CreateRequest{Name: "100% Carol", PhoneNumber: "555-0100"})
		require.NoError(t, err)
		_, err = store.Create(ctx, alice.ID, contacts.CreateRequest{Name: "1000 Dave", PhoneNumber: "555-0101"})
		require.NoError(t, err)

		found, err := store.Search(ctx, alice.ID, "0%")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "100% Carol", found[0].Name)

		none, err := store.Search(ctx, bob.ID, "Carol")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
