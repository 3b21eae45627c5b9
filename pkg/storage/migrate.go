package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/platinummonkey/contactbook/pkg/storage/migrations"
	"github.com/pressly/goose/v3"
)

// goose keeps its base FS and dialect in package state
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations for driver to db
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	dir, dialect, err := migrationSource(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func migrationSource(driver string) (dir, dialect string, err error) {
	switch driver {
	case DriverPostgres:
		return "postgres", "postgres", nil
	case DriverSQLite:
		return "sqlite", "sqlite3", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", driver)
	}
}
