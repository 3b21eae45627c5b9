// Package storage opens and migrates the relational database behind the
// contact book.
//
// # Overview
//
// Two drivers are supported: PostgreSQL through lib/pq for deployments and
// SQLite through mattn/go-sqlite3 for local use and tests. Open applies the
// pool settings from Config and pings the database before returning. Migrate
// runs the embedded goose migrations for the chosen dialect.
//
// Stores in other packages accept a DBTX so the same code runs against a
// *sql.DB or inside WithTx. Queries use $n placeholders, which both drivers
// accept.
//
// # Usage Example
//
//	db, err := storage.Open(ctx, cfg.Database)
//	if err != nil {
//		return err
//	}
//	if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
//		return err
//	}
//
// # Errors
//
// IsUniqueViolation recognises unique constraint failures from either driver,
// so callers can map them to their own sentinel errors.
package storage
