package storage

import "time"

const (
	// DriverPostgres selects lib/pq
	DriverPostgres = "postgres"
	// DriverSQLite selects mattn/go-sqlite3
	DriverSQLite = "sqlite3"
)

// Config for the relational store
type Config struct {
	Driver string `yaml:"driver"` // "postgres" or "sqlite3"
	DSN    string `yaml:"dsn"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`

	// AutoMigrate runs the embedded goose migrations on startup
	AutoMigrate bool `yaml:"auto_migrate"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "file:contactbook.db?_busy_timeout=5000&_journal_mode=WAL",
		MaxOpenConns:    20,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		AutoMigrate:     true,
	}
}
