// Package config provides application configuration management.
//
// # Overview
//
// LoadConfig starts from Default, applies an optional YAML file, applies any
// CONTACTBOOK_* environment variables on top and validates the result. The
// JWT secret has no default, so a process without one refuses to start.
//
// # Configuration File
//
//	server:
//	  port: "8080"
//	  health_port: "9090"
//	  shutdown_timeout: 30s
//	  secure_cookies: true
//	database:
//	  driver: postgres            # postgres or sqlite3
//	  dsn: postgres://localhost/contactbook?sslmode=disable
//	session:
//	  backend: redis              # memory or redis
//	  ttl: 20m
//	  redis:
//	    url: redis://localhost:6379/0
//	auth:
//	  jwt_secret: change-me
//	  token_ttl: 1h
//	audit:
//	  max_body_bytes: 1048576
//	ratelimit:
//	  requests_per_window: 20
//	  window: 1m
//	observability:
//	  log_level: info             # debug, info, warn, error
//	  otel:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	stats:
//	  schedule: "@every 1m"
//
// # Environment
//
//	CONTACTBOOK_PORT, CONTACTBOOK_HEALTH_PORT
//	CONTACTBOOK_DB_DRIVER, CONTACTBOOK_DB_DSN
//	CONTACTBOOK_SESSION_BACKEND, CONTACTBOOK_SESSION_TTL, CONTACTBOOK_REDIS_URL
//	CONTACTBOOK_JWT_SECRET, CONTACTBOOK_TOKEN_TTL
//	CONTACTBOOK_LOG_LEVEL, CONTACTBOOK_OTEL_ENABLED, CONTACTBOOK_OTEL_ENDPOINT
//
// # Reloading
//
// Watcher follows the config file with fsnotify. Only the log level is
// applied at runtime; other changes need a restart.
package config
