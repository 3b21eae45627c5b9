package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/contactbook/pkg/audit"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/middleware"
	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/platinummonkey/contactbook/pkg/session"
	"github.com/platinummonkey/contactbook/pkg/storage"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig               `yaml:"server"`
	Database      storage.Config             `yaml:"database"`
	Session       SessionConfig              `yaml:"session"`
	Auth          AuthConfig                 `yaml:"auth"`
	Audit         audit.Config               `yaml:"audit"`
	RateLimit     middleware.RateLimitConfig `yaml:"ratelimit"`
	Observability ObservabilityConfig        `yaml:"observability"`
	Stats         StatsConfig                `yaml:"stats"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`

	// Health/metrics server (separate port for k8s checks)
	HealthPort string `yaml:"health_port"`
}

// SessionConfig selects and tunes the session store
type SessionConfig struct {
	Backend     string              `yaml:"backend"`
	TTL         time.Duration       `yaml:"ttl"`
	MaxSessions int                 `yaml:"max_sessions"`
	Redis       session.RedisConfig `yaml:"redis"`
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	JWTSecret string            `yaml:"jwt_secret"`
	Issuer    string            `yaml:"issuer"`
	TokenTTL  time.Duration     `yaml:"token_ttl"`
	Argon2    auth.Argon2Params `yaml:"argon2"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string                   `yaml:"log_level"`
	MetricsEnabled bool                     `yaml:"metrics_enabled"`
	OTel           observability.OTelConfig `yaml:"otel"`
}

// Level returns the parsed log level, falling back to info
func (c ObservabilityConfig) Level() observability.LogLevel {
	level, _ := observability.ParseLogLevel(c.LogLevel)
	return level
}

// StatsConfig schedules the business gauge refresh
type StatsConfig struct {
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used before any file or environment is applied
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBytes: 4 << 20,
			HealthPort:      "9090",
		},
		Database: storage.DefaultConfig(),
		Session: SessionConfig{
			Backend:     SessionBackendMemory,
			TTL:         session.DefaultTTL,
			MaxSessions: session.DefaultMaxSessions,
			Redis: session.RedisConfig{
				MaxRetries: 3,
				PoolSize:   10,
			},
		},
		Auth: AuthConfig{
			Issuer:   auth.DefaultTokenIssuer,
			TokenTTL: auth.DefaultTokenTTL,
			Argon2:   auth.DefaultArgon2Params(),
		},
		Audit:     audit.DefaultConfig(),
		RateLimit: middleware.CredentialRateLimitConfig(),
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
			OTel: observability.OTelConfig{
				Endpoint:    "localhost:4317",
				ServiceName: "contactbook",
				Insecure:    true,
				SampleRatio: 1.0,
			},
		},
		Stats: StatsConfig{
			Schedule: "@every 1m",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// at path and CONTACTBOOK_* environment variables, then validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides file values with any CONTACTBOOK_* variables that are set
func applyEnv(cfg *Config) {
	s := &cfg.Server
	s.Host = getEnv("CONTACTBOOK_HOST", s.Host)
	s.Port = getEnv("CONTACTBOOK_PORT", s.Port)
	s.HealthPort = getEnv("CONTACTBOOK_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("CONTACTBOOK_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("CONTACTBOOK_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("CONTACTBOOK_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("CONTACTBOOK_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.SecureCookies = getEnvBool("CONTACTBOOK_SECURE_COOKIES", s.SecureCookies)
	s.MaxRequestBytes = getEnvInt64("CONTACTBOOK_MAX_REQUEST_BYTES", s.MaxRequestBytes)

	db := &cfg.Database
	db.Driver = getEnv("CONTACTBOOK_DB_DRIVER", db.Driver)
	db.DSN = getEnv("CONTACTBOOK_DB_DSN", db.DSN)
	db.MaxOpenConns = getEnvInt("CONTACTBOOK_DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvInt("CONTACTBOOK_DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.AutoMigrate = getEnvBool("CONTACTBOOK_DB_AUTO_MIGRATE", db.AutoMigrate)

	sess := &cfg.Session
	sess.Backend = getEnv("CONTACTBOOK_SESSION_BACKEND", sess.Backend)
	sess.TTL = getEnvDuration("CONTACTBOOK_SESSION_TTL", sess.TTL)
	sess.MaxSessions = getEnvInt("CONTACTBOOK_SESSION_MAX", sess.MaxSessions)
	sess.Redis.URL = getEnv("CONTACTBOOK_REDIS_URL", sess.Redis.URL)
	sess.Redis.Password = getEnv("CONTACTBOOK_REDIS_PASSWORD", sess.Redis.Password)
	sess.Redis.DB = getEnvInt("CONTACTBOOK_REDIS_DB", sess.Redis.DB)

	cfg.Auth.JWTSecret = getEnv("CONTACTBOOK_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = getEnv("CONTACTBOOK_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.TokenTTL = getEnvDuration("CONTACTBOOK_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Audit.MaxBodyBytes = getEnvInt64("CONTACTBOOK_AUDIT_MAX_BODY_BYTES", cfg.Audit.MaxBodyBytes)

	obs := &cfg.Observability
	obs.LogLevel = getEnv("CONTACTBOOK_LOG_LEVEL", obs.LogLevel)
	obs.MetricsEnabled = getEnvBool("CONTACTBOOK_METRICS_ENABLED", obs.MetricsEnabled)
	obs.OTel.Enabled = getEnvBool("CONTACTBOOK_OTEL_ENABLED", obs.OTel.Enabled)
	obs.OTel.Endpoint = getEnv("CONTACTBOOK_OTEL_ENDPOINT", obs.OTel.Endpoint)
	obs.OTel.ServiceName = getEnv("CONTACTBOOK_OTEL_SERVICE_NAME", obs.OTel.ServiceName)
	obs.OTel.Insecure = getEnvBool("CONTACTBOOK_OTEL_INSECURE", obs.OTel.Insecure)

	cfg.Stats.Schedule = getEnv("CONTACTBOOK_STATS_SCHEDULE", cfg.Stats.Schedule)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	switch c.Database.Driver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("invalid database driver: %s (must be %s or %s)",
			c.Database.Driver, storage.DriverPostgres, storage.DriverSQLite)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Session.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for the redis session backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be %s or %s)",
			c.Session.Backend, SessionBackendMemory, SessionBackendRedis)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret: %w", auth.ErrEmptySecret)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	a := c.Auth.Argon2
	if a.Time == 0 || a.Memory == 0 || a.Threads == 0 || a.KeyLen == 0 {
		return fmt.Errorf("argon2 parameters must be positive")
	}

	if c.Audit.MaxBodyBytes <= 0 || c.Audit.WriteTimeout <= 0 {
		return fmt.Errorf("audit max body bytes and write timeout must be positive")
	}

	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}

	if _, err := observability.ParseLogLevel(c.Observability.LogLevel); err != nil {
		return err
	}

	// Validate OpenTelemetry config
	if c.Observability.OTel.Enabled {
		if c.Observability.OTel.Endpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTel.ServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if _, err := cron.ParseStandard(c.Stats.Schedule); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", c.Stats.Schedule, err)
	}

	return nil
}

// IsMissingSecret reports whether err was caused by an empty JWT secret
func IsMissingSecret(err error) bool {
	return errors.Is(err, auth.ErrEmptySecret)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
