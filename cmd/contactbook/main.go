package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/contactbook/pkg/analytics"
	"github.com/platinummonkey/contactbook/pkg/api"
	"github.com/platinummonkey/contactbook/pkg/audit"
	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/config"
	"github.com/platinummonkey/contactbook/pkg/contacts"
	"github.com/platinummonkey/contactbook/pkg/middleware"
	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/platinummonkey/contactbook/pkg/session"
	"github.com/platinummonkey/contactbook/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if config.IsMissingSecret(err) {
			log.Fatalf("Refusing to start without a JWT secret: set auth.jwt_secret or CONTACTBOOK_JWT_SECRET")
		}
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		logger.WithError(err).Error("contactbook exited with error")
		os.Exit(1)
	}
	logger.Info("contactbook stopped")
}

func run(ctx context.Context, cfg *config.Config, configPath string, logger *observability.Logger) error {
	cfg.Observability.OTel.ServiceVersion = version
	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = observability.ShutdownOTel(shutdownCtx, providers, logger)
	}()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			return err
		}
		logger.WithField("driver", cfg.Database.Driver).Info("database migrations applied")
	}

	sessions, redisClient, err := openSessions(cfg.Session)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
		auth.WithIssuer(cfg.Auth.Issuer),
	)
	if err != nil {
		return err
	}
	authService := auth.NewService(db, auth.NewPasswordHasher(cfg.Auth.Argon2), tokens)

	var (
		metrics  *observability.Metrics
		registry = prometheus.NewRegistry()
	)
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	history := audit.NewDBStore(db)
	contactStore := contacts.NewDBStore(db)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	server := api.NewServer(api.Options{
		Auth:            authService,
		Sessions:        sessions,
		History:         history,
		Contacts:        contactStore,
		Metrics:         metrics,
		Logger:          logger,
		RateLimiter:     limiter,
		Audit:           cfg.Audit,
		SessionTTL:      cfg.Session.TTL,
		SecureCookies:   cfg.Server.SecureCookies,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		Tracing:         cfg.Observability.OTel.Enabled,
	})

	errorLogWriter := logger.WithField("component", "http").Writer()
	defer errorLogWriter.Close()
	serverErrorLog := log.New(errorLogWriter, "", 0)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     serverErrorLog,
	}

	checks := []observability.Dependency{observability.DatabaseDependency(db)}
	if redisClient != nil {
		checks = append(checks, observability.SessionStoreDependency(redisClient))
	}
	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(version, checks...))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          serverErrorLog,
	}

	refresher := analytics.NewRefresher(analytics.Sources{
		Accounts: auth.NewDBAccountStore(db),
		Contacts: contactStore,
		History:  history,
		Sessions: sessions,
		DB:       db,
	}, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return serve(apiServer, "api", logger) })
	g.Go(func() error { return serve(opsServer, "ops", logger) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error { return refresher.Run(gctx, cfg.Stats.Schedule) })
	if configPath != "" {
		g.Go(func() error { return config.NewWatcher(configPath, logger).Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(apiServer.Shutdown(shutdownCtx), opsServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// openSessions builds the configured session store. The redis client is
// returned too so the health checker can check it; it is nil for memory.
func openSessions(cfg config.SessionConfig) (session.Store, *redis.Client, error) {
	if cfg.Backend != config.SessionBackendRedis {
		return session.NewMemoryStore(cfg.MaxSessions, cfg.TTL), nil, nil
	}
	client, err := session.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(client, cfg.TTL), client, nil
}

func serve(srv *http.Server, name string, logger *observability.Logger) error {
	logger.WithFields(map[string]interface{}{
		"server": name,
		"addr":   srv.Addr,
	}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
