// Package observability provides structured logging, Prometheus metrics, health checks
// and OpenTelemetry tracing for contactbook.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("account_id", 42).Info("login succeeded")
//
// Loggers derived with WithField share the root level, so SetLevel on the root
// applies everywhere. This is how config reloads change verbosity at runtime.
//
// Request scoped logging:
//
//	observability.FromContext(r.Context()).Warn("audit write failed")
//
// FromContext attaches the request id and, when a span is recording, the trace
// and span ids.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordAuthAttempt("login", observability.ResultRejected)
//
// HTTP series are labelled by gorilla/mux route template rather than raw path.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version,
//		observability.DatabaseDependency(db),
//		observability.SessionStoreDependency(redisClient),
//	)
//	observability.RegisterHealthRoutes(opsMux, checker)
//
// The database check is critical and fails readiness. The session store check
// only degrades it.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg.OTel, logger)
//	defer observability.ShutdownOTel(shutdownCtx, providers, logger)
//
// StartSpan and EndSpan wrap the global tracer for spans around login and
// history writes:
//
//	ctx, span := observability.StartSpan(ctx, "audit.record")
//	err := store.Record(ctx, record)
//	observability.EndSpan(span, err)
package observability
