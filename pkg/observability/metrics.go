package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth attempt results
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Identity metrics
	AuthAttemptsTotal *prometheus.CounterVec
	TokenValidations  *prometheus.CounterVec
	SessionsActive    prometheus.Gauge

	// Audit metrics
	AuditWritesTotal   prometheus.Counter
	AuditFailuresTotal prometheus.Counter

	// AuditCaptureFailuresTotal counts bodies that could not be read in full;
	// the record is still written with what was read
	AuditCaptureFailuresTotal prometheus.Counter

	// Database metrics
	DBConnectionsOpen      prometheus.Gauge
	DBConnectionsInUse     prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge

	// Business metrics
	AccountsTotal       prometheus.Gauge
	ContactsTotal       prometheus.Gauge
	HistoryRecordsTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactbook_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contactbook_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactbook_auth_attempts_total",
				Help: "Register, login and password change attempts by outcome",
			},
			[]string{"operation", "result"},
		),
		TokenValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactbook_token_validations_total",
				Help: "Bearer token validations by status",
			},
			[]string{"status"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_sessions_active",
				Help: "Number of live server-side sessions",
			},
		),

		AuditWritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contactbook_audit_writes_total",
				Help: "Request history records written",
			},
		),
		AuditFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contactbook_audit_failures_total",
				Help: "Request history records that could not be written",
			},
		),
		AuditCaptureFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contactbook_audit_capture_failures_total",
				Help: "Request bodies that could not be read in full for history",
			},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_db_connections_in_use",
				Help: "Number of database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),

		AccountsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_accounts_total",
				Help: "Total number of registered accounts",
			},
		),
		ContactsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_contacts_total",
				Help: "Total number of stored contacts",
			},
		),
		HistoryRecordsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contactbook_history_records_total",
				Help: "Total number of request history records",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthAttemptsTotal,
		m.TokenValidations,
		m.SessionsActive,
		m.AuditWritesTotal,
		m.AuditFailuresTotal,
		m.AuditCaptureFailuresTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.AccountsTotal,
		m.ContactsTotal,
		m.HistoryRecordsTotal,
	)

	return m
}

// RecordAuthAttempt counts one register, login or password change outcome.
// A nil receiver is a no-op so handlers can run without metrics.
func (m *Metrics) RecordAuthAttempt(operation, result string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(operation, result).Inc()
}

// RecordTokenValidation counts a bearer token validation by status
func (m *Metrics) RecordTokenValidation(status string) {
	if m == nil {
		return
	}
	m.TokenValidations.WithLabelValues(status).Inc()
}

// RecordAuditWrite counts a request history write and whether it failed
func (m *Metrics) RecordAuditWrite(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.AuditFailuresTotal.Inc()
		return
	}
	m.AuditWritesTotal.Inc()
}

// RecordAuditCaptureFailure counts a request body that could not be read in full
func (m *Metrics) RecordAuditCaptureFailure() {
	if m == nil {
		return
	}
	m.AuditCaptureFailuresTotal.Inc()
}

// UpdateDBStats copies connection pool statistics into the database gauges
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
}

// RouteTemplate labels a request with its matched gorilla/mux path template.
// It resolves only inside router middleware, after the route has matched.
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Attach it with router.Use so series are labelled by route template.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := RouteTemplate(r)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
