package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ErrDegraded marks a check result that is serving but impaired.
// Checks wrap it; it never makes the service unready.
var ErrDegraded = errors.New("degraded")

// Dependency names one backend and how to check it. A failing Critical
// dependency makes the service unready; any other failure only degrades it.
type Dependency struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// DatabaseDependency checks the account, contact and history database
func DatabaseDependency(db *sql.DB) Dependency {
	return Dependency{
		Name:     "database",
		Critical: true,
		Check: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			var one int
			if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			// MaxOpenConnections is 0 when the pool is unbounded
			stats := db.Stats()
			if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
				return fmt.Errorf("%w: connection pool exhausted", ErrDegraded)
			}
			return nil
		},
	}
}

// SessionStoreDependency checks the Redis session backend. Losing it drops cookie
// sessions only; bearer tokens keep working, so it is not critical.
func SessionStoreDependency(client *redis.Client) Dependency {
	return Dependency{
		Name: "sessions",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// HealthChecker serves liveness and readiness from a set of checks
type HealthChecker struct {
	checks  []Dependency
	version string
	timeout time.Duration
	now     func() time.Time
}

// NewHealthChecker creates a checker over checks
func NewHealthChecker(version string, checks ...Dependency) *HealthChecker {
	return &HealthChecker{
		checks:  checks,
		version: version,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// HealthStatus is the readiness report
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the result of one check
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Check runs every check and folds the results into one status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	report := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.checks)),
	}

	for _, check := range h.checks {
		dep := h.run(ctx, check)
		report.Dependencies[check.Name] = dep

		switch {
		case dep.Status == StatusHealthy:
		case dep.Status == StatusUnhealthy && check.Critical:
			report.Status = StatusUnhealthy
		case report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}

	return report
}

func (h *HealthChecker) run(ctx context.Context, check Dependency) DependencyStatus {
	start := h.now()
	err := check.Check(ctx)

	dep := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   h.now().Sub(start),
		Timestamp: start.UTC(),
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrDegraded):
		dep.Status = StatusDegraded
		dep.Message = err.Error()
	default:
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

// Liveness answers 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.now().UTC(),
		Version:   h.version,
	})
}

// Readiness answers 503 when a critical check fails and 200 otherwise
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report := h.Check(ctx)

	code := http.StatusOK
	if report.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, code, report)
}

func writeHealthJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes mounts /health, /health/live and /health/ready on mux
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("GET /health", checker.Readiness)
	mux.HandleFunc("GET /health/live", checker.Liveness)
	mux.HandleFunc("GET /health/ready", checker.Readiness)
}
