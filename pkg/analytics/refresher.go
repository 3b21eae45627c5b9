package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/contactbook/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// Counter reports the number of rows a store holds
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// SessionCounter reports the number of live sessions
type SessionCounter interface {
	Len(ctx context.Context) (int, error)
}

// Sources are the stores the refresher reads. Any of them may be nil.
type Sources struct {
	Accounts Counter
	Contacts Counter
	History  Counter
	Sessions SessionCounter
	DB       *sql.DB
}

// Snapshot is the result of one refresh
type Snapshot struct {
	Accounts       int64 `json:"accounts"`
	Contacts       int64 `json:"contacts"`
	HistoryRecords int64 `json:"history_records"`
	Sessions       int   `json:"sessions"`
}

// Refresher copies business counts into Prometheus gauges on a cron schedule
type Refresher struct {
	sources Sources
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewRefresher creates a new refresher
func NewRefresher(sources Sources, metrics *observability.Metrics, logger *observability.Logger) *Refresher {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Refresher{sources: sources, metrics: metrics, logger: logger}
}

// Refresh reads every source once and updates the gauges. A failing source
// leaves its gauge untouched; the other gauges are still updated.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		errs []error
	)

	count := func(name string, c Counter, gauge func(*observability.Metrics) prometheus.Gauge) int64 {
		if c == nil {
			return 0
		}
		n, err := c.Count(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("count %s: %w", name, err))
			return 0
		}
		if r.metrics != nil {
			gauge(r.metrics).Set(float64(n))
		}
		return n
	}

	snap.Accounts = count("accounts", r.sources.Accounts, func(m *observability.Metrics) prometheus.Gauge { return m.AccountsTotal })
	snap.Contacts = count("contacts", r.sources.Contacts, func(m *observability.Metrics) prometheus.Gauge { return m.ContactsTotal })
	snap.HistoryRecords = count("history", r.sources.History, func(m *observability.Metrics) prometheus.Gauge { return m.HistoryRecordsTotal })

	if r.sources.Sessions != nil {
		n, err := r.sources.Sessions.Len(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("count sessions: %w", err))
		} else {
			snap.Sessions = n
			if r.metrics != nil {
				r.metrics.SessionsActive.Set(float64(n))
			}
		}
	}

	if r.sources.DB != nil {
		r.metrics.UpdateDBStats(r.sources.DB.Stats())
	}

	return snap, errors.Join(errs...)
}

// Run refreshes once immediately, then on schedule until ctx is done
func (r *Refresher) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.refreshAndLog(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule stats refresh: %w", err)
	}

	r.refreshAndLog(ctx)

	c.Start()
	r.logger.WithField("schedule", schedule).Info("stats refresher started")

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("stats refresher stopped")
	return nil
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	snap, err := r.Refresh(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("stats refresh failed")
		return
	}
	r.logger.WithFields(map[string]interface{}{
		"accounts":        snap.Accounts,
		"contacts":        snap.Contacts,
		"history_records": snap.HistoryRecords,
		"sessions":        snap.Sessions,
	}).Debug("stats refreshed")
}
