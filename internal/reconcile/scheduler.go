// Package reconcile retries telemetry matching for private trips that
// failed to bind at ingestion time.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/summitos/summit-sync/internal/match"
	"github.com/summitos/summit-sync/internal/trip"
)

var (
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "summit_sync_reconcile_sweeps_total",
		Help: "Number of reconciliation sweeps executed.",
	})
	linksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "summit_sync_reconcile_links_total",
		Help: "Number of drive segments linked by reconciliation.",
	})
	skippedBound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "summit_sync_reconcile_conflicts_total",
		Help: "Number of binds skipped because the trip or drive was already claimed.",
	})
)

// Clock provides the current time; injected for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds the scheduler cadence. All values are overridable.
type Config struct {
	Interval        time.Duration
	Lookback        time.Duration
	DefaultDuration time.Duration
}

// DefaultConfig is an hourly sweep over the last week, assuming half an
// hour for trips with no known duration.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Hour,
		Lookback:        7 * 24 * time.Hour,
		DefaultDuration: 30 * time.Minute,
	}
}

// Scheduler periodically re-runs the match engine over unlinked private
// trips. Binds go through the store's conditional BindDrive, so a sweep
// overlapping live ingestion or another sweep can never double-bind.
type Scheduler struct {
	db     trip.DB
	engine *match.Engine
	cfg    Config
	clock  Clock
}

// NewScheduler creates a scheduler with the system clock.
func NewScheduler(db trip.DB, engine *match.Engine, cfg Config) *Scheduler {
	return NewSchedulerWithClock(db, engine, cfg, systemClock{})
}

// NewSchedulerWithClock injects a clock for tests.
func NewSchedulerWithClock(db trip.DB, engine *match.Engine, cfg Config, clock Clock) *Scheduler {
	return &Scheduler{db: db, engine: engine, cfg: cfg, clock: clock}
}

// Run sweeps on the configured interval until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.Info("Reconciliation scheduler started",
		"interval", s.cfg.Interval, "lookback", s.cfg.Lookback)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconciliation scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("Reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep finds unbound private trips inside the lookback window and
// attempts to link each one. Returns the number of new links. Invoking
// Sweep twice over an overlapping window never changes the binding of an
// already-linked record.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	sweepsTotal.Inc()
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.Lookback)

	trips, err := s.db.ListTrips()
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, rec := range trips {
		if rec.Receipt.Category != trip.CategoryPrivate || rec.Bound() {
			continue
		}
		eventTime := rec.Receipt.CaptureTime
		if eventTime.Before(cutoff) || eventTime.After(now) {
			continue
		}

		// Estimate when the drive ended: event start plus the parsed
		// duration, falling back to the configured default.
		duration := s.cfg.DefaultDuration
		if mins := rec.Receipt.Fields.DurationMinutes; mins > 0 {
			duration = time.Duration(mins * float64(time.Minute))
		}
		estimatedEnd := eventTime.Add(duration)

		seg, err := s.engine.Match(ctx, estimatedEnd, true, rec.Receipt.Fields.RiderName, rec.Receipt.Category)
		if err != nil {
			if !errors.Is(err, match.ErrNoMatch) {
				slog.Warn("Reconciliation match attempt failed", "trip_id", rec.ID, "error", err)
			}
			continue
		}

		result, err := s.db.BindDrive(rec.ID, seg, now)
		if err != nil {
			slog.Error("Failed to bind reconciled drive", "trip_id", rec.ID, "drive_id", seg.ID, "error", err)
			continue
		}
		switch result {
		case trip.BindBound:
			linked++
			linksTotal.Inc()
			slog.Info("Reconciliation linked drive", "trip_id", rec.ID, "drive_id", seg.ID)
		default:
			skippedBound.Inc()
			slog.Info("Reconciliation bind skipped", "trip_id", rec.ID, "drive_id", seg.ID, "result", result)
		}
	}

	slog.Info("Reconciliation sweep complete", "candidates_linked", linked)
	return linked, nil
}
