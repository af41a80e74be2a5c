// Package agents computes derived metrics over a trip record. The three
// analytics agents are pure functions over the record, each writing only
// its own metrics namespace, so they run concurrently on a small bounded
// worker pool. A failing agent degrades its own namespace to defaults and
// never aborts the others.
package agents

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/summitos/summit-sync/internal/trip"
)

// Version is stamped onto every orchestrated record as lineage metadata.
const Version = "agents/2.1"

// defaultWorkers bounds the fan-out; the agents are cheap, so a handful
// of workers is plenty.
const defaultWorkers = 4

// Orchestrator runs the metrics agents over a trip record.
type Orchestrator struct {
	ev       EVConfig
	elevator ElevationResolver // optional
	workers  int
}

// NewOrchestrator creates an orchestrator. elevator may be nil, which
// disables elevation lookups. workers <= 0 selects the default pool size.
func NewOrchestrator(ev EVConfig, elevator ElevationResolver, workers int) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Orchestrator{ev: ev, elevator: elevator, workers: workers}
}

// Run executes the agents in parallel and stamps lineage metadata.
// previous may be nil; it feeds the idle-time calculation.
func (o *Orchestrator) Run(ctx context.Context, rec *trip.TripRecord, previous *trip.TripRecord, now time.Time) {
	slog.Info("Orchestrator: running metrics agents", "trip_id", rec.ID)

	tasks := []func(){
		func() { rec.Metrics.Accounting = Accounting(rec, previous) },
		func() { rec.Metrics.EV = EVEfficiency(rec, o.ev) },
		func() { rec.Metrics.Geo = Geo(ctx, rec, o.elevator) },
	}

	queue := make(chan func())
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				task()
			}
		}()
	}
	for _, task := range tasks {
		queue <- task
	}
	close(queue)
	wg.Wait()

	// The reporting blueprint reads the computed metrics, so it runs
	// after the parallel phase.
	rec.Metrics.Report = Report(rec)

	rec.AgentVersion = Version
	rec.OrchestratedAt = now
}
