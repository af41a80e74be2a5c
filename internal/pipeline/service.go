// Package pipeline runs one captured screenshot through the full
// reconciliation flow: extract, classify, parse, match, derive, gate,
// persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/summitos/summit-sync/internal/agents"
	"github.com/summitos/summit-sync/internal/artifact"
	"github.com/summitos/summit-sync/internal/compliance"
	"github.com/summitos/summit-sync/internal/match"
	"github.com/summitos/summit-sync/internal/scanning"
	"github.com/summitos/summit-sync/internal/trip"
)

// IDGenerator generates unique trip IDs.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("T%d", time.Now().UnixNano())
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time { return time.Now() }

// Service wires the pipeline components together.
type Service struct {
	db           trip.DB
	extractor    scanning.Extractor
	matcher      *match.Engine
	orchestrator *agents.Orchestrator
	router       *artifact.Router
	zone         *time.Location
	idGenerator  IDGenerator
	timeSource   TimeSource
}

// NewService creates a Service with default ID generation and clock.
func NewService(db trip.DB, extractor scanning.Extractor, matcher *match.Engine, orchestrator *agents.Orchestrator, router *artifact.Router, zone *time.Location) *Service {
	return NewServiceWithDeps(db, extractor, matcher, orchestrator, router, zone,
		&defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with injected dependencies for tests.
func NewServiceWithDeps(db trip.DB, extractor scanning.Extractor, matcher *match.Engine, orchestrator *agents.Orchestrator, router *artifact.Router, zone *time.Location, idGen IDGenerator, timeSrc TimeSource) *Service {
	if zone == nil {
		zone = time.UTC
	}
	return &Service{
		db:           db,
		extractor:    extractor,
		matcher:      matcher,
		orchestrator: orchestrator,
		router:       router,
		zone:         zone,
		idGenerator:  idGen,
		timeSource:   timeSrc,
	}
}

// ProcessImage runs the full pipeline for one uploaded capture. An image
// with no readable text returns scanning.ErrExtractionEmpty and is never
// persisted. A failed telemetry match is not an error; the record persists
// unlinked and the reconciliation scheduler retries it later.
func (s *Service) ProcessImage(ctx context.Context, filename string, data []byte, contentType string) (*trip.TripRecord, error) {
	started := s.timeSource.Now()
	defer func() { processDuration.Observe(s.timeSource.Now().Sub(started).Seconds()) }()

	text, err := s.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		if errors.Is(err, scanning.ErrExtractionEmpty) {
			receiptsSkipped.Inc()
			slog.Warn("Skipping capture with no readable text", "filename", filename)
		}
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	captureTime := captureTimeFromFilename(filename, s.zone)
	if captureTime.IsZero() {
		captureTime = started.In(s.zone)
	}

	category := trip.Classify(text)
	fields := trip.ParseFields(text, category)

	// Single classification correction pass: a rideshare screenshot that
	// carries a peer-to-peer payment marker is really a private trip.
	isPrivate := category != trip.CategoryUberCore
	if category == trip.CategoryUberCore && trip.HasPrivatePayment(text) {
		category = trip.CategoryPrivate
		fields = trip.ParseFields(text, category)
		isPrivate = true
	}
	receiptsProcessed.WithLabelValues(string(category)).Inc()

	rec := &trip.TripRecord{
		ID: s.idGenerator.Generate(),
		Receipt: trip.ReceiptEvent{
			EventID:     filename,
			CaptureTime: captureTime,
			RawText:     truncate(text, 500),
			Category:    category,
			Fields:      fields,
		},
		SourceRef: filename,
		CreatedAt: started,
		UpdatedAt: started,
	}

	if err := s.db.SaveTrip(rec); err != nil {
		return nil, fmt.Errorf("saving trip: %w", err)
	}

	s.attemptMatch(ctx, rec, isPrivate)

	previous, err := s.previousTrip(rec)
	if err != nil {
		slog.Warn("Could not resolve previous trip for idle time", "trip_id", rec.ID, "error", err)
	}

	now := s.timeSource.Now()
	s.orchestrator.Run(ctx, rec, previous, now)

	verdict := compliance.Verify(rec)
	complianceVerdicts.WithLabelValues(verdict.Verdict).Inc()

	// Artifact generation proceeds regardless of the verdict: the audit
	// trail beats a hard failure.
	path, err := s.router.Write(rec, now)
	if err != nil {
		slog.Error("Failed to write trip artifacts", "trip_id", rec.ID, "error", err)
	} else {
		rec.ArtifactPath = path
	}

	rec.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveTrip(rec); err != nil {
		return nil, fmt.Errorf("saving finalized trip: %w", err)
	}

	slog.Info("Trip processed",
		"trip_id", rec.ID,
		"category", rec.Receipt.Category,
		"bound", rec.Bound(),
		"verdict", verdict.Verdict)
	return rec, nil
}

// attemptMatch tries to bind a drive at ingestion time. NoMatch leaves the
// record unlinked for the scheduler.
func (s *Service) attemptMatch(ctx context.Context, rec *trip.TripRecord, isPrivate bool) {
	effective := rec.Receipt.CaptureTime.UTC()
	seg, err := s.matcher.Match(ctx, effective, isPrivate, rec.Receipt.Fields.RiderName, rec.Receipt.Category)
	if err != nil {
		if errors.Is(err, match.ErrNoMatch) {
			matchOutcomes.WithLabelValues("unmatched").Inc()
			slog.Info("No drive segment within tolerance", "trip_id", rec.ID)
		} else {
			matchOutcomes.WithLabelValues("error").Inc()
			slog.Warn("Telemetry match failed", "trip_id", rec.ID, "error", err)
		}
		return
	}

	result, err := s.db.BindDrive(rec.ID, seg, s.timeSource.Now())
	if err != nil {
		matchOutcomes.WithLabelValues("error").Inc()
		slog.Error("Failed to bind drive", "trip_id", rec.ID, "drive_id", seg.ID, "error", err)
		return
	}
	if result == trip.BindBound {
		rec.Drive = seg
		matchOutcomes.WithLabelValues("matched").Inc()
	} else {
		matchOutcomes.WithLabelValues("unmatched").Inc()
		slog.Info("Drive already claimed", "trip_id", rec.ID, "drive_id", seg.ID)
	}
}

// previousTrip returns the most recent other trip that started before this
// one, for the idle-time metric.
func (s *Service) previousTrip(rec *trip.TripRecord) (*trip.TripRecord, error) {
	all, err := s.db.ListTrips()
	if err != nil {
		return nil, err
	}

	var previous *trip.TripRecord
	for _, t := range all {
		if t.ID == rec.ID || !t.Receipt.CaptureTime.Before(rec.Receipt.CaptureTime) {
			continue
		}
		if previous == nil || t.Receipt.CaptureTime.After(previous.Receipt.CaptureTime) {
			previous = t
		}
	}
	return previous, nil
}

// GetTrip retrieves a trip record by ID.
func (s *Service) GetTrip(id string) (*trip.TripRecord, error) {
	return s.db.GetTrip(id)
}

// ListTrips returns all trip records.
func (s *Service) ListTrips() ([]*trip.TripRecord, error) {
	return s.db.ListTrips()
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
