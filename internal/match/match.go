// Package match binds one receipt event to at most one vehicle drive
// segment. Ground-truth tags on a segment win outright; otherwise the
// segment whose end time is nearest the receipt's effective time is
// selected, subject to a category-dependent tolerance.
package match

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/summitos/summit-sync/internal/telemetry"
	"github.com/summitos/summit-sync/internal/trip"
)

// ErrNoMatch means no candidate segment satisfied the matching policy.
// The record stays unlinked; the reconciliation scheduler retries later.
var ErrNoMatch = errors.New("no drive segment within tolerance")

// genericRideshareTags are segment labels that claim "this was a rideshare
// drive" without naming a rider.
var genericRideshareTags = []string{"uber", "rideshare"}

// Config holds the matching tolerances. All values are externally
// overridable; the defaults come from informal observation, not tuning.
type Config struct {
	UberTolerance    time.Duration
	PrivateTolerance time.Duration
	CoarseWindow     time.Duration
}

// DefaultConfig returns the observed operating tolerances.
func DefaultConfig() Config {
	return Config{
		UberTolerance:    20 * time.Minute,
		PrivateTolerance: 120 * time.Minute,
		CoarseWindow:     4 * time.Hour,
	}
}

// Engine matches receipt events to drive segments.
type Engine struct {
	provider telemetry.Provider
	geocoder telemetry.Geocoder // optional
	cfg      Config
}

// NewEngine creates a match engine. geocoder may be nil, in which case
// matched segments keep whatever addresses the provider supplied.
func NewEngine(provider telemetry.Provider, geocoder telemetry.Geocoder, cfg Config) *Engine {
	return &Engine{provider: provider, geocoder: geocoder, cfg: cfg}
}

// Match queries the provider over the coarse window around effectiveTime,
// runs the selection policy, and on success merges missing addresses via a
// best-effort reverse geocode. Returns ErrNoMatch when nothing qualifies.
func (e *Engine) Match(ctx context.Context, effectiveTime time.Time, isPrivate bool, riderName string, category trip.Category) (*telemetry.DriveSegment, error) {
	from := effectiveTime.Add(-e.cfg.CoarseWindow)
	to := effectiveTime.Add(e.cfg.CoarseWindow)

	candidates, err := e.provider.Drives(ctx, from, to)
	if err != nil {
		return nil, err
	}

	selected, err := Select(effectiveTime, isPrivate, riderName, category, candidates, e.cfg)
	if err != nil {
		return nil, err
	}

	e.resolveAddresses(ctx, selected)
	return selected, nil
}

// Select is the pure selection policy over a candidate list, in priority
// order: ground-truth tag short-circuit, then nearest end time under
// tolerance with earliest-start tie-break.
func Select(effectiveTime time.Time, isPrivate bool, riderName string, category trip.Category, candidates []telemetry.DriveSegment, cfg Config) (*telemetry.DriveSegment, error) {
	// 1. Ground-truth short-circuit: a labeled segment is trusted over
	// any time-proximity heuristic.
	for i := range candidates {
		if tagMatches(candidates[i].Tag, riderName, category) {
			seg := candidates[i]
			slog.Info("Drive matched by ground-truth tag",
				"drive_id", seg.ID, "tag", seg.Tag)
			return &seg, nil
		}
	}

	tolerance := cfg.UberTolerance
	if isPrivate {
		tolerance = cfg.PrivateTolerance
	}

	// 2. Nearest end time. Ties break toward the earlier start.
	var best *telemetry.DriveSegment
	minDelta := time.Duration(math.MaxInt64)
	for i := range candidates {
		delta := effectiveTime.Sub(candidates[i].End())
		if delta < 0 {
			delta = -delta
		}
		if delta < minDelta || (delta == minDelta && best != nil && candidates[i].StartedAt < best.StartedAt) {
			minDelta = delta
			best = &candidates[i]
		}
	}

	if best == nil || minDelta >= tolerance {
		return nil, ErrNoMatch
	}

	seg := *best
	slog.Info("Drive matched by end-time proximity",
		"drive_id", seg.ID, "delta_min", minDelta.Minutes(), "tolerance_min", tolerance.Minutes())
	return &seg, nil
}

// tagMatches implements the ground-truth policy: a non-empty tag matches
// when it contains a rider-name token, or when it is a generic rideshare
// label and the event itself is a rideshare receipt.
func tagMatches(tag, riderName string, category trip.Category) bool {
	if tag == "" {
		return false
	}
	tagLower := strings.ToLower(tag)

	for _, token := range strings.Fields(strings.ToLower(riderName)) {
		if len(token) >= 3 && strings.Contains(tagLower, token) {
			return true
		}
	}

	if category == trip.CategoryUberCore {
		for _, generic := range genericRideshareTags {
			if strings.Contains(tagLower, generic) {
				return true
			}
		}
	}
	return false
}

// resolveAddresses fills missing human-readable addresses on a matched
// segment. Failures leave the segment untouched; they never invalidate
// the match.
func (e *Engine) resolveAddresses(ctx context.Context, seg *telemetry.DriveSegment) {
	if e.geocoder == nil {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if seg.StartAddress == "" && seg.HasStartCoords() {
		if addr, err := e.geocoder.ReverseGeocode(lookupCtx, *seg.StartLatitude, *seg.StartLongitude); err == nil {
			seg.StartAddress = addr
		} else {
			slog.Warn("Reverse geocode failed for drive start", "drive_id", seg.ID, "error", err)
		}
	}
	if seg.EndAddress == "" && seg.HasEndCoords() {
		if addr, err := e.geocoder.ReverseGeocode(lookupCtx, *seg.EndLatitude, *seg.EndLongitude); err == nil {
			seg.EndAddress = addr
		} else {
			slog.Warn("Reverse geocode failed for drive end", "drive_id", seg.ID, "error", err)
		}
	}
}
