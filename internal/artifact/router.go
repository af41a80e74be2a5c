// Package artifact finalizes a trip record on disk: a canonical folder
// per trip holding the machine-readable sidecar and the human-readable
// summary. Writes are idempotent overwrites.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/summitos/summit-sync/internal/trip"
)

const (
	sidecarSuffix   = "_sidecar.json"
	summaryFilename = "Trip_Summary.md"
)

// Router computes canonical paths and persists final trip artifacts under
// a single root directory.
type Router struct {
	root string
}

// NewRouter creates the artifact root if needed.
func NewRouter(root string) (*Router, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating artifact root: %w", err)
	}
	return &Router{root: root}, nil
}

// sidecar is the on-disk shape: the full record plus lineage the router
// itself adds.
type sidecar struct {
	*trip.TripRecord
	ArtifactHash  string    `json:"artifact_hash"`
	IngestionTime time.Time `json:"ingestion_time"`
}

// Path returns the canonical directory for a trip:
// year/month/isoweek/date/category-bucket/trip_id.
func (r *Router) Path(rec *trip.TripRecord) string {
	dt := rec.Receipt.CaptureTime
	_, week := dt.ISOWeek()
	return filepath.Join(
		r.root,
		dt.Format("2006"),
		dt.Format("January"),
		fmt.Sprintf("Week %02d", week),
		dt.Format("01.02.06"),
		string(rec.Receipt.Category),
		rec.ID,
	)
}

// Write persists the sidecar and summary for a trip and returns the trip
// directory. Rerunning for the same trip overwrites in place.
func (r *Router) Write(rec *trip.TripRecord, now time.Time) (string, error) {
	dir := r.Path(rec)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating trip directory: %w", err)
	}

	hash := sha256.Sum256([]byte(rec.SourceRef))
	side := sidecar{
		TripRecord:    rec,
		ArtifactHash:  hex.EncodeToString(hash[:]),
		IngestionTime: now,
	}

	data, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling sidecar: %w", err)
	}
	sidecarPath := filepath.Join(dir, rec.ID+sidecarSuffix)
	if err := os.WriteFile(sidecarPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing sidecar: %w", err)
	}

	summaryPath := filepath.Join(dir, summaryFilename)
	if err := os.WriteFile(summaryPath, []byte(Summary(rec)), 0644); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}

	slog.Info("Trip artifacts written", "trip_id", rec.ID, "path", dir)
	return dir, nil
}
