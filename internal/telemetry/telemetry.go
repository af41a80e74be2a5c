package telemetry

import (
	"context"
	"time"
)

// DriveSegment is one contiguous vehicle movement record from the
// telemetry provider. Segments are read-only; this system never writes
// back to the provider. Address fields may be filled in after the fact
// by a reverse-geocode lookup.
type DriveSegment struct {
	ID             int64    `json:"drive_id"`
	StartedAt      int64    `json:"started_at"` // UTC epoch seconds
	EndedAt        int64    `json:"ended_at"`   // UTC epoch seconds
	DistanceMiles  float64  `json:"distance_miles"`
	StartAddress   string   `json:"start_address,omitempty"`
	EndAddress     string   `json:"end_address,omitempty"`
	Tag            string   `json:"tag,omitempty"` // optional ground-truth label
	EnergyUsedKWh  float64  `json:"energy_used_kwh"`
	SOCStart       float64  `json:"soc_start_pct"`
	SOCEnd         float64  `json:"soc_end_pct"`
	StartLatitude  *float64 `json:"start_latitude,omitempty"`
	StartLongitude *float64 `json:"start_longitude,omitempty"`
	EndLatitude    *float64 `json:"end_latitude,omitempty"`
	EndLongitude   *float64 `json:"end_longitude,omitempty"`
}

// Start returns the segment start as a time.Time.
func (d *DriveSegment) Start() time.Time { return time.Unix(d.StartedAt, 0).UTC() }

// End returns the segment end as a time.Time.
func (d *DriveSegment) End() time.Time { return time.Unix(d.EndedAt, 0).UTC() }

// HasStartCoords reports whether both start coordinates are present.
func (d *DriveSegment) HasStartCoords() bool {
	return d.StartLatitude != nil && d.StartLongitude != nil
}

// HasEndCoords reports whether both end coordinates are present.
func (d *DriveSegment) HasEndCoords() bool {
	return d.EndLatitude != nil && d.EndLongitude != nil
}

// Provider returns the ordered drive segments for the configured vehicle
// within a time window.
type Provider interface {
	Drives(ctx context.Context, from, to time.Time) ([]DriveSegment, error)
}

// Geocoder resolves coordinates to a human-readable address. Lookups are
// best-effort; callers must tolerate errors and empty results.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
