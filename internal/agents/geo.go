package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/summitos/summit-sync/internal/trip"
)

const metersToFeet = 3.28084

// ElevationResolver returns elevations in meters for start and end
// coordinates, in order.
type ElevationResolver interface {
	Elevations(ctx context.Context, startLat, startLon, endLat, endLon float64) (start, end float64, err error)
}

// Geo resolves elevation context for a bound drive. Skipped silently when
// coordinates are missing or no resolver is configured; a lookup failure
// degrades to unresolved metrics.
func Geo(ctx context.Context, rec *trip.TripRecord, resolver ElevationResolver) trip.GeoMetrics {
	metrics := trip.GeoMetrics{}
	if resolver == nil || rec.Drive == nil || !rec.Drive.HasStartCoords() || !rec.Drive.HasEndCoords() {
		return metrics
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	drive := rec.Drive
	start, end, err := resolver.Elevations(lookupCtx,
		*drive.StartLatitude, *drive.StartLongitude,
		*drive.EndLatitude, *drive.EndLongitude)
	if err != nil {
		slog.Warn("Elevation lookup failed", "trip_id", rec.ID, "error", err)
		return metrics
	}

	metrics.ElevationStart = start * metersToFeet
	metrics.ElevationEnd = end * metersToFeet
	metrics.ElevationDelta = (end - start) * metersToFeet
	if metrics.ElevationDelta > 0 {
		metrics.Trend = "Ascend"
	} else {
		metrics.Trend = "Descend"
	}
	metrics.Resolved = true

	return metrics
}

// ElevationClient resolves elevations through a Google-style elevation API.
type ElevationClient struct {
	client *resty.Client
	apiKey string
}

// NewElevationClient creates an elevation resolver. An empty baseURL
// selects the Google Maps endpoint.
func NewElevationClient(baseURL, apiKey string) *ElevationClient {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api/elevation"
	}
	return &ElevationClient{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		apiKey: apiKey,
	}
}

type elevationResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// Elevations fetches both points in one call.
func (e *ElevationClient) Elevations(ctx context.Context, startLat, startLon, endLat, endLon float64) (float64, float64, error) {
	var out elevationResponse

	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"locations": fmt.Sprintf("%f,%f|%f,%f", startLat, startLon, endLat, endLon),
			"key":       e.apiKey,
		}).
		SetResult(&out).
		Get("/json")
	if err != nil {
		return 0, 0, fmt.Errorf("fetching elevations: %w", err)
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("elevation request failed: status %d", resp.StatusCode())
	}
	if out.Status != "OK" || len(out.Results) != 2 {
		return 0, 0, fmt.Errorf("elevation response not usable: status %s, %d results", out.Status, len(out.Results))
	}

	return out.Results[0].Elevation, out.Results[1].Elevation, nil
}
