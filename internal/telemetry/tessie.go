package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// TessieClient fetches drive segments from the Tessie REST API.
type TessieClient struct {
	client *resty.Client
	vin    string
}

// NewTessieClient creates a TessieClient for a single vehicle.
func NewTessieClient(baseURL, apiKey, vin string) (*TessieClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tessie api key is required")
	}
	if vin == "" {
		return nil, fmt.Errorf("vehicle vin is required")
	}
	if baseURL == "" {
		baseURL = "https://api.tessie.com"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(15 * time.Second).
		SetRetryCount(2)

	return &TessieClient{client: client, vin: vin}, nil
}

// tessieDrive mirrors the fields of one entry in the Tessie drives list.
type tessieDrive struct {
	ID                int64    `json:"id"`
	StartedAt         int64    `json:"started_at"`
	EndedAt           int64    `json:"ended_at"`
	Distance          float64  `json:"odometer_distance"`
	Tag               string   `json:"tag"`
	StartingAddress   string   `json:"starting_address"`
	EndingAddress     string   `json:"ending_address"`
	StartingBattery   float64  `json:"starting_battery"`
	EndingBattery     float64  `json:"ending_battery"`
	EnergyUsed        float64  `json:"energy_used"`
	StartingLatitude  *float64 `json:"starting_latitude"`
	StartingLongitude *float64 `json:"starting_longitude"`
	EndingLatitude    *float64 `json:"ending_latitude"`
	EndingLongitude   *float64 `json:"ending_longitude"`
}

type tessieDrivesResponse struct {
	Results []tessieDrive `json:"results"`
}

// Drives returns the vehicle's drive segments within [from, to], ordered
// by start time ascending.
func (t *TessieClient) Drives(ctx context.Context, from, to time.Time) ([]DriveSegment, error) {
	var out tessieDrivesResponse

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":  strconv.FormatInt(from.Unix(), 10),
			"to":    strconv.FormatInt(to.Unix(), 10),
			"limit": "50",
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/%s/drives", t.vin))
	if err != nil {
		return nil, fmt.Errorf("fetching drives: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tessie drives request failed: status %d", resp.StatusCode())
	}

	segments := make([]DriveSegment, 0, len(out.Results))
	for _, d := range out.Results {
		if d.StartedAt == 0 || d.EndedAt == 0 {
			slog.Warn("Skipping drive with missing timestamps", "drive_id", d.ID)
			continue
		}
		segments = append(segments, DriveSegment{
			ID:             d.ID,
			StartedAt:      d.StartedAt,
			EndedAt:        d.EndedAt,
			DistanceMiles:  d.Distance,
			StartAddress:   d.StartingAddress,
			EndAddress:     d.EndingAddress,
			Tag:            d.Tag,
			EnergyUsedKWh:  d.EnergyUsed,
			SOCStart:       d.StartingBattery,
			SOCEnd:         d.EndingBattery,
			StartLatitude:  d.StartingLatitude,
			StartLongitude: d.StartingLongitude,
			EndLatitude:    d.EndingLatitude,
			EndLongitude:   d.EndingLongitude,
		})
	}

	// Tessie usually returns newest first.
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].StartedAt < segments[j].StartedAt
	})

	return segments, nil
}
