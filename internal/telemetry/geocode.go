package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// NominatimClient reverse-geocodes coordinates through the OpenStreetMap
// Nominatim API. Lookups use a short timeout and are never retried; the
// pipeline treats a failed lookup as "address unknown".
type NominatimClient struct {
	client *resty.Client
}

// NewNominatimClient creates a reverse geocoder. An empty baseURL selects
// the public OSM endpoint.
func NewNominatimClient(baseURL string) *NominatimClient {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		// OSM requires an identifying User-Agent.
		SetHeader("User-Agent", "summit-sync/1.0")

	return &NominatimClient{client: client}
}

type nominatimResponse struct {
	Address struct {
		Road string `json:"road"`
		City string `json:"city"`
		Town string `json:"town"`
	} `json:"address"`
}

// ReverseGeocode resolves lat/lon to "Road, City".
func (n *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	var out nominatimResponse

	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"lat":    strconv.FormatFloat(lat, 'f', 6, 64),
			"lon":    strconv.FormatFloat(lon, 'f', 6, 64),
		}).
		SetResult(&out).
		Get("/reverse")
	if err != nil {
		return "", fmt.Errorf("reverse geocoding: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("reverse geocode request failed: status %d", resp.StatusCode())
	}

	road := out.Address.Road
	if road == "" {
		road = "Unknown Road"
	}
	city := out.Address.City
	if city == "" {
		city = out.Address.Town
	}
	if city == "" {
		city = "Unknown City"
	}

	return fmt.Sprintf("%s, %s", road, city), nil
}
