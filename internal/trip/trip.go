package trip

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/summitos/summit-sync/internal/telemetry"
)

// Category is the classification of a captured screenshot.
type Category string

const (
	CategoryUberCore      Category = "Uber_Core"
	CategoryExpense       Category = "Expense"
	CategoryAviation      Category = "Aviation_Context"
	CategoryEnvironmental Category = "Environmental_Context"
	CategoryPrivate       Category = "Private_Trip"
	CategoryUnknown       Category = "Unknown"
)

// ReceiptFields holds the structured values parsed from receipt text.
type ReceiptFields struct {
	Fare            decimal.Decimal `json:"fare"`
	Tip             decimal.Decimal `json:"tip"`
	RiderPayment    decimal.Decimal `json:"rider_payment"`
	DriverEarnings  decimal.Decimal `json:"driver_earnings"`
	InsuranceFees   decimal.Decimal `json:"insurance_fees"`
	DistanceMiles   float64         `json:"distance_miles"`
	DurationMinutes float64         `json:"duration_minutes"`
	ServiceType     string          `json:"service_type,omitempty"`
	RiderName       string          `json:"rider_name,omitempty"`
	Airport         bool            `json:"airport"`
	Result          string          `json:"result,omitempty"` // Win or Loss
}

// ReceiptEvent is the structured output of one extracted screenshot.
// It is created once per image and only corrected a single time, when the
// parser detects a private-payment override.
type ReceiptEvent struct {
	EventID     string        `json:"event_id"`
	CaptureTime time.Time     `json:"capture_timestamp"`
	RawText     string        `json:"raw_text"`
	Category    Category      `json:"category"`
	Fields      ReceiptFields `json:"fields"`
}

// AccountingMetrics is the accounting agent's namespace on a TripRecord.
type AccountingMetrics struct {
	PlatformCut        decimal.Decimal `json:"platform_cut_raw"`
	PlatformCutPercent float64         `json:"platform_cut_percent"`
	MarginPercent      float64         `json:"margin_percent"`
	IdleTimeMin        float64         `json:"idle_time_min"`
}

// EVMetrics is the EV efficiency agent's namespace.
type EVMetrics struct {
	SOCDelta        float64 `json:"soc_delta"`
	EnergyUsedKWh   float64 `json:"energy_used_kwh"`
	WhPerMile       float64 `json:"wh_mi"`
	EnergyEstimated bool    `json:"energy_used_estimated"`
}

// GeoMetrics is the geo agent's namespace. Elevations are in feet.
type GeoMetrics struct {
	ElevationStart float64 `json:"elevation_start"`
	ElevationEnd   float64 `json:"elevation_end"`
	ElevationDelta float64 `json:"elevation_delta"`
	Trend          string  `json:"elevation_trend,omitempty"` // Ascend or Descend
	Resolved       bool    `json:"elevation_resolved"`
}

// ReportVisual is one visual in the downstream reporting blueprint.
type ReportVisual struct {
	Type   string  `json:"type"`
	Title  string  `json:"title"`
	Value  string  `json:"value"`
	Target float64 `json:"target,omitempty"`
	Trend  string  `json:"trend,omitempty"`
}

// ReportSpec is the visualization/measure blueprint attached to a trip
// for downstream BI tooling. Its presence is checked by the compliance gate.
type ReportSpec struct {
	Visuals       []ReportVisual `json:"visual_spec"`
	Measures      []string       `json:"measures"`
	DashboardLink string         `json:"dashboard_link,omitempty"`
}

// Metrics groups the derived namespaces. Each agent writes only its own
// field, which is what makes the parallel fan-out safe.
type Metrics struct {
	Accounting AccountingMetrics `json:"accounting"`
	EV         EVMetrics         `json:"ev"`
	Geo        GeoMetrics        `json:"geo"`
	Report     *ReportSpec       `json:"report_spec,omitempty"`
}

// ComplianceVerdict is the result of the completeness gates.
type ComplianceVerdict struct {
	Gates   map[string]bool `json:"gates"`
	Verdict string          `json:"verdict"` // PASS or FAIL
}

// Passed reports whether every gate held.
func (v *ComplianceVerdict) Passed() bool {
	return v != nil && v.Verdict == "PASS"
}

// TripRecord is the unit of truth: one receipt event, at most one bound
// drive segment, derived metrics and the compliance verdict.
type TripRecord struct {
	ID             string                   `json:"trip_id"`
	Receipt        ReceiptEvent             `json:"receipt"`
	Drive          *telemetry.DriveSegment  `json:"drive,omitempty"`
	Metrics        Metrics                  `json:"metrics"`
	Compliance     *ComplianceVerdict       `json:"compliance,omitempty"`
	SourceRef      string                   `json:"source_ref"`
	AgentVersion   string                   `json:"agent_version,omitempty"`
	OrchestratedAt time.Time                `json:"orchestration_timestamp"`
	ArtifactPath   string                   `json:"artifact_path,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// Bound reports whether a drive segment has been claimed for this trip.
func (t *TripRecord) Bound() bool {
	return t.Drive != nil
}

// DistanceMiles prefers telemetry distance over the receipt-derived value.
func (t *TripRecord) DistanceMiles() float64 {
	if t.Drive != nil && t.Drive.DistanceMiles > 0 {
		return t.Drive.DistanceMiles
	}
	return t.Receipt.Fields.DistanceMiles
}
