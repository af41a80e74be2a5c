// Package compliance evaluates the completeness gates over a fully merged
// trip record. A FAIL verdict is recorded as data; it never blocks
// persistence or artifact generation.
package compliance

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/summitos/summit-sync/internal/trip"
)

// Gate names, in evaluation order.
const (
	GateAddresses  = "address_presence"
	GateFinancial  = "financial_reconciliation"
	GateEfficiency = "telemetry_efficiency"
	GateFields     = "card_completeness"
	GateLineage    = "lineage_metadata"
	GateBlueprint  = "report_blueprint"
)

// financialTolerance is the maximum acceptable drift in the identity
// rider_payment = driver_earnings + platform_cut.
var financialTolerance = decimal.NewFromFloat(0.01)

// Verify runs the six independent checks and attaches the verdict to the
// record. Recomputed whenever the metrics agents re-run.
func Verify(rec *trip.TripRecord) *trip.ComplianceVerdict {
	gates := map[string]bool{
		GateAddresses:  checkAddresses(rec),
		GateFinancial:  checkFinancialIdentity(rec),
		GateEfficiency: rec.Metrics.EV.WhPerMile > 0,
		GateFields:     checkRequiredFields(rec),
		GateLineage:    rec.AgentVersion != "" && !rec.OrchestratedAt.IsZero(),
		GateBlueprint:  checkBlueprint(rec.Metrics.Report),
	}

	verdict := "PASS"
	for _, ok := range gates {
		if !ok {
			verdict = "FAIL"
			break
		}
	}

	result := &trip.ComplianceVerdict{Gates: gates, Verdict: verdict}
	rec.Compliance = result

	if verdict == "FAIL" {
		slog.Warn("Compliance check failed", "trip_id", rec.ID, "gates", gates)
	} else {
		slog.Info("Compliance check passed", "trip_id", rec.ID)
	}
	return result
}

// checkAddresses accepts either receipt-derived or telemetry-derived
// pickup and dropoff addresses.
func checkAddresses(rec *trip.TripRecord) bool {
	return rec.Drive != nil && rec.Drive.StartAddress != "" && rec.Drive.EndAddress != ""
}

func checkFinancialIdentity(rec *trip.TripRecord) bool {
	rider := rec.Receipt.Fields.RiderPayment
	earnings := rec.Receipt.Fields.DriverEarnings
	cut := rec.Metrics.Accounting.PlatformCut
	drift := rider.Sub(earnings.Add(cut)).Abs()
	return drift.LessThan(financialTolerance)
}

// checkRequiredFields is the minimum set downstream reporting needs.
func checkRequiredFields(rec *trip.TripRecord) bool {
	return rec.ID != "" &&
		rec.Receipt.Category != trip.CategoryUnknown &&
		rec.DistanceMiles() > 0 &&
		rec.Receipt.Fields.DurationMinutes > 0
}

func checkBlueprint(spec *trip.ReportSpec) bool {
	return spec != nil && len(spec.Visuals) > 0 && len(spec.Measures) > 0
}
