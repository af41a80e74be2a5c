package agents

import (
	"fmt"

	"github.com/summitos/summit-sync/internal/trip"
)

// efficiencyTarget is the fleet Wh/mi standard the gauge visual tracks.
const efficiencyTarget = 300

// Report builds the downstream reporting blueprint for one trip: the
// visual spec and the measure definitions the BI model consumes. Its
// presence is one of the compliance gates.
func Report(rec *trip.TripRecord) *trip.ReportSpec {
	margin := rec.Metrics.Accounting.MarginPercent
	trend := "Watch"
	if margin > 50 {
		trend = "Positive"
	}

	return &trip.ReportSpec{
		Visuals: []trip.ReportVisual{
			{
				Type:   "Gauge",
				Title:  "Trip Efficiency (Wh/mi)",
				Value:  fmt.Sprintf("%.0f", rec.Metrics.EV.WhPerMile),
				Target: efficiencyTarget,
			},
			{
				Type:  "Card",
				Title: "Platform Margin",
				Value: fmt.Sprintf("%.1f%%", margin),
				Trend: trend,
			},
		},
		Measures: []string{
			fmt.Sprintf("TripProfit_%s = SUM(Trips[Earnings_Driver])", rec.ID),
			fmt.Sprintf("AvgEfficiency_%s = DIVIDE(SUM(Trips[Energy_Used_kWh]), SUM(Trips[Distance_mi])) * 1000", rec.ID),
		},
		DashboardLink: "https://app.powerbi.com/groups/me/reports/summit-mission-control",
	}
}
