package artifact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/summitos/summit-sync/internal/trip"
)

// Summary renders the card-style Markdown report for a trip.
func Summary(rec *trip.TripRecord) string {
	verdict := "UNKNOWN"
	if rec.Compliance != nil {
		verdict = rec.Compliance.Verdict
	}

	fields := rec.Receipt.Fields
	acct := rec.Metrics.Accounting
	ev := rec.Metrics.EV
	geo := rec.Metrics.Geo

	startAddr, endAddr := "N/A", "N/A"
	socStart, socEnd := "N/A", "N/A"
	if rec.Drive != nil {
		if rec.Drive.StartAddress != "" {
			startAddr = rec.Drive.StartAddress
		}
		if rec.Drive.EndAddress != "" {
			endAddr = rec.Drive.EndAddress
		}
		socStart = fmt.Sprintf("%.0f", rec.Drive.SOCStart)
		socEnd = fmt.Sprintf("%.0f", rec.Drive.SOCEnd)
	}

	airport := "NO"
	if fields.Airport {
		airport = "YES"
	}
	service := fields.ServiceType
	if service == "" {
		service = "Standard"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Trip Report: %s\n", rec.ID)
	fmt.Fprintf(&b, "Compliance Verdict: **%s**\n\n", verdict)

	fmt.Fprintf(&b, "## Offer Card\n")
	fmt.Fprintf(&b, "- **Platform**: %s\n", rec.Receipt.Category)
	fmt.Fprintf(&b, "- **Service**: %s\n", service)
	fmt.Fprintf(&b, "- **Earnings Projection**: $%s\n", fields.DriverEarnings.StringFixed(2))
	fmt.Fprintf(&b, "- **Airport Priority**: %s\n\n", airport)

	fmt.Fprintf(&b, "## Pickup Card\n")
	fmt.Fprintf(&b, "- **Address**: %s\n", startAddr)
	fmt.Fprintf(&b, "- **Elevation**: %.0f ft\n", geo.ElevationStart)
	fmt.Fprintf(&b, "- **SOC**: %s%%\n\n", socStart)

	fmt.Fprintf(&b, "## Drop-off Card\n")
	fmt.Fprintf(&b, "- **Address**: %s\n", endAddr)
	fmt.Fprintf(&b, "- **Elevation**: %.0f ft\n", geo.ElevationEnd)
	fmt.Fprintf(&b, "- **SOC**: %s%%\n\n", socEnd)

	fmt.Fprintf(&b, "## Detail Card\n")
	fmt.Fprintf(&b, "- **Distance**: %.2f mi\n", rec.DistanceMiles())
	fmt.Fprintf(&b, "- **Duration**: %.0f min\n", fields.DurationMinutes)
	fmt.Fprintf(&b, "- **Earnings**: $%s\n", fields.DriverEarnings.StringFixed(2))
	fmt.Fprintf(&b, "- **Platform Cut**: $%s (%.1f%%)\n", acct.PlatformCut.StringFixed(2), acct.PlatformCutPercent)
	fmt.Fprintf(&b, "- **Margin**: %.1f%%\n\n", acct.MarginPercent)

	fmt.Fprintf(&b, "## EV Metrics\n")
	fmt.Fprintf(&b, "- **Energy Used**: %.2f kWh\n", ev.EnergyUsedKWh)
	fmt.Fprintf(&b, "- **Efficiency**: %.0f Wh/mi\n", ev.WhPerMile)
	fmt.Fprintf(&b, "- **SOC Delta**: %.1f%%\n\n", ev.SOCDelta)

	fmt.Fprintf(&b, "## Elevation Card\n")
	trend := geo.Trend
	if trend == "" {
		trend = "N/A"
	}
	fmt.Fprintf(&b, "- **Trend**: %s\n", trend)
	fmt.Fprintf(&b, "- **Total Delta**: %.0f ft\n\n", geo.ElevationDelta)

	fmt.Fprintf(&b, "## Idle Time Card\n")
	fmt.Fprintf(&b, "- **Idle Since Last Trip**: %.1f min\n\n", acct.IdleTimeMin)

	if spec := rec.Metrics.Report; spec != nil {
		fmt.Fprintf(&b, "## Reporting Blueprint\n")
		fmt.Fprintf(&b, "- **KPIs**: %d Visuals Generated\n", len(spec.Visuals))
		fmt.Fprintf(&b, "- **Model**: %d Measures Ready\n\n", len(spec.Measures))
	}

	if rec.Compliance != nil {
		fmt.Fprintf(&b, "## Compliance Audit\n")
		names := make([]string, 0, len(rec.Compliance.Gates))
		for name := range rec.Compliance.Gates {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			status := "FAIL"
			if rec.Compliance.Gates[name] {
				status = "PASS"
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", name, status)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Audit Trail\n")
	fmt.Fprintf(&b, "- **Source**: %s\n", rec.SourceRef)
	fmt.Fprintf(&b, "- **Orchestration Timestamp**: %s\n", rec.OrchestratedAt.Format("2006-01-02T15:04:05Z07:00"))

	return b.String()
}
