package agents

import (
	"github.com/shopspring/decimal"

	"github.com/summitos/summit-sync/internal/trip"
)

var hundred = decimal.NewFromInt(100)

// Accounting computes platform cut, margin and idle time. A record with no
// priced rider payment is treated as a private trip: zero cut, full margin.
func Accounting(rec *trip.TripRecord, previous *trip.TripRecord) trip.AccountingMetrics {
	rider := rec.Receipt.Fields.RiderPayment
	earnings := rec.Receipt.Fields.DriverEarnings

	metrics := trip.AccountingMetrics{
		PlatformCut:   decimal.Zero,
		MarginPercent: 100,
	}

	if rider.IsPositive() {
		metrics.PlatformCut = rider.Sub(earnings)
		cutPct, _ := metrics.PlatformCut.Div(rider).Mul(hundred).Float64()
		marginPct, _ := earnings.Div(rider).Mul(hundred).Float64()
		metrics.PlatformCutPercent = cutPct
		metrics.MarginPercent = marginPct
	}

	if previous != nil {
		prevEnd := previous.Receipt.CaptureTime
		if previous.Drive != nil {
			prevEnd = previous.Drive.End()
		}
		thisStart := rec.Receipt.CaptureTime
		if rec.Drive != nil {
			thisStart = rec.Drive.Start()
		}
		idle := thisStart.Sub(prevEnd).Minutes()
		if idle > 0 {
			metrics.IdleTimeMin = idle
		}
	}

	return metrics
}
