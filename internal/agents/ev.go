package agents

import (
	"github.com/summitos/summit-sync/internal/trip"
)

// EVConfig holds the battery assumptions used when the telemetry provider
// omits measured energy.
type EVConfig struct {
	BatteryCapacityKWh float64
}

// DefaultEVConfig assumes the long-range pack the fleet vehicle carries.
func DefaultEVConfig() EVConfig {
	return EVConfig{BatteryCapacityKWh: 82.0}
}

// EVEfficiency computes Wh/mi from measured energy when available, falling
// back to an estimate from the state-of-charge delta. The estimate is
// flagged so downstream reporting can qualify it.
func EVEfficiency(rec *trip.TripRecord, cfg EVConfig) trip.EVMetrics {
	metrics := trip.EVMetrics{}
	if rec.Drive == nil {
		return metrics
	}

	drive := rec.Drive
	metrics.SOCDelta = drive.SOCStart - drive.SOCEnd
	metrics.EnergyUsedKWh = drive.EnergyUsedKWh

	distance := rec.DistanceMiles()
	if distance <= 0 {
		return metrics
	}

	if drive.EnergyUsedKWh > 0 {
		metrics.WhPerMile = drive.EnergyUsedKWh * 1000 / distance
	} else if metrics.SOCDelta > 0 {
		estimated := metrics.SOCDelta / 100 * cfg.BatteryCapacityKWh
		metrics.EnergyUsedKWh = estimated
		metrics.WhPerMile = estimated * 1000 / distance
		metrics.EnergyEstimated = true
	}

	return metrics
}
