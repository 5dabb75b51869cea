// Package units provides shared constants and conversions for speed and
// distance values used throughout the analysis pipeline.
package units

import "time"

// Unit constants
const (
	KMH = "kmh"
	KPH = "kph"
	MPS = "mps"
	MPH = "mph"
)

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{KMH, KPH, MPS, MPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "kmh, kph, mps, mph"
}

// ConvertSpeed converts a speed from km/h to the target units.
// The pipeline computes and stores speeds in km/h.
func ConvertSpeed(speedKMH float64, targetUnits string) float64 {
	switch targetUnits {
	case KMH, KPH:
		return speedKMH
	case MPS:
		return speedKMH / 3.6
	case MPH:
		return speedKMH * 0.621371192
	default:
		return speedKMH
	}
}

// SpeedKMH calculates speed in km/h from metres covered and elapsed seconds.
// Returns 0 for a non-positive elapsed time.
func SpeedKMH(metres, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return (metres / seconds) * 3.6
}

// SpeedKMHFromDuration calculates speed in km/h from metres and a duration.
func SpeedKMHFromDuration(metres float64, d time.Duration) float64 {
	return SpeedKMH(metres, d.Seconds())
}
