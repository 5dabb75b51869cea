package units

import (
	"math"
	"testing"
	"time"
)

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("IsValid(%q) = false, want true", unit)
		}
	}
	if IsValid("furlongs") {
		t.Error("IsValid(\"furlongs\") = true, want false")
	}
	if IsValid("") {
		t.Error("IsValid(\"\") = true, want false")
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		units string
		want  float64
	}{
		{"kmh passthrough", 25.0, KMH, 25.0},
		{"kph alias", 25.0, KPH, 25.0},
		{"to mps", 36.0, MPS, 10.0},
		{"to mph", 100.0, MPH, 62.1371192},
		{"unknown unit falls back to kmh", 25.0, "bogus", 25.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertSpeed(tt.speed, tt.units)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertSpeed(%f, %q) = %f, want %f", tt.speed, tt.units, got, tt.want)
			}
		})
	}
}

func TestSpeedKMH(t *testing.T) {
	// 100 metres in 10 seconds is 36 km/h.
	if got := SpeedKMH(100, 10); math.Abs(got-36.0) > 1e-9 {
		t.Errorf("SpeedKMH(100, 10) = %f, want 36", got)
	}
	if got := SpeedKMH(100, 0); got != 0 {
		t.Errorf("SpeedKMH(100, 0) = %f, want 0", got)
	}
	if got := SpeedKMH(100, -5); got != 0 {
		t.Errorf("SpeedKMH(100, -5) = %f, want 0", got)
	}
}

func TestSpeedKMHFromDuration(t *testing.T) {
	if got := SpeedKMHFromDuration(500, time.Minute); math.Abs(got-30.0) > 1e-9 {
		t.Errorf("SpeedKMHFromDuration(500, 1m) = %f, want 30", got)
	}
}
