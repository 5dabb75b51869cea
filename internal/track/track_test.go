package track

import (
	"math"
	"testing"
	"time"
)

func mkPoint(lat, lon, ele float64, offset time.Duration) Point {
	base := time.Date(2025, 6, 14, 6, 0, 0, 0, time.UTC)
	return Point{Lat: lat, Lon: lon, Ele: ele, Time: base.Add(offset)}
}

func TestNewRejectsEmptyTrack(t *testing.T) {
	if _, err := New("empty", nil); err != ErrEmptyTrack {
		t.Errorf("New(nil points) error = %v, want ErrEmptyTrack", err)
	}
}

func TestNewRejectsOutOfOrderTimestamps(t *testing.T) {
	pts := []Point{
		mkPoint(52.0, -1.0, 30, 10*time.Second),
		mkPoint(52.001, -1.0, 30, 0),
	}
	if _, err := New("backwards", pts); err == nil {
		t.Error("New() with decreasing timestamps: want error, got nil")
	}
}

func TestNewAllowsEqualTimestamps(t *testing.T) {
	pts := []Point{
		mkPoint(52.0, -1.0, 30, 0),
		mkPoint(52.001, -1.0, 30, 0),
	}
	if _, err := New("same-instant", pts); err != nil {
		t.Errorf("New() with equal timestamps: unexpected error %v", err)
	}
}

func TestRounding(t *testing.T) {
	if got := RoundCoord(52.12345678); got != 52.123457 {
		t.Errorf("RoundCoord = %v, want 52.123457", got)
	}
	if got := RoundEle(103.456); got != 103.5 {
		t.Errorf("RoundEle = %v, want 103.5", got)
	}
}

func TestHasTimes(t *testing.T) {
	withTimes, err := New("timed", []Point{
		mkPoint(52.0, -1.0, 30, 0),
		mkPoint(52.001, -1.0, 30, 5*time.Second),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !withTimes.HasTimes() {
		t.Error("HasTimes() = false for fully timed track")
	}

	untimed, err := New("untimed", []Point{
		{Lat: 52.0, Lon: -1.0},
		{Lat: 52.001, Lon: -1.0},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if untimed.HasTimes() {
		t.Error("HasTimes() = true for track without timestamps")
	}
}

func TestEnrich(t *testing.T) {
	// Three points heading due north, 10 seconds apart, climbing then descending.
	pts := []Point{
		mkPoint(52.0, -1.0, 30, 0),
		mkPoint(52.001, -1.0, 42, 10*time.Second),
		mkPoint(52.002, -1.0, 35, 20*time.Second),
	}
	tr, err := New("climb", pts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	enriched, err := Enrich(tr)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if len(enriched) != 3 {
		t.Fatalf("Enrich returned %d points, want 3", len(enriched))
	}

	first := enriched[0]
	if first.DeltaMetres != 0 || first.SpeedKMH != 0 || first.RunningMetres != 0 {
		t.Errorf("first point derived values should be zero, got %+v", first)
	}

	// 0.001 deg of latitude is roughly 111 metres.
	second := enriched[1]
	if second.DeltaMetres < 100 || second.DeltaMetres > 125 {
		t.Errorf("second.DeltaMetres = %f, want about 111", second.DeltaMetres)
	}
	// ~111m in 10s is ~40 km/h.
	if second.SpeedKMH < 36 || second.SpeedKMH > 45 {
		t.Errorf("second.SpeedKMH = %f, want about 40", second.SpeedKMH)
	}
	if second.RunningAscentMetres != 12 {
		t.Errorf("second.RunningAscentMetres = %f, want 12", second.RunningAscentMetres)
	}

	third := enriched[2]
	wantRunning := second.RunningMetres + third.DeltaMetres
	if math.Abs(third.RunningMetres-wantRunning) > 1e-9 {
		t.Errorf("third.RunningMetres = %f, want %f", third.RunningMetres, wantRunning)
	}
	if third.RunningAscentMetres != 12 {
		t.Errorf("third.RunningAscentMetres = %f, want 12 (no further climb)", third.RunningAscentMetres)
	}
	if third.RunningDescentMetres != 7 {
		t.Errorf("third.RunningDescentMetres = %f, want 7", third.RunningDescentMetres)
	}

	// Running totals are monotonic.
	for i := 1; i < len(enriched); i++ {
		if enriched[i].RunningMetres < enriched[i-1].RunningMetres {
			t.Errorf("RunningMetres decreased at index %d", i)
		}
		if enriched[i].RunningAscentMetres < enriched[i-1].RunningAscentMetres {
			t.Errorf("RunningAscentMetres decreased at index %d", i)
		}
	}
}

func TestEnrichRequiresTimestamps(t *testing.T) {
	tr, err := New("untimed", []Point{
		{Lat: 52.0, Lon: -1.0},
		{Lat: 52.001, Lon: -1.0},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := Enrich(tr); err == nil {
		t.Error("Enrich() on untimed track: want error, got nil")
	}
}
