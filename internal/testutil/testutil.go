// Package testutil provides shared test fixtures: synthetic ride
// tracks with known speed profiles.
package testutil

import (
	"testing"
	"time"

	"github.com/audax-data/ride.report/internal/track"
)

// metresPerDegreeLat at the haversine earth radius.
const metresPerDegreeLat = 111194.93

// RideStart is the timestamp synthetic rides begin at.
var RideStart = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

// RideInterval is the spacing between synthetic trackpoints.
const RideInterval = 10 * time.Second

// Ride lays a synthetic track due north along a meridian. speedsKMH[i]
// is the speed of the interval leading into point i+1, so the rider
// covers speed/3.6*interval metres per step. The returned points are
// already enriched.
func Ride(t *testing.T, speedsKMH ...float64) []track.EnrichedPoint {
	t.Helper()

	lat := 52.0
	pts := []track.Point{{Lat: lat, Lon: -1.0, Ele: 50, Time: RideStart}}
	for i, v := range speedsKMH {
		lat += v / 3.6 * RideInterval.Seconds() / metresPerDegreeLat
		pts = append(pts, track.Point{
			Lat:  lat,
			Lon:  -1.0,
			Ele:  50,
			Time: RideStart.Add(time.Duration(i+1) * RideInterval),
		})
	}

	trk, err := track.New("synthetic", pts)
	if err != nil {
		t.Fatalf("building synthetic track: %v", err)
	}
	enriched, err := track.Enrich(trk)
	if err != nil {
		t.Fatalf("enriching synthetic track: %v", err)
	}
	return enriched
}

// Repeat builds a speed profile of n intervals at v km/h.
func Repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Concat joins speed profiles.
func Concat(groups ...[]float64) []float64 {
	var out []float64
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
