// Package track defines the canonical track model shared by the format
// decoders, the simplifier and the stage segmentation engine.
package track

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/audax-data/ride.report/internal/geo"
)

// ErrEmptyTrack indicates a decoder produced a track with no points.
// This is a contract violation, not a recoverable condition.
var ErrEmptyTrack = errors.New("track has no points")

// Point is a single recorded trackpoint. Latitude and longitude are in
// decimal degrees, elevation in metres, time in UTC. Points are treated
// as immutable once produced by a decoder.
type Point struct {
	Lat  float64
	Lon  float64
	Ele  float64
	Time time.Time
}

// Location returns the point's geographic coordinate.
func (p Point) Location() geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

// RoundCoord rounds a latitude or longitude to 6 decimal places,
// about 11cm of resolution. Decoders apply this on ingest.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// RoundEle rounds an elevation to 1 decimal place.
func RoundEle(v float64) float64 {
	return math.Round(v*10) / 10
}

// Track is an ordered, non-empty point sequence representing one
// continuous recording, or several recordings concatenated by a join.
// Timestamps are non-decreasing; a join may leave a large time and
// position discontinuity between sources, which is preserved as-is.
type Track struct {
	Name   string
	Source string
	Points []Point
}

// New builds a Track, rejecting an empty point sequence and
// out-of-order timestamps.
func New(name string, points []Point) (*Track, error) {
	if len(points) == 0 {
		return nil, ErrEmptyTrack
	}
	for i := 1; i < len(points); i++ {
		if points[i].Time.IsZero() || points[i-1].Time.IsZero() {
			continue
		}
		if points[i].Time.Before(points[i-1].Time) {
			return nil, fmt.Errorf("track %q: timestamp at point %d precedes point %d", name, i, i-1)
		}
	}
	return &Track{Name: name, Points: points}, nil
}

// HasTimes reports whether every point carries a timestamp. Tracks
// without full timing can be simplified but not segmented into stages.
func (t *Track) HasTimes() bool {
	for _, p := range t.Points {
		if p.Time.IsZero() {
			return false
		}
	}
	return true
}

// Distance returns the total point-to-point distance of the track in metres.
func (t *Track) Distance() float64 {
	var total float64
	for i := 1; i < len(t.Points); i++ {
		total += t.Points[i-1].Location().Distance(t.Points[i].Location())
	}
	return total
}
