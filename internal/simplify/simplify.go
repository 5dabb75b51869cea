// Package simplify reduces trackpoint counts with the Ramer-Douglas-Peucker
// algorithm, using great-circle cross-track distance so the tolerance is
// expressed in metres rather than degrees.
package simplify

import (
	"errors"

	"github.com/audax-data/ride.report/internal/geo"
	"github.com/audax-data/ride.report/internal/track"
)

// ErrInvalidTolerance indicates the caller passed a tolerance of zero or
// less. Validation belongs upstream; this failure is fatal to the call.
var ErrInvalidTolerance = errors.New("simplification tolerance must be greater than zero metres")

// Track returns a simplified copy of t such that no discarded point lies
// farther than toleranceMetres from the simplified polyline. The first
// and last points are always retained. Tracks with fewer than 3 points
// are returned unchanged (as a copy).
func Track(t *track.Track, toleranceMetres float64) (*track.Track, error) {
	if toleranceMetres <= 0 {
		return nil, ErrInvalidTolerance
	}
	if len(t.Points) == 0 {
		return nil, track.ErrEmptyTrack
	}

	out := &track.Track{Name: t.Name, Source: t.Source}
	if len(t.Points) < 3 {
		out.Points = append([]track.Point(nil), t.Points...)
		return out, nil
	}

	keep := make([]bool, len(t.Points))
	keep[0] = true
	keep[len(t.Points)-1] = true
	mark(t.Points, 0, len(t.Points)-1, toleranceMetres, keep)

	out.Points = make([]track.Point, 0, len(t.Points))
	for i, k := range keep {
		if k {
			out.Points = append(out.Points, t.Points[i])
		}
	}
	return out, nil
}

// mark recursively flags the points to keep within (first, last).
// The farthest interior point from the chord splits the segment; ties
// on distance resolve to the first point in scan order so the result
// is deterministic and order-stable.
func mark(points []track.Point, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}

	chordStart := points[first].Location()
	chordEnd := points[last].Location()

	maxIdx := -1
	maxDist := 0.0
	for i := first + 1; i < last; i++ {
		d := geo.CrossTrackDistance(points[i].Location(), chordStart, chordEnd)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxIdx < 0 || maxDist <= tolerance {
		// All interior points are within tolerance of the chord.
		return
	}

	keep[maxIdx] = true
	mark(points, first, maxIdx, tolerance, keep)
	mark(points, maxIdx, last, tolerance, keep)
}
