package track

import (
	"fmt"

	"github.com/audax-data/ride.report/internal/units"
)

// EnrichedPoint is a trackpoint plus the derived values the stage
// segmentation engine consumes. Derivation happens once, up front, so
// the engine itself stays a pure walk over the slice.
type EnrichedPoint struct {
	Point

	// Index of the point within the track.
	Index int

	// DeltaMetres is the distance from the previous point. Zero for
	// the first point.
	DeltaMetres float64

	// RunningMetres is the cumulative distance from the track start.
	RunningMetres float64

	// SpeedKMH is the instantaneous speed over the segment ending at
	// this point. Zero for the first point.
	SpeedKMH float64

	// RunningAscentMetres and RunningDescentMetres accumulate positive
	// and negative elevation change from the track start.
	RunningAscentMetres  float64
	RunningDescentMetres float64
}

// Enrich computes per-point derived values for the whole track.
// It requires every point to carry a timestamp; the caller checks
// HasTimes first for a friendlier skip path.
func Enrich(t *Track) ([]EnrichedPoint, error) {
	if len(t.Points) == 0 {
		return nil, ErrEmptyTrack
	}
	if !t.HasTimes() {
		return nil, fmt.Errorf("track %q: cannot enrich, one or more points have no timestamp", t.Name)
	}

	enriched := make([]EnrichedPoint, len(t.Points))
	enriched[0] = EnrichedPoint{Point: t.Points[0], Index: 0}

	for i := 1; i < len(t.Points); i++ {
		prev := &enriched[i-1]
		cur := t.Points[i]

		delta := prev.Location().Distance(cur.Location())
		elapsed := cur.Time.Sub(prev.Time)

		ep := EnrichedPoint{
			Point:                cur,
			Index:                i,
			DeltaMetres:          delta,
			RunningMetres:        prev.RunningMetres + delta,
			SpeedKMH:             units.SpeedKMHFromDuration(delta, elapsed),
			RunningAscentMetres:  prev.RunningAscentMetres,
			RunningDescentMetres: prev.RunningDescentMetres,
		}

		eleDelta := cur.Ele - prev.Ele
		if eleDelta > 0 {
			ep.RunningAscentMetres += eleDelta
		} else {
			ep.RunningDescentMetres -= eleDelta
		}

		enriched[i] = ep
	}

	return enriched, nil
}
