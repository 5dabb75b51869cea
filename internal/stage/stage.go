// Package stage segments an enriched point sequence into alternating
// Moving and Control stages. A Control is a genuine stop (checkpoint,
// food, rest); transient slow-downs such as traffic lights are filtered
// out by requiring both a minimum stop duration and a minimum distance
// moved before a stop can end.
package stage

import (
	"errors"
	"fmt"
	"time"

	"github.com/audax-data/ride.report/internal/track"
	"github.com/audax-data/ride.report/internal/units"
)

// Type classifies a stage.
type Type int

const (
	Moving Type = iota
	Control
)

func (t Type) String() string {
	switch t {
	case Moving:
		return "Moving"
	case Control:
		return "Control"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Params controls stage detection.
type Params struct {
	// ControlSpeedKMH is the speed below which the rider is
	// considered to have stopped.
	ControlSpeedKMH float64

	// MinControlTime is the minimum duration of a stop. Shorter dips
	// below ControlSpeedKMH do not produce a Control stage.
	MinControlTime time.Duration

	// ResumptionDistanceMetres is how far, as the crow flies, the
	// rider must move from the stop point before the Control ends.
	// GPS readings are noisy when stationary, so distance moved is a
	// more reliable signal than speed recovering.
	ResumptionDistanceMetres float64
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	if p.ControlSpeedKMH <= 0 {
		return fmt.Errorf("control speed must be positive, got %f", p.ControlSpeedKMH)
	}
	if p.MinControlTime <= 0 {
		return fmt.Errorf("minimum control time must be positive, got %s", p.MinControlTime)
	}
	if p.ResumptionDistanceMetres <= 0 {
		return fmt.Errorf("resumption distance must be positive, got %f", p.ResumptionDistanceMetres)
	}
	return nil
}

// PlaceNamer resolves a coordinate to a human-readable place name.
// Implementations report ok=false when nothing matches; naming is
// always best-effort.
type PlaceNamer interface {
	PlaceName(lat, lon float64) (string, bool)
}

// ErrTooFewPoints is returned when a track cannot be segmented.
var ErrTooFewPoints = errors.New("track has too few points to segment")

// Stage is a contiguous, inclusive index range of a ride's points.
// Immutable once emitted.
type Stage struct {
	Type Type

	// Start and End are the first and last points of the stage.
	// Stages never share points.
	Start track.EnrichedPoint
	End   track.EnrichedPoint

	// PrevTime is the timestamp the stage's clock starts from: the
	// point before Start, or Start itself for the first stage. A
	// point recorded after a long stationary gap carries the time at
	// the END of the gap, so durations must be measured from the
	// previous point to include that gap.
	PrevTime time.Time

	// Points of interest within the stage.
	MinElevation *track.EnrichedPoint
	MaxElevation *track.EnrichedPoint
	MaxSpeed     *track.EnrichedPoint

	// Location is the resolved place name: "A to B" for a Moving
	// stage, the stop's place name for a Control. Empty when the
	// gazetteer has no match.
	Location string
}

// Duration is the elapsed time of the stage, including the interval
// leading into its first point.
func (s *Stage) Duration() time.Duration {
	return s.End.Time.Sub(s.PrevTime)
}

// RunningDuration is the elapsed ride time at the end of the stage.
func (s *Stage) RunningDuration(rideStart time.Time) time.Duration {
	return s.End.Time.Sub(rideStart)
}

// DistanceMetres is the ground distance covered within the stage,
// including the segment leading into its first point.
func (s *Stage) DistanceMetres() float64 {
	return s.End.RunningMetres - s.Start.RunningMetres + s.Start.DeltaMetres
}

// DistanceKM is DistanceMetres in kilometres.
func (s *Stage) DistanceKM() float64 {
	return s.DistanceMetres() / 1000
}

// RunningDistanceKM is the cumulative ride distance at the stage end.
func (s *Stage) RunningDistanceKM() float64 {
	return s.End.RunningMetres / 1000
}

// AverageSpeedKMH is the mean speed across the stage.
func (s *Stage) AverageSpeedKMH() float64 {
	return units.SpeedKMHFromDuration(s.DistanceMetres(), s.Duration())
}

// AscentMetres is the total climbing within the stage.
func (s *Stage) AscentMetres() float64 {
	return s.End.RunningAscentMetres - s.Start.RunningAscentMetres
}

// DescentMetres is the total descending within the stage.
func (s *Stage) DescentMetres() float64 {
	return s.End.RunningDescentMetres - s.Start.RunningDescentMetres
}

// List is an ordered, contiguous, gap-free stage sequence covering a
// whole ride.
type List []Stage

// StartTime is the timestamp of the first point of the ride.
func (l List) StartTime() time.Time {
	if len(l) == 0 {
		return time.Time{}
	}
	return l[0].PrevTime
}

// EndTime is the timestamp of the last point of the ride.
func (l List) EndTime() time.Time {
	if len(l) == 0 {
		return time.Time{}
	}
	return l[len(l)-1].End.Time
}

// Duration is the total elapsed time of the ride.
func (l List) Duration() time.Duration {
	return l.EndTime().Sub(l.StartTime())
}

// TypeDuration sums the durations of all stages of the given type.
func (l List) TypeDuration(t Type) time.Duration {
	var total time.Duration
	for i := range l {
		if l[i].Type == t {
			total += l[i].Duration()
		}
	}
	return total
}

// DistanceMetres is the total ground distance of the ride.
func (l List) DistanceMetres() float64 {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1].End.RunningMetres
}
