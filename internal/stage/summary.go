package stage

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/audax-data/ride.report/internal/track"
	"github.com/audax-data/ride.report/internal/units"
)

// Summary aggregates a whole ride from its stage list and points.
type Summary struct {
	StartTime time.Time
	EndTime   time.Time

	Duration    time.Duration
	MovingTime  time.Duration
	ControlTime time.Duration

	DistanceMetres float64
	Controls       int

	AverageMovingSpeedKMH  float64
	AverageOverallSpeedKMH float64

	// Point-speed distribution over the whole ride.
	MeanSpeedKMH   float64
	MedianSpeedKMH float64
	P95SpeedKMH    float64

	AscentMetres  float64
	DescentMetres float64

	MinElevation *track.EnrichedPoint
	MaxElevation *track.EnrichedPoint
	MaxSpeed     *track.EnrichedPoint
}

// Summarize computes ride totals from a stage list and the enriched
// points it was detected over.
func Summarize(stages List, points []track.EnrichedPoint) Summary {
	s := Summary{
		StartTime:      stages.StartTime(),
		EndTime:        stages.EndTime(),
		Duration:       stages.Duration(),
		MovingTime:     stages.TypeDuration(Moving),
		ControlTime:    stages.TypeDuration(Control),
		DistanceMetres: stages.DistanceMetres(),
	}

	for i := range stages {
		if stages[i].Type == Control {
			s.Controls++
		}
	}

	s.AverageMovingSpeedKMH = units.SpeedKMHFromDuration(s.DistanceMetres, s.MovingTime)
	s.AverageOverallSpeedKMH = units.SpeedKMHFromDuration(s.DistanceMetres, s.Duration)

	if len(points) > 1 {
		// The first point has no interval, so no speed.
		speeds := make([]float64, 0, len(points)-1)
		for _, p := range points[1:] {
			speeds = append(speeds, p.SpeedKMH)
		}
		sort.Float64s(speeds)
		s.MeanSpeedKMH = stat.Mean(speeds, nil)
		s.MedianSpeedKMH = stat.Quantile(0.5, stat.Empirical, speeds, nil)
		s.P95SpeedKMH = stat.Quantile(0.95, stat.Empirical, speeds, nil)

		last := points[len(points)-1]
		s.AscentMetres = last.RunningAscentMetres
		s.DescentMetres = last.RunningDescentMetres

		minEle, maxEle, maxSpeed := 0, 0, 0
		for i := 1; i < len(points); i++ {
			if points[i].Ele < points[minEle].Ele {
				minEle = i
			}
			if points[i].Ele > points[maxEle].Ele {
				maxEle = i
			}
			if points[i].SpeedKMH > points[maxSpeed].SpeedKMH {
				maxSpeed = i
			}
		}
		s.MinElevation = &points[minEle]
		s.MaxElevation = &points[maxEle]
		s.MaxSpeed = &points[maxSpeed]
	}

	return s
}

// DistanceKM is the ride distance in kilometres.
func (s Summary) DistanceKM() float64 {
	return s.DistanceMetres / 1000
}

// MovingPercent is the share of ride time spent moving, 0-100.
func (s Summary) MovingPercent() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return 100 * float64(s.MovingTime) / float64(s.Duration)
}
