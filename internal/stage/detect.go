package stage

import (
	"time"

	"github.com/audax-data/ride.report/internal/monitoring"
	"github.com/audax-data/ride.report/internal/track"
	"github.com/audax-data/ride.report/internal/units"
)

// The first stage's type is classified from the average speed over
// this opening window; below walking pace the rider is assumed to be
// stopped (GPS switched on before setting off).
const (
	startupWindow  = 180 * time.Second
	walkingPaceKMH = 5.0
)

// The detector is an explicit tagged state machine. Every transition
// is a total function of (current state, next point index), which
// keeps each rule independently testable.
//
//	moving     — riding; watching for the speed to drop.
//	tentative  — speed dropped at anchor+1; the stop is not yet long
//	             enough to commit. Still part of the Moving stage.
//	control    — a committed stop; watching crow-flies displacement
//	             from the stop point.
type state interface {
	stageStart() int
}

type movingState struct {
	start int
}

type tentativeState struct {
	start  int
	anchor int // last point before the speed dropped
}

type controlState struct {
	start int
}

func (s movingState) stageStart() int    { return s.start }
func (s tentativeState) stageStart() int { return s.start }
func (s controlState) stageStart() int   { return s.start }

// Detect segments points into an alternating Moving/Control stage list
// covering every point exactly once. The points must carry timestamps
// (see track.Enrich). namer may be nil to skip place naming.
func Detect(points []track.EnrichedPoint, params Params, namer PlaceNamer) (List, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}

	d := &detector{points: points, params: params}
	stages := d.run()

	monitoring.Logf("stage: detected %d stages over %d points", len(stages), len(points))

	for i := range stages {
		stages[i].Location = resolveLocation(&stages[i], namer)
	}
	return stages, nil
}

type detector struct {
	points []track.EnrichedPoint
	params Params
}

func (d *detector) run() List {
	last := len(d.points) - 1

	var st state
	if d.startingType() == Control {
		st = controlState{start: 0}
	} else {
		st = movingState{start: 0}
	}

	var stages List
	i := 1
	for i <= last {
		var emitted *Stage
		st, emitted, i = d.transition(st, i)
		if emitted != nil {
			stages = append(stages, *emitted)
		}
	}

	// Close whatever is open at the last point. A tentative stop that
	// never committed stays part of its Moving stage.
	if st.stageStart() <= last {
		switch st.(type) {
		case controlState:
			stages = append(stages, d.newStage(Control, st.stageStart(), last))
		default:
			stages = append(stages, d.newStage(Moving, st.stageStart(), last))
		}
	}

	return stages
}

// transition consumes the point at index i and returns the next state,
// an emitted stage if a boundary was crossed, and the next index to
// examine.
func (d *detector) transition(st state, i int) (state, *Stage, int) {
	switch s := st.(type) {
	case movingState:
		if d.points[i].SpeedKMH > d.params.ControlSpeedKMH {
			return s, nil, i + 1
		}
		// Speed dropped. The possible stage end is the point before;
		// re-examine this point as part of the tentative stop.
		return tentativeState{start: s.start, anchor: i - 1}, nil, i

	case tentativeState:
		moved := d.points[i].RunningMetres - d.points[s.anchor].RunningMetres
		if moved < d.params.ResumptionDistanceMetres {
			return s, nil, i + 1
		}

		// The rider has moved clear of the possible stop. Long enough
		// to be a real Control?
		stopped := d.points[i].Time.Sub(d.points[s.anchor].Time)
		if stopped < d.params.MinControlTime {
			// Transient dip (traffic lights). No boundary.
			return movingState{start: s.start}, nil, i + 1
		}

		// Commit: the Moving stage ends at the anchor and a Control
		// opens on the next point. Displacement is measured from the
		// Control's own start, so rewind to just after it.
		emitted := d.newStage(Moving, s.start, s.anchor)
		return controlState{start: s.anchor + 1}, &emitted, s.anchor + 2

	case controlState:
		anchor := d.points[s.start].Location()
		if anchor.Distance(d.points[i].Location()) <= d.params.ResumptionDistanceMetres {
			return s, nil, i + 1
		}
		emitted := d.newStage(Control, s.start, i)
		return movingState{start: i + 1}, &emitted, i + 2

	default:
		panic("unreachable stage detector state")
	}
}

// startingType classifies the opening of the ride from the average
// speed over the first three minutes. A rider who turns the GPS on and
// then stands around opens with a Control.
func (d *detector) startingType() Type {
	last := len(d.points) - 1
	end := 1
	for end <= last {
		if d.points[end].Time.Sub(d.points[0].Time) >= startupWindow {
			break
		}
		end++
	}
	if end > last {
		end = last
	}

	distance := d.points[end].RunningMetres - d.points[1].RunningMetres
	elapsed := d.points[end].Time.Sub(d.points[0].Time)
	if units.SpeedKMHFromDuration(distance, elapsed) < walkingPaceKMH {
		return Control
	}
	return Moving
}

func (d *detector) newStage(t Type, startIdx, endIdx int) Stage {
	s := Stage{
		Type:  t,
		Start: d.points[startIdx],
		End:   d.points[endIdx],
	}
	if startIdx > 0 {
		s.PrevTime = d.points[startIdx-1].Time
	} else {
		s.PrevTime = d.points[0].Time
	}

	minEle, maxEle, maxSpeed := startIdx, startIdx, startIdx
	for i := startIdx + 1; i <= endIdx; i++ {
		if d.points[i].Ele < d.points[minEle].Ele {
			minEle = i
		}
		if d.points[i].Ele > d.points[maxEle].Ele {
			maxEle = i
		}
		if d.points[i].SpeedKMH > d.points[maxSpeed].SpeedKMH {
			maxSpeed = i
		}
	}
	s.MinElevation = &d.points[minEle]
	s.MaxElevation = &d.points[maxEle]
	s.MaxSpeed = &d.points[maxSpeed]

	return s
}

// resolveLocation names a stage. Moving stages get "A to B" when both
// endpoints resolve; Controls get the stop's own name.
func resolveLocation(s *Stage, namer PlaceNamer) string {
	if namer == nil {
		return ""
	}

	start, startOK := namer.PlaceName(s.Start.Lat, s.Start.Lon)
	if s.Type == Control {
		if startOK {
			return start
		}
		return ""
	}

	end, endOK := namer.PlaceName(s.End.Lat, s.End.Lon)
	if startOK && endOK {
		return start + " to " + end
	}
	return ""
}
