package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audax-data/ride.report/internal/testutil"
)

// Transition-level tests: each detector rule is checked in isolation
// by feeding a single point to a known state.

func TestTransitionMovingStaysAboveThreshold(t *testing.T) {
	d := &detector{
		points: testutil.Ride(t, testutil.Repeat(25, 5)...),
		params: testParams,
	}

	next, emitted, idx := d.transition(movingState{start: 0}, 1)
	assert.Equal(t, movingState{start: 0}, next)
	assert.Nil(t, emitted)
	assert.Equal(t, 2, idx)
}

func TestTransitionMovingOpensTentativeOnSpeedDrop(t *testing.T) {
	d := &detector{
		points: testutil.Ride(t, testutil.Concat(
			testutil.Repeat(25, 3),
			testutil.Repeat(0.1, 3),
		)...),
		params: testParams,
	}

	// Point 4 is the first below the threshold; the possible stage end
	// is point 3, and point 4 is re-examined as part of the stop.
	next, emitted, idx := d.transition(movingState{start: 0}, 4)
	assert.Equal(t, tentativeState{start: 0, anchor: 3}, next)
	assert.Nil(t, emitted)
	assert.Equal(t, 4, idx)
}

func TestTransitionTentativeRejectsShortStop(t *testing.T) {
	// 3 slow intervals (30s) then fast again: by the time the rider has
	// moved the resumption distance, under two minutes have passed.
	d := &detector{
		points: testutil.Ride(t, testutil.Concat(
			testutil.Repeat(25, 3),
			testutil.Repeat(0.1, 3),
			testutil.Repeat(25, 4),
		)...),
		params: testParams,
	}

	// Walk the tentative state to the point where displacement clears
	// the resumption distance.
	st := state(tentativeState{start: 0, anchor: 3})
	i := 4
	var emitted *Stage
	for {
		var next state
		next, emitted, i = d.transition(st, i)
		if _, still := next.(tentativeState); !still {
			st = next
			break
		}
		st = next
	}

	assert.Equal(t, movingState{start: 0}, st, "short stop must fold back into the Moving stage")
	assert.Nil(t, emitted)
}

func TestTransitionTentativeCommitsLongStop(t *testing.T) {
	// 20 slow intervals (200s) exceed the two minute minimum.
	d := &detector{
		points: testutil.Ride(t, testutil.Concat(
			testutil.Repeat(25, 3),
			testutil.Repeat(0.1, 20),
			testutil.Repeat(25, 4),
		)...),
		params: testParams,
	}

	st := state(tentativeState{start: 0, anchor: 3})
	i := 4
	var emitted *Stage
	for {
		var next state
		next, emitted, i = d.transition(st, i)
		if _, still := next.(tentativeState); !still {
			st = next
			break
		}
		st = next
	}

	require.NotNil(t, emitted, "committing a stop must emit the Moving stage")
	assert.Equal(t, Moving, emitted.Type)
	assert.Equal(t, 3, emitted.End.Index)
	assert.Equal(t, controlState{start: 4}, st)
	assert.Equal(t, 5, i, "control displacement scan starts after the stop point")
}

func TestTransitionControlEndsOnDisplacement(t *testing.T) {
	d := &detector{
		points: testutil.Ride(t, testutil.Concat(
			testutil.Repeat(0.1, 3),
			testutil.Repeat(25, 3),
		)...),
		params: testParams,
	}

	// Points 1-3 are within the resumption distance of point 0.
	next, emitted, _ := d.transition(controlState{start: 0}, 3)
	assert.Equal(t, controlState{start: 0}, next)
	assert.Nil(t, emitted)

	// Point 5 is ~139m out as the crow flies.
	next, emitted, idx := d.transition(controlState{start: 0}, 5)
	require.NotNil(t, emitted)
	assert.Equal(t, Control, emitted.Type)
	assert.Equal(t, 5, emitted.End.Index)
	assert.Equal(t, movingState{start: 6}, next)
	assert.Equal(t, 7, idx)
}

func TestStartingTypeUsesOpeningWindow(t *testing.T) {
	slow := &detector{
		points: testutil.Ride(t, testutil.Repeat(0.1, 25)...),
		params: testParams,
	}
	assert.Equal(t, Control, slow.startingType())

	fast := &detector{
		points: testutil.Ride(t, testutil.Repeat(25, 25)...),
		params: testParams,
	}
	assert.Equal(t, Moving, fast.startingType())
}

func TestSummarize(t *testing.T) {
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 20),
		testutil.Repeat(25, 10),
	)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)

	sum := Summarize(stages, points)

	assert.Equal(t, testutil.RideStart, sum.StartTime)
	assert.Equal(t, 400*time.Second, sum.Duration)
	assert.Equal(t, sum.Duration, sum.MovingTime+sum.ControlTime,
		"moving and control time must partition the ride")
	assert.Equal(t, 1, sum.Controls)
	assert.InDelta(t, points[len(points)-1].RunningMetres, sum.DistanceMetres, 0.001)

	assert.Greater(t, sum.AverageMovingSpeedKMH, sum.AverageOverallSpeedKMH)
	assert.InDelta(t, 25, sum.P95SpeedKMH, 0.5)
	assert.Greater(t, sum.MovingPercent(), 0.0)
	assert.Less(t, sum.MovingPercent(), 100.0)

	require.NotNil(t, sum.MaxSpeed)
	assert.InDelta(t, 25, sum.MaxSpeed.SpeedKMH, 0.5)
}
