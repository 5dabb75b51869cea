package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audax-data/ride.report/internal/testutil"
)

var testParams = Params{
	ControlSpeedKMH:          5,
	MinControlTime:           2 * time.Minute,
	ResumptionDistanceMetres: 100,
}

// assertContiguous checks the segmentation invariant: every point
// belongs to exactly one stage, no gaps, no overlaps.
func assertContiguous(t *testing.T, stages List, pointCount int) {
	t.Helper()
	require.NotEmpty(t, stages)
	assert.Equal(t, 0, stages[0].Start.Index, "first stage must start at the first point")
	assert.Equal(t, pointCount-1, stages[len(stages)-1].End.Index, "last stage must end at the last point")
	for i := 0; i < len(stages)-1; i++ {
		assert.Equal(t, stages[i].End.Index+1, stages[i+1].Start.Index,
			"stage %d must start on the point after stage %d ends", i+1, i)
	}
}

func TestDetectParamsValidation(t *testing.T) {
	points := testutil.Ride(t, testutil.Repeat(25, 5)...)

	_, err := Detect(points, Params{}, nil)
	assert.Error(t, err)

	_, err = Detect(points, Params{ControlSpeedKMH: 5, MinControlTime: time.Minute}, nil)
	assert.Error(t, err, "zero resumption distance must be rejected")
}

func TestDetectTooFewPoints(t *testing.T) {
	points := testutil.Ride(t)
	_, err := Detect(points, testParams, nil)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestDetectAllMovingSingleStage(t *testing.T) {
	points := testutil.Ride(t, testutil.Repeat(25, 30)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)

	require.Len(t, stages, 1)
	assert.Equal(t, Moving, stages[0].Type)
	assertContiguous(t, stages, len(points))
}

func TestDetectThreeStageRide(t *testing.T) {
	// Ride fast, stop for over three minutes, ride off again.
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 20),
		testutil.Repeat(25, 10),
	)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)

	require.Len(t, stages, 3)
	assert.Equal(t, Moving, stages[0].Type)
	assert.Equal(t, Control, stages[1].Type)
	assert.Equal(t, Moving, stages[2].Type)
	assertContiguous(t, stages, len(points))

	// The stop must be at least as long as the configured minimum.
	assert.GreaterOrEqual(t, stages[1].Duration(), testParams.MinControlTime)
}

func TestDetectShortDipStaysMoving(t *testing.T) {
	// A 50 second dip below control speed is a traffic light, not a
	// control: shorter than MinControlTime, so no boundary.
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 5),
		testutil.Repeat(25, 10),
	)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)

	require.Len(t, stages, 1)
	assert.Equal(t, Moving, stages[0].Type)
	assertContiguous(t, stages, len(points))
}

func TestDetectRideOpeningWithControl(t *testing.T) {
	// GPS on, rider stands around for four minutes, then sets off.
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(0.1, 25),
		testutil.Repeat(25, 20),
	)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)

	require.Len(t, stages, 2)
	assert.Equal(t, Control, stages[0].Type)
	assert.Equal(t, Moving, stages[1].Type)
	assertContiguous(t, stages, len(points))
}

func TestDetectTrailingStopClosesAtTrackEnd(t *testing.T) {
	// Ride, then stop and never move again: the final stage closes at
	// the last point even though the stop never hit the resumption
	// distance.
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 30),
	)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)

	assertContiguous(t, stages, len(points))
	last := stages[len(stages)-1]
	assert.Equal(t, len(points)-1, last.End.Index)
}

func TestStageAttributes(t *testing.T) {
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 20),
		testutil.Repeat(25, 10),
	)...)

	stages, err := Detect(points, testParams, nil)
	require.NoError(t, err)
	require.Len(t, stages, 3)

	first := stages[0]
	assert.InDelta(t, 25, first.AverageSpeedKMH(), 0.5)
	assert.Greater(t, first.DistanceMetres(), 0.0)
	assert.Equal(t, first.End.RunningMetres/1000, first.RunningDistanceKM())
	require.NotNil(t, first.MaxSpeed)
	assert.InDelta(t, 25, first.MaxSpeed.SpeedKMH, 0.5)

	// Flat synthetic track: no climbing.
	assert.Zero(t, first.AscentMetres())
	assert.Zero(t, first.DescentMetres())
}

type funcNamer func(lat, lon float64) (string, bool)

func (f funcNamer) PlaceName(lat, lon float64) (string, bool) { return f(lat, lon) }

func TestDetectPlaceNames(t *testing.T) {
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 20),
		testutil.Repeat(25, 10),
	)...)

	// Name by latitude band: everything on this track is north of 52.
	namer := funcNamer(func(lat, lon float64) (string, bool) {
		if lat < 52.001 {
			return "Keyworth", true
		}
		return "Plumtree", true
	})

	stages, err := Detect(points, testParams, namer)
	require.NoError(t, err)
	require.Len(t, stages, 3)

	assert.Equal(t, "Keyworth to Plumtree", stages[0].Location)
	assert.Equal(t, "Plumtree", stages[1].Location)
}

func TestDetectPlaceNamesBestEffort(t *testing.T) {
	points := testutil.Ride(t, testutil.Concat(
		testutil.Repeat(25, 10),
		testutil.Repeat(0.1, 20),
		testutil.Repeat(25, 10),
	)...)

	noMatch := funcNamer(func(lat, lon float64) (string, bool) { return "", false })

	stages, err := Detect(points, testParams, noMatch)
	require.NoError(t, err)
	for _, s := range stages {
		assert.Empty(t, s.Location, "unresolvable names must stay empty, not fail")
	}
}
