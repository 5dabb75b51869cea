// Package fitio reads FIT activity files into the canonical track
// model.
package fitio

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"github.com/audax-data/ride.report/internal/track"
)

// Decode parses a FIT activity and converts its record messages into a
// track. Records without a position fix are skipped. Elevation prefers
// the enhanced altitude field, falling back to the basic one; a record
// with neither keeps a zero elevation.
func Decode(r io.Reader, name string) (*track.Track, error) {
	f, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("parsing fit: %w", err)
	}

	activity, err := f.Activity()
	if err != nil {
		return nil, fmt.Errorf("fit file is not an activity: %w", err)
	}

	var points []track.Point
	for _, rec := range activity.Records {
		lat := rec.PositionLat.Degrees()
		lon := rec.PositionLong.Degrees()
		if math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}

		pt := track.Point{
			Lat:  track.RoundCoord(lat),
			Lon:  track.RoundCoord(lon),
			Time: rec.Timestamp,
		}
		if ele := rec.GetEnhancedAltitudeScaled(); !math.IsNaN(ele) {
			pt.Ele = track.RoundEle(ele)
		} else if ele := rec.GetAltitudeScaled(); !math.IsNaN(ele) {
			pt.Ele = track.RoundEle(ele)
		}
		points = append(points, pt)
	}

	t, err := track.New(name, points)
	if err != nil {
		return nil, err
	}
	t.Source = "fit"
	return t, nil
}
