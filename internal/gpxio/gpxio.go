// Package gpxio reads and writes GPX files, converting between the GPX
// document model and the canonical track model.
package gpxio

import (
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/audax-data/ride.report/internal/track"
)

// Decode parses a GPX document and flattens it into a single track.
// Multiple tracks and segments are concatenated in document order with
// no interpolation across the joins. name labels the resulting track,
// used when the document itself carries none.
func Decode(r io.Reader, name string) (*track.Track, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading gpx: %w", err)
	}

	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing gpx: %w", err)
	}

	if doc.Name != "" {
		name = doc.Name
	} else if len(doc.Tracks) > 0 && doc.Tracks[0].Name != "" {
		name = doc.Tracks[0].Name
	}

	var points []track.Point
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				pt := track.Point{
					Lat:  track.RoundCoord(p.Latitude),
					Lon:  track.RoundCoord(p.Longitude),
					Time: p.Timestamp,
				}
				if p.Elevation.NotNull() {
					pt.Ele = track.RoundEle(p.Elevation.Value())
				}
				points = append(points, pt)
			}
		}
	}

	t, err := track.New(name, points)
	if err != nil {
		return nil, err
	}
	t.Source = "gpx"
	return t, nil
}

// Encode renders a track as a GPX 1.1 document with one track and one
// segment, the shape produced for simplified output files.
func Encode(w io.Writer, t *track.Track) error {
	doc := &gpx.GPX{
		Version: "1.1",
		Creator: "ride.report",
		Name:    t.Name,
	}

	seg := gpx.GPXTrackSegment{}
	for _, p := range t.Points {
		gp := gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  p.Lat,
				Longitude: p.Lon,
				Elevation: *gpx.NewNullableFloat64(p.Ele),
			},
		}
		if !p.Time.IsZero() {
			gp.Timestamp = p.Time.UTC()
		}
		seg.Points = append(seg.Points, gp)
	}
	doc.Tracks = []gpx.GPXTrack{{Name: t.Name, Segments: []gpx.GPXTrackSegment{seg}}}

	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return fmt.Errorf("encoding gpx: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("writing gpx: %w", err)
	}
	return nil
}
