package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/audax-data/ride.report/internal/fitio"
	"github.com/audax-data/ride.report/internal/gpxio"
	"github.com/audax-data/ride.report/internal/report"
	"github.com/audax-data/ride.report/internal/ridedb"
	"github.com/audax-data/ride.report/internal/simplify"
	"github.com/audax-data/ride.report/internal/stage"
	"github.com/audax-data/ride.report/internal/track"
)

type analyzer struct {
	params         stage.Params
	simplifyMetres float64
	chart          bool
	namer          stage.PlaceNamer
	rides          *ridedb.DB
}

// analyzeFile runs the whole pipeline for one recording: decode,
// optionally simplify, segment into stages, report, persist.
func (a *analyzer) analyzeFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	trk, err := decodeFile(path)
	if err != nil {
		return err
	}
	log.Printf("%s: decoded %d points (%s)", path, len(trk.Points), trk.Source)

	if a.simplifyMetres > 0 {
		before := len(trk.Points)
		trk, err = simplify.Track(trk, a.simplifyMetres)
		if err != nil {
			return fmt.Errorf("simplifying: %w", err)
		}
		log.Printf("%s: simplified %d points to %d at %.1fm tolerance", path, before, len(trk.Points), a.simplifyMetres)

		if err := writeSimplifiedGPX(simplifiedPath(path), trk); err != nil {
			return err
		}
	}

	if !trk.HasTimes() {
		return fmt.Errorf("%s has points without timestamps, cannot segment", path)
	}

	points, err := track.Enrich(trk)
	if err != nil {
		return err
	}

	stages, err := stage.Detect(points, a.params, a.namer)
	if err != nil {
		return err
	}
	sum := stage.Summarize(stages, points)

	if err := writeWorkbook(outputPath(path, ".xlsx"), trk.Name, sum, stages); err != nil {
		return err
	}

	if a.chart {
		if err := writeChart(outputPath(path, ".html"), trk.Name, points); err != nil {
			return err
		}
	}

	if a.rides != nil {
		id, err := a.rides.RecordAnalysis(ctx, trk.Name, trk.Source, sum, stages)
		if err != nil {
			return fmt.Errorf("recording ride: %w", err)
		}
		log.Printf("%s: recorded as ride %s", path, id)
	}

	return nil
}

// decodeFile dispatches on the file extension.
func decodeFile(path string) (*track.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpx":
		return gpxio.Decode(f, name)
	case ".fit":
		return fitio.Decode(f, name)
	default:
		return nil, fmt.Errorf("%s: unsupported file type (want .gpx or .fit)", path)
	}
}

// outputPath swaps the input extension, keeping the directory.
func outputPath(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// simplifiedPath names the reduced-trackpoint GPX written alongside the
// input when simplification is on.
func simplifiedPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".simplified.gpx"
}

func writeSimplifiedGPX(path string, trk *track.Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gpxio.Encode(f, trk); err != nil {
		return err
	}
	log.Printf("wrote simplified track %s", path)
	return nil
}

func writeWorkbook(path, name string, sum stage.Summary, stages stage.List) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := report.WriteWorkbook(f, name, sum, stages); err != nil {
		return err
	}
	log.Printf("wrote report %s", path)
	return nil
}

func writeChart(path, name string, points []track.EnrichedPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := report.WriteProfileChart(f, name, points); err != nil {
		return err
	}
	log.Printf("wrote profile chart %s", path)
	return nil
}
