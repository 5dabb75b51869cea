// ride.report analyses GPS ride recordings: it decodes GPX and FIT
// files, optionally simplifies the track, segments the ride into
// Moving and Control stages, names stage locations against a locally
// cached GeoNames dataset, and writes a spreadsheet report per ride.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/audax-data/ride.report/internal/config"
	"github.com/audax-data/ride.report/internal/gazetteer"
	"github.com/audax-data/ride.report/internal/ridedb"
	"github.com/audax-data/ride.report/internal/spatial"
	"github.com/audax-data/ride.report/internal/stage"
	"github.com/audax-data/ride.report/internal/version"
)

var (
	metres         = flag.Float64("metres", config.DefaultSimplifyMetres, "simplification tolerance in metres (0 disables)")
	controlSpeed   = flag.Float64("control-speed", config.DefaultControlSpeedKMH, "speed in km/h below which the rider is considered stopped")
	minControlTime = flag.Float64("min-control-time", config.DefaultMinControlTimeMinutes, "minimum stop duration in minutes for a Control stage")
	resumptionDist = flag.Float64("resumption-distance", config.DefaultResumptionDistanceMetres, "metres moved from a stop before it ends")
	countries      = flag.String("countries", "", "comma-separated ISO country codes for place naming (empty disables)")
	forceDownload  = flag.Bool("force-geonames-download", false, "re-download cached GeoNames artifacts")
	cacheDir       = flag.String("cache-dir", "", "GeoNames cache directory (default: per-user cache dir)")
	configPath     = flag.String("config", "", "JSON config file; flags override its values")
	dbPath         = flag.String("db", config.DefaultDBPath, "ride history sqlite database (empty disables)")
	chart          = flag.Bool("chart", false, "also write an HTML elevation/speed profile per ride")
	showVersion    = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("ride.report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("no .gpx or .fit files specified")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	params := stage.Params{
		ControlSpeedKMH:          cfg.GetControlSpeedKMH(),
		MinControlTime:           cfg.GetMinControlTime(),
		ResumptionDistanceMetres: cfg.GetResumptionDistanceMetres(),
	}
	if err := params.Validate(); err != nil {
		log.Fatalf("invalid stage parameters: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	namer := buildNamer(ctx, cfg)

	var rides *ridedb.DB
	if path := cfg.GetDBPath(); path != "" {
		rides, err = ridedb.New(path)
		if err != nil {
			log.Fatalf("failed to open ride database: %v", err)
		}
		defer rides.Close()
	}

	a := &analyzer{
		params:         params,
		simplifyMetres: cfg.GetSimplifyMetres(),
		chart:          cfg.GetChart(),
		namer:          namer,
		rides:          rides,
	}

	// One pipeline per file; a failure in one ride does not abort the
	// others.
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, file := range files {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			if err := a.analyzeFile(ctx, file); err != nil {
				log.Printf("error while processing %s: %v", file, err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(file)
	}
	wg.Wait()

	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, len(files))
	}
}

// loadConfig merges the optional config file with the command line.
// Flags the user actually set override the file.
func loadConfig() (*config.AnalysisConfig, error) {
	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["metres"] {
		cfg.SimplifyMetres = metres
	}
	if set["control-speed"] {
		cfg.ControlSpeedKMH = controlSpeed
	}
	if set["min-control-time"] {
		cfg.MinControlTimeMinutes = minControlTime
	}
	if set["resumption-distance"] {
		cfg.ResumptionDistanceMetres = resumptionDist
	}
	if set["countries"] {
		cfg.Countries = splitCountries(*countries)
	}
	if set["force-geonames-download"] {
		cfg.ForceDownload = forceDownload
	}
	if set["cache-dir"] {
		cfg.CacheDir = cacheDir
	}
	if set["db"] {
		cfg.DBPath = dbPath
	}
	if set["chart"] {
		cfg.Chart = chart
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitCountries(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// buildNamer loads the gazetteer and wraps it in a spatial index.
// Geocoding problems degrade to unnamed stages, never abort a run.
func buildNamer(ctx context.Context, cfg *config.AnalysisConfig) stage.PlaceNamer {
	opts := gazetteer.Options{
		CacheDir:      cfg.GetCacheDir(),
		Countries:     cfg.Countries,
		ForceDownload: cfg.GetForceDownload(),
	}
	if opts.Disabled() {
		return nil
	}

	start := time.Now()
	loader := gazetteer.NewLoader(opts, nil, nil)
	res, err := loader.Load(ctx)
	if err != nil {
		log.Printf("geocoding unavailable: %v", err)
		return nil
	}
	for artifact, aerr := range res.Errors {
		log.Printf("geocoding degraded, %s failed: %v", artifact, aerr)
	}
	if len(res.Places) == 0 {
		log.Printf("geocoding disabled: no places loaded")
		return nil
	}

	index := spatial.NewIndex(res.Places)
	log.Printf("geocoding ready: %d places indexed in %v", index.Len(), time.Since(start).Round(time.Millisecond))
	return &gazetteerNamer{index: index, result: res}
}

// gazetteerNamer adapts the spatial index and the gazetteer metadata
// tables to the stage engine's naming interface.
type gazetteerNamer struct {
	index  *spatial.Index
	result *gazetteer.Result
}

func (n *gazetteerNamer) PlaceName(lat, lon float64) (string, bool) {
	place, _, ok := n.index.Nearest(lat, lon)
	if !ok {
		return "", false
	}
	return n.result.Describe(place), true
}
