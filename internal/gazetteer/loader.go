package gazetteer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/audax-data/ride.report/internal/fsutil"
	"github.com/audax-data/ride.report/internal/httputil"
	"github.com/audax-data/ride.report/internal/monitoring"
)

// DefaultBaseURL is the GeoNames dump endpoint.
const DefaultBaseURL = "https://download.geonames.org/export/dump/"

// Metadata artifacts fetched alongside the per-country place dumps.
const (
	countryInfoFile = "countryInfo.txt"
	admin1File      = "admin1CodesASCII.txt"
	admin2File      = "admin2Codes.txt"
)

// Options controls the cache lifecycle.
type Options struct {
	// CacheDir is the directory holding the downloaded artifacts.
	// Empty disables geocoding entirely.
	CacheDir string

	// Countries is the set of ISO country codes to load. Empty
	// disables geocoding entirely.
	Countries []string

	// ForceDownload re-fetches artifacts even when a cached copy
	// exists. A cached artifact is otherwise valid indefinitely.
	ForceDownload bool

	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string
}

// Disabled reports whether geocoding is switched off by configuration.
func (o Options) Disabled() bool {
	return o.CacheDir == "" || len(o.Countries) == 0
}

func (o Options) includeCountry(isoCode string) bool {
	for _, c := range o.Countries {
		if c == isoCode {
			return true
		}
	}
	return false
}

// Result holds everything a load produced. Per-artifact failures are
// recorded in Errors rather than aborting the load: a ride with no
// resolvable place names is still a complete, valid result.
type Result struct {
	Places    []Place
	Countries map[string]Country
	Admin1    map[string]string
	Admin2    map[string]string
	Errors    map[string]error
}

// Describe returns a human-readable name for a place, qualified with
// its second-level (or first-level) administrative area when the
// metadata tables carry it. Qualification is best-effort.
func (r *Result) Describe(p Place) string {
	if admin2, ok := r.Admin2[p.CountryCode+"."+p.Admin1+"."+p.Admin2]; ok {
		return p.Name + ", " + admin2
	}
	if admin1, ok := r.Admin1[p.CountryCode+"."+p.Admin1]; ok {
		return p.Name + ", " + admin1
	}
	return p.Name
}

// Loader downloads and caches GeoNames artifacts. It is safe for
// concurrent use; concurrent requests for the same not-yet-cached
// artifact share a single in-flight fetch.
type Loader struct {
	opts   Options
	fs     fsutil.FileSystem
	client httputil.HTTPClient

	group singleflight.Group

	mu      sync.Mutex
	fetched map[string]bool
}

// NewLoader creates a Loader. A nil fs defaults to the OS filesystem, a
// nil client to a standard HTTP client with a 60 second timeout.
func NewLoader(opts Options, fs fsutil.FileSystem, client httputil.HTTPClient) *Loader {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if client == nil {
		client = httputil.NewStandardClient(&http.Client{Timeout: 60 * time.Second})
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Loader{
		opts:    opts,
		fs:      fs,
		client:  client,
		fetched: make(map[string]bool),
	}
}

// Load ensures every requested artifact is cached, then parses the lot.
// Network or parse failure for one artifact is recorded per artifact in
// Result.Errors and does not abort the rest.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	res := &Result{
		Countries: make(map[string]Country),
		Admin1:    make(map[string]string),
		Admin2:    make(map[string]string),
		Errors:    make(map[string]error),
	}

	if l.opts.Disabled() {
		monitoring.Logf("geocoding disabled (no cache dir or no countries requested)")
		return res, nil
	}

	if err := l.fs.MkdirAll(l.opts.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", l.opts.CacheDir, err)
	}

	if countries, err := l.loadCountries(ctx); err != nil {
		res.Errors[countryInfoFile] = err
	} else {
		res.Countries = countries
	}

	if admin1, err := l.loadAdminCodes(ctx, admin1File); err != nil {
		res.Errors[admin1File] = err
	} else {
		res.Admin1 = admin1
	}

	if admin2, err := l.loadAdminCodes(ctx, admin2File); err != nil {
		res.Errors[admin2File] = err
	} else {
		res.Admin2 = admin2
	}

	// Countries load in the order requested so that ties in the
	// spatial index resolve deterministically to the first loaded.
	for _, isoCode := range l.opts.Countries {
		places, err := l.LoadCountryPlaces(ctx, isoCode)
		if err != nil {
			monitoring.Logf("gazetteer: country %s failed: %v", isoCode, err)
			res.Errors[isoCode] = err
			continue
		}
		monitoring.Logf("gazetteer: loaded %d places for %s", len(places), isoCode)
		res.Places = append(res.Places, places...)
	}

	return res, nil
}

// LoadCountryPlaces ensures the per-country zip artifact is cached and
// parses the place records out of it.
func (l *Loader) LoadCountryPlaces(ctx context.Context, isoCode string) ([]Place, error) {
	filename := isoCode + ".zip"
	path, err := l.ensureArtifact(ctx, filename)
	if err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cached %s: %w", filename, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	wantName := isoCode + ".txt"
	for _, entry := range zr.File {
		if entry.Name != wantName {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", wantName, filename, err)
		}
		defer rc.Close()
		return parsePlaces(rc)
	}

	return nil, fmt.Errorf("%s does not contain %s", filename, wantName)
}

func (l *Loader) loadCountries(ctx context.Context) (map[string]Country, error) {
	path, err := l.ensureArtifact(ctx, countryInfoFile)
	if err != nil {
		return nil, err
	}
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCountries(f)
}

func (l *Loader) loadAdminCodes(ctx context.Context, filename string) (map[string]string, error) {
	path, err := l.ensureArtifact(ctx, filename)
	if err != nil {
		return nil, err
	}
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseAdminCodes(f, l.opts.includeCountry)
}

// ensureArtifact guarantees a cached copy of filename exists and is
// fresh enough, downloading at most once per artifact per process.
// Concurrent callers for the same artifact block on the in-flight
// fetch instead of duplicating it.
func (l *Loader) ensureArtifact(ctx context.Context, filename string) (string, error) {
	path := filepath.Join(l.opts.CacheDir, filename)

	v, err, _ := l.group.Do(filename, func() (any, error) {
		l.mu.Lock()
		alreadyFetched := l.fetched[filename]
		l.mu.Unlock()

		if l.fs.Exists(path) && (!l.opts.ForceDownload || alreadyFetched) {
			return path, nil
		}

		if err := l.download(ctx, filename, path); err != nil {
			// A failed refresh must not lose a previously good
			// cache: fall back to the stale copy if one exists.
			if l.fs.Exists(path) {
				monitoring.Logf("gazetteer: refresh of %s failed, using cached copy: %v", filename, err)
				return path, nil
			}
			return nil, err
		}

		l.mu.Lock()
		l.fetched[filename] = true
		l.mu.Unlock()
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// download fetches one artifact to a temporary file and swaps it into
// place, so a failed download never corrupts a previously good cache.
func (l *Loader) download(ctx context.Context, filename, destPath string) error {
	url := l.opts.BaseURL + filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading body of %s: %w", url, err)
	}

	tmpPath := destPath + ".tmp"
	if err := l.fs.WriteFile(tmpPath, body, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := l.fs.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("replacing %s: %w", destPath, err)
	}

	monitoring.Logf("gazetteer: downloaded %s (%d bytes)", filename, len(body))
	return nil
}
