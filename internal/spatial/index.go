// Package spatial provides a nearest-neighbour index over gazetteer
// place records. Records live in a flat arena partitioned by a coarse
// latitude/longitude grid, so the structure is immutable after
// construction and safe to share across concurrent readers.
package spatial

import (
	"math"

	"github.com/audax-data/ride.report/internal/gazetteer"
	"github.com/audax-data/ride.report/internal/geo"
)

// DefaultCellSizeDegrees is the grid cell edge. At 0.25 degrees a cell
// is roughly 28km tall, which keeps per-cell bucket sizes small even
// for dense country datasets.
const DefaultCellSizeDegrees = 0.25

type cellKey struct {
	lat int32
	lon int32
}

// Index is built once from a loaded place collection and never mutated
// afterwards. Queries need no locking.
type Index struct {
	places   []gazetteer.Place
	cells    map[cellKey][]int32
	cellSize float64
	lonCells int32
}

// NewIndex builds an index over places. The slice is retained as the
// arena; callers must not mutate it afterwards.
func NewIndex(places []gazetteer.Place) *Index {
	ix := &Index{
		places:   places,
		cells:    make(map[cellKey][]int32),
		cellSize: DefaultCellSizeDegrees,
	}
	ix.lonCells = int32(math.Ceil(360 / ix.cellSize))

	for i, p := range places {
		key := ix.cellOf(p.Lat, p.Lon)
		ix.cells[key] = append(ix.cells[key], int32(i))
	}
	return ix
}

// Len returns the number of indexed places.
func (ix *Index) Len() int {
	return len(ix.places)
}

func (ix *Index) cellOf(lat, lon float64) cellKey {
	latCell := int32(math.Floor(lat / ix.cellSize))
	lonCell := int32(math.Floor(lon/ix.cellSize)) % ix.lonCells
	if lonCell < 0 {
		lonCell += ix.lonCells
	}
	return cellKey{lat: latCell, lon: lonCell}
}

// Nearest returns the closest place to (lat, lon) by great-circle
// distance, the distance in metres, and whether a match was found.
// An empty index yields no match. Exact distance ties resolve to the
// first-loaded record.
func (ix *Index) Nearest(lat, lon float64) (gazetteer.Place, float64, bool) {
	if len(ix.places) == 0 {
		return gazetteer.Place{}, 0, false
	}

	home := ix.cellOf(lat, lon)
	query := geo.Point{Lat: lat, Lon: lon}

	bestIdx := int32(-1)
	bestDist := math.MaxFloat64

	// Expand ring by ring from the home cell. Once a ring produces a
	// candidate, scan one further ring: the nearest record can sit in a
	// neighbouring cell even when the home cell has an occupant.
	maxRadius := ix.maxRingRadius()
	foundAt := int32(-1)
	for r := int32(0); r <= maxRadius; r++ {
		if foundAt >= 0 && r > foundAt+1 {
			break
		}
		ix.scanRing(home, r, query, &bestIdx, &bestDist)
		if bestIdx >= 0 && foundAt < 0 {
			foundAt = r
		}
	}

	if bestIdx < 0 {
		return gazetteer.Place{}, 0, false
	}
	return ix.places[bestIdx], bestDist, true
}

// maxRingRadius is the ring count needed to cover the whole grid, the
// stop condition when the dataset is far from the query point.
func (ix *Index) maxRingRadius() int32 {
	latCells := int32(math.Ceil(180 / ix.cellSize))
	if latCells > ix.lonCells {
		return latCells
	}
	return ix.lonCells
}

// scanRing examines every cell at Chebyshev distance r from home and
// folds their occupants into the current best candidate.
func (ix *Index) scanRing(home cellKey, r int32, query geo.Point, bestIdx *int32, bestDist *float64) {
	for dLat := -r; dLat <= r; dLat++ {
		latCell := home.lat + dLat
		var lonOffsets []int32
		if dLat == -r || dLat == r {
			for dLon := -r; dLon <= r; dLon++ {
				lonOffsets = append(lonOffsets, dLon)
			}
		} else {
			lonOffsets = []int32{-r, r}
		}

		for _, dLon := range lonOffsets {
			lonCell := (home.lon + dLon) % ix.lonCells
			if lonCell < 0 {
				lonCell += ix.lonCells
			}
			ix.scanCell(cellKey{lat: latCell, lon: lonCell}, query, bestIdx, bestDist)
		}
	}
}

func (ix *Index) scanCell(key cellKey, query geo.Point, bestIdx *int32, bestDist *float64) {
	for _, idx := range ix.cells[key] {
		p := ix.places[idx]
		d := query.Distance(geo.Point{Lat: p.Lat, Lon: p.Lon})
		if d < *bestDist || (d == *bestDist && idx < *bestIdx) {
			*bestDist = d
			*bestIdx = idx
		}
	}
}
