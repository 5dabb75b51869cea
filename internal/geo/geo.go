// Package geo provides great-circle geometry over geographic coordinates.
//
// All distances are in metres on a spherical earth model. The error
// against a full ellipsoidal geodesic is below 0.5% at mid latitudes,
// which is well inside GPS noise for ride recordings. Polar-region
// distortion is a known approximation limit.
package geo

import "math"

// EarthRadiusMetres is the mean earth radius used by the spherical model.
const EarthRadiusMetres = 6371000.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the great-circle distance in metres between p and q
// using the haversine formula.
func (p Point) Distance(q Point) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)
	dLat := radians(q.Lat - p.Lat)
	dLon := radians(q.Lon - p.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMetres * c
}

// Bearing returns the initial great-circle bearing from p to q in radians.
func (p Point) Bearing(q Point) float64 {
	lat1 := radians(p.Lat)
	lat2 := radians(q.Lat)
	dLon := radians(q.Lon - p.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Atan2(y, x)
}

// CrossTrackDistance returns the perpendicular distance in metres from p
// to the great-circle chord running from start to end.
//
// When start and end coincide the chord degenerates and the plain
// point-to-point distance is returned instead.
func CrossTrackDistance(p, start, end Point) float64 {
	d13 := start.Distance(p)
	if d13 == 0 {
		return 0
	}
	if start.Distance(end) == 0 {
		return d13
	}

	theta13 := start.Bearing(p)
	theta12 := start.Bearing(end)
	dxt := math.Asin(math.Sin(d13/EarthRadiusMetres)*math.Sin(theta13-theta12)) * EarthRadiusMetres
	return math.Abs(dxt)
}
