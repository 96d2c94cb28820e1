// Package geo translates map viewports into bounding-box predicates for the
// post map view.
package geo

import "math"

// kmPerDegreeLat is the approximate span of one degree of latitude.
const kmPerDegreeLat = 111.0

// DefaultRadiusKm applies when the zoom level is outside the known range.
const DefaultRadiusKm = 10.0

// zoomToRadiusKm maps a map zoom level to an approximate search radius in
// kilometers. Lower zoom means a wider view.
var zoomToRadiusKm = map[int]float64{
	1:  10000, // whole world
	2:  5000,
	3:  2500,
	4:  1250,
	5:  625,
	6:  312,
	7:  156,
	8:  78,
	9:  39,
	10: 20,
	11: 10,
	12: 5,
	13: 2.5,
	14: 1.25,
	15: 0.625,
	16: 0.312,
	17: 0.156,
	18: 0.078,
	19: 0.039,
	20: 0.020,
}

// RadiusKmForZoom returns the search radius for a zoom level, falling back to
// DefaultRadiusKm for unrecognized levels.
func RadiusKmForZoom(zoom int) float64 {
	if r, ok := zoomToRadiusKm[zoom]; ok {
		return r
	}
	return DefaultRadiusKm
}

// BoundingBox is an axis-aligned approximation of a circular search radius.
// It is a map-viewport pre-filter, not a geodesic circle: it is not safe
// around the antimeridian or the poles and must not be used where geodesic
// precision matters.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// NewBoundingBox computes the box of radiusKm around (lat, lon). The
// longitude band widens with latitude by the usual 1/cos(lat) factor.
func NewBoundingBox(lat, lon, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegreeLat
	lonDelta := radiusKm / (kmPerDegreeLat * math.Cos(lat*math.Pi/180))
	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Contains reports whether the point falls inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}
