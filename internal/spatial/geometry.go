package spatial

import (
	"math"

	"github.com/paulmach/orb"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Finite reports whether both coordinates are real numbers.
func Finite(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lon) && !math.IsInf(lat, 0) && !math.IsInf(lon, 0)
}

// ValidCoordinate reports whether lat/lon are finite and inside the WGS84 domain.
func ValidCoordinate(lat, lon float64) bool {
	if !Finite(lat, lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// BoundingBox returns the lon/lat bound of the points. Non-finite points are
// skipped; an empty input yields the zero bound.
func BoundingBox(points []Point) orb.Bound {
	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		if Finite(p.Lat, p.Lon) {
			mp = append(mp, orb.Point{p.Lon, p.Lat})
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}
	}
	return mp.Bound()
}

// Centroid calculates the geographic centroid of a set of points, with the
// longitude averaged on the circle.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat float64
	var lon LongitudeMean
	for _, p := range points {
		sumLat += p.Lat
		lon.Add(p.Lon)
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: lon.Mean(),
	}
}
