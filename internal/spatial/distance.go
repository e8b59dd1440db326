package spatial

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return CentralAngle(lat1, lon1, lat2, lon2).Radians() * EarthRadiusMeters
}

// CentralAngle returns the angle subtended at the sphere's center by two points.
func CentralAngle(lat1, lon1, lat2, lon2 float64) s1.Angle {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2)
}

// CentralAngleDegrees is CentralAngle in degrees, in [0, 180].
func CentralAngleDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	return CentralAngle(lat1, lon1, lat2, lon2).Degrees()
}

// Interpolate returns the point a fraction t along the great circle from
// point 1 to point 2. t is clamped to [0, 1].
func Interpolate(lat1, lon1, lat2, lon2, t float64) (float64, float64) {
	if t <= 0 {
		return lat1, lon1
	}
	if t >= 1 {
		return lat2, lon2
	}
	a := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lon1))
	b := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lon2))

	// s2.Interpolate is undefined for antipodal endpoints; fall back to a
	// component-wise lerp on the wrapped longitude.
	if a.Angle(b.Vector) >= math.Pi-1e-9 {
		dLon := AngularDifferenceDegrees(lon1, lon2)
		return lat1 + (lat2-lat1)*t, NormalizeLongitude(lon1 + dLon*t)
	}

	ll := s2.LatLngFromPoint(s2.Interpolate(t, a, b))
	return ll.Lat.Degrees(), ll.Lng.Degrees()
}

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)
