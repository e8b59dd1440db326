package spatial

import (
	"math"
)

// LongitudeMean accumulates longitudes as unit vectors so the mean survives
// the antimeridian. The zero value is ready to use.
type LongitudeMean struct {
	SumSin float64
	SumCos float64
	N      int
}

// Add folds one longitude (degrees) into the accumulator.
func (m *LongitudeMean) Add(lonDeg float64) {
	rad := lonDeg * math.Pi / 180
	m.SumSin += math.Sin(rad)
	m.SumCos += math.Cos(rad)
	m.N++
}

// Merge folds another accumulator into m.
func (m *LongitudeMean) Merge(o LongitudeMean) {
	m.SumSin += o.SumSin
	m.SumCos += o.SumCos
	m.N += o.N
}

// Mean returns the circular mean in degrees, normalized to [-180, 180).
// An empty accumulator, or one whose vectors cancel exactly, yields 0.
func (m LongitudeMean) Mean() float64 {
	if m.N == 0 {
		return 0
	}
	return NormalizeLongitude(math.Atan2(m.SumSin, m.SumCos) * 180 / math.Pi)
}

// AngularDifferenceDegrees calculates the smallest signed difference between
// two angles (degrees). Result is in range [-180, 180]
func AngularDifferenceDegrees(angle1, angle2 float64) float64 {
	diff := math.Mod(angle2-angle1, 360)
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return diff
}

// LongitudeDelta returns the absolute longitude separation with wraparound,
// in [0, 180].
func LongitudeDelta(lon1, lon2 float64) float64 {
	delta := math.Abs(math.Mod(lon1-lon2, 360))
	if delta > 180 {
		delta = 360 - delta
	}
	return delta
}

// NormalizeLongitude wraps a longitude into [-180, 180).
func NormalizeLongitude(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// ClampLatitude limits a latitude to [-90, 90].
func ClampLatitude(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}
