package spatial

import (
	"math"
	"testing"
)

func TestLongitudeMean(t *testing.T) {
	tests := []struct {
		name  string
		lons  []float64
		want  float64
		delta float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{42}, 42, 1e-9},
		{"plain average", []float64{10, 20}, 15, 1e-9},
		{"antimeridian", []float64{179.9, -179.9}, -180, 1e-6},
		{"antimeridian skewed", []float64{170, -170, -170}, -176.6, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m LongitudeMean
			for _, lon := range tt.lons {
				m.Add(lon)
			}
			got := m.Mean()
			// -180 and 180 are the same meridian
			if math.Abs(AngularDifferenceDegrees(got, tt.want)) > tt.delta {
				t.Errorf("Mean() = %v, want %v ± %v", got, tt.want, tt.delta)
			}
		})
	}
}

func TestLongitudeMeanMerge(t *testing.T) {
	var a, b, all LongitudeMean
	for _, lon := range []float64{-170, 175} {
		a.Add(lon)
		all.Add(lon)
	}
	for _, lon := range []float64{178, -179} {
		b.Add(lon)
		all.Add(lon)
	}
	a.Merge(b)
	if a.N != 4 {
		t.Fatalf("N = %d, want 4", a.N)
	}
	if math.Abs(a.Mean()-all.Mean()) > 1e-12 {
		t.Errorf("merged mean %v != direct mean %v", a.Mean(), all.Mean())
	}
}

func TestLongitudeDelta(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 180, 180},
		{179, -179, 2},
		{-170, 170, 20},
		{10, 10, 0},
		{0, 540, 180},
	}
	for _, tt := range tests {
		if got := LongitudeDelta(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LongitudeDelta(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, -180},
		{-180, -180},
		{190, -170},
		{-190, 170},
		{725, 5},
	}
	for _, tt := range tests {
		if got := NormalizeLongitude(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeLongitude(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCentralAngleDegrees(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"same point", 10, 20, 10, 20, 0},
		{"quarter", 0, 0, 0, 90, 90},
		{"antipode", 0, 0, 0, 180, 180},
		{"pole to equator", 90, 0, 0, 45, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CentralAngleDegrees(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	// One degree of arc on the mean sphere.
	want := EarthRadiusMeters * math.Pi / 180
	got := HaversineDistance(0, 0, 0, 1)
	if math.Abs(got-want) > 1 {
		t.Errorf("HaversineDistance = %v, want %v", got, want)
	}
}

func TestInterpolate(t *testing.T) {
	lat, lon := Interpolate(0, 170, 0, -170, 0.5)
	if math.Abs(lat) > 1e-9 || LongitudeDelta(lon, 180) > 1e-6 {
		t.Errorf("midpoint across antimeridian = (%v, %v), want (0, ±180)", lat, lon)
	}

	lat, lon = Interpolate(10, 20, 30, 40, 0)
	if lat != 10 || lon != 20 {
		t.Errorf("t=0 should return the start, got (%v, %v)", lat, lon)
	}
	lat, lon = Interpolate(10, 20, 30, 40, 1.5)
	if lat != 30 || lon != 40 {
		t.Errorf("t>1 should clamp to the end, got (%v, %v)", lat, lon)
	}

	// Antipodal endpoints must not produce NaN.
	lat, lon = Interpolate(0, 0, 0, 180, 0.5)
	if !Finite(lat, lon) {
		t.Errorf("antipodal interpolation produced (%v, %v)", lat, lon)
	}
}

func TestGeohash(t *testing.T) {
	if got := EncodeGeohash(57.64911, 10.40744, 11); got != "u4pruydqqvj" {
		t.Errorf("EncodeGeohash = %q, want u4pruydqqvj", got)
	}
	if got := EncodeGeohash(0, 0, 0); len(got) != 1 {
		t.Errorf("precision is clamped to 1, got %q", got)
	}
}

func TestBoundingBoxAndValidity(t *testing.T) {
	b := BoundingBox([]Point{{Lat: 10, Lon: -20}, {Lat: -5, Lon: 30}, {Lat: math.NaN(), Lon: 0}})
	if b.Min[0] != -20 || b.Max[0] != 30 || b.Min[1] != -5 || b.Max[1] != 10 {
		t.Errorf("BoundingBox = %v", b)
	}
	if ValidCoordinate(91, 0) || ValidCoordinate(0, math.Inf(1)) || !ValidCoordinate(-90, 180) {
		t.Error("ValidCoordinate disagrees with the WGS84 domain")
	}

	c := Centroid([]Point{{Lat: 0, Lon: 179}, {Lat: 2, Lon: -179}})
	if math.Abs(c.Lat-1) > 1e-9 || LongitudeDelta(c.Lon, 180) > 1e-6 {
		t.Errorf("Centroid = %+v", c)
	}
}
