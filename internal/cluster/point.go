// Package cluster aggregates geolocated points into clusters, either on a
// fixed lat/lon grid, on a grid whose cell size adapts to a cluster budget,
// or by cutting a quad-tree at a zoom-derived depth.
//
// Every function here is total: invalid input is normalized (non-finite
// points dropped, degenerate cell sizes turned into identity clustering)
// rather than reported as an error. Results are freshly allocated and never
// mutated after they are returned.
package cluster

import (
	"github.com/jengzang/camglobe/internal/spatial"
)

// Point is a geolocated entity supplied by the host. The core never writes to
// it and never interprets Payload.
type Point struct {
	ID        string
	Latitude  float64
	Longitude float64
	Payload   any
}

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return spatial.Finite(p.Latitude, p.Longitude)
}

// FilterFinite drops points with NaN or infinite coordinates. When nothing is
// dropped the input slice is returned as is.
func FilterFinite(points []Point) []Point {
	for i, p := range points {
		if p.Finite() {
			continue
		}
		out := make([]Point, i, len(points))
		copy(out, points[:i])
		for _, q := range points[i+1:] {
			if q.Finite() {
				out = append(out, q)
			}
		}
		return out
	}
	return points
}
