package viewport

import (
	"math"
	"sort"

	"github.com/jengzang/camglobe/internal/cluster"
	"github.com/jengzang/camglobe/internal/spatial"
)

// Options tunes ComputeVisibleClusters.
type Options struct {
	// MaxVisible caps the number of markers. Zero or less shows nothing.
	MaxVisible int
	// MarginDeg widens the projection's pre-check window on every side.
	MarginDeg float64
	// PaddingPx grows the screen rectangle so markers do not pop at the edge.
	PaddingPx float64
	// HorizonEpsilonDeg lets a sliver past the globe's horizon stay visible.
	HorizonEpsilonDeg float64
}

// DefaultOptions returns the options used by the host.
func DefaultOptions() Options {
	return Options{
		MaxVisible:        500,
		MarginDeg:         15,
		PaddingPx:         50,
		HorizonEpsilonDeg: 2,
	}
}

// Marker is a visible cluster and its screen position.
type Marker struct {
	Cluster cluster.Cluster
	X       float64
	Y       float64
}

// ComputeVisibleClusters returns the clusters that should be drawn for vp,
// with their screen positions. It is a pure function of its arguments.
//
// Clusters are rejected, in order, by a cheap latitude/longitude window check
// when proj is Bounded, by failed or non-finite projection, by the globe's
// horizon (globe mode only), and by the padded screen rectangle. When more
// survive than opts.MaxVisible, the most populous clusters are kept.
func ComputeVisibleClusters(clusters []cluster.Cluster, vp Viewport, proj Projection, opts Options) []Marker {
	if proj == nil || opts.MaxVisible <= 0 || len(clusters) == 0 {
		return nil
	}
	vp = vp.Normalize()
	center := vp.Rotation
	horizon := 180.0
	if vp.Globe() {
		horizon = 90 + opts.HorizonEpsilonDeg
	}
	window, bounded := preCheck(vp, proj, opts, horizon)
	if bounded && window.Empty() {
		return nil
	}
	pad := opts.PaddingPx

	out := make([]Marker, 0, min(len(clusters), opts.MaxVisible))
	for _, c := range clusters {
		if bounded && !window.Contains(c.Latitude, c.Longitude) {
			continue
		}

		x, y, ok := proj.Project(c.Longitude, c.Latitude)
		if !ok || !finite(x) || !finite(y) {
			continue
		}

		if vp.Globe() && spatial.CentralAngleDegrees(center.Lat, center.Lon, c.Latitude, c.Longitude) > horizon {
			continue
		}

		if x < -pad || x > vp.Width+pad || y < -pad || y > vp.Height+pad {
			continue
		}

		out = append(out, Marker{Cluster: c, X: x, Y: y})
	}

	if len(out) > opts.MaxVisible {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Cluster.Count != out[j].Cluster.Count {
				return out[i].Cluster.Count > out[j].Cluster.Count
			}
			return out[i].Cluster.ID < out[j].Cluster.ID
		})
		out = out[:opts.MaxVisible]
	}
	return out
}

// HitTest returns the marker nearest to (x, y) within radiusPx. On equal
// distance the larger cluster wins.
func HitTest(markers []Marker, x, y, radiusPx float64) (Marker, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, m := range markers {
		d := math.Hypot(m.X-x, m.Y-y)
		if d > radiusPx {
			continue
		}
		if d < bestDist || (d == bestDist && m.Cluster.Count > markers[best].Cluster.Count) {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Marker{}, false
	}
	return markers[best], true
}
