package cluster

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// MinCellSize floors the seed cell size in degrees.
	MinCellSize = 0.05
	// GrowthFactor multiplies the cell size on every retry.
	GrowthFactor = 1.4
	// MaxGrowthIterations bounds the retry loop.
	MaxGrowthIterations = 8
	// MinZoomFactor floors the zoom used to scale the seed cell size.
	MinZoomFactor = 0.5
)

// BoundedOptions parameterizes ClusterToMax.
type BoundedOptions struct {
	// MaxClusters is the cluster budget. Values below 1 are treated as 1.
	MaxClusters int
	// Bounds overrides the lon/lat extent of the points when set.
	Bounds *orb.Bound
	// Zoom scales the seed cell size inversely. Non-finite values count as 1.
	Zoom float64
}

// Aggregation is the result of a bounded pass together with how it got there.
type Aggregation struct {
	Clusters []Cluster
	// CellSize is the final grid cell size in degrees, 0 for an exact result.
	CellSize float64
	// Iterations is the number of growth steps taken.
	Iterations int
	// Exact is set when every point became its own singleton.
	Exact bool
	// Converged is false when the loop ran out of iterations over budget.
	Converged bool
}

// ClusterToMax returns at most opts.MaxClusters clusters on a best-effort
// basis. See Bounded.
func ClusterToMax(points []Point, opts BoundedOptions) []Cluster {
	return Bounded(points, opts).Clusters
}

// Bounded grid-clusters points with a cell size derived from the extent, the
// budget and the zoom, growing the cell by GrowthFactor until the budget is
// met or MaxGrowthIterations is reached. When the points already fit the
// budget each one is returned as a singleton.
//
// The loop does not guarantee convergence (a handful of far-apart points can
// each own a cell at every size tried); an over-budget result is returned
// as is and the visibility filter truncates it.
func Bounded(points []Point, opts BoundedOptions) Aggregation {
	points = FilterFinite(points)

	maxClusters := opts.MaxClusters
	if maxClusters < 1 {
		maxClusters = 1
	}

	if len(points) <= maxClusters {
		return Aggregation{Clusters: singletons(points), Exact: true, Converged: true}
	}

	cellSize := seedCellSize(boundsOf(points, opts.Bounds), maxClusters, opts.Zoom)
	index := NewGridIndex(points, cellSize)

	iterations := 0
	for index.Len() > maxClusters && iterations < MaxGrowthIterations {
		cellSize *= GrowthFactor
		iterations++
		index = NewGridIndex(points, cellSize)
	}

	return Aggregation{
		Clusters:   index.Clusters(),
		CellSize:   cellSize,
		Iterations: iterations,
		Converged:  index.Len() <= maxClusters,
	}
}

func boundsOf(points []Point, override *orb.Bound) orb.Bound {
	if override != nil {
		return *override
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return mp.Bound()
}

func seedCellSize(b orb.Bound, maxClusters int, zoom float64) float64 {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	latRange := b.Max.Lat() - b.Min.Lat()
	lngRange := b.Max.Lon() - b.Min.Lon()

	size := math.Sqrt(latRange*lngRange/float64(maxClusters)) / math.Max(MinZoomFactor, zoom)
	switch {
	case math.IsNaN(size) || size < MinCellSize:
		return MinCellSize
	case size > 360:
		return 360
	}
	return size
}
