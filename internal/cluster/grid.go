package cluster

import (
	"fmt"
	"math"
)

// minGridCellSize is the finest size whose keys for in-range coordinates
// (360/size) still fit an int64; anything finer is treated like a degenerate
// size.
const minGridCellSize = 4e-17

// CellKey addresses a grid cell by row (latitude) and column (longitude).
type CellKey struct {
	Row int64
	Col int64
}

// CellKeyFor returns the cell containing lat/lon at the given cell size.
func CellKeyFor(lat, lon, cellSize float64) CellKey {
	return CellKey{
		Row: int64(math.Floor((lat + 90) / cellSize)),
		Col: int64(math.Floor((lon + 180) / cellSize)),
	}
}

// GridCell is one occupied cell of a GridIndex.
type GridCell struct {
	Key CellKey
	centroid
}

// Members returns the points in the cell.
func (c *GridCell) Members() []Point {
	return c.members
}

// LatSum returns the running latitude sum of the members.
func (c *GridCell) LatSum() float64 {
	return c.latSum
}

// GridIndex buckets points into square lat/lon cells. It is built in one pass
// and never changes afterwards; a different point set or cell size needs a
// new index.
type GridIndex struct {
	cellSize   float64
	cells      map[CellKey]*GridCell
	order      []CellKey
	degenerate []Point
}

// NewGridIndex buckets the finite points at cellSize degrees. A non-finite or
// non-positive cell size produces an index that yields one singleton cluster
// per point.
func NewGridIndex(points []Point, cellSize float64) *GridIndex {
	points = FilterFinite(points)

	if math.IsNaN(cellSize) || math.IsInf(cellSize, 0) || cellSize < minGridCellSize {
		return &GridIndex{cellSize: cellSize, degenerate: points}
	}

	g := &GridIndex{
		cellSize: cellSize,
		cells:    make(map[CellKey]*GridCell),
	}
	for _, p := range points {
		key := CellKeyFor(p.Latitude, p.Longitude, cellSize)
		cell, ok := g.cells[key]
		if !ok {
			cell = &GridCell{Key: key}
			g.cells[key] = cell
			g.order = append(g.order, key)
		}
		cell.add(p)
	}
	return g
}

// CellSize returns the cell size the index was built with.
func (g *GridIndex) CellSize() float64 {
	return g.cellSize
}

// Degenerate reports whether the index fell back to identity clustering.
func (g *GridIndex) Degenerate() bool {
	return g.cells == nil
}

// Len returns the number of clusters the index will produce.
func (g *GridIndex) Len() int {
	if g.Degenerate() {
		return len(g.degenerate)
	}
	return len(g.order)
}

// Cell looks up an occupied cell.
func (g *GridIndex) Cell(key CellKey) (*GridCell, bool) {
	cell, ok := g.cells[key]
	return cell, ok
}

// Clusters emits one cluster per occupied cell, in the order cells were
// first populated.
func (g *GridIndex) Clusters() []Cluster {
	if g.Degenerate() {
		return singletons(g.degenerate)
	}
	out := make([]Cluster, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.cells[key].cluster(g.cellID(key)))
	}
	return out
}

func (g *GridIndex) cellID(key CellKey) string {
	return fmt.Sprintf("cell:%g:%d:%d", g.cellSize, key.Row, key.Col)
}

// BuildGridClusters clusters points on a fixed grid of cellSizeDegrees cells.
func BuildGridClusters(points []Point, cellSizeDegrees float64) []Cluster {
	return NewGridIndex(points, cellSizeDegrees).Clusters()
}
