package cluster

import (
	"fmt"
	"math"

	"github.com/jengzang/camglobe/internal/spatial"
)

const (
	// QuadCapacity is the point count above which a node splits.
	QuadCapacity = 50
	// QuadMaxDepth is the deepest level a node can split at; leaves there
	// may hold any number of points.
	QuadMaxDepth = 9
	// singletonDepth is the first target depth that returns raw points.
	singletonDepth = QuadMaxDepth + 3
)

// QuadBounds is a lat/lng rectangle in degrees.
type QuadBounds struct {
	MinLat, MaxLat, MinLng, MaxLng float64
}

// Contains reports whether lat/lng falls in the half-open rectangle
// [MinLat, MaxLat) x [MinLng, MaxLng). The world's north and east edges are
// closed so that lat 90 and lng 180 still belong somewhere.
func (b QuadBounds) Contains(lat, lng float64) bool {
	inLat := lat >= b.MinLat && (lat < b.MaxLat || (b.MaxLat == 90 && lat == 90))
	inLng := lng >= b.MinLng && (lng < b.MaxLng || (b.MaxLng == 180 && lng == 180))
	return inLat && inLng
}

func (b QuadBounds) mid() (float64, float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// WorldBounds is the root extent of every quad-tree.
var WorldBounds = QuadBounds{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}

// QuadNode is a quad-tree node. A leaf keeps its points directly; an internal
// node has exactly four children (SW, SE, NW, NE) and no points of its own.
// Every node carries the count and centroid sums of its whole subtree.
type QuadNode struct {
	Bounds   QuadBounds
	Depth    int
	Points   []Point
	Children []*QuadNode

	sum centroidSum
}

// centroidSum is a centroid without the member list, so sums can be kept on
// internal nodes without copying points.
type centroidSum struct {
	latSum float64
	lon    spatial.LongitudeMean
}

// BuildQuadTree indexes the finite points into a tree rooted at WorldBounds.
// A node splits when it holds more than QuadCapacity points and is shallower
// than QuadMaxDepth.
func BuildQuadTree(points []Point) *QuadNode {
	root := &QuadNode{Bounds: WorldBounds}
	root.build(FilterFinite(points))
	return root
}

func (n *QuadNode) build(points []Point) {
	if len(points) <= QuadCapacity || n.Depth >= QuadMaxDepth {
		n.Points = points
		for _, p := range points {
			n.sum.latSum += p.Latitude
			n.sum.lon.Add(p.Longitude)
		}
		return
	}

	midLat, midLng := n.Bounds.mid()
	b := n.Bounds
	n.Children = []*QuadNode{
		{Bounds: QuadBounds{b.MinLat, midLat, b.MinLng, midLng}, Depth: n.Depth + 1},
		{Bounds: QuadBounds{b.MinLat, midLat, midLng, b.MaxLng}, Depth: n.Depth + 1},
		{Bounds: QuadBounds{midLat, b.MaxLat, b.MinLng, midLng}, Depth: n.Depth + 1},
		{Bounds: QuadBounds{midLat, b.MaxLat, midLng, b.MaxLng}, Depth: n.Depth + 1},
	}

	// Midpoint comparisons send every point, edge points included, to exactly
	// one child.
	var parts [4][]Point
	for _, p := range points {
		i := 0
		if p.Latitude >= midLat {
			i += 2
		}
		if p.Longitude >= midLng {
			i++
		}
		parts[i] = append(parts[i], p)
	}
	for i, child := range n.Children {
		child.build(parts[i])
		n.sum.latSum += child.sum.latSum
		n.sum.lon.Merge(child.sum.lon)
	}
}

// IsLeaf reports whether the node has no children.
func (n *QuadNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Count returns the number of points in the subtree.
func (n *QuadNode) Count() int {
	if n == nil {
		return 0
	}
	return n.sum.lon.N
}

// ID names the node by depth and bounds.
func (n *QuadNode) ID() string {
	b := n.Bounds
	return fmt.Sprintf("quad:%d:%g:%g:%g:%g", n.Depth, b.MinLat, b.MinLng, b.MaxLat, b.MaxLng)
}

// Walk visits the subtree depth-first. Returning false from fn skips the
// children of that node.
func (n *QuadNode) Walk(fn func(*QuadNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Leaves returns every leaf in the subtree, including empty ones.
func (n *QuadNode) Leaves() []*QuadNode {
	var leaves []*QuadNode
	n.Walk(func(node *QuadNode) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// Members returns every point in the subtree in a new slice.
func (n *QuadNode) Members() []Point {
	out := make([]Point, 0, n.Count())
	n.Walk(func(node *QuadNode) bool {
		out = append(out, node.Points...)
		return true
	})
	return out
}

// MaxDepth returns the depth of the deepest node.
func (n *QuadNode) MaxDepth() int {
	depth := 0
	n.Walk(func(node *QuadNode) bool {
		if node.Depth > depth {
			depth = node.Depth
		}
		return true
	})
	return depth
}

func (n *QuadNode) cluster() Cluster {
	members := n.Members()
	if len(members) == 1 {
		return singleton(members[0])
	}
	return Cluster{
		ID:        n.ID(),
		Latitude:  n.sum.latSum / float64(len(members)),
		Longitude: n.sum.lon.Mean(),
		Count:     len(members),
		Members:   members,
	}
}

// ClustersAtDepth cuts the tree at targetDepth: every non-empty node at that
// depth, or shallower leaf, becomes one cluster. Past QuadMaxDepth+2 every
// point is returned as its own singleton.
func ClustersAtDepth(tree *QuadNode, targetDepth int) []Cluster {
	if tree == nil {
		return nil
	}
	if targetDepth >= singletonDepth {
		return singletons(tree.Members())
	}

	var out []Cluster
	tree.Walk(func(node *QuadNode) bool {
		if node.Count() == 0 {
			return false
		}
		if node.Depth >= targetDepth || node.IsLeaf() {
			out = append(out, node.cluster())
			return false
		}
		return true
	})
	return out
}

// DepthForZoom maps a zoom factor to a tree depth: floor(log2(zoom)) + 3,
// with zoom floored at MinZoomFactor. NaN counts as zoom 1; +Inf selects raw
// points.
func DepthForZoom(zoom float64) int {
	switch {
	case math.IsNaN(zoom):
		zoom = 1
	case math.IsInf(zoom, 1):
		return singletonDepth
	}
	return int(math.Floor(math.Log2(math.Max(MinZoomFactor, zoom)))) + 3
}

// GetClustersAtZoom is ClustersAtDepth at DepthForZoom(zoom).
func GetClustersAtZoom(tree *QuadNode, zoom float64) []Cluster {
	return ClustersAtDepth(tree, DepthForZoom(zoom))
}
