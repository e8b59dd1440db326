package cluster

import (
	"github.com/jengzang/camglobe/internal/spatial"
)

// Cluster is one or more points sharing a centroid. A singleton carries the
// ID of its only member, so it is indistinguishable from the raw point.
type Cluster struct {
	ID        string
	Latitude  float64
	Longitude float64
	Count     int
	Members   []Point
}

// Singleton reports whether the cluster wraps exactly one point.
func (c Cluster) Singleton() bool {
	return c.Count == 1
}

// TotalCount sums Count over clusters.
func TotalCount(clusters []Cluster) int {
	n := 0
	for _, c := range clusters {
		n += c.Count
	}
	return n
}

// centroid accumulates members with an arithmetic latitude sum and a circular
// longitude sum.
type centroid struct {
	members []Point
	latSum  float64
	lon     spatial.LongitudeMean
}

func (c *centroid) add(p Point) {
	c.members = append(c.members, p)
	c.latSum += p.Latitude
	c.lon.Add(p.Longitude)
}

func (c *centroid) cluster(id string) Cluster {
	n := len(c.members)
	if n == 1 {
		return singleton(c.members[0])
	}
	return Cluster{
		ID:        id,
		Latitude:  c.latSum / float64(n),
		Longitude: c.lon.Mean(),
		Count:     n,
		Members:   c.members,
	}
}

func singleton(p Point) Cluster {
	return Cluster{
		ID:        p.ID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Count:     1,
		Members:   []Point{p},
	}
}

func singletons(points []Point) []Cluster {
	out := make([]Cluster, len(points))
	for i, p := range points {
		out[i] = singleton(p)
	}
	return out
}
