package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/jengzang/camglobe/internal/spatial"
)

func randomPoints(n int, seed int64) []Point {
	r := rand.New(rand.NewSource(seed))
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{
			ID:        fmt.Sprintf("p%d", i),
			Latitude:  r.Float64()*180 - 90,
			Longitude: r.Float64()*360 - 180,
		}
	}
	return points
}

func TestFilterFinite(t *testing.T) {
	points := []Point{
		{ID: "a", Latitude: 1, Longitude: 2},
		{ID: "nan", Latitude: math.NaN(), Longitude: 0},
		{ID: "b", Latitude: 3, Longitude: 4},
		{ID: "inf", Latitude: 0, Longitude: math.Inf(-1)},
	}
	got := FilterFinite(points)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("FilterFinite = %+v", got)
	}
	if points[1].ID != "nan" {
		t.Error("FilterFinite must not reorder its input")
	}

	clean := points[:1]
	if out := FilterFinite(clean); &out[0] != &clean[0] {
		t.Error("FilterFinite should return a clean input unchanged")
	}
}

func TestBuildGridClustersCountConservation(t *testing.T) {
	points := randomPoints(2000, 1)
	points = append(points,
		Point{ID: "bad1", Latitude: math.NaN(), Longitude: 0},
		Point{ID: "bad2", Latitude: 10, Longitude: math.Inf(1)},
	)

	for _, size := range []float64{0.05, 0.5, 1, 7.3, 45, 360, 1000} {
		t.Run(fmt.Sprintf("size=%g", size), func(t *testing.T) {
			clusters := BuildGridClusters(points, size)
			if got := TotalCount(clusters); got != 2000 {
				t.Errorf("total count = %d, want 2000", got)
			}
			for _, c := range clusters {
				if c.Count != len(c.Members) {
					t.Fatalf("cluster %s: Count %d != len(Members) %d", c.ID, c.Count, len(c.Members))
				}
				if c.Count == 0 {
					t.Fatalf("cluster %s is empty", c.ID)
				}
			}
		})
	}
}

func TestBuildGridClustersDegenerateCellSize(t *testing.T) {
	points := randomPoints(25, 2)

	tests := []struct {
		name string
		size float64
	}{
		{"zero", 0},
		{"negative", -1},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clusters := BuildGridClusters(points, tt.size)
			if len(clusters) != len(points) {
				t.Fatalf("got %d clusters, want %d", len(clusters), len(points))
			}
			for i, c := range clusters {
				if c.Count != 1 || c.ID != points[i].ID {
					t.Errorf("cluster %d = {ID:%s Count:%d}, want singleton %s", i, c.ID, c.Count, points[i].ID)
				}
			}
		})
	}
}

func TestBuildGridClustersAntimeridian(t *testing.T) {
	points := []Point{
		{ID: "east", Latitude: 10, Longitude: 179.9},
		{ID: "west", Latitude: 12, Longitude: -179.9},
	}
	// A cell as wide as the globe groups both points.
	clusters := BuildGridClusters(points, 360)
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	c := clusters[0]
	if math.Abs(c.Latitude-11) > 1e-9 {
		t.Errorf("latitude = %v, want 11", c.Latitude)
	}
	if math.Abs(math.Abs(c.Longitude)-180) > 0.01 {
		t.Errorf("longitude = %v, want near ±180", c.Longitude)
	}
}

func TestBuildGridClustersSingletonID(t *testing.T) {
	points := []Point{
		{ID: "lonely", Latitude: 45, Longitude: 45},
		{ID: "a", Latitude: -10.5, Longitude: -10.5},
		{ID: "b", Latitude: -10.2, Longitude: -10.3},
	}
	clusters := BuildGridClusters(points, 1)
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if clusters[0].ID != "lonely" || !clusters[0].Singleton() {
		t.Errorf("first cluster = %+v, want singleton with the point's id", clusters[0])
	}
	if clusters[1].ID == "a" || clusters[1].ID == "b" || clusters[1].Count != 2 {
		t.Errorf("second cluster = %+v, want a synthesized id and count 2", clusters[1])
	}
}

func TestBuildGridClustersIdempotent(t *testing.T) {
	points := randomPoints(500, 3)

	type triple struct {
		lat, lon float64
		count    int
	}
	collect := func(cs []Cluster) []triple {
		out := make([]triple, len(cs))
		for i, c := range cs {
			out[i] = triple{c.Latitude, c.Longitude, c.Count}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].lat != out[j].lat {
				return out[i].lat < out[j].lat
			}
			return out[i].lon < out[j].lon
		})
		return out
	}

	first := collect(BuildGridClusters(points, 5))
	second := collect(BuildGridClusters(points, 5))
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cluster %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGridIndexFineCellSizes(t *testing.T) {
	points := []Point{
		{ID: "a", Latitude: 0.4321, Longitude: 0.12345678},
		{ID: "b", Latitude: 0.4321, Longitude: 0.12345678 + 1e-12},
	}
	tests := []struct {
		name       string
		cellSize   float64
		degenerate bool
		clusters   int
	}{
		{"sub-picodegree", 1e-14, false, 2},
		{"at the int64 floor", 4e-17, false, 2},
		{"below the int64 floor", 1e-17, true, 2},
		{"coarse", 1e-6, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := NewGridIndex(points, tt.cellSize)
			if index.Degenerate() != tt.degenerate {
				t.Errorf("Degenerate() = %v, want %v", index.Degenerate(), tt.degenerate)
			}
			if got := len(index.Clusters()); got != tt.clusters {
				t.Errorf("got %d clusters, want %d", got, tt.clusters)
			}
		})
	}
}

func TestGridIndex(t *testing.T) {
	points := []Point{
		{ID: "a", Latitude: 0.1, Longitude: 0.1},
		{ID: "b", Latitude: 0.4, Longitude: 0.9},
		{ID: "c", Latitude: -0.5, Longitude: 0.5},
	}
	index := NewGridIndex(points, 1)
	if index.Degenerate() || index.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", index.Len())
	}

	cell, ok := index.Cell(CellKeyFor(0.1, 0.1, 1))
	if !ok {
		t.Fatal("cell for (0.1, 0.1) missing")
	}
	if len(cell.Members()) != 2 || math.Abs(cell.LatSum()-0.5) > 1e-12 {
		t.Errorf("cell members=%d latSum=%v", len(cell.Members()), cell.LatSum())
	}
	if key := CellKeyFor(-90, -180, 1); key != (CellKey{0, 0}) {
		t.Errorf("CellKeyFor(-90, -180) = %+v, want {0 0}", key)
	}

	var want spatial.LongitudeMean
	want.Add(0.1)
	want.Add(0.9)
	c := index.Clusters()[0]
	if math.Abs(c.Latitude-0.25) > 1e-12 || math.Abs(c.Longitude-want.Mean()) > 1e-12 {
		t.Errorf("centroid = (%v, %v)", c.Latitude, c.Longitude)
	}
}
