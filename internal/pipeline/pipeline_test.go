package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/cluster"
	"github.com/jengzang/camglobe/internal/metrics"
	"github.com/jengzang/camglobe/internal/projection"
	"github.com/jengzang/camglobe/internal/viewport"
)

func worldPoints(n int, seed int64) []cluster.Point {
	r := rand.New(rand.NewSource(seed))
	points := make([]cluster.Point, n)
	for i := range points {
		points[i] = cluster.Point{
			ID:        fmt.Sprintf("p%d", i),
			Latitude:  r.Float64()*180 - 90,
			Longitude: r.Float64()*360 - 180,
		}
	}
	return points
}

func newTestPipeline(cfg Config) (*Pipeline, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return New(cfg, zerolog.Nop(), m), m
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"bounded", StrategyBounded, false},
		{" Grid ", StrategyGrid, false},
		{"QUADTREE", StrategyQuadtree, false},
		{"kmeans", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseStrategy(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestQuantizeZoom(t *testing.T) {
	tests := []struct {
		zoom, quantum, want float64
	}{
		{1, 0.25, 1},
		{1.1, 0.25, 1},
		{1.13, 0.25, 1.25},
		{3.9, 0.25, 4},
		{0.1, 0.25, 0.5},
		{math.NaN(), 0.25, 1},
		{math.Inf(1), 0.25, 1},
		{1.37, 0, 1.37},
	}
	for _, tt := range tests {
		if got := QuantizeZoom(tt.zoom, tt.quantum); got != tt.want {
			t.Errorf("QuantizeZoom(%v, %v) = %v, want %v", tt.zoom, tt.quantum, got, tt.want)
		}
	}
}

func TestClustersMemoizedByQuantizedZoom(t *testing.T) {
	p, m := newTestPipeline(DefaultConfig())
	p.SetPoints(worldPoints(2000, 1))

	a := p.Clusters(1)
	b := p.Clusters(1.1)
	if a != b {
		t.Error("zooms in the same quantum should share one aggregation")
	}
	c := p.Clusters(1.2)
	if c == a || c.ZoomKey != 1.25 {
		t.Errorf("zoom 1.2 should aggregate at 1.25, got key %v", c.ZoomKey)
	}

	if got := testutil.ToFloat64(m.Aggregations.WithLabelValues("bounded")); got != 2 {
		t.Errorf("aggregations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestSetPointsInvalidates(t *testing.T) {
	p, _ := newTestPipeline(DefaultConfig())
	if p.Version() != 0 || p.Len() != 0 {
		t.Fatal("new pipeline should be empty at version 0")
	}
	if r := p.Clusters(1); len(r.Clusters) != 0 {
		t.Errorf("empty set produced %d clusters", len(r.Clusters))
	}

	v1 := p.SetPoints(worldPoints(100, 2))
	before := p.Clusters(1)

	points := append(worldPoints(100, 3), cluster.Point{ID: "bad", Latitude: math.NaN()})
	v2 := p.SetPoints(points)
	if v2 != v1+1 {
		t.Errorf("version %d -> %d, want +1", v1, v2)
	}
	if p.Len() != 100 {
		t.Errorf("len = %d, non-finite point should be dropped", p.Len())
	}
	after := p.Clusters(1)
	if after == before || after.Version != v2 {
		t.Error("cache survived a new point set")
	}
	if got := cluster.TotalCount(after.Clusters); got != 100 {
		t.Errorf("total = %d, want 100", got)
	}
}

func TestStrategiesConserveCount(t *testing.T) {
	points := worldPoints(3000, 4)
	for _, st := range []Strategy{StrategyBounded, StrategyGrid, StrategyQuadtree} {
		t.Run(string(st), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = st
			cfg.MaxClusters = 200
			p, _ := newTestPipeline(cfg)
			p.SetPoints(points)

			for _, zoom := range []float64{0.5, 1, 4, 64} {
				r := p.Clusters(zoom)
				if got := cluster.TotalCount(r.Clusters); got != len(points) {
					t.Errorf("zoom %v: total = %d, want %d", zoom, got, len(points))
				}
				if r.Strategy != st {
					t.Errorf("strategy = %q", r.Strategy)
				}
			}
		})
	}
}

func TestConcurrentClustersAgree(t *testing.T) {
	p, _ := newTestPipeline(DefaultConfig())
	p.SetPoints(worldPoints(5000, 5))

	var wg sync.WaitGroup
	results := make([]*Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Clusters(2)
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		if r.Version != results[0].Version || len(r.Clusters) != len(results[0].Clusters) {
			t.Fatal("concurrent callers saw different aggregations")
		}
	}
}

func TestFrame(t *testing.T) {
	p, m := newTestPipeline(DefaultConfig())
	p.SetPoints(worldPoints(10000, 6))

	vp := viewport.Viewport{Width: 1280, Height: 720, Zoom: 1}
	opts := viewport.DefaultOptions()
	f := p.Frame(vp, projection.ForViewport(vp), opts)

	if f.Total != 10000 {
		t.Errorf("total = %d, want 10000", f.Total)
	}
	if f.Clusters == 0 || len(f.Markers) == 0 {
		t.Fatal("frame is empty")
	}
	if len(f.Markers) > opts.MaxVisible {
		t.Errorf("%d markers over the %d budget", len(f.Markers), opts.MaxVisible)
	}
	if got := testutil.ToFloat64(m.VisibleMarkers); got != float64(len(f.Markers)) {
		t.Errorf("visible markers gauge = %v, want %d", got, len(f.Markers))
	}

	// The far side of the globe is culled.
	for _, mk := range f.Markers {
		if math.Abs(mk.Cluster.Longitude) > 90+opts.HorizonEpsilonDeg+1 && math.Abs(mk.Cluster.Latitude) < 1 {
			t.Errorf("marker at lon %v is behind the globe", mk.Cluster.Longitude)
		}
	}
}
