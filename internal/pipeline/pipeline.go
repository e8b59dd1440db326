// Package pipeline keeps the current point set and turns viewports into
// frames. Aggregation is memoized per point-set version and quantized zoom
// and shared between concurrent callers; the visibility filter runs on every
// frame.
package pipeline

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/camglobe/internal/cluster"
	"github.com/jengzang/camglobe/internal/metrics"
	"github.com/jengzang/camglobe/internal/viewport"
)

// Strategy selects the aggregation algorithm.
type Strategy string

const (
	StrategyBounded  Strategy = "bounded"
	StrategyGrid     Strategy = "grid"
	StrategyQuadtree Strategy = "quadtree"
)

// ParseStrategy accepts a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyBounded, StrategyGrid, StrategyQuadtree:
		return st, nil
	}
	return "", fmt.Errorf("unknown cluster strategy %q", s)
}

// Config tunes a Pipeline.
type Config struct {
	Strategy Strategy
	// MaxClusters is the bounded strategy's budget.
	MaxClusters int
	// GridCellSize is the grid strategy's cell size in degrees at zoom 1.
	// It shrinks in proportion to zoom.
	GridCellSize float64
	// ZoomQuantum is the zoom step aggregations are cached at.
	ZoomQuantum float64
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		Strategy:     StrategyBounded,
		MaxClusters:  500,
		GridCellSize: 5,
		ZoomQuantum:  0.25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		c.Strategy = d.Strategy
	}
	if c.MaxClusters <= 0 {
		c.MaxClusters = d.MaxClusters
	}
	if !(c.GridCellSize > 0) || math.IsInf(c.GridCellSize, 0) {
		c.GridCellSize = d.GridCellSize
	}
	if !(c.ZoomQuantum > 0) || math.IsInf(c.ZoomQuantum, 0) {
		c.ZoomQuantum = d.ZoomQuantum
	}
	return c
}

// Result is one memoized aggregation. It is shared and must not be modified.
type Result struct {
	Version    uint64
	ZoomKey    float64
	Strategy   Strategy
	Clusters   []cluster.Cluster
	CellSize   float64
	Iterations int
	Converged  bool
}

// Frame is what a viewer draws: the visible markers of the current
// aggregation.
type Frame struct {
	Version  uint64
	ZoomKey  float64
	Total    int
	Clusters int
	Markers  []viewport.Marker
}

type generation struct {
	version uint64
	points  []cluster.Point

	treeOnce sync.Once
	tree     *cluster.QuadNode
}

func (g *generation) quadTree() *cluster.QuadNode {
	g.treeOnce.Do(func() {
		g.tree = cluster.BuildQuadTree(g.points)
	})
	return g.tree
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	gen    atomic.Pointer[generation]
	latest atomic.Pointer[Result]
	group  singleflight.Group
}

// New creates an empty pipeline. A nil m gets collectors on a private
// registry.
func New(cfg Config, log zerolog.Logger, m *metrics.Metrics) *Pipeline {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	p := &Pipeline{
		cfg:     cfg.withDefaults(),
		log:     log.With().Str("component", "pipeline").Logger(),
		metrics: m,
	}
	p.gen.Store(&generation{})
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// SetPoints replaces the point set. Non-finite points are dropped. Cached
// aggregations of the previous set are discarded.
func (p *Pipeline) SetPoints(points []cluster.Point) uint64 {
	kept := cluster.FilterFinite(points)
	for {
		old := p.gen.Load()
		next := &generation{version: old.version + 1, points: kept}
		if p.gen.CompareAndSwap(old, next) {
			p.latest.Store(nil)
			p.metrics.Points.Set(float64(len(kept)))
			p.log.Info().
				Uint64("version", next.version).
				Int("points", len(kept)).
				Int("dropped", len(points)-len(kept)).
				Msg("point set replaced")
			return next.version
		}
	}
}

// Version returns the current point-set version. It starts at 0 and grows
// by one on every SetPoints.
func (p *Pipeline) Version() uint64 {
	return p.gen.Load().version
}

// Len returns the number of points in the current set.
func (p *Pipeline) Len() int {
	return len(p.gen.Load().points)
}

// Points returns the current point set. Callers must not modify it.
func (p *Pipeline) Points() []cluster.Point {
	return p.gen.Load().points
}

// QuantizeZoom rounds zoom to the nearest multiple of quantum, never below
// viewport.MinZoom. Non-finite zooms count as 1.
func QuantizeZoom(zoom, quantum float64) float64 {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	if quantum > 0 {
		zoom = math.Round(zoom/quantum) * quantum
	}
	return math.Max(viewport.MinZoom, zoom)
}

// Clusters returns the aggregation for zoom, computing it at most once per
// point-set version and quantized zoom.
func (p *Pipeline) Clusters(zoom float64) *Result {
	key := QuantizeZoom(zoom, p.cfg.ZoomQuantum)
	gen := p.gen.Load()

	if r := p.latest.Load(); r != nil && r.Version == gen.version && r.ZoomKey == key {
		p.metrics.CacheHits.Inc()
		return r
	}

	v, _, _ := p.group.Do(fmt.Sprintf("%d:%g", gen.version, key), func() (any, error) {
		r := p.aggregate(gen, key)
		if p.gen.Load() == gen {
			p.latest.Store(r)
		}
		return r, nil
	})
	return v.(*Result)
}

func (p *Pipeline) aggregate(gen *generation, zoom float64) *Result {
	start := time.Now()
	r := &Result{
		Version:   gen.version,
		ZoomKey:   zoom,
		Strategy:  p.cfg.Strategy,
		Converged: true,
	}

	switch p.cfg.Strategy {
	case StrategyGrid:
		r.CellSize = p.cfg.GridCellSize / zoom
		r.Clusters = cluster.BuildGridClusters(gen.points, r.CellSize)
	case StrategyQuadtree:
		r.Clusters = cluster.GetClustersAtZoom(gen.quadTree(), zoom)
	default:
		agg := cluster.Bounded(gen.points, cluster.BoundedOptions{
			MaxClusters: p.cfg.MaxClusters,
			Zoom:        zoom,
		})
		r.Clusters = agg.Clusters
		r.CellSize = agg.CellSize
		r.Iterations = agg.Iterations
		r.Converged = agg.Converged
		p.metrics.GrowthIterations.Observe(float64(agg.Iterations))
		if !agg.Converged {
			p.metrics.Unconverged.Inc()
		}
	}

	p.metrics.IncAggregations(string(r.Strategy))
	p.metrics.Clusters.Set(float64(len(r.Clusters)))
	p.log.Debug().
		Str("strategy", string(r.Strategy)).
		Uint64("version", r.Version).
		Float64("zoom", zoom).
		Int("points", len(gen.points)).
		Int("clusters", len(r.Clusters)).
		Float64("cell_size", r.CellSize).
		Int("iterations", r.Iterations).
		Bool("converged", r.Converged).
		Dur("took", time.Since(start)).
		Msg("aggregated")
	return r
}

// Frame aggregates for vp's zoom and filters the result down to what is
// visible through proj.
func (p *Pipeline) Frame(vp viewport.Viewport, proj viewport.Projection, opts viewport.Options) Frame {
	start := time.Now()
	r := p.Clusters(vp.Zoom)
	markers := viewport.ComputeVisibleClusters(r.Clusters, vp, proj, opts)
	p.metrics.ObserveFrame(time.Since(start).Seconds(), len(markers))

	return Frame{
		Version:  r.Version,
		ZoomKey:  r.ZoomKey,
		Total:    cluster.TotalCount(r.Clusters),
		Clusters: len(r.Clusters),
		Markers:  markers,
	}
}
