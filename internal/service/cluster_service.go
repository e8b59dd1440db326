package service

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/cluster"
	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/pipeline"
	"github.com/jengzang/camglobe/internal/stats"
)

// MaxClusterBudget caps the maxClusters a caller may ask for
const MaxClusterBudget = 20000

// ClusterService runs one-shot aggregations over the current point set
type ClusterService struct {
	pipeline *pipeline.Pipeline
	log      zerolog.Logger
}

// NewClusterService creates a new cluster service
func NewClusterService(p *pipeline.Pipeline, log zerolog.Logger) *ClusterService {
	return &ClusterService{
		pipeline: p,
		log:      log.With().Str("component", "cluster_service").Logger(),
	}
}

type clusterQuery struct {
	strategy    pipeline.Strategy
	zoom        float64
	maxClusters int
	cellSize    float64
	bounds      *orb.Bound
	wraps       bool
	members     bool
}

func (s *ClusterService) parse(req models.ClusterRequest) (clusterQuery, error) {
	cfg := s.pipeline.Config()
	q := clusterQuery{
		strategy:    cfg.Strategy,
		zoom:        req.Zoom,
		maxClusters: req.MaxClusters,
		members:     req.Members,
	}

	if req.Strategy != "" {
		st, err := pipeline.ParseStrategy(req.Strategy)
		if err != nil {
			return q, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		q.strategy = st
	}

	if q.zoom == 0 {
		q.zoom = 1
	}
	if math.IsNaN(q.zoom) || math.IsInf(q.zoom, 0) || q.zoom < 0 {
		return q, fmt.Errorf("%w: zoom must be a positive number", ErrInvalidParams)
	}

	switch {
	case q.maxClusters == 0:
		q.maxClusters = cfg.MaxClusters
	case q.maxClusters < 0 || q.maxClusters > MaxClusterBudget:
		return q, fmt.Errorf("%w: maxClusters must be between 1 and %d", ErrInvalidParams, MaxClusterBudget)
	}

	q.cellSize = req.CellSize
	if q.cellSize == 0 {
		q.cellSize = cfg.GridCellSize / math.Max(q.zoom, 0.5)
	}
	if math.IsNaN(q.cellSize) || math.IsInf(q.cellSize, 0) || q.cellSize < 0 {
		return q, fmt.Errorf("%w: cellSize must be a positive number", ErrInvalidParams)
	}

	set := 0
	for _, v := range []*float64{req.MinLat, req.MaxLat, req.MinLon, req.MaxLon} {
		if v != nil {
			set++
		}
	}
	switch set {
	case 0:
	case 4:
		minLat, maxLat, minLon, maxLon := *req.MinLat, *req.MaxLat, *req.MinLon, *req.MaxLon
		err := validateFilter(models.CameraFilter{MinLat: req.MinLat, MaxLat: req.MaxLat, MinLon: req.MinLon, MaxLon: req.MaxLon})
		if err != nil {
			return q, err
		}
		// minLon > maxLon selects a box across the antimeridian
		b := orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
		q.bounds = &b
		q.wraps = minLon > maxLon
	default:
		return q, fmt.Errorf("%w: a bounding box needs minLat, maxLat, minLon and maxLon", ErrInvalidParams)
	}

	return q, nil
}

// inBox reports whether a point lies in the query box, honoring boxes that
// cross the antimeridian
func (q clusterQuery) inBox(p cluster.Point) bool {
	if q.bounds == nil {
		return true
	}
	b := *q.bounds
	if p.Latitude < b.Min.Lat() || p.Latitude > b.Max.Lat() {
		return false
	}
	if q.wraps {
		return p.Longitude >= b.Min.Lon() || p.Longitude <= b.Max.Lon()
	}
	return p.Longitude >= b.Min.Lon() && p.Longitude <= b.Max.Lon()
}

// memoizable reports whether the pipeline's cached aggregation answers q
func (s *ClusterService) memoizable(q clusterQuery, req models.ClusterRequest) bool {
	cfg := s.pipeline.Config()
	return q.bounds == nil && q.strategy == cfg.Strategy && req.CellSize == 0 &&
		(req.MaxClusters == 0 || req.MaxClusters == cfg.MaxClusters)
}

func (s *ClusterService) run(req models.ClusterRequest) (*models.ClustersResponse, []cluster.Cluster, error) {
	q, err := s.parse(req)
	if err != nil {
		return nil, nil, err
	}

	resp := &models.ClustersResponse{
		Strategy:  string(q.strategy),
		Zoom:      q.zoom,
		Converged: true,
	}

	if s.memoizable(q, req) {
		r := s.pipeline.Clusters(q.zoom)
		resp.Zoom = r.ZoomKey
		resp.CellSize = r.CellSize
		resp.Iterations = r.Iterations
		resp.Converged = r.Converged
		resp.Total = cluster.TotalCount(r.Clusters)
		resp.Clusters = models.NewClusterDTOs(r.Clusters, q.members)
		resp.Sizes = sizeSummary(r.Clusters)
		return resp, r.Clusters, nil
	}

	var points []cluster.Point
	for _, p := range s.pipeline.Points() {
		if q.inBox(p) {
			points = append(points, p)
		}
	}

	var clusters []cluster.Cluster
	switch q.strategy {
	case pipeline.StrategyGrid:
		resp.CellSize = q.cellSize
		clusters = cluster.BuildGridClusters(points, q.cellSize)
	case pipeline.StrategyQuadtree:
		clusters = cluster.GetClustersAtZoom(cluster.BuildQuadTree(points), q.zoom)
	default:
		opts := cluster.BoundedOptions{MaxClusters: q.maxClusters, Zoom: q.zoom}
		if !q.wraps {
			opts.Bounds = q.bounds
		}
		agg := cluster.Bounded(points, opts)
		clusters = agg.Clusters
		resp.CellSize = agg.CellSize
		resp.Iterations = agg.Iterations
		resp.Converged = agg.Converged
	}

	resp.Total = len(points)
	resp.Clusters = models.NewClusterDTOs(clusters, q.members)
	resp.Sizes = sizeSummary(clusters)
	s.log.Debug().
		Str("strategy", resp.Strategy).
		Float64("zoom", q.zoom).
		Int("points", len(points)).
		Int("clusters", len(clusters)).
		Msg("one-shot aggregation")
	return resp, clusters, nil
}

func sizeSummary(clusters []cluster.Cluster) stats.Summary {
	sizes := make([]float64, len(clusters))
	for i, c := range clusters {
		sizes[i] = float64(c.Count)
	}
	return stats.Summarize(sizes)
}

// Aggregate clusters the current point set as requested
func (s *ClusterService) Aggregate(req models.ClusterRequest) (*models.ClustersResponse, error) {
	resp, _, err := s.run(req)
	return resp, err
}

// GeoJSON is Aggregate rendered as a FeatureCollection
func (s *ClusterService) GeoJSON(req models.ClusterRequest) (*geojson.FeatureCollection, error) {
	_, clusters, err := s.run(req)
	if err != nil {
		return nil, err
	}
	return models.ClustersGeoJSON(clusters), nil
}
