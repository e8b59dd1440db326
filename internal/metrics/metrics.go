// Package metrics provides Prometheus metrics for the clustering pipeline,
// the interaction sessions and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	// Aggregation passes run, by strategy
	Aggregations *prometheus.CounterVec

	// Aggregations served from the memo
	CacheHits prometheus.Counter

	// Growth steps taken by bounded aggregation
	GrowthIterations prometheus.Histogram

	// Aggregations that stopped over budget
	Unconverged prometheus.Counter

	// Clusters produced by the latest aggregation
	Clusters prometheus.Gauge

	// Points in the current point set
	Points prometheus.Gauge

	// Markers returned by the latest frame
	VisibleMarkers prometheus.Gauge

	// Time to assemble a frame
	FrameDuration prometheus.Histogram

	// Live interaction sessions
	Sessions prometheus.Gauge

	// HTTP requests, by route and status
	Requests *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg registers
// on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Aggregations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camglobe_aggregations_total",
			Help: "Total number of cluster aggregation passes",
		}, []string{"strategy"}), // strategy: bounded, grid, quadtree

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "camglobe_aggregation_cache_hits_total",
			Help: "Aggregations served from the memo",
		}),

		GrowthIterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "camglobe_growth_iterations",
			Help:    "Cell growth steps per bounded aggregation",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		}),

		Unconverged: f.NewCounter(prometheus.CounterOpts{
			Name: "camglobe_aggregations_unconverged_total",
			Help: "Bounded aggregations that ended over budget",
		}),

		Clusters: f.NewGauge(prometheus.GaugeOpts{
			Name: "camglobe_clusters",
			Help: "Clusters produced by the latest aggregation",
		}),

		Points: f.NewGauge(prometheus.GaugeOpts{
			Name: "camglobe_points",
			Help: "Points in the current point set",
		}),

		VisibleMarkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "camglobe_visible_markers",
			Help: "Markers returned by the latest frame",
		}),

		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "camglobe_frame_duration_seconds",
			Help:    "Time taken to assemble a frame",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "camglobe_sessions",
			Help: "Live interaction sessions",
		}),

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "camglobe_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"route", "status"}),
	}
}

// IncAggregations increments the aggregation counter.
func (m *Metrics) IncAggregations(strategy string) {
	m.Aggregations.WithLabelValues(strategy).Inc()
}

// ObserveFrame records frame assembly time in seconds and the marker count.
func (m *Metrics) ObserveFrame(seconds float64, markers int) {
	m.FrameDuration.Observe(seconds)
	m.VisibleMarkers.Set(float64(markers))
}
