package models

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/camglobe/internal/cluster"
	"github.com/jengzang/camglobe/internal/spatial"
	"github.com/jengzang/camglobe/internal/stats"
	"github.com/jengzang/camglobe/internal/viewport"
)

// ClusterDTO is a cluster as served over HTTP
type ClusterDTO struct {
	ID        string   `json:"id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Count     int      `json:"count"`
	RadiusKm  float64  `json:"radiusKm,omitempty"` // 最远成员到中心的距离
	CameraIDs []string `json:"cameraIds,omitempty"`
}

// MarkerDTO is a visible cluster with its screen position
type MarkerDTO struct {
	ClusterDTO
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewClusterDTO converts a cluster. Member ids and the radius are included
// only when withMembers is set.
func NewClusterDTO(c cluster.Cluster, withMembers bool) ClusterDTO {
	dto := ClusterDTO{
		ID:        c.ID,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Count:     c.Count,
	}
	if withMembers && len(c.Members) > 0 {
		dto.CameraIDs = make([]string, len(c.Members))
		for i, m := range c.Members {
			dto.CameraIDs[i] = m.ID
			d := spatial.HaversineDistance(c.Latitude, c.Longitude, m.Latitude, m.Longitude) / 1000
			dto.RadiusKm = math.Max(dto.RadiusKm, d)
		}
	}
	return dto
}

// NewClusterDTOs converts clusters
func NewClusterDTOs(clusters []cluster.Cluster, withMembers bool) []ClusterDTO {
	out := make([]ClusterDTO, len(clusters))
	for i, c := range clusters {
		out[i] = NewClusterDTO(c, withMembers)
	}
	return out
}

// NewMarkerDTOs converts visible markers
func NewMarkerDTOs(markers []viewport.Marker) []MarkerDTO {
	out := make([]MarkerDTO, len(markers))
	for i, m := range markers {
		out[i] = MarkerDTO{ClusterDTO: NewClusterDTO(m.Cluster, false), X: m.X, Y: m.Y}
	}
	return out
}

// ClustersResponse is the result of a one-shot aggregation
type ClustersResponse struct {
	Strategy   string        `json:"strategy"`
	Zoom       float64       `json:"zoom"`
	CellSize   float64       `json:"cellSize,omitempty"` // 度
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Total      int           `json:"total"` // 相机总数
	Sizes      stats.Summary `json:"sizes"` // 聚类大小分布
	Clusters   []ClusterDTO  `json:"clusters"`
}

// ClusterRequest represents query parameters for a one-shot aggregation
type ClusterRequest struct {
	Strategy    string   `form:"strategy"` // bounded, grid, quadtree
	Zoom        float64  `form:"zoom"`
	MaxClusters int      `form:"maxClusters"`
	CellSize    float64  `form:"cellSize"`
	MinLat      *float64 `form:"minLat"`
	MaxLat      *float64 `form:"maxLat"`
	MinLon      *float64 `form:"minLon"`
	MaxLon      *float64 `form:"maxLon"`
	Members     bool     `form:"members"`
}

// ClustersGeoJSON renders clusters as a FeatureCollection of points
func ClustersGeoJSON(clusters []cluster.Cluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range clusters {
		f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
		f.ID = c.ID
		f.Properties["count"] = c.Count
		f.Properties["singleton"] = c.Singleton()
		if c.Singleton() && len(c.Members) == 1 {
			if cam, ok := c.Members[0].Payload.(Camera); ok {
				f.Properties["name"] = cam.Name
				f.Properties["streamUrl"] = cam.StreamURL
			}
		}
		fc.Append(f)
	}
	return fc
}
