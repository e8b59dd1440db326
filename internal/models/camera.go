package models

import "github.com/jengzang/camglobe/internal/cluster"

// Camera is one public webcam on the globe
type Camera struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Country   string  `json:"country,omitempty" db:"country"`
	City      string  `json:"city,omitempty" db:"city"`
	Source    string  `json:"source,omitempty" db:"source"`         // 数据来源
	StreamURL string  `json:"streamUrl,omitempty" db:"stream_url"` // 直播地址

	// Metadata
	CreatedAt int64 `json:"createdAt,omitempty" db:"created_at"` // Unix timestamp in seconds
	UpdatedAt int64 `json:"updatedAt,omitempty" db:"updated_at"` // Unix timestamp in seconds
}

// Point converts the camera into a clustering point carrying the camera as
// payload
func (c Camera) Point() cluster.Point {
	return cluster.Point{
		ID:        c.ID,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Payload:   c,
	}
}

// CameraPoints converts cameras into clustering points
func CameraPoints(cameras []Camera) []cluster.Point {
	points := make([]cluster.Point, len(cameras))
	for i, c := range cameras {
		points[i] = c.Point()
	}
	return points
}

// CamerasResponse represents a paginated response of cameras
type CamerasResponse struct {
	Data       []Camera `json:"data"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}

// CameraFilter represents filter parameters for querying cameras.
// A MinLon greater than MaxLon selects a box crossing the antimeridian.
type CameraFilter struct {
	Country  string   `form:"country"`
	City     string   `form:"city"`
	Source   string   `form:"source"`
	Query    string   `form:"q"` // name substring
	MinLat   *float64 `form:"minLat"`
	MaxLat   *float64 `form:"maxLat"`
	MinLon   *float64 `form:"minLon"`
	MaxLon   *float64 `form:"maxLon"`
	Page     int      `form:"page"`
	PageSize int      `form:"pageSize"`
}
