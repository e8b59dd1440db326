package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/service"
	"github.com/jengzang/camglobe/pkg/response"
)

// ClusterHandler handles HTTP requests for one-shot aggregations
type ClusterHandler struct {
	clusterService *service.ClusterService
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(clusterService *service.ClusterService) *ClusterHandler {
	return &ClusterHandler{
		clusterService: clusterService,
	}
}

// GetClusters handles GET /api/v1/clusters
func (h *ClusterHandler) GetClusters(c *gin.Context) {
	var req models.ClusterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.clusterService.Aggregate(req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// GetClustersGeoJSON handles GET /api/v1/clusters/geojson
// 直接返回 GeoJSON，不包装在统一响应里，方便地图库直接加载
func (h *ClusterHandler) GetClustersGeoJSON(c *gin.Context) {
	var req models.ClusterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	fc, err := h.clusterService.GeoJSON(req)
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}
