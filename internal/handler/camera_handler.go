package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/service"
	"github.com/jengzang/camglobe/pkg/response"
)

// CameraHandler handles HTTP requests for cameras
type CameraHandler struct {
	cameraService *service.CameraService
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(cameraService *service.CameraService) *CameraHandler {
	return &CameraHandler{
		cameraService: cameraService,
	}
}

// GetCameras handles GET /api/v1/cameras
func (h *CameraHandler) GetCameras(c *gin.Context) {
	var filter models.CameraFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.cameraService.List(filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// GetCameraByID handles GET /api/v1/cameras/:id
func (h *CameraHandler) GetCameraByID(c *gin.Context) {
	camera, err := h.cameraService.GetByID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, camera)
}

// ReloadCameras handles POST /api/v1/cameras/reload
// 按筛选条件重新加载聚类点集
func (h *CameraHandler) ReloadCameras(c *gin.Context) {
	var filter models.CameraFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	n, err := h.cameraService.Reload(filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"points": n})
}

// ImportCameras handles POST /api/v1/cameras
func (h *CameraHandler) ImportCameras(c *gin.Context) {
	var cameras []models.Camera
	if err := c.ShouldBindJSON(&cameras); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	n, err := h.cameraService.Import(cameras)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"imported": n})
}

// DeleteCamera handles DELETE /api/v1/cameras/:id
func (h *CameraHandler) DeleteCamera(c *gin.Context) {
	if err := h.cameraService.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}
