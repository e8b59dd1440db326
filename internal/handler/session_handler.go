package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/service"
	"github.com/jengzang/camglobe/pkg/response"
)

// SessionHandler handles HTTP requests for interactive sessions
type SessionHandler struct {
	sessionService *service.SessionService
	cameraService  *service.CameraService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService, cameraService *service.CameraService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		cameraService:  cameraService,
	}
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	info, err := h.sessionService.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// GetSession handles GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	info, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// GetFrame handles GET /api/v1/sessions/:id/frame
func (h *SessionHandler) GetFrame(c *gin.Context) {
	frame, err := h.sessionService.Frame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, frame)
}

// PostInput handles POST /api/v1/sessions/:id/input
func (h *SessionHandler) PostInput(c *gin.Context) {
	var req models.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.sessionService.Input(c.Request.Context(), c.Param("id"), req.Events)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// FlyTo handles POST /api/v1/sessions/:id/fly-to
func (h *SessionHandler) FlyTo(c *gin.Context) {
	var req models.FlyToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	info, err := h.sessionService.FlyTo(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// FlyToCamera handles POST /api/v1/sessions/:id/fly-to/:cameraId
func (h *SessionHandler) FlyToCamera(c *gin.Context) {
	camera, err := h.cameraService.GetByID(c.Param("cameraId"))
	if err != nil {
		writeError(c, err)
		return
	}

	zoom, err := strconv.ParseFloat(c.DefaultQuery("zoom", "0"), 64)
	if err != nil {
		response.BadRequest(c, "Invalid zoom parameter")
		return
	}

	info, err := h.sessionService.FlyToCamera(c.Request.Context(), c.Param("id"), camera, zoom)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// ToggleMode handles POST /api/v1/sessions/:id/mode
func (h *SessionHandler) ToggleMode(c *gin.Context) {
	info, err := h.sessionService.ToggleMode(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// SetAutoRotate handles PUT /api/v1/sessions/:id/auto-rotate
func (h *SessionHandler) SetAutoRotate(c *gin.Context) {
	var req models.AutoRotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	info, err := h.sessionService.SetAutoRotate(c.Request.Context(), c.Param("id"), req.Enabled)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// SetVariant handles PUT /api/v1/sessions/:id/variant
func (h *SessionHandler) SetVariant(c *gin.Context) {
	var req models.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	info, err := h.sessionService.SetVariant(c.Request.Context(), c.Param("id"), req.Variant)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// Pick handles GET /api/v1/sessions/:id/pick?x=&y=
func (h *SessionHandler) Pick(c *gin.Context) {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	if errX != nil || errY != nil {
		response.BadRequest(c, "Invalid x or y parameter")
		return
	}

	result, err := h.sessionService.Pick(c.Request.Context(), c.Param("id"), x, y)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionService.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}
