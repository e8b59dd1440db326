package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/camglobe/internal/service"
	"github.com/jengzang/camglobe/pkg/response"
)

// writeError maps service errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidParams):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrCameraNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		_ = c.Error(err)
		response.InternalError(c, "internal error")
	}
}
