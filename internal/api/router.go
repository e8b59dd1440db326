package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/config"
	"github.com/jengzang/camglobe/internal/handler"
	"github.com/jengzang/camglobe/internal/metrics"
	"github.com/jengzang/camglobe/internal/middleware"
	"github.com/jengzang/camglobe/internal/service"
)

// Deps carries everything the router needs
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Cameras  *service.CameraService
	Clusters *service.ClusterService
	Sessions *service.SessionService
}

// SetupRouter 设置路由
// ctx bounds background goroutines owned by the middleware.
func SetupRouter(ctx context.Context, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(d.Logger, d.Metrics))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"points":   d.Cameras.Points(),
			"sessions": d.Sessions.Len(),
		})
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	cameraHandler := handler.NewCameraHandler(d.Cameras)
	clusterHandler := handler.NewClusterHandler(d.Clusters)
	sessionHandler := handler.NewSessionHandler(d.Sessions, d.Cameras)

	// API 路由组
	v1 := r.Group("/api/v1")
	if d.Config != nil && d.Config.RateLimit > 0 {
		v1.Use(middleware.RateLimit(middleware.NewRateLimiter(ctx, d.Config.RateLimit, d.Config.RateWindow)))
	}
	{
		// 摄像头
		cameras := v1.Group("/cameras")
		{
			cameras.GET("", cameraHandler.GetCameras)
			cameras.POST("", cameraHandler.ImportCameras)
			cameras.POST("/reload", cameraHandler.ReloadCameras)
			cameras.GET("/:id", cameraHandler.GetCameraByID)
			cameras.DELETE("/:id", cameraHandler.DeleteCamera)
		}

		// 聚类
		clusters := v1.Group("/clusters")
		{
			clusters.GET("", clusterHandler.GetClusters)
			clusters.GET("/geojson", clusterHandler.GetClustersGeoJSON)
		}

		// 交互会话
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
			sessions.GET("/:id/frame", sessionHandler.GetFrame)
			sessions.GET("/:id/pick", sessionHandler.Pick)
			sessions.POST("/:id/input", sessionHandler.PostInput)
			sessions.POST("/:id/fly-to", sessionHandler.FlyTo)
			sessions.POST("/:id/fly-to/:cameraId", sessionHandler.FlyToCamera)
			sessions.POST("/:id/mode", sessionHandler.ToggleMode)
			sessions.PUT("/:id/auto-rotate", sessionHandler.SetAutoRotate)
			sessions.PUT("/:id/variant", sessionHandler.SetVariant)
		}
	}

	return r
}
