package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/api"
	"github.com/jengzang/camglobe/internal/config"
	"github.com/jengzang/camglobe/internal/database"
	"github.com/jengzang/camglobe/internal/logger"
	"github.com/jengzang/camglobe/internal/metrics"
	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/pipeline"
	"github.com/jengzang/camglobe/internal/repository"
	"github.com/jengzang/camglobe/internal/service"
)

func main() {
	// 加载配置
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	strategy, err := pipeline.ParseStrategy(cfg.ClusterStrategy)
	if err != nil {
		return err
	}
	p := pipeline.New(pipeline.Config{
		Strategy:     strategy,
		MaxClusters:  cfg.MaxClusters,
		GridCellSize: cfg.GridCellSize,
		ZoomQuantum:  cfg.ZoomQuantum,
	}, log, m)

	cameraService := service.NewCameraService(repository.NewCameraRepository(db), p, log)
	if _, err := cameraService.Reload(models.CameraFilter{}); err != nil {
		return err
	}

	sessionCfg := service.DefaultSessionConfig()
	sessionCfg.TTL = cfg.SessionTTL
	sessionCfg.FrameInterval = cfg.FrameInterval
	sessionCfg.Visibility.MaxVisible = cfg.MaxVisible
	sessionCfg.Interaction.AutoRotateDegPerSec = cfg.AutoRotateDegPerSec
	sessionService := service.NewSessionService(sessionCfg, p, m, log)
	defer sessionService.Close()
	go sessionService.Run(ctx)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	router := api.SetupRouter(ctx, api.Deps{
		Config:   cfg,
		Logger:   logger.Component(log, "http"),
		Metrics:  m,
		Gatherer: registry,
		Cameras:  cameraService,
		Clusters: service.NewClusterService(p, log),
		Sessions: sessionService,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Port).Int("cameras", cameraService.Points()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
