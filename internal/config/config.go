package config

import (
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Port   string
	DBPath string

	LogLevel  string
	LogFormat string

	// 聚类
	ClusterStrategy string
	MaxClusters     int
	GridCellSize    float64 // 度，zoom 1 时的网格大小
	ZoomQuantum     float64

	// 可见性与交互
	MaxVisible          int
	FrameInterval       time.Duration
	SessionTTL          time.Duration
	AutoRotateDegPerSec float64

	// 限流
	RateLimit  int
	RateWindow time.Duration
}

// Load 加载配置，非法数值回退到默认值
func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", ":8080"),
		DBPath: getEnv("DB_PATH", "./data/cameras.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ClusterStrategy: getEnv("CLUSTER_STRATEGY", "bounded"),
		MaxClusters:     getEnvInt("MAX_CLUSTERS", 500),
		GridCellSize:    getEnvFloat("GRID_CELL_SIZE", 5),
		ZoomQuantum:     getEnvFloat("ZOOM_QUANTUM", 0.25),

		MaxVisible:          getEnvInt("MAX_VISIBLE", 500),
		FrameInterval:       time.Duration(getEnvInt("FRAME_INTERVAL_MS", 16)) * time.Millisecond,
		SessionTTL:          getEnvDuration("SESSION_TTL", 10*time.Minute),
		AutoRotateDegPerSec: getEnvFloat("AUTO_ROTATE_DEG_PER_SEC", 4),

		RateLimit:  getEnvInt("RATE_LIMIT", 600),
		RateWindow: getEnvDuration("RATE_WINDOW", time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 只接受正整数
func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 && f < 1e9 {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
