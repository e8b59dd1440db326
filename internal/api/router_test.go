package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/config"
	"github.com/jengzang/camglobe/internal/database"
	"github.com/jengzang/camglobe/internal/metrics"
	"github.com/jengzang/camglobe/internal/pipeline"
	"github.com/jengzang/camglobe/internal/repository"
	"github.com/jengzang/camglobe/internal/service"
)

func newTestEngine(t *testing.T, rateLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := pipeline.New(pipeline.DefaultConfig(), zerolog.Nop(), m)
	sessions := service.NewSessionService(service.DefaultSessionConfig(), p, m, zerolog.Nop())
	t.Cleanup(sessions.Close)

	return SetupRouter(ctx, Deps{
		Config:   &config.Config{RateLimit: rateLimit, RateWindow: time.Minute},
		Logger:   zerolog.Nop(),
		Metrics:  m,
		Gatherer: reg,
		Cameras:  service.NewCameraService(repository.NewCameraRepository(db), p, zerolog.Nop()),
		Clusters: service.NewClusterService(p, zerolog.Nop()),
		Sessions: sessions,
	})
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestEngine(t, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "camglobe_http_requests_total") {
		t.Errorf("metrics output is missing the request counter:\n%s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestEngine(t, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/clusters", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestAPIRateLimit(t *testing.T) {
	r := newTestEngine(t, 2)

	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/clusters", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Health sits outside the limited group.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health under limit = %d", w.Code)
	}
}
