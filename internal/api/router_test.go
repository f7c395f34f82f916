package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/greenarea-go/internal/archive"
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/config"
	"github.com/jengzang/greenarea-go/internal/database"
	"github.com/jengzang/greenarea-go/internal/metrics"
	"github.com/jengzang/greenarea-go/internal/middleware"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/region"
	"github.com/jengzang/greenarea-go/internal/repository"
	"github.com/jengzang/greenarea-go/internal/service"
	"github.com/jengzang/greenarea-go/internal/spatial"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.MigrateUp(db))

	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	require.NoError(t, err)

	runs := service.NewRunService(
		repository.NewRunRepository(db),
		repository.NewRunTaskRepository(db),
		repository.NewAreaRecordRepository(db),
		pipeline.Runner{
			Compositor: composite.Compositor{Archive: archive.NewMemory()},
			Regions:    region.NewCollection(spatial.UTM{Zone: 52}, nil),
			Metrics:    m,
		},
		pipeline.Plan{FirstYear: 2020, LastYear: 2020, Season: pipeline.DefaultSeason,
			Sensors: []string{"modis"}, Thresholds: []float64{0.6}, Workers: 1},
	)
	t.Cleanup(runs.Wait)
	return SetupRouter(cfg, runs, registry), cfg
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "greenarea_runs_in_flight"))
}

func TestCreateRunNeedsToken(t *testing.T) {
	r, cfg := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := middleware.SignToken(cfg.JWTSecret, "admin", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}

func TestPublicRoutes(t *testing.T) {
	r, _ := testRouter(t)
	for _, path := range []string{"/api/v1/profiles", "/api/v1/runs"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
