package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string { return s.name }
func (s stubChecker) Check(context.Context) error { return s.err }

func healthEngine(t *testing.T, checkers ...ports.HealthChecker) (*gin.Engine, *prometheus.Registry) {
	t.Helper()

	registry := ports.NewHealthRegistry()
	for _, c := range checkers {
		require.NoError(t, registry.Register(c))
	}

	reg := prometheus.NewRegistry()
	h := NewHealthHandler(registry, NewBuildInfo("quotebook", "1.2.3", "abc123", "2026-01-01T00:00:00Z"), reg)

	engine := gin.New()
	h.RegisterRoutes(engine)

	return engine, reg
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestNewBuildInfo(t *testing.T) {
	bi := NewBuildInfo("quotebook", "1.0.0", "abc123", "2026-01-15T10:00:00Z")

	assert.Equal(t, "quotebook", bi.Name)
	assert.Equal(t, "1.0.0", bi.Version)
	assert.Equal(t, runtime.Version(), bi.GoVersion)
}

func TestHealthHandler_Liveness(t *testing.T) {
	engine, _ := healthEngine(t, stubChecker{name: "storage-memory", err: errors.New("down")})

	w := get(engine, "/-/live")

	assert.Equal(t, http.StatusOK, w.Code, "liveness ignores dependencies")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []ports.HealthChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all healthy",
			checkers:   []ports.HealthChecker{stubChecker{name: "storage-diskv"}, stubChecker{name: "quote-remote"}},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "remote circuit open",
			checkers:   []ports.HealthChecker{stubChecker{name: "storage-diskv"}, stubChecker{name: "quote-remote", err: errors.New("circuit open")}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
		},
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := healthEngine(t, tt.checkers...)

			w := get(engine, "/-/ready")

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp readinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestHealthHandler_Build(t *testing.T) {
	engine, _ := healthEngine(t)

	w := get(engine, "/-/build")

	assert.Equal(t, http.StatusOK, w.Code)

	var bi BuildInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bi))
	assert.Equal(t, "1.2.3", bi.Version)
	assert.Equal(t, "abc123", bi.Commit)
}

type fixedCounter int

func (f fixedCounter) Len() int { return int(f) }

func TestHealthHandler_MetricsIncludesStoreGauge(t *testing.T) {
	engine, reg := healthEngine(t)
	require.NoError(t, RegisterStoreMetrics(reg, fixedCounter(7)))

	w := get(engine, "/-/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quotebook_quotes 7")
}

func TestRegisterStoreMetrics_Duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, RegisterStoreMetrics(reg, fixedCounter(1)))
	assert.Error(t, RegisterStoreMetrics(reg, fixedCounter(1)))
}
