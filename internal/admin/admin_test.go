package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/health"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/router"
)

func init() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

// fullServer builds an admin server with every collaborator wired.
func fullServer(t *testing.T) *Server {
	t.Helper()

	checker := health.NewChecker("test")
	checker.RegisterCheck("always", func(context.Context) health.Check {
		return health.Check{Status: health.StatusHealthy}
	})

	rt := router.New()
	require.NoError(t, rt.GET("/things/:id", func(*dispatch.Context) error { return nil }))

	p := pool.New(pool.WithWorkers(1))
	require.NoError(t, p.Register(pool.NewExecutor(pool.TaskDataProcessing,
		func(_ context.Context, payload any) (any, error) { return payload, nil })))
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	cfg := config.DefaultConfig()
	cfg.Cache.Redis.Password = "secret"

	return New(config.AdminConfig{Enabled: true, Listen: "127.0.0.1:0"},
		WithChecker(checker),
		WithMetrics(observability.NewMetrics("velox")),
		WithRouter(rt),
		WithPool(p),
		WithConfigSource(func() *config.Config { return cfg }),
	)
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp health.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestServer_Live(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/livez")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_ReadyHealthy(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/readyz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp health.ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
}

func TestServer_ReadyUnhealthyReturns503(t *testing.T) {
	checker := health.NewChecker("test")
	checker.RegisterCheck("down", func(context.Context) health.Check {
		return health.Check{Status: health.StatusUnhealthy, Message: "broken"}
	})

	s := New(config.AdminConfig{Enabled: true}, WithChecker(checker))

	w := get(s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "broken")
}

func TestServer_ReadyDegradedReturns200(t *testing.T) {
	checker := health.NewChecker("test")
	checker.RegisterCheck("partial", func(context.Context) health.Check {
		return health.Check{Status: health.StatusDegraded}
	})

	s := New(config.AdminConfig{Enabled: true}, WithChecker(checker))

	w := get(s, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_Routes(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/api/routes")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Routes []router.RouteInfo `json:"routes"`
		Cache  router.CacheStats  `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, "GET", resp.Routes[0].Method)
	assert.Equal(t, "/things/:id", resp.Routes[0].Pattern)
	assert.Positive(t, resp.Cache.Capacity)
}

func TestServer_Pool(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/api/pool")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stats pool.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.Workers)
}

func TestServer_ConfigIsRedacted(t *testing.T) {
	s := fullServer(t)

	w := get(s, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "[REDACTED]")
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestServer_UnwiredEndpointsAreAbsent(t *testing.T) {
	s := New(config.AdminConfig{Enabled: true})

	for _, path := range []string{"/healthz", "/readyz", "/livez", "/metrics", "/api/routes", "/api/pool", "/api/config"} {
		w := get(s, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	s := fullServer(t)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.True(t, s.IsRunning())
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/livez")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
}

func TestServer_DisabledStartIsNoop(t *testing.T) {
	s := New(config.AdminConfig{Enabled: false, Listen: "127.0.0.1:0"})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.Addr())
}
