package route

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bassista/posdit/internal/app"
	"github.com/bassista/posdit/internal/config"
	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/registry"
	"github.com/bassista/posdit/internal/repository"
	"github.com/bassista/posdit/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopRepository implements repository.Repository for routing tests.
type nopRepository struct{}

func (nopRepository) Load(context.Context) (*repository.WatchDocument, error) {
	return &repository.WatchDocument{}, nil
}
func (nopRepository) Save(context.Context, *repository.WatchDocument) error { return nil }
func (nopRepository) StartWatcher(context.Context, repository.CacheStore) error {
	return nil
}

// stubMonitor implements app.Monitor for routing tests.
type stubMonitor struct {
	mu     sync.Mutex
	paused bool
}

func (m *stubMonitor) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
func (m *stubMonitor) Pause()  { m.mu.Lock(); m.paused = true; m.mu.Unlock() }
func (m *stubMonitor) Resume() { m.mu.Lock(); m.paused = false; m.mu.Unlock() }
func (m *stubMonitor) Status() scheduler.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scheduler.Status{State: scheduler.Polling, Paused: m.paused}
}

func newTestEngine(t *testing.T, requestTimeout time.Duration) (*gin.Engine, *app.App, *stubMonitor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: requestTimeout, CORSAllowedOrigins: "*"},
	}
	mon := &stubMonitor{}
	appCtx, err := app.New(cfg, nopRepository{}, registry.New(), mon, nil, nil)
	require.NoError(t, err)
	t.Cleanup(appCtx.Shutdown)
	return SetupRoutes(appCtx, logger.Logger, false), appCtx, mon
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	r, _, _ := newTestEngine(t, time.Second)

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"UP"}`, w.Body.String())
}

func TestSetupRoutes_UnknownPath(t *testing.T) {
	r, _, _ := newTestEngine(t, time.Second)

	w := serve(r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestSetupRoutes_WatchesRoundTrip(t *testing.T) {
	r, appCtx, _ := newTestEngine(t, time.Second)

	body := `{"destination":"me@example.com","specs":[{"keyword":"xbox","subreddit":"gaming","listing":"new"}]}`
	w := serve(r, http.MethodPut, "/api/watches", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, appCtx.Registry.Len())

	w = serve(r, http.MethodGet, "/api/watches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"destination":"me@example.com","specs":[{"keyword":"xbox","subreddit":"gaming","listing":"New"}]}`, w.Body.String())
}

func TestSetupRoutes_MonitorControl(t *testing.T) {
	r, _, mon := newTestEngine(t, time.Second)

	w := serve(r, http.MethodPost, "/api/monitor/pause", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mon.Status().Paused)

	w = serve(r, http.MethodPost, "/api/monitor/resume", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mon.Status().Paused)

	w = serve(r, http.MethodGet, "/api/monitor/events?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_Configuration(t *testing.T) {
	r, _, _ := newTestEngine(t, time.Second)

	w := serve(r, http.MethodGet, "/api/configuration", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pollIntervalSec":60`)
}

func TestSetupRoutes_CORSPreflight(t *testing.T) {
	r, _, _ := newTestEngine(t, time.Second)

	req := httptest.NewRequest(http.MethodOptions, "/api/watches", nil)
	req.Header.Set("Origin", "http://ui.local")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
