package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bassista/posdit/internal/logger"
	"github.com/gin-gonic/gin"
)

func TestConfigureHoneybadger_NoKey(t *testing.T) {
	t.Setenv("HONEYBADGER_API_KEY", "")

	if ConfigureHoneybadger() {
		t.Error("expected honeybadger to stay disabled without an API key")
	}
}

func TestHoneybadgerMiddleware_DisabledPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(HoneybadgerMiddleware(logger.WithComponent("http"), false))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })

	for path, want := range map[string]int{"/ok": http.StatusOK, "/fail": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}

func TestHoneybadgerMiddleware_PanicReachesRecovery(t *testing.T) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(HoneybadgerMiddleware(logger.WithComponent("http"), false))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 from recovery, got %d", w.Code)
	}
}
