package route

import (
	"net/http"

	"github.com/bassista/posdit/internal/api/middleware"
	"github.com/bassista/posdit/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the HTTP engine: health probe plus the /api surface.
// reportErrors enables Honeybadger reporting; the client must be configured.
func SetupRoutes(appCtx *app.App, log *logrus.Logger, reportErrors bool) *gin.Engine {
	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(log.WithField("component", "http"), reportErrors))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	api := r.Group("/api")
	timeout := appCtx.Config.Server.RequestTimeout

	NewWatchRouter(timeout, api, appCtx.Registry)
	NewMonitorRouter(timeout, api, appCtx)
	NewConfigurationRouter(timeout, api, appCtx.Config)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
