package route

import (
	"time"

	"github.com/bassista/posdit/internal/api/controller"
	"github.com/bassista/posdit/internal/api/middleware"
	"github.com/bassista/posdit/internal/app"
	"github.com/gin-gonic/gin"
)

// NewMonitorRouter sets up poll loop control and event routes. The live
// stream has no request timeout.
func NewMonitorRouter(timeout time.Duration, group *gin.RouterGroup, appCtx *app.App) {
	mc := controller.NewMonitorController(appCtx.Monitor, appCtx.History, appCtx.Bus)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("monitor/status", timeoutMiddleware, mc.Status)
	group.POST("monitor/pause", timeoutMiddleware, mc.Pause)
	group.POST("monitor/resume", timeoutMiddleware, mc.Resume)
	group.GET("monitor/events", timeoutMiddleware, mc.Events)
	group.GET("monitor/stream", mc.Stream)
}
