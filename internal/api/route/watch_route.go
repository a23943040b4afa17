package route

import (
	"time"

	"github.com/bassista/posdit/internal/api/controller"
	"github.com/bassista/posdit/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewWatchRouter sets up the watch list routes.
func NewWatchRouter(timeout time.Duration, group *gin.RouterGroup, store controller.WatchStore) {
	wc := controller.NewWatchController(store)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("watches", timeoutMiddleware, wc.GetWatches)
	group.PUT("watches", timeoutMiddleware, wc.ReplaceWatches)
	group.PUT("destination", timeoutMiddleware, wc.SetDestination)
	wc.RegisterSpecRoutes(group, timeoutMiddleware)
}
