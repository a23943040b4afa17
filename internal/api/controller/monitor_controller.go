package controller

import (
	"io"
	"net/http"
	"strconv"

	"github.com/bassista/posdit/internal/events"
	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// defaultEventLimit is how many history entries GET /monitor/events returns
// when no limit is given.
const defaultEventLimit = 100

// streamBuffer is the per-client buffer of the live event stream.
const streamBuffer = 64

// MonitorControl is the subset of the poll loop the HTTP layer drives.
type MonitorControl interface {
	Pause()
	Resume()
	Status() scheduler.Status
}

// EventHistory returns recent events, oldest first.
type EventHistory interface {
	Recent(limit int) []events.Event
}

// EventStream hands out live event subscriptions.
type EventStream interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// EventView is an event as shown to API clients.
type EventView struct {
	events.Event
	Message string `json:"message"`
}

// MonitorController exposes the poll loop's status, its pause switch and its
// event log.
type MonitorController struct {
	monitor MonitorControl
	history EventHistory
	stream  EventStream
}

func NewMonitorController(monitor MonitorControl, history EventHistory, stream EventStream) *MonitorController {
	return &MonitorController{monitor: monitor, history: history, stream: stream}
}

// Status handles GET /monitor/status.
func (mc *MonitorController) Status(c *gin.Context) {
	logger.WithComponent("monitor-controller").Debugf("GET /monitor/status handler called")
	c.JSON(http.StatusOK, mc.monitor.Status())
}

// Pause handles POST /monitor/pause.
func (mc *MonitorController) Pause(c *gin.Context) {
	logger.WithComponent("monitor-controller").Infof("monitoring paused via API")
	mc.monitor.Pause()
	c.JSON(http.StatusOK, mc.monitor.Status())
}

// Resume handles POST /monitor/resume.
func (mc *MonitorController) Resume(c *gin.Context) {
	logger.WithComponent("monitor-controller").Infof("monitoring resumed via API")
	mc.monitor.Resume()
	c.JSON(http.StatusOK, mc.monitor.Status())
}

// Events handles GET /monitor/events?limit=n.
func (mc *MonitorController) Events(c *gin.Context) {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	recent := mc.history.Recent(limit)
	views := make([]EventView, 0, len(recent))
	for _, e := range recent {
		views = append(views, EventView{Event: e, Message: e.Message()})
	}
	c.JSON(http.StatusOK, views)
}

// Stream handles GET /monitor/stream as server-sent events until the client
// goes away.
func (mc *MonitorController) Stream(c *gin.Context) {
	log := logger.WithComponent("monitor-controller")
	ch, cancel := mc.stream.Subscribe(streamBuffer)
	defer cancel()
	log.Debugf("event stream client connected: %s", c.ClientIP())

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), EventView{Event: e, Message: e.Message()})
			return true
		}
	})
	log.Debugf("event stream client disconnected: %s", c.ClientIP())
}
