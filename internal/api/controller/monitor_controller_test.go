package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bassista/posdit/internal/events"
	"github.com/bassista/posdit/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMonitor implements MonitorControl for testing
type mockMonitor struct {
	mu     sync.Mutex
	paused bool
	state  scheduler.State
}

func (m *mockMonitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.state = scheduler.Paused
}

func (m *mockMonitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	m.state = scheduler.Polling
}

func (m *mockMonitor) Status() scheduler.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scheduler.Status{State: m.state, Status: events.StatusUp, Paused: m.paused, Seen: 3}
}

func newMonitorRouter(mon MonitorControl, history EventHistory, stream EventStream) *gin.Engine {
	gin.SetMode(gin.TestMode)
	mc := NewMonitorController(mon, history, stream)

	r := gin.New()
	r.GET("/monitor/status", mc.Status)
	r.POST("/monitor/pause", mc.Pause)
	r.POST("/monitor/resume", mc.Resume)
	r.GET("/monitor/events", mc.Events)
	r.GET("/monitor/stream", mc.Stream)
	return r
}

func TestMonitorController_StatusPauseResume(t *testing.T) {
	mon := &mockMonitor{state: scheduler.Polling}
	r := newMonitorRouter(mon, events.NewHistory(10), events.NewBus())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitor/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"polling","status":"up","paused":false,"seen":3}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/monitor/pause", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"paused","status":"up","paused":true,"seen":3}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/monitor/resume", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mon.Status().Paused)
}

func TestMonitorController_Events(t *testing.T) {
	history := events.NewHistory(10)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history.Emit(events.Event{Kind: events.Connected, Time: base})
	history.Emit(events.Event{Kind: events.MatchFound, Time: base.Add(time.Second), Subreddit: "gaming", Title: "Xbox One deal"})
	history.Emit(events.Event{Kind: events.Timeout, Time: base.Add(2 * time.Second), Subreddit: "gaming"})

	r := newMonitorRouter(&mockMonitor{}, history, events.NewBus())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitor/events?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []EventView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, events.MatchFound, got[0].Kind)
	assert.Equal(t, "Xbox One deal", got[0].Title)
	assert.NotEmpty(t, got[0].Message)
	assert.Equal(t, events.Timeout, got[1].Kind)
}

func TestMonitorController_EventsEmptyAndInvalid(t *testing.T) {
	r := newMonitorRouter(&mockMonitor{}, events.NewHistory(10), events.NewBus())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitor/events", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, q := range []string{"abc", "-1"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitor/events?limit="+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestMonitorController_Stream(t *testing.T) {
	bus := events.NewBus()
	srv := httptest.NewServer(newMonitorRouter(&mockMonitor{}, events.NewHistory(10), bus))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/monitor/stream", nil)
	require.NoError(t, err)

	// emit until the subscriber is registered and the first event arrives
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bus.Emit(events.Event{Kind: events.MatchFound, Title: "Xbox One deal"})
			}
		}
	}()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data:") {
			dataLine = line
			break
		}
	}
	assert.Equal(t, "event:match-found", eventLine)
	assert.Contains(t, dataLine, "Xbox One deal")
}
