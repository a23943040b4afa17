package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/posdit/internal/config"
	"github.com/bassista/posdit/internal/events"
	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/registry"
	"github.com/bassista/posdit/internal/repository"
	"github.com/bassista/posdit/internal/scheduler"
)

// shutdownWait bounds how long Shutdown waits for background goroutines.
const shutdownWait = 5 * time.Second

// restartWait bounds how long RestartMonitor waits for a Fatal loop to exit.
const restartWait = time.Second

// Monitor is the poll loop as seen by the host: lifecycle, pause switch, status.
type Monitor interface {
	Start(ctx context.Context) <-chan struct{}
	Pause()
	Resume()
	Status() scheduler.Status
}

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Repo     repository.Repository
	Registry *registry.Registry
	Monitor  Monitor
	Bus      *events.Bus
	History  *events.History

	BaseCtx context.Context
	Cancel  context.CancelFunc

	mu          sync.Mutex
	persistDone <-chan struct{}
	monitorDone <-chan struct{}
}

// New wires the container. bus and history may be nil; fresh ones are created.
func New(cfg *config.Config, repo repository.Repository, reg *registry.Registry, mon Monitor, bus *events.Bus, history *events.History) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if mon == nil {
		return nil, errors.New("monitor is nil")
	}
	if bus == nil {
		bus = events.NewBus()
	}
	if history == nil {
		history = events.NewHistory(events.DefaultHistorySize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:   cfg,
		Repo:     repo,
		Registry: reg,
		Monitor:  mon,
		Bus:      bus,
		History:  history,
		BaseCtx:  ctx,
		Cancel:   cancel,
	}, nil
}

// Shutdown cancels the lifecycle context and waits for the poll loop to stop
// and the registry to be flushed one last time.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()

	a.mu.Lock()
	pending := []<-chan struct{}{a.monitorDone, a.persistDone}
	a.mu.Unlock()

	timeout := time.After(shutdownWait)
	for _, done := range pending {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-timeout:
			logger.WithComponent("app").Warn("timed out waiting for background tasks to stop")
			return
		}
	}
}

// StartWatchers starts the data file watcher, the persistence scheduler and
// the poll loop, all bound to BaseCtx. Every later change to the watch list
// restarts a poll loop that has stopped.
func (a *App) StartWatchers() error {
	if err := a.Repo.StartWatcher(a.BaseCtx, a.Registry); err != nil {
		return fmt.Errorf("cannot start data file watcher: %w", err)
	}

	a.mu.Lock()
	a.persistDone = registry.StartPersistenceScheduler(a.BaseCtx, a.Registry, a.Repo, a.Config.Data.PersistInterval)
	a.monitorDone = a.Monitor.Start(a.BaseCtx)
	a.mu.Unlock()

	a.Registry.OnChange(func() { a.RestartMonitor() })
	return nil
}

// RestartMonitor starts the poll loop again if it has stopped on its own,
// typically after going Fatal. It does nothing while the loop runs, before
// StartWatchers or after Shutdown. It reports whether a new run was started.
func (a *App) RestartMonitor() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.monitorDone == nil || a.BaseCtx.Err() != nil {
		return false
	}

	select {
	case <-a.monitorDone:
	default:
		if a.Monitor.Status().State != scheduler.Fatal {
			return false
		}
		// Fatal is set just before the loop returns
		select {
		case <-a.monitorDone:
		case <-time.After(restartWait):
			return false
		}
	}

	logger.WithComponent("app").Info("watch list changed, restarting poll scheduler")
	a.monitorDone = a.Monitor.Start(a.BaseCtx)
	return true
}

// MonitorDone is closed once the current poll loop run has exited, or nil
// before StartWatchers.
func (a *App) MonitorDone() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.monitorDone
}
