package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bassista/posdit/internal/config"
	"github.com/bassista/posdit/internal/dedup"
	"github.com/bassista/posdit/internal/domain"
	"github.com/bassista/posdit/internal/registry"
	"github.com/bassista/posdit/internal/repository"
	"github.com/bassista/posdit/internal/scheduler"
)

// mockRepository implements repository.Repository for testing
type mockRepository struct {
	mu             sync.Mutex
	watcherStarted bool
	watcherErr     error
	saveErr        error
	saves          int
	doc            repository.WatchDocument
}

func (m *mockRepository) Load(ctx context.Context) (*repository.WatchDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.doc
	return &doc, nil
}

func (m *mockRepository) Save(ctx context.Context, doc *repository.WatchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	if doc != nil {
		m.doc = *doc
	}
	return nil
}

func (m *mockRepository) StartWatcher(ctx context.Context, store repository.CacheStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcherErr != nil {
		return m.watcherErr
	}
	m.watcherStarted = true
	return nil
}

func (m *mockRepository) saved() (int, repository.WatchDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.doc
}

// mockMonitor implements Monitor for testing
type mockMonitor struct {
	mu      sync.Mutex
	started bool
	paused  bool
}

func (m *mockMonitor) Start(ctx context.Context) <-chan struct{} {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	return done
}

func (m *mockMonitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *mockMonitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

func (m *mockMonitor) Status() scheduler.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return scheduler.Status{Paused: m.paused}
}

// countingFetcher implements domain.Fetcher and returns no items.
type countingFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *countingFetcher) Fetch(ctx context.Context, sub string, listing domain.Listing) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, domain.Item, domain.WatchSpec) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Data: config.DataConfig{PersistInterval: time.Hour},
	}
}

func TestNew_Success(t *testing.T) {
	cfg := testConfig()
	repo := &mockRepository{}
	reg := registry.New()
	mon := &mockMonitor{}

	app, err := New(cfg, repo, reg, mon, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if app.Config != cfg {
		t.Error("config not set correctly")
	}
	if app.Repo == nil {
		t.Error("repo should not be nil")
	}
	if app.Registry != reg {
		t.Error("registry not set correctly")
	}
	if app.Monitor == nil {
		t.Error("monitor should not be nil")
	}
	if app.Bus == nil {
		t.Error("bus should default to a non-nil bus")
	}
	if app.History == nil {
		t.Error("history should default to a non-nil buffer")
	}
	if app.BaseCtx == nil {
		t.Error("BaseCtx should not be nil")
	}
	if app.Cancel == nil {
		t.Error("Cancel should not be nil")
	}
}

func TestNew_MissingDependencies(t *testing.T) {
	cfg := testConfig()
	repo := &mockRepository{}
	reg := registry.New()
	mon := &mockMonitor{}

	tests := []struct {
		name    string
		build   func() (*App, error)
		message string
	}{
		{"nil config", func() (*App, error) { return New(nil, repo, reg, mon, nil, nil) }, "config is nil"},
		{"nil repo", func() (*App, error) { return New(cfg, nil, reg, mon, nil, nil) }, "repo is nil"},
		{"nil registry", func() (*App, error) { return New(cfg, repo, nil, mon, nil, nil) }, "registry is nil"},
		{"nil monitor", func() (*App, error) { return New(cfg, repo, reg, nil, nil, nil) }, "monitor is nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := tt.build()
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			if app != nil {
				t.Error("expected nil app on error")
			}
			if err.Error() != tt.message {
				t.Errorf("unexpected error message: %v", err)
			}
		})
	}
}

func TestApp_Shutdown(t *testing.T) {
	app, _ := New(testConfig(), &mockRepository{}, registry.New(), &mockMonitor{}, nil, nil)

	select {
	case <-app.BaseCtx.Done():
		t.Error("context should not be done before shutdown")
	default:
	}

	app.Shutdown()

	select {
	case <-app.BaseCtx.Done():
	default:
		t.Error("context should be done after shutdown")
	}
}

func TestApp_Shutdown_Nil(t *testing.T) {
	// Should not panic
	var app *App
	app.Shutdown()
}

func TestApp_Shutdown_NilCancel(t *testing.T) {
	// Should not panic
	app := &App{Cancel: nil}
	app.Shutdown()
}

func TestApp_StartWatchers(t *testing.T) {
	repo := &mockRepository{}
	mon := &mockMonitor{}
	app, _ := New(testConfig(), repo, registry.New(), mon, nil, nil)
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	repo.mu.Lock()
	started := repo.watcherStarted
	repo.mu.Unlock()
	if !started {
		t.Error("expected data file watcher to be started")
	}

	mon.mu.Lock()
	monStarted := mon.started
	mon.mu.Unlock()
	if !monStarted {
		t.Error("expected monitor to be started")
	}
	if app.MonitorDone() == nil {
		t.Error("expected monitor done channel after start")
	}
}

func TestApp_StartWatchers_WatcherError(t *testing.T) {
	repo := &mockRepository{watcherErr: errors.New("inotify limit reached")}
	mon := &mockMonitor{}
	app, _ := New(testConfig(), repo, registry.New(), mon, nil, nil)
	defer app.Shutdown()

	if err := app.StartWatchers(); err == nil {
		t.Fatal("expected error when watcher cannot start")
	}
	if mon.started {
		t.Error("monitor should not start when the watcher fails")
	}
}

func TestApp_ShutdownFlushesRegistry(t *testing.T) {
	repo := &mockRepository{}
	reg := registry.New()
	app, _ := New(testConfig(), repo, reg, &mockMonitor{}, nil, nil)

	if err := app.StartWatchers(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	specs := []domain.WatchSpec{{Keyword: "xbox", Subreddit: "gaming", Listing: domain.ListingNew}}
	if _, err := reg.Replace("me@example.com", specs); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	app.Shutdown()

	saves, doc := repo.saved()
	if saves != 1 {
		t.Fatalf("expected exactly one final flush, got %d", saves)
	}
	if doc.Destination != "me@example.com" || len(doc.Specs) != 1 {
		t.Errorf("unexpected persisted document: %+v", doc)
	}
	if reg.IsDirty() {
		t.Error("registry should be clean after the final flush")
	}
}

func TestApp_ContextCancellation(t *testing.T) {
	app, _ := New(testConfig(), &mockRepository{}, registry.New(), &mockMonitor{}, nil, nil)

	done := make(chan bool, 1)
	go func() {
		<-app.BaseCtx.Done()
		done <- true
	}()

	app.Shutdown()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("goroutine should have received cancellation within timeout")
	}
}

func TestApp_RestartsMonitorWhenDestinationConfigured(t *testing.T) {
	reg := registry.New()
	if _, err := reg.Add(domain.WatchSpec{Keyword: "xbox", Subreddit: "gaming", Listing: domain.ListingNew}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	fetcher := &countingFetcher{}
	sched, err := scheduler.NewPollScheduler(reg, fetcher, nopNotifier{}, dedup.NewSet(), nil, scheduler.Options{})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	app, _ := New(testConfig(), &mockRepository{}, reg, sched, nil, nil)
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case <-app.MonitorDone():
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop should stop without a destination")
	}
	if got := sched.State(); got != scheduler.Fatal {
		t.Fatalf("expected fatal state, got %s", got)
	}
	if fetcher.count() != 0 {
		t.Fatal("no fetch expected without a destination")
	}

	reg.SetDestination("me@example.com")

	deadline := time.Now().Add(2 * time.Second)
	for fetcher.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fetcher.count() == 0 {
		t.Fatalf("expected fetches after the destination was set, state=%s", sched.State())
	}
	if got := sched.State(); got == scheduler.Fatal {
		t.Errorf("expected poll loop to be running, got %s", got)
	}
}

func TestApp_RestartMonitor_NoopWhileRunning(t *testing.T) {
	mon := &mockMonitor{}
	app, _ := New(testConfig(), &mockRepository{}, registry.New(), mon, nil, nil)
	defer app.Shutdown()

	if app.RestartMonitor() {
		t.Error("restart before StartWatchers should do nothing")
	}
	if err := app.StartWatchers(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	done := app.MonitorDone()

	if app.RestartMonitor() {
		t.Error("restart while the loop runs should do nothing")
	}
	if app.MonitorDone() != done {
		t.Error("done channel should be unchanged")
	}
}

func TestApp_RestartMonitor_NoopAfterShutdown(t *testing.T) {
	app, _ := New(testConfig(), &mockRepository{}, registry.New(), &mockMonitor{}, nil, nil)
	if err := app.StartWatchers(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	app.Shutdown()

	if app.RestartMonitor() {
		t.Error("restart after shutdown should do nothing")
	}
}
