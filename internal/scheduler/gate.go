package scheduler

import (
	"context"
	"sync"
)

// Gate is a pause switch that blocked goroutines can wait on without polling.
// Every state change closes the current notification channel and installs a
// fresh one, waking all waiters at once.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	changed chan struct{}
}

func NewGate(paused bool) *Gate {
	return &Gate{paused: paused, changed: make(chan struct{})}
}

// Pause closes the gate. It returns false if the gate was already paused.
func (g *Gate) Pause() bool {
	return g.set(true)
}

// Resume opens the gate. It returns false if the gate was already open.
func (g *Gate) Resume() bool {
	return g.set(false)
}

func (g *Gate) set(paused bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused == paused {
		return false
	}
	g.paused = paused
	close(g.changed)
	g.changed = make(chan struct{})
	return true
}

// Paused reports whether the gate is closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// state returns the current value and a channel closed on the next change.
func (g *Gate) state() (bool, <-chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused, g.changed
}

// Wait blocks while the gate is paused. It returns ctx.Err() if ctx ends first.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		paused, changed := g.state()
		if !paused {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
