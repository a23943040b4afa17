// Package dedup remembers which item ids have already been notified on.
package dedup

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Retention policies.
const (
	PolicyUnbounded = "unbounded"
	PolicyLRU       = "lru"
	PolicyWindow    = "window"
)

// Store answers "has this id already been notified on?".
type Store interface {
	Seen(id string) bool
	Record(id string)
	Len() int
}

// New builds a store for the named policy. capacity bounds the lru policy
// (and the window policy when positive); window is the retention of the
// window policy.
func New(policy string, capacity int, window time.Duration) (Store, error) {
	switch policy {
	case "", PolicyUnbounded:
		return NewSet(), nil
	case PolicyLRU:
		return NewLRU(capacity)
	case PolicyWindow:
		return NewWindow(capacity, window)
	default:
		return nil, fmt.Errorf("unknown dedup policy: %s (use '%s', '%s' or '%s')", policy, PolicyUnbounded, PolicyLRU, PolicyWindow)
	}
}

// Set keeps every recorded id for the lifetime of the process.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewSet() *Set {
	return &Set{ids: map[string]struct{}{}}
}

func (s *Set) Seen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Record(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// LRU keeps at most capacity ids, evicting the least recently seen.
type LRU struct {
	cache *lru.Cache[string, struct{}]
}

func NewLRU(capacity int) (*LRU, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("lru dedup capacity must be positive, got %d", capacity)
	}
	c, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &LRU{cache: c}, nil
}

// Seen refreshes the recency of id, so items still present in listings stay cached.
func (l *LRU) Seen(id string) bool {
	_, ok := l.cache.Get(id)
	return ok
}

func (l *LRU) Record(id string) {
	l.cache.Add(id, struct{}{})
}

func (l *LRU) Len() int {
	return l.cache.Len()
}

// Window forgets ids once they are older than the retention window.
type Window struct {
	cache *expirable.LRU[string, struct{}]
}

func NewWindow(capacity int, window time.Duration) (*Window, error) {
	if window <= 0 {
		return nil, fmt.Errorf("dedup window must be positive, got %v", window)
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Window{cache: expirable.NewLRU[string, struct{}](capacity, nil, window)}, nil
}

func (w *Window) Seen(id string) bool {
	return w.cache.Contains(id)
}

func (w *Window) Record(id string) {
	w.cache.Add(id, struct{}{})
}

func (w *Window) Len() int {
	return w.cache.Len()
}
