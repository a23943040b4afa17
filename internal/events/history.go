package events

import "sync"

// DefaultHistorySize is how many events History keeps when no size is given.
const DefaultHistorySize = 10000

// History keeps the most recent events in a ring buffer.
type History struct {
	mu   sync.RWMutex
	buf  []Event
	next int
	full bool
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{buf: make([]Event, size)}
}

func (h *History) Emit(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = e
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns up to limit events, oldest first. limit <= 0 returns all.
func (h *History) Recent(limit int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ordered []Event
	if h.full {
		ordered = append(ordered, h.buf[h.next:]...)
	}
	ordered = append(ordered, h.buf[:h.next]...)

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}
