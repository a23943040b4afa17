package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassista/posdit/internal/dedup"
	"github.com/bassista/posdit/internal/domain"
	"github.com/bassista/posdit/internal/events"
	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/matcher"
	"github.com/bassista/posdit/internal/notifier"
)

// PollInterval is the fixed wait between sweeps and the retry delay after a
// recoverable error.
const PollInterval = 60 * time.Second

// What to do when a watched subreddit does not exist.
const (
	OnMissingHalt = "halt" // stop monitoring altogether
	OnMissingSkip = "skip" // retire that spec for the rest of the run
)

// WatchSource supplies a consistent copy of the watch list for each sweep.
type WatchSource interface {
	Snapshot() (destination string, specs []domain.WatchSpec)
}

// revisioned is implemented by sources that stamp every edit, such as the
// registry. Without it, edits are detected by comparing snapshots.
type revisioned interface {
	GetLastUpdate() int64
}

// Options tunes a PollScheduler.
type Options struct {
	// OnMissingSubreddit is OnMissingHalt (default) or OnMissingSkip.
	OnMissingSubreddit string
	// StartPaused boots the loop with the pause gate closed.
	StartPaused bool

	interval time.Duration
}

// Status is a point-in-time view of the loop for the host application.
type Status struct {
	State  State  `json:"state"`
	Status string `json:"status"`
	Paused bool   `json:"paused"`
	Seen   int    `json:"seen"`
}

type sweepResult int

const (
	sweepDone sweepResult = iota
	sweepStopped
	sweepFatal
)

// PollScheduler repeatedly sweeps the watch list: it fetches each spec's
// listing, notifies once per new matching item and reports everything it
// observes as events. Failures never escape the loop; they become events.
//
// The loop is the only writer of the dedup store and of the fields below
// the "loop-owned" marker. The host talks to it through the registry,
// Pause/Resume and the event sink.
type PollScheduler struct {
	registry WatchSource
	fetcher  domain.Fetcher
	notifier notifier.Notifier
	seen     dedup.Store
	sink     events.Sink
	gate     *Gate
	interval time.Duration
	halt     bool
	now      func() time.Time

	running atomic.Bool

	mu     sync.RWMutex
	state  State
	status string

	// loop-owned
	reconnect          bool
	connectedAnnounced bool
	retired            map[domain.WatchSpec]struct{}
	lastSpecs          []domain.WatchSpec
	lastRevision       int64
	patterns           map[string]matcher.Pattern
}

func NewPollScheduler(
	registry WatchSource,
	fetcher domain.Fetcher,
	n notifier.Notifier,
	seen dedup.Store,
	sink events.Sink,
	opts Options,
) (*PollScheduler, error) {
	if registry == nil || fetcher == nil || n == nil || seen == nil {
		return nil, errors.New("registry, fetcher, notifier and dedup store are required")
	}
	if sink == nil {
		sink = events.Discard
	}

	halt := true
	switch opts.OnMissingSubreddit {
	case "", OnMissingHalt:
	case OnMissingSkip:
		halt = false
	default:
		return nil, fmt.Errorf("unknown missing-subreddit policy: %s (use '%s' or '%s')", opts.OnMissingSubreddit, OnMissingHalt, OnMissingSkip)
	}

	interval := opts.interval
	if interval <= 0 {
		interval = PollInterval
	}

	return &PollScheduler{
		registry: registry,
		fetcher:  fetcher,
		notifier: n,
		seen:     seen,
		sink:     sink,
		gate:     NewGate(opts.StartPaused),
		interval: interval,
		halt:     halt,
		now:      time.Now,
		state:    Idle,
		retired:  map[domain.WatchSpec]struct{}{},
		patterns: map[string]matcher.Pattern{},
	}, nil
}

// Start runs the loop in a goroutine. The returned channel is closed when
// the loop has exited, either because ctx ended or because it went Fatal.
func (s *PollScheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// Run blocks until ctx is cancelled or the loop reaches Fatal.
// Only one Run may be active at a time; extra calls return immediately.
func (s *PollScheduler) Run(ctx context.Context) {
	log := logger.WithComponent("sched")
	if !s.running.CompareAndSwap(false, true) {
		log.Warn("poll scheduler already running")
		return
	}
	defer s.running.Store(false)

	log.Infof("starting poll scheduler with interval: %v", s.interval)
	if s.gate.Paused() {
		s.emit(events.Event{Kind: events.Paused})
	}
	s.setState(Connecting)

	for {
		if !s.waitUnpaused(ctx) {
			break
		}

		destination, specs := s.registry.Snapshot()
		if destination == "" {
			s.fatal(events.Event{Reason: "no destination address configured"})
			return
		}
		s.forgetRetired(specs)

		switch s.sweep(ctx, destination, specs) {
		case sweepStopped:
			s.stopped()
			return
		case sweepFatal:
			return
		}

		s.setState(Backoff)
		if !s.backoff(ctx) {
			break
		}

		if s.reconnect || !s.connectedAnnounced {
			s.setState(Connecting)
		} else {
			s.setState(Polling)
		}
	}
	s.stopped()
}

// sweep processes every spec once, in snapshot order.
func (s *PollScheduler) sweep(ctx context.Context, destination string, specs []domain.WatchSpec) sweepResult {
	log := logger.WithComponent("sched")
	log.Debugf("sweep started: %d specs", len(specs))

	fetched, failures := 0, 0
	for _, spec := range specs {
		if ctx.Err() != nil || !s.waitUnpaused(ctx) {
			return sweepStopped
		}
		if _, gone := s.retired[spec]; gone {
			continue
		}

		items, err := s.fetcher.Fetch(ctx, spec.Subreddit, spec.Listing)
		if err != nil {
			if ctx.Err() != nil {
				return sweepStopped
			}
			log.Debugf("fetch %s failed: %v", spec, err)

			switch {
			case errors.Is(err, domain.ErrSubredditNotFound):
				s.emit(events.Event{Kind: events.SubredditNotFound, Subreddit: spec.Subreddit, Keyword: spec.Keyword})
				if s.halt {
					s.setStatus(events.StatusDown)
					s.fatal(events.Event{Subreddit: spec.Subreddit, Reason: fmt.Sprintf("subreddit %s does not exist", spec.Subreddit)})
					return sweepFatal
				}
				s.retired[spec] = struct{}{}
				failures++
			case errors.Is(err, domain.ErrConnectivity):
				s.disconnected()
				return sweepDone
			case errors.Is(err, domain.ErrTimeout):
				s.emit(events.Event{Kind: events.Timeout, Subreddit: spec.Subreddit})
				failures++
			default:
				s.emit(events.Event{Kind: events.HTTPError, Subreddit: spec.Subreddit, Reason: err.Error()})
				failures++
			}
			continue
		}

		s.connected()
		fetched++

		if !s.process(ctx, destination, spec, items) {
			return sweepStopped
		}
	}

	if fetched > 0 && failures == 0 {
		s.setStatus(events.StatusUp)
	}
	log.Debugf("sweep completed: %d fetched, %d failed", fetched, failures)
	return sweepDone
}

// process notifies on every new item of one listing whose title matches.
// It returns false if ctx ended mid-way.
func (s *PollScheduler) process(ctx context.Context, destination string, spec domain.WatchSpec, items []domain.Item) bool {
	pattern := s.pattern(spec.Keyword)
	for _, item := range items {
		if s.seen.Seen(item.ID) || !pattern.Matches(item.Title) {
			continue
		}

		if err := s.notifier.Notify(ctx, destination, item, spec); err != nil {
			if ctx.Err() != nil {
				return false
			}
			// not recorded: the next sweep retries it
			s.emit(events.Event{Kind: events.NotifyFailed, Subreddit: spec.Subreddit, Keyword: spec.Keyword, Title: item.Title, Reason: err.Error()})
			continue
		}

		s.seen.Record(item.ID)
		s.emit(events.Event{
			Kind:      events.MatchFound,
			Subreddit: spec.Subreddit,
			Keyword:   spec.Keyword,
			Title:     item.Title,
			URL:       item.URL,
			Permalink: item.Permalink,
		})
	}
	return true
}

func (s *PollScheduler) pattern(keyword string) matcher.Pattern {
	p, ok := s.patterns[keyword]
	if !ok {
		p = matcher.Compile(keyword)
		s.patterns[keyword] = p
	}
	return p
}

// connected records a successful fetch. The first success after an outage
// announces the reconnection; the first of each up-period announces the
// connection.
func (s *PollScheduler) connected() {
	if s.reconnect {
		s.reconnect = false
		s.emit(events.Event{Kind: events.Reconnecting})
	}
	if !s.connectedAnnounced {
		s.connectedAnnounced = true
		s.emit(events.Event{Kind: events.Connected})
	}
	s.setState(Polling)
}

// forgetRetired gives specs retired under the skip policy another chance
// once the watch list has been edited.
func (s *PollScheduler) forgetRetired(specs []domain.WatchSpec) {
	var rev int64
	if r, ok := s.registry.(revisioned); ok {
		rev = r.GetLastUpdate()
	}
	if rev == s.lastRevision && slices.Equal(specs, s.lastSpecs) {
		return
	}
	s.lastRevision, s.lastSpecs = rev, specs
	if len(s.retired) > 0 {
		logger.WithComponent("sched").Debugf("watch list changed, un-retiring %d specs", len(s.retired))
		clear(s.retired)
	}
}

// disconnected enters a disconnected period. Repeated failures within the
// same period are not re-announced.
func (s *PollScheduler) disconnected() {
	if s.reconnect {
		logger.WithComponent("sched").Debug("still disconnected")
		return
	}
	s.reconnect = true
	s.connectedAnnounced = false
	s.emit(events.Event{Kind: events.ConnectionLost})
	s.setStatus(events.StatusDown)
}

// backoff waits one interval. Time spent paused does not count towards it.
// It returns false if ctx ended.
func (s *PollScheduler) backoff(ctx context.Context) bool {
	remaining := s.interval
	for remaining > 0 {
		paused, changed := s.gate.state()
		if paused {
			if !s.waitUnpaused(ctx) {
				return false
			}
			continue
		}

		started := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
			return true
		case <-changed:
			timer.Stop()
			remaining -= time.Since(started)
		}
	}
	return ctx.Err() == nil
}

// waitUnpaused blocks while the gate is closed, reporting Paused meanwhile.
func (s *PollScheduler) waitUnpaused(ctx context.Context) bool {
	if !s.gate.Paused() {
		return ctx.Err() == nil
	}
	prev := s.State()
	s.setState(Paused)
	if err := s.gate.Wait(ctx); err != nil {
		return false
	}
	s.setState(prev)
	return true
}

func (s *PollScheduler) fatal(e events.Event) {
	e.Kind = events.Fatal
	s.setState(Fatal)
	s.emit(e)
	logger.WithComponent("sched").Errorf("poll scheduler stopped: %s", e.Reason)
}

func (s *PollScheduler) stopped() {
	s.setState(Idle)
	logger.WithComponent("sched").Info("poll scheduler stopped")
}

// Pause stops fetching before the next request and freezes the backoff timer.
func (s *PollScheduler) Pause() {
	if s.gate.Pause() {
		s.emit(events.Event{Kind: events.Paused})
	}
}

// Resume lifts a pause.
func (s *PollScheduler) Resume() {
	if s.gate.Resume() {
		s.emit(events.Event{Kind: events.Resumed})
	}
}

// State returns the loop's current state.
func (s *PollScheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a snapshot for the host application.
func (s *PollScheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:  s.state,
		Status: s.status,
		Paused: s.gate.Paused(),
		Seen:   s.seen.Len(),
	}
}

func (s *PollScheduler) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev != st {
		logger.WithComponent("sched").Tracef("state %s -> %s", prev, st)
	}
}

// setStatus emits StatusChanged only when the status actually changes.
func (s *PollScheduler) setStatus(status string) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()
	if changed {
		s.emit(events.Event{Kind: events.StatusChanged, Status: status})
	}
}

func (s *PollScheduler) emit(e events.Event) {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	s.sink.Emit(e)
}
