package events

import (
	honeybadger "github.com/honeybadger-io/honeybadger-go"
)

// HoneybadgerSink reports fatal events. Other kinds are ignored.
// The honeybadger client must already be configured.
type HoneybadgerSink struct {
	notify func(err interface{}, extra ...interface{}) (string, error)
}

func NewHoneybadgerSink() *HoneybadgerSink {
	return &HoneybadgerSink{notify: honeybadger.Notify}
}

func (s *HoneybadgerSink) Emit(e Event) {
	if e.Kind != Fatal {
		return
	}
	_, _ = s.notify("monitor stopped: "+e.Reason,
		honeybadger.Context{"subreddit": e.Subreddit, "time": e.Time.String()},
		honeybadger.Tags{"monitor", "fatal"})
}
