package events

import (
	"github.com/sirupsen/logrus"
)

// LogSink writes events to a logrus entry at a level matching their severity.
type LogSink struct {
	Entry *logrus.Entry
}

func (s LogSink) Emit(e Event) {
	entry := s.Entry.WithField("event", string(e.Kind))
	if e.Subreddit != "" {
		entry = entry.WithField("subreddit", e.Subreddit)
	}
	switch e.Kind {
	case Fatal, NotifyFailed:
		entry.Error(e.Message())
	case ConnectionLost, SubredditNotFound, Timeout, HTTPError:
		entry.Warn(e.Message())
	default:
		entry.Info(e.Message())
	}
}
