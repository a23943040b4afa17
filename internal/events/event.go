// Package events carries the poll scheduler's observable behaviour to the
// host application: connection state, matches, errors, pause changes.
package events

import (
	"fmt"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	Connected         Kind = "connected"
	Reconnecting      Kind = "reconnecting"
	ConnectionLost    Kind = "connection-lost"
	SubredditNotFound Kind = "subreddit-not-found"
	Timeout           Kind = "timeout"
	HTTPError         Kind = "http-error"
	StatusChanged     Kind = "status-changed"
	MatchFound        Kind = "match-found"
	NotifyFailed      Kind = "notify-failed"
	Paused            Kind = "paused"
	Resumed           Kind = "resumed"
	Fatal             Kind = "fatal"
)

// Connection status carried by StatusChanged.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// Event is a single observation. Only the fields relevant to Kind are set.
type Event struct {
	Kind      Kind      `json:"kind"`
	Time      time.Time `json:"time"`
	Subreddit string    `json:"subreddit,omitempty"`
	Keyword   string    `json:"keyword,omitempty"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
	Status    string    `json:"status,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Message renders the event as a human readable log line.
func (e Event) Message() string {
	switch e.Kind {
	case Connected:
		return "Connection detected. Connected."
	case Reconnecting:
		return "Connection detected. Reconnecting."
	case ConnectionLost:
		return "No connection detected. Disconnected."
	case SubredditNotFound:
		return fmt.Sprintf("%s subreddit does not exist.", e.Subreddit)
	case Timeout:
		return fmt.Sprintf("Request to %s timed out.", e.Subreddit)
	case HTTPError:
		return fmt.Sprintf("Request to %s failed: %s", e.Subreddit, e.Reason)
	case StatusChanged:
		return fmt.Sprintf("Status: %s.", e.Status)
	case MatchFound:
		return e.Title
	case NotifyFailed:
		return fmt.Sprintf("Notification for %q failed: %s", e.Title, e.Reason)
	case Paused:
		return "Disabled."
	case Resumed:
		return "Enabled."
	case Fatal:
		return fmt.Sprintf("Stopped: %s", e.Reason)
	default:
		return string(e.Kind)
	}
}

// Sink receives events. Emit must not block for long: it is called from the
// poll loop.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Tee forwards every event to each sink in order. Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range out {
			s.Emit(e)
		}
	})
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
