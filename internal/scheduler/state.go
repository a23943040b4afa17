package scheduler

// State is the poll loop's position in its connect/poll/backoff cycle.
type State int

const (
	Idle State = iota
	Connecting
	Polling
	Backoff
	Paused
	Fatal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Polling:
		return "polling"
	case Backoff:
		return "backoff"
	case Paused:
		return "paused"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
