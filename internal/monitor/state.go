package monitor

// State is the loop's lifecycle position. Paused is entered on a
// transient tick failure and left on the next clean tick; the loop
// keeps its cadence throughout.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}
