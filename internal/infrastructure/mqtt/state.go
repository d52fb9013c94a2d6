package mqtt

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StatePublishing
	StateSubscribing
	StateListening
	StateDisconnecting
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:          "idle",
	StateConnecting:    "connecting",
	StateConnected:     "connected",
	StatePublishing:    "publishing",
	StateSubscribing:   "subscribing",
	StateListening:     "listening",
	StateDisconnecting: "disconnecting",
	StateClosed:        "closed",
	StateFailed:        "failed",
}

// String returns the lower-case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
