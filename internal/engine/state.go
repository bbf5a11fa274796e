package engine

// State is the lifecycle state of the loaded model.
type State int32

const (
	// StateLoading is the initial state, until the backend finishes Load.
	StateLoading State = iota
	// StateReady is terminal: the model serves Encode until process exit.
	StateReady
	// StateFailed is terminal: loading failed and is never retried.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AllStates returns every state, in lifecycle order.
func AllStates() []State {
	return []State{StateLoading, StateReady, StateFailed}
}
