package checkout

// State is the lifecycle state of a checkout reconciliation.
type State string

const (
	StateLoading    State = "loading"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid checks if the state is known.
func (s State) IsValid() bool {
	switch s {
	case StateLoading, StateProcessing, StateSuccess, StateError:
		return true
	}
	return false
}

// IsTerminal returns true once no further automatic transition can happen.
func (s State) IsTerminal() bool {
	return s == StateSuccess
}

// transitions defines valid state transitions.
var transitions = map[State][]State{
	StateLoading:    {StateProcessing, StateSuccess, StateError},
	StateProcessing: {StateSuccess, StateLoading}, // Manual retry once exhausted
	StateSuccess:    {},             // Terminal state
	StateError:      {StateLoading}, // Manual retry
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, a := range transitions[s] {
		if a == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all allowed transitions from the current state.
func (s State) AllowedTransitions() []State {
	allowed := transitions[s]
	result := make([]State, len(allowed))
	copy(result, allowed)
	return result
}
