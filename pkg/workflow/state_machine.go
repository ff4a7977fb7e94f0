package workflow

import "fmt"

// TransitionError reports a move the machine does not allow
type TransitionError struct {
	Machine string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Machine, e.From, e.To)
}

// StateMachine enforces status transitions for a single entity kind
type StateMachine struct {
	name               string
	allowedTransitions map[string][]string
}

// New creates a state machine from an adjacency list of allowed transitions
func New(name string, transitions map[string][]string) *StateMachine {
	return &StateMachine{name: name, allowedTransitions: transitions}
}

// Name returns the entity kind this machine governs
func (sm *StateMachine) Name() string {
	return sm.name
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Check returns a *TransitionError when from -> to is not allowed
func (sm *StateMachine) Check(from, to string) error {
	if sm.CanTransition(from, to) {
		return nil
	}
	return &TransitionError{Machine: sm.Name(), From: from, To: to}
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// IsTerminal reports whether no transition leaves the given status
func (sm *StateMachine) IsTerminal(status string) bool {
	return len(sm.allowedTransitions[status]) == 0
}
