package engine

import (
	"errors"
	"fmt"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/util"
)

// StateTransitions maps states to their set of valid next states
type StateTransitions[T comparable] map[T]util.Set[T]

// ErrBadTransition marks a status change the state machine forbids.
// Surfacing one is an engine defect, not a workflow defect
var ErrBadTransition = errors.New("invalid status transition")

// Failures before a step starts running (unresolvable input, broken
// condition) move Pending straight to Failed without passing through
// Running; fallbacks only resolve failures of a running step
var stepTransitions = StateTransitions[api.StepStatus]{
	api.StepPending: util.SetOf(
		api.StepRunning,
		api.StepSkipped,
		api.StepFailed,
	),
	api.StepRunning: util.SetOf(
		api.StepCompleted,
		api.StepFailed,
		api.StepTimedOut,
	),
	api.StepCompleted: {},
	api.StepFailed:    {},
	api.StepSkipped:   {},
	api.StepTimedOut:  {},
}

// CanTransition returns whether transition from one state to another
// is valid
func (t StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}

func setStatus(res *api.StepResult, to api.StepStatus) error {
	if !stepTransitions.CanTransition(res.Status, to) {
		return fmt.Errorf("%w: step %d: %s -> %s",
			ErrBadTransition, res.ID, res.Status, to)
	}
	res.Status = to
	return nil
}
