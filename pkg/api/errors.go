package api

import (
	"errors"
	"fmt"
	"strings"
)

// Top-level error classes. Every error surfaced by the engine wraps
// exactly one of these, so callers can sort failures with errors.Is
var (
	// ErrConfiguration marks a defect in the workflow definition
	// itself, detected before any step runs
	ErrConfiguration = errors.New("invalid workflow configuration")

	// ErrValidation marks data rejected by a declared schema
	ErrValidation = errors.New("validation failed")

	// ErrCondition marks a condition expression that failed to parse
	// or evaluate
	ErrCondition = errors.New("condition error")

	// ErrStepFailed marks a step whose function exhausted its retry
	// budget or failed without one
	ErrStepFailed = errors.New("step failed")

	// ErrStepTimeout marks a step stopped by its engine-enforced
	// deadline
	ErrStepTimeout = errors.New("step timed out")

	// ErrRunAborted marks a run stopped by a step failure under the
	// abort policy
	ErrRunAborted = errors.New("run aborted")
)

// Configuration sub-errors raised while validating definitions
var (
	ErrWorkflowNameRequired = fmt.Errorf(
		"%w: workflow name required", ErrConfiguration)
	ErrInvalidStepID = fmt.Errorf(
		"%w: step id must be positive", ErrConfiguration)
	ErrDuplicateStepID = fmt.Errorf(
		"%w: duplicate step id", ErrConfiguration)
	ErrStepNameRequired = fmt.Errorf(
		"%w: step name required", ErrConfiguration)
	ErrFuncRequired = fmt.Errorf(
		"%w: step function required", ErrConfiguration)
	ErrUnknownFunc = fmt.Errorf(
		"%w: unknown step function", ErrConfiguration)
	ErrOutputRequired = fmt.Errorf(
		"%w: step output name required", ErrConfiguration)
	ErrInvalidOutputName = fmt.Errorf(
		"%w: output name must be a bare identifier", ErrConfiguration)
	ErrReservedOutput = fmt.Errorf(
		"%w: output name is reserved", ErrConfiguration)
	ErrDuplicateOutput = fmt.Errorf(
		"%w: duplicate output name", ErrConfiguration)
	ErrDuplicateParam = fmt.Errorf(
		"%w: param mapped more than once", ErrConfiguration)
	ErrInvalidParamName = fmt.Errorf(
		"%w: param name must be a bare identifier", ErrConfiguration)
	ErrInvalidRef = fmt.Errorf(
		"%w: invalid reference expression", ErrConfiguration)
	ErrInvalidConst = fmt.Errorf(
		"%w: const value is not valid JSON", ErrConfiguration)
	ErrInvalidFallback = fmt.Errorf(
		"%w: fallback value is not valid JSON", ErrConfiguration)
	ErrInvalidTimeout = fmt.Errorf(
		"%w: timeout must not be negative", ErrConfiguration)
	ErrInvalidFailurePolicy = fmt.Errorf(
		"%w: unknown failure policy", ErrConfiguration)
	ErrInvalidSchema = fmt.Errorf(
		"%w: malformed schema", ErrConfiguration)
	ErrInvalidRetryPolicy = fmt.Errorf(
		"%w: malformed retry policy", ErrConfiguration)
	ErrCycle = fmt.Errorf(
		"%w: dependency cycle", ErrConfiguration)
	ErrDanglingRef = fmt.Errorf(
		"%w: reference to unknown output", ErrConfiguration)
	ErrInvalidDefinition = fmt.Errorf(
		"%w: unreadable definition", ErrConfiguration)
	ErrUnknownFormat = fmt.Errorf(
		"%w: unknown definition format", ErrConfiguration)
)

type (
	// CycleError reports a dependency cycle with a concrete witness:
	// each step in Cycle depends on the next, and the last depends on
	// the first
	CycleError struct {
		Cycle []StepID
	}

	// DanglingRefError reports a step referencing an output name no
	// step publishes
	DanglingRefError struct {
		StepID StepID
		Output Name
	}
)

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(ids, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("%s: step %d references %q",
		ErrDanglingRef, e.StepID, e.Output)
}

func (e *DanglingRefError) Unwrap() error {
	return ErrDanglingRef
}
