package api

type (
	// RunStatus summarizes a workflow run
	RunStatus string

	// StepStatus represents the current state of a step execution
	StepStatus string

	// FailurePolicy selects how a step failure affects the rest of
	// the run once fallbacks are exhausted
	FailurePolicy string

	// SkipReason records why a step was skipped
	SkipReason string
)

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
	StepTimedOut  StepStatus = "timed_out"
)

const (
	// FailAbort stops the run when the step fails. This is the
	// default policy
	FailAbort FailurePolicy = "abort"

	// FailContinue records the failure, leaves the step's output slot
	// unpublished, and lets the run proceed. Steps depending on the
	// unpublished slot are skipped
	FailContinue FailurePolicy = "continue"
)

const (
	// SkipCondition marks a step whose condition evaluated to false
	SkipCondition SkipReason = "condition_false"

	// SkipDependency marks a step depending on an output slot that
	// was never published
	SkipDependency SkipReason = "dependency_unpublished"
)

// IsTerminal returns true once a step can no longer change status
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepCompleted, StepSkipped, StepFailed, StepTimedOut:
		return true
	}
	return false
}
