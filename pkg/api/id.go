package api

// StepID uniquely identifies a step within a workflow. IDs are
// assigned by the workflow author and must be positive
type StepID int64

// Time quantities in definition and policy fields are expressed in
// milliseconds
const (
	Second = int64(1000)
	Minute = 60 * Second
)
