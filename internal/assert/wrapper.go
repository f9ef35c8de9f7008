package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/schema"
)

// Wrapper wraps testify assertions with engine-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// StepStatus asserts the terminal status of a step in a run result
func (w *Wrapper) StepStatus(
	res *api.RunResult, id api.StepID, expected api.StepStatus,
) {
	w.Helper()
	sr := res.Step(id)
	w.NotNil(sr, "run should carry a result for step %d", id)
	if sr != nil {
		w.Equal(expected, sr.Status, "step %d status", id)
	}
}

// ContextValue asserts that a run published the expected value into
// an output slot
func (w *Wrapper) ContextValue(
	res *api.RunResult, name api.Name, expected any,
) {
	w.Helper()
	val, ok := res.Context[name]
	w.True(ok, "context should hold slot %q", name)
	w.Equal(expected, val)
}

// ContextMissing asserts that an output slot was never published
func (w *Wrapper) ContextMissing(res *api.RunResult, name api.Name) {
	w.Helper()
	_, ok := res.Context[name]
	w.False(ok, "context should not hold slot %q", name)
}

// ReportClean asserts that a validation report carries no issues
func (w *Wrapper) ReportClean(report *schema.Report) {
	w.Helper()
	w.True(report.OK())
	w.Empty(report.Issues)
}

// SingleIssue asserts that a report carries exactly one issue at the
// given path and returns it
func (w *Wrapper) SingleIssue(
	report *schema.Report, path string,
) schema.Issue {
	w.Helper()
	w.Len(report.Issues, 1)
	if len(report.Issues) == 0 {
		return schema.Issue{}
	}
	issue := report.Issues[0]
	w.Equal(path, issue.Path)
	return issue
}

// WorkflowInvalid asserts that a workflow fails validation with an
// error matching the sentinel
func (w *Wrapper) WorkflowInvalid(wf *api.Workflow, sentinel error) {
	w.Helper()
	err := wf.Validate()
	w.Error(err)
	w.ErrorIs(err, sentinel)
}
