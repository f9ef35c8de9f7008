package api

import (
	"time"

	"github.com/kode4food/paisley/pkg/retry"
	"github.com/kode4food/paisley/pkg/schema"
)

type (
	// StepResult is the audit record of a single step execution.
	// Attempts lists every try including the last, and Warnings
	// carries lenient output-schema findings
	StepResult struct {
		ID           StepID          `json:"id"`
		Name         string          `json:"name"`
		Status       StepStatus      `json:"status"`
		Output       any             `json:"output,omitempty"`
		FallbackUsed bool            `json:"fallback_used,omitempty"`
		SkipReason   SkipReason      `json:"skip_reason,omitempty"`
		Error        string          `json:"error,omitempty"`
		Attempts     []retry.Attempt `json:"attempts,omitempty"`
		Warnings     []schema.Issue  `json:"warnings,omitempty"`
		StartedAt    time.Time       `json:"started_at,omitempty"`
		Duration     int64           `json:"duration,omitempty"`
	}

	// RunResult is the complete outcome of one workflow run. Context
	// holds the published output slots; Steps are ordered by
	// execution group, then by step ID. Warnings carries lenient
	// workflow-output findings
	RunResult struct {
		RunID     string         `json:"run_id"`
		Workflow  string         `json:"workflow"`
		Status    RunStatus      `json:"status"`
		Context   map[Name]any   `json:"context,omitempty"`
		Steps     []*StepResult  `json:"steps"`
		Warnings  []schema.Issue `json:"warnings,omitempty"`
		Error     string         `json:"error,omitempty"`
		StartedAt time.Time      `json:"started_at"`
		Duration  int64          `json:"duration"`
	}
)

// Step returns the result for the given step ID, or nil when absent
func (r *RunResult) Step(id StepID) *StepResult {
	for _, s := range r.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}
