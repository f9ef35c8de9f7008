package api

import (
	"fmt"

	"github.com/kode4food/paisley/pkg/schema"
)

// Workflow is a complete executable definition supplied as data. The
// input schema, when present, is validated strictly against the run
// input before any step executes; the output schema is validated
// leniently against the published context once the run settles
type Workflow struct {
	Name     string         `json:"name" yaml:"name"`
	Steps    []*Step        `json:"steps" yaml:"steps"`
	Input    *schema.Schema `json:"input,omitempty" yaml:"input,omitempty"`
	Output   *schema.Schema `json:"output,omitempty" yaml:"output,omitempty"`
	Metadata Metadata       `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks every step definition plus the cross-step rules
// that need no reference binding: unique step IDs and unique output
// names. A workflow without steps is valid and runs to an empty
// result
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return ErrWorkflowNameRequired
	}
	if err := w.Input.Check(); err != nil {
		return fmt.Errorf("%w: input schema: %w", ErrInvalidSchema, err)
	}
	if err := w.Output.Check(); err != nil {
		return fmt.Errorf("%w: output schema: %w", ErrInvalidSchema, err)
	}
	ids := make(map[StepID]bool, len(w.Steps))
	outputs := make(map[Name]StepID, len(w.Steps))
	for _, s := range w.Steps {
		if err := s.Validate(); err != nil {
			return err
		}
		if ids[s.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateStepID, s.ID)
		}
		ids[s.ID] = true
		if prev, ok := outputs[s.Output]; ok {
			return fmt.Errorf("%w: %q published by steps %d and %d",
				ErrDuplicateOutput, s.Output, prev, s.ID)
		}
		outputs[s.Output] = s.ID
	}
	return nil
}

// Step returns the step with the given ID, or nil when absent
func (w *Workflow) Step(id StepID) *Step {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}
