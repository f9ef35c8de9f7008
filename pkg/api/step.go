package api

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/kode4food/paisley/pkg/schema"
)

type (
	// Step declares a single unit of work within a workflow. Inputs
	// map parameter names to reference expressions resolved at run
	// time; Consts map parameter names to literal JSON values.
	// Fallback, when present, is a literal JSON value published in
	// place of the step's output when the step fails or times out
	Step struct {
		ID           StepID          `json:"id" yaml:"id"`
		Name         string          `json:"name" yaml:"name"`
		Func         Name            `json:"func" yaml:"func"`
		Output       Name            `json:"output" yaml:"output"`
		Inputs       map[Name]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
		Consts       map[Name]string `json:"consts,omitempty" yaml:"consts,omitempty"`
		Condition    string          `json:"condition,omitempty" yaml:"condition,omitempty"`
		Retry        *RetryPolicy    `json:"retry,omitempty" yaml:"retry,omitempty"`
		Timeout      int64           `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		Fallback     string          `json:"fallback,omitempty" yaml:"fallback,omitempty"`
		OnFailure    FailurePolicy   `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
		InputSchema  *schema.Schema  `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
		OutputSchema *schema.Schema  `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
	}

	// RetryPolicy controls how a failing step is retried. MaxAttempts
	// counts every try including the first; zero or one disables
	// retry. Delays are in milliseconds. Only transient errors are
	// retried unless RetryAll extends retry to unclassified errors or
	// RetryTimeouts extends it to timeouts
	RetryPolicy struct {
		MaxAttempts   int     `json:"max_attempts" yaml:"max_attempts"`
		BaseDelay     int64   `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
		MaxDelay      int64   `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		Multiplier    float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
		Jitter        bool    `json:"jitter,omitempty" yaml:"jitter,omitempty"`
		RetryAll      bool    `json:"retry_all,omitempty" yaml:"retry_all,omitempty"`
		RetryTimeouts bool    `json:"retry_timeouts,omitempty" yaml:"retry_timeouts,omitempty"`
	}
)

// Validate checks the structural soundness of a single step
// definition. Cross-step rules (output uniqueness, reference binding,
// cycles) are enforced when the workflow is planned
func (s *Step) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStepID, s.ID)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: step %d", ErrStepNameRequired, s.ID)
	}
	if s.Func == "" {
		return fmt.Errorf("%w: step %d", ErrFuncRequired, s.ID)
	}
	if err := s.validateOutput(); err != nil {
		return err
	}
	if err := s.validateParams(); err != nil {
		return err
	}
	if s.Fallback != "" && !gjson.Valid(s.Fallback) {
		return fmt.Errorf("%w: step %d: %q",
			ErrInvalidFallback, s.ID, s.Fallback)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: step %d", ErrInvalidTimeout, s.ID)
	}
	switch s.OnFailure {
	case "", FailAbort, FailContinue:
	default:
		return fmt.Errorf("%w: step %d: %q",
			ErrInvalidFailurePolicy, s.ID, s.OnFailure)
	}
	if s.Retry != nil {
		if err := s.Retry.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", s.ID, err)
		}
	}
	if err := s.InputSchema.Check(); err != nil {
		return fmt.Errorf("%w: step %d input schema: %w",
			ErrInvalidSchema, s.ID, err)
	}
	if err := s.OutputSchema.Check(); err != nil {
		return fmt.Errorf("%w: step %d output schema: %w",
			ErrInvalidSchema, s.ID, err)
	}
	return nil
}

// Policy returns the step's failure policy, defaulting to abort
func (s *Step) Policy() FailurePolicy {
	if s.OnFailure == "" {
		return FailAbort
	}
	return s.OnFailure
}

// HasFallback returns true when the step declares a fallback value
func (s *Step) HasFallback() bool {
	return s.Fallback != ""
}

func (s *Step) validateOutput() error {
	if s.Output == "" {
		return fmt.Errorf("%w: step %d", ErrOutputRequired, s.ID)
	}
	if !IsName(s.Output) {
		return fmt.Errorf("%w: step %d: %q",
			ErrInvalidOutputName, s.ID, s.Output)
	}
	if s.Output == InputRoot || s.Output == RunRoot {
		return fmt.Errorf("%w: step %d: %q",
			ErrReservedOutput, s.ID, s.Output)
	}
	return nil
}

func (s *Step) validateParams() error {
	for name, ref := range s.Inputs {
		if !IsName(name) {
			return fmt.Errorf("%w: step %d: %q",
				ErrInvalidParamName, s.ID, name)
		}
		if _, err := ParseRef(ref); err != nil {
			return fmt.Errorf("step %d: param %q: %w", s.ID, name, err)
		}
	}
	for name, val := range s.Consts {
		if !IsName(name) {
			return fmt.Errorf("%w: step %d: %q",
				ErrInvalidParamName, s.ID, name)
		}
		if _, ok := s.Inputs[name]; ok {
			return fmt.Errorf("%w: step %d: %q",
				ErrDuplicateParam, s.ID, name)
		}
		if !gjson.Valid(val) {
			return fmt.Errorf("%w: step %d: param %q",
				ErrInvalidConst, s.ID, name)
		}
	}
	return nil
}

// Validate checks the numeric sanity of a retry policy
func (p *RetryPolicy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts %d",
			ErrInvalidRetryPolicy, p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidRetryPolicy)
	}
	if p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay {
		return fmt.Errorf("%w: base delay %d exceeds max delay %d",
			ErrInvalidRetryPolicy, p.BaseDelay, p.MaxDelay)
	}
	if p.Multiplier < 0 {
		return fmt.Errorf("%w: multiplier %v",
			ErrInvalidRetryPolicy, p.Multiplier)
	}
	return nil
}
