package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/schema"
)

func validStep() *api.Step {
	return &api.Step{
		ID:     1,
		Name:   "fetch-data",
		Func:   "fetch",
		Output: "data",
	}
}

func TestStepValidate(t *testing.T) {
	assert.NoError(t, validStep().Validate())

	full := validStep()
	full.Inputs = map[api.Name]string{"src": "input.url"}
	full.Consts = map[api.Name]string{"limit": "10"}
	full.Condition = "input.enabled == true"
	full.Retry = &api.RetryPolicy{MaxAttempts: 3, BaseDelay: 100}
	full.Timeout = 5000
	full.Fallback = `{"cached": true}`
	full.OnFailure = api.FailContinue
	assert.NoError(t, full.Validate())
}

func TestStepValidateRejects(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*api.Step)
		expected error
	}{
		{"zero id", func(s *api.Step) {
			s.ID = 0
		}, api.ErrInvalidStepID},
		{"negative id", func(s *api.Step) {
			s.ID = -3
		}, api.ErrInvalidStepID},
		{"missing name", func(s *api.Step) {
			s.Name = ""
		}, api.ErrStepNameRequired},
		{"missing func", func(s *api.Step) {
			s.Func = ""
		}, api.ErrFuncRequired},
		{"missing output", func(s *api.Step) {
			s.Output = ""
		}, api.ErrOutputRequired},
		{"dotted output", func(s *api.Step) {
			s.Output = "data.value"
		}, api.ErrInvalidOutputName},
		{"reserved input output", func(s *api.Step) {
			s.Output = "input"
		}, api.ErrReservedOutput},
		{"reserved run output", func(s *api.Step) {
			s.Output = "run"
		}, api.ErrReservedOutput},
		{"bad param name", func(s *api.Step) {
			s.Inputs = map[api.Name]string{"1bad": "input.x"}
		}, api.ErrInvalidParamName},
		{"bad input ref", func(s *api.Step) {
			s.Inputs = map[api.Name]string{"src": "input..url"}
		}, api.ErrInvalidRef},
		{"const and input collide", func(s *api.Step) {
			s.Inputs = map[api.Name]string{"x": "input.x"}
			s.Consts = map[api.Name]string{"x": "1"}
		}, api.ErrDuplicateParam},
		{"const not json", func(s *api.Step) {
			s.Consts = map[api.Name]string{"x": "{broken"}
		}, api.ErrInvalidConst},
		{"fallback not json", func(s *api.Step) {
			s.Fallback = "{broken"
		}, api.ErrInvalidFallback},
		{"negative timeout", func(s *api.Step) {
			s.Timeout = -1
		}, api.ErrInvalidTimeout},
		{"unknown failure policy", func(s *api.Step) {
			s.OnFailure = "explode"
		}, api.ErrInvalidFailurePolicy},
		{"bad retry policy", func(s *api.Step) {
			s.Retry = &api.RetryPolicy{MaxAttempts: -1}
		}, api.ErrInvalidRetryPolicy},
		{"bad input schema", func(s *api.Step) {
			s.InputSchema = &schema.Schema{Type: "mystery"}
		}, api.ErrInvalidSchema},
		{"bad output schema", func(s *api.Step) {
			s.OutputSchema = &schema.Schema{Pattern: "(oops"}
		}, api.ErrInvalidSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStep()
			tt.mutate(s)
			err := s.Validate()
			assert.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.ErrorIs(t, err, api.ErrConfiguration)
		})
	}
}

func TestStepPolicy(t *testing.T) {
	as := assert.New(t)

	s := validStep()
	as.Equal(api.FailAbort, s.Policy())
	s.OnFailure = api.FailContinue
	as.Equal(api.FailContinue, s.Policy())

	as.False(s.HasFallback())
	s.Fallback = "null"
	as.True(s.HasFallback())
}

func TestRetryPolicyValidate(t *testing.T) {
	as := assert.New(t)

	as.NoError((&api.RetryPolicy{}).Validate())
	as.NoError((&api.RetryPolicy{
		MaxAttempts: 5, BaseDelay: 100, MaxDelay: 1000, Multiplier: 2,
	}).Validate())

	as.ErrorIs((&api.RetryPolicy{MaxAttempts: -1}).Validate(),
		api.ErrInvalidRetryPolicy)
	as.ErrorIs((&api.RetryPolicy{BaseDelay: -5}).Validate(),
		api.ErrInvalidRetryPolicy)
	as.ErrorIs((&api.RetryPolicy{
		BaseDelay: 500, MaxDelay: 100,
	}).Validate(), api.ErrInvalidRetryPolicy)
	as.ErrorIs((&api.RetryPolicy{Multiplier: -2}).Validate(),
		api.ErrInvalidRetryPolicy)
}
