package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
)

func TestStepStatusTerminal(t *testing.T) {
	as := assert.New(t)

	for _, s := range []api.StepStatus{
		api.StepCompleted, api.StepSkipped,
		api.StepFailed, api.StepTimedOut,
	} {
		as.True(s.IsTerminal(), string(s))
	}
	as.False(api.StepPending.IsTerminal())
	as.False(api.StepRunning.IsTerminal())
}

func TestRunResultStepLookup(t *testing.T) {
	as := assert.New(t)

	res := &api.RunResult{
		Steps: []*api.StepResult{
			{ID: 1, Status: api.StepCompleted},
			{ID: 2, Status: api.StepSkipped},
		},
	}
	as.Equal(api.StepSkipped, res.Step(2).Status)
	as.Nil(res.Step(7))
}
