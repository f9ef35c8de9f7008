package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/schema"
)

func validWorkflow() *api.Workflow {
	return &api.Workflow{
		Name: "deploy",
		Steps: []*api.Step{
			{ID: 1, Name: "one", Func: "f1", Output: "a"},
			{ID: 2, Name: "two", Func: "f2", Output: "b"},
		},
	}
}

func TestWorkflowValidate(t *testing.T) {
	as := assert.New(t)

	as.NoError(validWorkflow().Validate())
	as.NoError((&api.Workflow{Name: "empty"}).Validate())
}

func TestWorkflowValidateRejects(t *testing.T) {
	as := assert.New(t)

	wf := validWorkflow()
	wf.Name = ""
	as.ErrorIs(wf.Validate(), api.ErrWorkflowNameRequired)

	wf = validWorkflow()
	wf.Steps[1].ID = 1
	as.ErrorIs(wf.Validate(), api.ErrDuplicateStepID)

	wf = validWorkflow()
	wf.Steps[1].Output = "a"
	err := wf.Validate()
	as.ErrorIs(err, api.ErrDuplicateOutput)
	as.Contains(err.Error(), "steps 1 and 2")

	wf = validWorkflow()
	wf.Steps[0].Func = ""
	as.ErrorIs(wf.Validate(), api.ErrFuncRequired)

	wf = validWorkflow()
	wf.Input = &schema.Schema{Type: "mystery"}
	as.ErrorIs(wf.Validate(), api.ErrInvalidSchema)

	wf = validWorkflow()
	wf.Output = &schema.Schema{Pattern: "(oops"}
	as.ErrorIs(wf.Validate(), api.ErrInvalidSchema)
}

func TestWorkflowStepLookup(t *testing.T) {
	as := assert.New(t)

	wf := validWorkflow()
	as.Equal(api.Name("f2"), wf.Step(2).Func)
	as.Nil(wf.Step(99))
}
