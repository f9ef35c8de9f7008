// Package helpers provides test fixtures for engine tests: a
// recording stub registry and workflow definition factories
package helpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/registry"
)

// StubRegistry is a Registry whose functions return canned values and
// record every invocation
type StubRegistry struct {
	*registry.Map
	mu      sync.Mutex
	invoked []api.Name
	args    map[api.Name][]api.Args
}

// NewStubRegistry creates an empty recording registry
func NewStubRegistry() *StubRegistry {
	return &StubRegistry{
		Map:  registry.NewMap(),
		args: map[api.Name][]api.Args{},
	}
}

// Stub registers a function returning a fixed value
func (r *StubRegistry) Stub(name api.Name, value any) *StubRegistry {
	return r.StubFunc(name,
		func(context.Context, api.Args) (any, error) {
			return value, nil
		},
	)
}

// StubError registers a function that always fails
func (r *StubRegistry) StubError(name api.Name, err error) *StubRegistry {
	return r.StubFunc(name,
		func(context.Context, api.Args) (any, error) {
			return nil, err
		},
	)
}

// StubFunc registers an arbitrary function, recording its invocations
func (r *StubRegistry) StubFunc(
	name api.Name, fn registry.Func,
) *StubRegistry {
	wrapped := func(ctx context.Context, args api.Args) (any, error) {
		r.record(name, args)
		return fn(ctx, args)
	}
	if err := r.Register(name, wrapped); err != nil {
		panic(err)
	}
	return r
}

func (r *StubRegistry) record(name api.Name, args api.Args) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoked = append(r.invoked, name)
	r.args[name] = append(r.args[name], args)
}

// Invoked returns the names of every function called, in call order
func (r *StubRegistry) Invoked() []api.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]api.Name, len(r.invoked))
	copy(res, r.invoked)
	return res
}

// Calls returns how many times the named function was called
func (r *StubRegistry) Calls(name api.Name) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.args[name])
}

// ArgsFor returns the arguments of each call to the named function
func (r *StubRegistry) ArgsFor(name api.Name) []api.Args {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]api.Args, len(r.args[name]))
	copy(res, r.args[name])
	return res
}

// NewStep creates a basic step definition
func NewStep(id api.StepID, fn, output api.Name) *api.Step {
	return &api.Step{
		ID:     id,
		Name:   fmt.Sprintf("step-%d-%s", id, uuid.NewString()[:8]),
		Func:   fn,
		Output: output,
	}
}

// NewStepWithInputs creates a step mapping params a, b, ... to the
// given reference expressions
func NewStepWithInputs(
	id api.StepID, fn, output api.Name, refs ...string,
) *api.Step {
	s := NewStep(id, fn, output)
	s.Inputs = map[api.Name]string{}
	for i, ref := range refs {
		s.Inputs[api.Name(rune('a'+i))] = ref
	}
	return s
}

// NewWorkflow creates a named workflow over the given steps
func NewWorkflow(steps ...*api.Step) *api.Workflow {
	return &api.Workflow{
		Name:  "workflow-" + uuid.NewString()[:8],
		Steps: steps,
	}
}
