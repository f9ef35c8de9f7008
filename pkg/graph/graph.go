// Package graph derives dependency structure from workflow
// definitions. Dependencies are never declared; they are parsed out of
// each step's input mappings and condition expression, then layered
// into execution groups of mutually independent steps
package graph

import (
	"fmt"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/expr"
	"github.com/kode4food/paisley/pkg/util"
)

type (
	// Plan is the compiled execution structure of a workflow: the
	// dependency graph, the group layering, and the per-step artifacts
	// (parsed references, compiled conditions) reused at run time
	Plan struct {
		Workflow  *api.Workflow
		Groups    [][]api.StepID
		Deps      map[api.StepID]util.Set[api.StepID]
		Providers map[api.Name]api.StepID

		conditions map[api.StepID]*expr.Expr
		inputs     map[api.StepID]map[api.Name]api.Ref
		outputs    map[api.StepID]api.Name
	}

	builder struct {
		wf   *api.Workflow
		plan *Plan
	}
)

// Build compiles a workflow into a Plan. Reference expressions in
// input mappings and conditions are parsed exactly once; a reference
// to an output name no step publishes is a dangling reference, and a
// set of steps that reference each other in a loop is a cycle. Both
// are configuration errors reported before anything executes
func Build(wf *api.Workflow) (*Plan, error) {
	b := &builder{
		wf: wf,
		plan: &Plan{
			Workflow:   wf,
			Deps:       map[api.StepID]util.Set[api.StepID]{},
			Providers:  map[api.Name]api.StepID{},
			conditions: map[api.StepID]*expr.Expr{},
			inputs:     map[api.StepID]map[api.Name]api.Ref{},
			outputs:    map[api.StepID]api.Name{},
		},
	}
	if err := b.collectProviders(); err != nil {
		return nil, err
	}
	if err := b.compileSteps(); err != nil {
		return nil, err
	}
	if err := b.layer(); err != nil {
		return nil, err
	}
	return b.plan, nil
}

// Condition returns the compiled condition for a step, or nil when the
// step is unconditional
func (p *Plan) Condition(id api.StepID) *expr.Expr {
	return p.conditions[id]
}

// InputRefs returns the parsed reference for each mapped parameter of
// a step
func (p *Plan) InputRefs(id api.StepID) map[api.Name]api.Ref {
	return p.inputs[id]
}

// Output returns the output slot name a step publishes to
func (p *Plan) Output(id api.StepID) api.Name {
	return p.outputs[id]
}

func (b *builder) collectProviders() error {
	for _, s := range b.wf.Steps {
		if prev, ok := b.plan.Providers[s.Output]; ok {
			return fmt.Errorf("%w: %q published by steps %d and %d",
				api.ErrDuplicateOutput, s.Output, prev, s.ID)
		}
		b.plan.Providers[s.Output] = s.ID
		b.plan.outputs[s.ID] = s.Output
	}
	return nil
}

func (b *builder) compileSteps() error {
	for _, s := range b.wf.Steps {
		deps := util.Set[api.StepID]{}
		refs := map[api.Name]api.Ref{}
		for name, raw := range s.Inputs {
			ref, err := api.ParseRef(raw)
			if err != nil {
				return fmt.Errorf("step %d: param %q: %w", s.ID, name, err)
			}
			refs[name] = ref
			if err := b.bind(s.ID, ref, deps); err != nil {
				return err
			}
		}
		if s.Condition != "" {
			cond, err := expr.Parse(s.Condition)
			if err != nil {
				return fmt.Errorf(
					"%w: step %d condition: %w", api.ErrCondition, s.ID, err,
				)
			}
			b.plan.conditions[s.ID] = cond
			for _, ref := range cond.Refs() {
				if err := b.bind(s.ID, ref, deps); err != nil {
					return err
				}
			}
		}
		b.plan.Deps[s.ID] = deps
		b.plan.inputs[s.ID] = refs
	}
	return nil
}

// bind resolves a reference to the step providing it. Input and run
// references contribute nothing to the dependency set
func (b *builder) bind(
	id api.StepID, ref api.Ref, deps util.Set[api.StepID],
) error {
	if !ref.IsStep() {
		return nil
	}
	provider, ok := b.plan.Providers[ref.Root]
	if !ok {
		return &api.DanglingRefError{StepID: id, Output: ref.Root}
	}
	deps.Add(provider)
	return nil
}

// layer assigns every step to an execution group by fixpoint rounds:
// each round collects the unscheduled steps whose dependencies are all
// scheduled. A round that makes no progress while steps remain means
// the remainder contains a cycle
func (b *builder) layer() error {
	scheduled := util.Set[api.StepID]{}
	remaining := util.Set[api.StepID]{}
	for _, s := range b.wf.Steps {
		remaining.Add(s.ID)
	}

	for !remaining.IsEmpty() {
		group := util.Set[api.StepID]{}
		for id := range remaining {
			if scheduled.ContainsAll(b.plan.Deps[id]) {
				group.Add(id)
			}
		}
		if group.IsEmpty() {
			return &api.CycleError{Cycle: b.findCycle(remaining)}
		}
		for id := range group {
			scheduled.Add(id)
			remaining.Remove(id)
		}
		b.plan.Groups = append(b.plan.Groups, util.Sorted(group))
	}
	return nil
}

// findCycle walks the unscheduled remainder depth-first and returns
// the first loop it closes. The remainder is non-empty and every step
// in it has at least one unscheduled dependency, so a cycle exists
func (b *builder) findCycle(remaining util.Set[api.StepID]) []api.StepID {
	visited := util.Set[api.StepID]{}
	for _, start := range util.Sorted(remaining) {
		if visited.Contains(start) {
			continue
		}
		onPath := util.Set[api.StepID]{}
		if cycle := b.walkCycle(
			start, remaining, visited, onPath, nil,
		); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (b *builder) walkCycle(
	id api.StepID, remaining, visited, onPath util.Set[api.StepID],
	path []api.StepID,
) []api.StepID {
	visited.Add(id)
	onPath.Add(id)
	path = append(path, id)

	for _, dep := range util.Sorted(b.plan.Deps[id]) {
		if !remaining.Contains(dep) {
			continue
		}
		if onPath.Contains(dep) {
			for i, p := range path {
				if p == dep {
					return path[i:]
				}
			}
		}
		if visited.Contains(dep) {
			continue
		}
		if cycle := b.walkCycle(
			dep, remaining, visited, onPath, path,
		); cycle != nil {
			return cycle
		}
	}
	onPath.Remove(id)
	return nil
}
