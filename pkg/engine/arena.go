package engine

import (
	"encoding/json"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/expr"
	"github.com/kode4food/paisley/pkg/graph"
)

type (
	// arena is the run-scoped execution context: the immutable raw
	// input and run metadata, plus one pre-declared slot per output
	// name. Each slot is written exactly once by its owning step.
	// Writes happen in the owner's goroutine; reads happen only from
	// later groups, after the owning group has fully settled, so no
	// locking is needed
	arena struct {
		input []byte
		meta  []byte
		slots map[api.Name]*slot
	}

	slot struct {
		value     any
		raw       []byte
		published bool
	}
)

var _ expr.Resolver = (*arena)(nil)

func newArena(
	plan *graph.Plan, input map[string]any, meta api.Metadata,
) (*arena, error) {
	inputDoc, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	metaDoc, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	slots := make(map[api.Name]*slot, len(plan.Providers))
	for name := range plan.Providers {
		slots[name] = &slot{}
	}
	return &arena{
		input: inputDoc,
		meta:  metaDoc,
		slots: slots,
	}, nil
}

// Resolve looks a reference up in its namespace. An unpublished slot
// or a path that walks off the data is a resolution error, never a
// silent nil
func (a *arena) Resolve(ref api.Ref) (any, error) {
	switch {
	case ref.IsInput():
		return a.lookup(ref, a.input)
	case ref.IsRun():
		return a.lookup(ref, a.meta)
	}
	s, ok := a.slots[ref.Root]
	if !ok || !s.published {
		return nil, &expr.ResolveError{Ref: ref}
	}
	if ref.Path == "" {
		return s.value, nil
	}
	return a.lookup(ref, s.raw)
}

func (a *arena) lookup(ref api.Ref, doc []byte) (any, error) {
	v, ok := ref.Lookup(doc)
	if !ok {
		return nil, &expr.ResolveError{Ref: ref}
	}
	return v, nil
}

// publish writes a value into its owned slot. The raw form feeds
// gjson path lookups by later steps
func (a *arena) publish(name api.Name, value any) {
	s := a.slots[name]
	raw, err := json.Marshal(value)
	if err != nil {
		raw = nil
	}
	s.value = value
	s.raw = raw
	s.published = true
}

func (a *arena) isPublished(name api.Name) bool {
	s, ok := a.slots[name]
	return ok && s.published
}

// context assembles the published slots into the final run context
func (a *arena) context() map[api.Name]any {
	res := map[api.Name]any{}
	for name, s := range a.slots {
		if s.published {
			res[name] = s.value
		}
	}
	return res
}
