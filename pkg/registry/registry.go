// Package registry maps stable names to invocable step functions. The
// engine looks steps up by name at run time, so a registry is the
// seam where callers plug in native Go functions, Lua scripts, or
// remote HTTP endpoints
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// Func is an invocable step function. It receives the deadline
	// context of the invoking step along with its resolved arguments,
	// and returns the value published to the step's output slot
	Func func(context.Context, api.Args) (any, error)

	// Registry resolves step function names. Lookup is called
	// concurrently by running steps
	Registry interface {
		Lookup(api.Name) (Func, bool)
		Register(api.Name, Func) error
		Names() []api.Name
	}

	// Map is the standard in-memory Registry
	Map struct {
		mu    sync.RWMutex
		funcs map[api.Name]Func
	}
)

var (
	ErrNilFunc           = errors.New("step function must not be nil")
	ErrAlreadyRegistered = errors.New("step function already registered")
)

var _ Registry = (*Map)(nil)

// NewMap creates an empty function registry
func NewMap() *Map {
	return &Map{
		funcs: map[api.Name]Func{},
	}
}

// Register binds a name to a function. Rebinding a name is an error;
// registries are assembled once and treated as read-only afterward
func (m *Map) Register(name api.Name, fn Func) error {
	if fn == nil {
		return fmt.Errorf("%w: %q", ErrNilFunc, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.funcs[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	m.funcs[name] = fn
	return nil
}

// Lookup resolves a name to its registered function
func (m *Map) Lookup(name api.Name) (Func, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.funcs[name]
	return fn, ok
}

// Names returns the registered names in ascending order
func (m *Map) Names() []api.Name {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]api.Name, 0, len(m.funcs))
	for name := range m.funcs {
		res = append(res, name)
	}
	slices.Sort(res)
	return res
}
