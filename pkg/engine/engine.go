// Package engine schedules and executes workflow plans. Steps within
// an execution group run concurrently under a bounded worker limit;
// groups run strictly in order, so a step only ever reads output
// slots that settled in an earlier group
package engine

import (
	"log/slog"

	"github.com/kode4food/paisley/internal/config"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/registry"
	"github.com/kode4food/paisley/pkg/retry"
)

type (
	// Engine executes workflow definitions against a step-function
	// registry. An Engine is safe for concurrent runs; all per-run
	// state lives in the run itself
	Engine struct {
		reg        registry.Registry
		log        *slog.Logger
		controller *retry.Controller
		retryDefs  api.RetryPolicy
		workers    int
	}

	// Option configures an Engine
	Option func(*Engine)
)

// New creates an engine over the given function registry
func New(reg registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:     reg,
		log:     slog.Default(),
		workers: config.DefaultMaxWorkers,
		retryDefs: api.RetryPolicy{
			BaseDelay:  config.DefaultRetryBaseDelay,
			MaxDelay:   config.DefaultRetryMaxDelay,
			Multiplier: config.DefaultRetryMultiplier,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.controller == nil {
		e.controller = retry.New()
	}
	return e
}

// WithLogger replaces the engine logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithWorkers bounds how many steps of one group run at once
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRetryDefaults replaces the values used to fill zero-valued
// numeric fields of step retry policies. Steps without a policy are
// still never retried
func WithRetryDefaults(p api.RetryPolicy) Option {
	return func(e *Engine) {
		e.retryDefs = p
	}
}

// WithClassifier builds the retry controller around a custom error
// classifier
func WithClassifier(cl retry.Classifier) Option {
	return func(e *Engine) {
		e.controller = retry.New(retry.WithClassifier(cl))
	}
}

// WithController replaces the retry controller outright, which lets
// tests stub the backoff sleep
func WithController(c *retry.Controller) Option {
	return func(e *Engine) {
		e.controller = c
	}
}

// resolvePolicy merges a step's declared retry policy with the engine
// defaults. A step without a policy runs exactly once
func (e *Engine) resolvePolicy(p *api.RetryPolicy) *api.RetryPolicy {
	if p == nil {
		return nil
	}
	res := *p
	if res.BaseDelay == 0 {
		res.BaseDelay = e.retryDefs.BaseDelay
	}
	if res.MaxDelay == 0 {
		res.MaxDelay = e.retryDefs.MaxDelay
	}
	if res.Multiplier == 0 {
		res.Multiplier = e.retryDefs.Multiplier
	}
	return &res
}
