package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/graph"
	"github.com/kode4food/paisley/pkg/log"
	"github.com/kode4food/paisley/pkg/schema"
)

type (
	// RunOption configures a single run
	RunOption func(*runner)

	// runner carries the state of one workflow run
	runner struct {
		eng     *Engine
		wf      *api.Workflow
		plan    *graph.Plan
		runID   string
		meta    api.Metadata
		obs     []api.Observer
		arena   *arena
		results map[api.StepID]*api.StepResult
		log     *slog.Logger

		mu       sync.Mutex
		abortErr error
	}
)

// WithObservers registers observers notified on every state
// transition of the run
func WithObservers(obs ...api.Observer) RunOption {
	return func(r *runner) {
		r.obs = append(r.obs, obs...)
	}
}

// WithMetadata supplies run-scoped metadata, readable by steps
// through the run namespace
func WithMetadata(meta api.Metadata) RunOption {
	return func(r *runner) {
		r.meta = r.meta.Apply(meta)
	}
}

// WithRunID overrides the generated run identifier
func WithRunID(id string) RunOption {
	return func(r *runner) {
		r.runID = id
	}
}

// Run executes a workflow definition against the given input. The
// returned RunResult always carries the complete per-step audit when
// execution started; configuration and input-validation failures
// surface before any step runs, with a nil result. An aborted run
// returns both the partial result and the aborting error
func (e *Engine) Run(
	ctx context.Context, wf *api.Workflow, input map[string]any,
	opts ...RunOption,
) (*api.RunResult, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	plan, err := graph.Build(wf)
	if err != nil {
		return nil, err
	}
	for _, s := range wf.Steps {
		if _, ok := e.reg.Lookup(s.Func); !ok {
			return nil, fmt.Errorf("%w: step %d: %q",
				api.ErrUnknownFunc, s.ID, s.Func)
		}
	}
	if wf.Input != nil {
		report := schema.Validate(
			anyMap(input), wf.Input, schema.Strict, "input",
		)
		if !report.OK() {
			return nil, fmt.Errorf("%w: %s", api.ErrValidation, report)
		}
	}

	r := &runner{
		eng:     e,
		wf:      wf,
		plan:    plan,
		runID:   uuid.NewString(),
		meta:    wf.Metadata.Apply(nil),
		results: map[api.StepID]*api.StepResult{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.meta[api.MetaRunID] = r.runID
	r.meta[api.MetaWorkflow] = wf.Name
	r.log = e.log.With(log.RunID(r.runID), log.Workflow(wf.Name))

	r.arena, err = newArena(plan, input, r.meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrValidation, err)
	}
	return r.run(ctx)
}

func (r *runner) run(ctx context.Context) (*api.RunResult, error) {
	res := &api.RunResult{
		RunID:     r.runID,
		Workflow:  r.wf.Name,
		StartedAt: time.Now(),
	}
	for _, group := range r.plan.Groups {
		for _, id := range group {
			step := r.wf.Step(id)
			sr := &api.StepResult{
				ID:     id,
				Name:   step.Name,
				Status: api.StepPending,
			}
			r.results[id] = sr
			res.Steps = append(res.Steps, sr)
		}
	}

	r.log.Info("Run starting",
		slog.Int("steps", len(r.wf.Steps)),
		slog.Int("groups", len(r.plan.Groups)))
	r.emit(api.RunStartedEvent{
		RunID:    r.runID,
		Workflow: r.wf.Name,
		Steps:    len(r.wf.Steps),
		Groups:   len(r.plan.Groups),
	})

	for num, group := range r.plan.Groups {
		if r.aborted() != nil {
			break
		}
		r.runGroup(ctx, num, group)
	}

	res.Context = r.arena.context()
	res.Duration = time.Since(res.StartedAt).Milliseconds()
	if r.wf.Output != nil {
		report := schema.Validate(
			anyMap(res.Context), r.wf.Output, schema.Lenient, "output",
		)
		res.Warnings = report.Issues
		for _, issue := range report.Issues {
			r.log.Warn("Output schema violation",
				slog.String("path", issue.Path),
				slog.String("message", issue.Message))
		}
	}

	if err := r.aborted(); err != nil {
		res.Status = api.RunFailed
		res.Error = err.Error()
		r.log.Error("Run failed",
			log.Error(err), log.Duration(res.Duration))
		r.emit(api.RunFailedEvent{
			RunID:    r.runID,
			Workflow: r.wf.Name,
			Error:    res.Error,
			Duration: res.Duration,
		})
		return res, err
	}

	res.Status = api.RunCompleted
	r.log.Info("Run completed", log.Duration(res.Duration))
	r.emit(api.RunCompletedEvent{
		RunID:    r.runID,
		Workflow: r.wf.Name,
		Context:  res.Context,
		Duration: res.Duration,
	})
	return res, nil
}

// runGroup executes one group's steps concurrently under the worker
// limit. The group settles completely before control returns; a step
// failing under the abort policy stops later groups, never its
// siblings
func (r *runner) runGroup(ctx context.Context, num int, group []api.StepID) {
	r.log.Debug("Group starting",
		log.Group(num), slog.Int("steps", len(group)))

	var g errgroup.Group
	g.SetLimit(r.eng.workers)
	for _, id := range group {
		id := id
		g.Go(func() error {
			return r.execStep(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		r.abort(err)
	}
}

func (r *runner) abort(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abortErr == nil {
		r.abortErr = err
	}
}

func (r *runner) aborted() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abortErr
}

// emit dispatches an event to every observer, synchronously in the
// emitting goroutine. Observers own their thread-safety
func (r *runner) emit(e api.Event) {
	for _, o := range r.obs {
		o.HandleEvent(e)
	}
}

func anyMap[K ~string, V any](m map[K]V) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[string(k)] = any(v)
	}
	return res
}
