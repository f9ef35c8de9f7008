package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
	"github.com/kode4food/paisley/pkg/retry"
	"github.com/kode4food/paisley/pkg/schema"
	"github.com/kode4food/paisley/pkg/util"
)

// execStep drives one step through its lifecycle: cascade check,
// condition gate, input resolution, retried invocation under the step
// timeout, and publication. The returned error is non-nil only when
// the failure must abort the run
func (r *runner) execStep(ctx context.Context, id api.StepID) error {
	step := r.wf.Step(id)
	res := r.results[id]

	if dep, ok := r.unpublishedDep(id); ok {
		r.log.Debug("Step skipped, dependency unpublished",
			log.StepID(id), log.Output(dep))
		return r.skip(step, res, api.SkipDependency)
	}

	if cond := r.plan.Condition(id); cond != nil {
		ok, err := cond.Eval(r.arena)
		if err != nil {
			err = fmt.Errorf("%w: step %d: %w", api.ErrCondition, id, err)
			return r.fail(step, res, err)
		}
		if !ok {
			r.log.Debug("Step skipped, condition false",
				log.StepID(id), slog.String("condition", cond.String()))
			return r.skip(step, res, api.SkipCondition)
		}
	}

	args, err := r.resolveArgs(step)
	if err != nil {
		return r.fail(step, res, err)
	}
	if step.InputSchema != nil {
		report := schema.Validate(
			anyMap(args), step.InputSchema, schema.Strict,
			fmt.Sprintf("steps[%d].input", id),
		)
		if !report.OK() {
			return r.fail(step, res, fmt.Errorf(
				"%w: %s", api.ErrValidation, report,
			))
		}
	}

	if err := setStatus(res, api.StepRunning); err != nil {
		return err
	}
	res.StartedAt = time.Now()
	r.log.Info("Step starting",
		log.StepID(id), log.StepName(step.Name), log.Func(step.Func))
	r.emit(api.StepStartedEvent{
		RunID:  r.runID,
		StepID: id,
		Name:   step.Name,
		Params: args,
	})

	value, attempts, err := r.invoke(ctx, step, args)
	res.Attempts = attempts
	res.Duration = time.Since(res.StartedAt).Milliseconds()
	if err != nil {
		return r.resolveFailure(step, res, err)
	}

	if step.OutputSchema != nil {
		report := schema.Validate(
			value, step.OutputSchema, schema.Lenient, string(step.Output),
		)
		res.Warnings = report.Issues
		for _, issue := range report.Issues {
			r.log.Warn("Step output violation", log.StepID(id),
				slog.String("path", issue.Path),
				slog.String("message", issue.Message))
		}
	}
	return r.complete(step, res, value, false)
}

// unpublishedDep reports the first dependency output the step cannot
// read because its owner skipped, or failed without publishing
func (r *runner) unpublishedDep(id api.StepID) (api.Name, bool) {
	for _, dep := range util.Sorted(r.plan.Deps[id]) {
		name := r.plan.Output(dep)
		if !r.arena.isPublished(name) {
			return name, true
		}
	}
	return "", false
}

func (r *runner) resolveArgs(step *api.Step) (api.Args, error) {
	args := make(api.Args, len(step.Inputs)+len(step.Consts))
	for name, ref := range r.plan.InputRefs(step.ID) {
		v, err := r.arena.Resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: param %q: %w",
				api.ErrStepFailed, step.ID, name, err)
		}
		args[name] = v
	}
	for name, raw := range step.Consts {
		args[name] = gjson.Parse(raw).Value()
	}
	return args, nil
}

// invoke runs the step function through the retry controller under
// the step's deadline. The engine stops waiting at the deadline even
// when the function ignores cancellation
func (r *runner) invoke(
	ctx context.Context, step *api.Step, args api.Args,
) (any, []retry.Attempt, error) {
	ctx = api.WithMetadata(ctx, r.meta)
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(
			ctx, time.Duration(step.Timeout)*time.Millisecond,
		)
		defer cancel()
	}

	fn, _ := r.eng.reg.Lookup(step.Func)
	policy := r.retryPolicy(step)
	return r.eng.controller.Do(ctx, policy,
		func(ctx context.Context) (any, error) {
			return fn(ctx, args)
		},
	)
}

func (r *runner) retryPolicy(step *api.Step) *retry.Policy {
	p := r.eng.resolvePolicy(step.Retry)
	if p == nil {
		return nil
	}
	return &retry.Policy{
		MaxAttempts:   p.MaxAttempts,
		BaseDelay:     p.BaseDelay,
		MaxDelay:      p.MaxDelay,
		Multiplier:    p.Multiplier,
		Jitter:        p.Jitter,
		RetryAll:      p.RetryAll,
		RetryTimeouts: p.RetryTimeouts,
		OnRetry: func(attempt int, err error, delay int64) {
			r.log.Warn("Step retrying",
				log.StepID(step.ID), log.Attempt(attempt),
				log.Error(err), slog.Int64("delay", delay))
			r.emit(api.StepRetryingEvent{
				RunID:   r.runID,
				StepID:  step.ID,
				Name:    step.Name,
				Attempt: attempt,
				Delay:   delay,
				Error:   err.Error(),
			})
		},
	}
}

// resolveFailure applies the step's failure policy once its function
// has failed for good: publish the fallback, leave a hole and
// continue, or abort the run
func (r *runner) resolveFailure(
	step *api.Step, res *api.StepResult, err error,
) error {
	status := api.StepFailed
	if errors.Is(err, context.DeadlineExceeded) {
		status = api.StepTimedOut
		err = fmt.Errorf("%w: step %d: %w", api.ErrStepTimeout, step.ID, err)
	} else {
		err = fmt.Errorf("%w: step %d: %w", api.ErrStepFailed, step.ID, err)
	}

	if step.HasFallback() {
		r.log.Warn("Step falling back",
			log.StepID(step.ID), log.Error(err))
		return r.complete(step, res, gjson.Parse(step.Fallback).Value(), true)
	}

	if err := setStatus(res, status); err != nil {
		return err
	}
	res.Error = err.Error()
	r.log.Error("Step failed", log.StepID(step.ID),
		log.Status(res.Status), log.Error(err),
		log.Duration(res.Duration))
	r.emit(api.StepFailedEvent{
		RunID:    r.runID,
		StepID:   step.ID,
		Name:     step.Name,
		Status:   res.Status,
		Error:    res.Error,
		Attempts: len(res.Attempts),
		Duration: res.Duration,
	})

	if step.Policy() == api.FailContinue {
		return nil
	}
	return fmt.Errorf("%w: %w", api.ErrRunAborted, err)
}

// fail handles failures of a step that never started running. The
// fallback does not apply; only the failure policy does
func (r *runner) fail(
	step *api.Step, res *api.StepResult, err error,
) error {
	if err := setStatus(res, api.StepFailed); err != nil {
		return err
	}
	res.Error = err.Error()
	r.log.Error("Step failed",
		log.StepID(step.ID), log.Error(err))
	r.emit(api.StepFailedEvent{
		RunID:  r.runID,
		StepID: step.ID,
		Name:   step.Name,
		Status: api.StepFailed,
		Error:  res.Error,
	})
	if step.Policy() == api.FailContinue {
		return nil
	}
	return fmt.Errorf("%w: %w", api.ErrRunAborted, err)
}

func (r *runner) skip(
	step *api.Step, res *api.StepResult, reason api.SkipReason,
) error {
	if err := setStatus(res, api.StepSkipped); err != nil {
		return err
	}
	res.SkipReason = reason
	r.emit(api.StepSkippedEvent{
		RunID:  r.runID,
		StepID: step.ID,
		Name:   step.Name,
		Reason: reason,
	})
	return nil
}

func (r *runner) complete(
	step *api.Step, res *api.StepResult, value any, fallback bool,
) error {
	if err := setStatus(res, api.StepCompleted); err != nil {
		return err
	}
	res.Output = value
	res.FallbackUsed = fallback
	r.arena.publish(step.Output, value)
	r.log.Info("Step completed",
		log.StepID(step.ID), log.Output(step.Output),
		log.Duration(res.Duration))
	r.emit(api.StepCompletedEvent{
		RunID:        r.runID,
		StepID:       step.ID,
		Name:         step.Name,
		Output:       step.Output,
		FallbackUsed: fallback,
		Attempts:     len(res.Attempts),
		Duration:     res.Duration,
	})
	return nil
}
