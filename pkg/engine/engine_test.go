package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kode4food/paisley/internal/assert"
	"github.com/kode4food/paisley/internal/assert/helpers"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/engine"
	"github.com/kode4food/paisley/pkg/retry"
	"github.com/kode4food/paisley/pkg/schema"
)

// recorder collects events from concurrent step goroutines
type recorder struct {
	mu     sync.Mutex
	events []api.Event
}

func (r *recorder) HandleEvent(e api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []api.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]api.EventKind, len(r.events))
	for i, e := range r.events {
		res[i] = e.Kind()
	}
	return res
}

// fastEngine builds an engine whose retry backoff never sleeps
func fastEngine(reg *helpers.StubRegistry) *engine.Engine {
	return engine.New(reg,
		engine.WithController(retry.New(
			retry.WithSleep(func(context.Context, time.Duration) error {
				return nil
			}),
		)),
	)
}

func TestLinearRun(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubFunc("fetch", func(_ context.Context, args api.Args) (any, error) {
			return map[string]any{"value": args.GetInt("a", 0) * 2}, nil
		}).
		StubFunc("format", func(_ context.Context, args api.Args) (any, error) {
			return args.GetInt("a", 0) + 1, nil
		})

	wf := helpers.NewWorkflow(
		helpers.NewStepWithInputs(1, "fetch", "fetched", "input.seed"),
		helpers.NewStepWithInputs(2, "format", "formatted", "fetched.value"),
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{"seed": 21},
	)
	as.NoError(err)
	as.Equal(api.RunCompleted, res.Status)
	as.StepStatus(res, 1, api.StepCompleted)
	as.StepStatus(res, 2, api.StepCompleted)
	as.ContextValue(res, "fetched", map[string]any{"value": 42})
	as.ContextValue(res, "formatted", 43)
	as.Equal([]api.Name{"fetch", "format"}, reg.Invoked())
}

func TestDiamondRun(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		Stub("left", 10).
		Stub("right", 32).
		StubFunc("join", func(_ context.Context, args api.Args) (any, error) {
			return args.GetInt("a", 0) + args.GetInt("b", 0), nil
		})

	wf := helpers.NewWorkflow(
		helpers.NewStep(1, "left", "lhs"),
		helpers.NewStep(2, "right", "rhs"),
		helpers.NewStepWithInputs(3, "join", "sum", "lhs", "rhs"),
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.NoError(err)
	as.ContextValue(res, "sum", 42)

	// results are ordered by group, then step ID
	as.Equal(api.StepID(1), res.Steps[0].ID)
	as.Equal(api.StepID(2), res.Steps[1].ID)
	as.Equal(api.StepID(3), res.Steps[2].ID)
}

func TestConditionGate(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		Stub("probe", map[string]any{"load": 1500}).
		Stub("heavy", "scaled").
		Stub("light", "asis")

	heavy := helpers.NewStep(2, "heavy", "scaled")
	heavy.Condition = "probe.load > 1000"
	light := helpers.NewStep(3, "light", "plain")
	light.Condition = "probe.load <= 1000"

	wf := helpers.NewWorkflow(
		helpers.NewStep(1, "probe", "probe"),
		heavy,
		light,
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.NoError(err)
	as.StepStatus(res, 2, api.StepCompleted)
	as.StepStatus(res, 3, api.StepSkipped)
	as.Equal(api.SkipCondition, res.Step(3).SkipReason)
	as.ContextMissing(res, "plain")
	as.Equal(0, reg.Calls("light"))
}

func TestSkipCascade(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		Stub("first", 1).
		Stub("second", 2).
		Stub("third", 3)

	gated := helpers.NewStep(2, "second", "mid")
	gated.Condition = "input.enabled == true"

	wf := helpers.NewWorkflow(
		helpers.NewStep(1, "first", "head"),
		gated,
		helpers.NewStepWithInputs(3, "third", "tail", "mid"),
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{"enabled": false},
	)
	as.NoError(err)
	as.Equal(api.RunCompleted, res.Status)
	as.StepStatus(res, 2, api.StepSkipped)
	as.StepStatus(res, 3, api.StepSkipped)
	as.Equal(api.SkipDependency, res.Step(3).SkipReason)
	as.ContextValue(res, "head", 1)
	as.ContextMissing(res, "mid")
	as.ContextMissing(res, "tail")
}

func TestFallback(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubError("flaky", errors.New("connection reset")).
		StubFunc("report", func(_ context.Context, args api.Args) (any, error) {
			return args["a"], nil
		})

	flaky := helpers.NewStep(1, "flaky", "data")
	flaky.Retry = &api.RetryPolicy{MaxAttempts: 2, BaseDelay: 1}
	flaky.Fallback = `{"cached": true}`

	wf := helpers.NewWorkflow(
		flaky,
		helpers.NewStepWithInputs(2, "report", "echo", "data.cached"),
	)

	res, err := fastEngine(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.NoError(err)
	as.Equal(api.RunCompleted, res.Status)
	as.StepStatus(res, 1, api.StepCompleted)
	as.True(res.Step(1).FallbackUsed)
	as.Len(res.Step(1).Attempts, 2)
	as.ContextValue(res, "data", map[string]any{"cached": true})
	as.ContextValue(res, "echo", true)
}

func TestContinuePolicy(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubError("broken", errors.New("unrecoverable")).
		Stub("solid", "fine")

	broken := helpers.NewStep(1, "broken", "hole")
	broken.OnFailure = api.FailContinue

	wf := helpers.NewWorkflow(
		broken,
		helpers.NewStep(2, "solid", "intact"),
		helpers.NewStepWithInputs(3, "solid", "downstream", "hole"),
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.NoError(err)
	as.Equal(api.RunCompleted, res.Status)
	as.StepStatus(res, 1, api.StepFailed)
	as.StepStatus(res, 2, api.StepCompleted)
	as.StepStatus(res, 3, api.StepSkipped)
	as.ContextMissing(res, "hole")
	as.ContextValue(res, "intact", "fine")
}

func TestAbortDefault(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubError("broken", errors.New("unrecoverable")).
		Stub("never", "unreached")

	wf := helpers.NewWorkflow(
		helpers.NewStep(1, "broken", "head"),
		helpers.NewStepWithInputs(2, "never", "tail", "head"),
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.Error(err)
	as.ErrorIs(err, api.ErrRunAborted)
	as.ErrorIs(err, api.ErrStepFailed)
	as.NotNil(res)
	as.Equal(api.RunFailed, res.Status)
	as.StepStatus(res, 1, api.StepFailed)
	as.StepStatus(res, 2, api.StepPending)
	as.Equal(0, reg.Calls("never"))
}

func TestRetryThenSucceed(t *testing.T) {
	as := assert.New(t)

	calls := 0
	reg := helpers.NewStubRegistry().
		StubFunc("flaky", func(context.Context, api.Args) (any, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("status 503")
			}
			return "recovered", nil
		})

	flaky := helpers.NewStep(1, "flaky", "out")
	flaky.Retry = &api.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1000,
		Multiplier:  2,
	}

	rec := &recorder{}
	res, err := fastEngine(reg).Run(
		context.Background(), wf1(flaky), map[string]any{},
		engine.WithObservers(rec),
	)
	as.NoError(err)
	as.StepStatus(res, 1, api.StepCompleted)
	as.ContextValue(res, "out", "recovered")

	attempts := res.Step(1).Attempts
	as.Len(attempts, 3)
	as.Equal(retry.ClassTransient, attempts[0].Class)
	as.Equal(int64(1000), attempts[0].Delay)
	as.Equal(int64(2000), attempts[1].Delay)
	as.Empty(attempts[2].Error)

	retrying := 0
	for _, k := range rec.kinds() {
		if k == api.KindStepRetrying {
			retrying++
		}
	}
	as.Equal(2, retrying)
}

func TestPermanentErrorNotRetried(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubError("broken", errors.New("schema mismatch"))

	broken := helpers.NewStep(1, "broken", "out")
	broken.Retry = &api.RetryPolicy{MaxAttempts: 5, BaseDelay: 1}

	res, err := fastEngine(reg).Run(
		context.Background(), wf1(broken), map[string]any{},
	)
	as.ErrorIs(err, api.ErrRunAborted)
	as.Equal(1, reg.Calls("broken"))
	as.Len(res.Step(1).Attempts, 1)
	as.Equal(retry.ClassPermanent, res.Step(1).Attempts[0].Class)
}

func TestTimeout(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubFunc("slow", func(ctx context.Context, _ api.Args) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return "too late", nil
			}
		})

	slow := helpers.NewStep(1, "slow", "out")
	slow.Timeout = 20

	res, err := engine.New(reg).Run(
		context.Background(), wf1(slow), map[string]any{},
	)
	as.Error(err)
	as.ErrorIs(err, api.ErrRunAborted)
	as.ErrorIs(err, api.ErrStepTimeout)
	as.StepStatus(res, 1, api.StepTimedOut)
}

func TestTimeoutWithFallback(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubFunc("stuck", func(context.Context, api.Args) (any, error) {
			// ignores cancellation; the engine must stop waiting anyway
			time.Sleep(200 * time.Millisecond)
			return "too late", nil
		})

	stuck := helpers.NewStep(1, "stuck", "out")
	stuck.Timeout = 20
	stuck.Fallback = `"default"`

	res, err := engine.New(reg).Run(
		context.Background(), wf1(stuck), map[string]any{},
	)
	as.NoError(err)
	as.StepStatus(res, 1, api.StepCompleted)
	as.True(res.Step(1).FallbackUsed)
	as.ContextValue(res, "out", "default")
}

func TestInputValidation(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().Stub("noop", nil)
	wf := helpers.NewWorkflow(helpers.NewStep(1, "noop", "out"))
	wf.Input = &schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"seed"},
		Properties: map[string]*schema.Schema{
			"seed": {Type: schema.TypeInteger},
		},
	}

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.Nil(res)
	as.ErrorIs(err, api.ErrValidation)
	as.Contains(err.Error(), "input.seed")
	as.Equal(0, reg.Calls("noop"))
}

func TestUnknownFunc(t *testing.T) {
	as := assert.New(t)

	wf := helpers.NewWorkflow(helpers.NewStep(1, "ghost", "out"))
	res, err := engine.New(helpers.NewStubRegistry()).Run(
		context.Background(), wf, map[string]any{},
	)
	as.Nil(res)
	as.ErrorIs(err, api.ErrUnknownFunc)
}

func TestRunMetadata(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubFunc("who", func(_ context.Context, args api.Args) (any, error) {
			return args["a"], nil
		})

	wf := helpers.NewWorkflow(
		helpers.NewStepWithInputs(1, "who", "caller", "run.caller"),
	)

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
		engine.WithMetadata(api.Metadata{"caller": "ops@example.com"}),
		engine.WithRunID("run-fixed"),
	)
	as.NoError(err)
	as.Equal("run-fixed", res.RunID)
	as.ContextValue(res, "caller", "ops@example.com")
}

func TestConsts(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		StubFunc("scale", func(_ context.Context, args api.Args) (any, error) {
			return args.GetInt("value", 0) * args.GetInt("factor", 1), nil
		})

	step := helpers.NewStep(1, "scale", "scaled")
	step.Inputs = map[api.Name]string{"value": "input.value"}
	step.Consts = map[api.Name]string{"factor": "3"}

	res, err := engine.New(reg).Run(
		context.Background(), wf1(step), map[string]any{"value": 14},
	)
	as.NoError(err)
	as.ContextValue(res, "scaled", 42)
}

func TestEventSequence(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().Stub("noop", "done")
	wf := helpers.NewWorkflow(helpers.NewStep(1, "noop", "out"))

	rec := &recorder{}
	_, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
		engine.WithObservers(rec),
	)
	as.NoError(err)
	as.Equal([]api.EventKind{
		api.KindRunStarted,
		api.KindStepStarted,
		api.KindStepComplete,
		api.KindRunCompleted,
	}, rec.kinds())
}

func TestOutputWarnings(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().Stub("noop", -5)
	wf := helpers.NewWorkflow(helpers.NewStep(1, "noop", "x"))
	minimum := 0.0
	wf.Output = &schema.Schema{
		Type: schema.TypeObject,
		Properties: map[string]*schema.Schema{
			"x": {Type: schema.TypeNumber, Minimum: &minimum},
		},
	}

	res, err := engine.New(reg).Run(
		context.Background(), wf, map[string]any{},
	)
	as.NoError(err)
	as.Equal(api.RunCompleted, res.Status)
	as.Len(res.Warnings, 1)
	as.Equal("output.x", res.Warnings[0].Path)
	as.Equal(schema.SeverityWarning, res.Warnings[0].Severity)
}

func TestStepOutputWarnings(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().Stub("emit", "not a number")
	step := helpers.NewStep(1, "emit", "count")
	step.OutputSchema = &schema.Schema{Type: schema.TypeNumber}

	res, err := engine.New(reg).Run(
		context.Background(), wf1(step), map[string]any{},
	)
	as.NoError(err)
	as.StepStatus(res, 1, api.StepCompleted)
	as.Len(res.Step(1).Warnings, 1)
	as.Equal("count", res.Step(1).Warnings[0].Path)
}

func TestStepInputSchemaStrict(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().Stub("strict", "unused")
	step := helpers.NewStepWithInputs(1, "strict", "out", "input.value")
	step.InputSchema = &schema.Schema{
		Type: schema.TypeObject,
		Properties: map[string]*schema.Schema{
			"a": {Type: schema.TypeInteger},
		},
	}

	_, err := engine.New(reg).Run(
		context.Background(), wf1(step), map[string]any{"value": "nope"},
	)
	as.ErrorIs(err, api.ErrRunAborted)
	as.ErrorIs(err, api.ErrValidation)
	as.Equal(0, reg.Calls("strict"))
}

func TestConditionError(t *testing.T) {
	as := assert.New(t)

	reg := helpers.NewStubRegistry().
		Stub("first", "text").
		Stub("second", "unused")

	bad := helpers.NewStep(2, "second", "out")
	bad.Condition = "first > 10"

	res, err := engine.New(reg).Run(
		context.Background(),
		helpers.NewWorkflow(helpers.NewStep(1, "first", "first"), bad),
		map[string]any{},
	)
	as.ErrorIs(err, api.ErrRunAborted)
	as.ErrorIs(err, api.ErrCondition)
	as.StepStatus(res, 2, api.StepFailed)
	as.Equal(0, reg.Calls("second"))
}

func TestEmptyWorkflow(t *testing.T) {
	as := assert.New(t)

	res, err := engine.New(helpers.NewStubRegistry()).Run(
		context.Background(), helpers.NewWorkflow(), map[string]any{},
	)
	as.NoError(err)
	as.Equal(api.RunCompleted, res.Status)
	as.Empty(res.Steps)
	as.Empty(res.Context)
}

func wf1(step *api.Step) *api.Workflow {
	return helpers.NewWorkflow(step)
}
