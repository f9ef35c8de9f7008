package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

type (
	// Operation is a retryable unit of work. It receives the deadline
	// context of the step invoking it and returns a result or an
	// error
	Operation func(context.Context) (any, error)

	// Controller executes operations under a retry policy. The zero
	// value is not usable; construct with New
	Controller struct {
		classifier Classifier
		sleep      SleepFunc
		random     func() float64
	}

	// SleepFunc waits out a backoff delay, returning early with the
	// context error when the context ends first
	SleepFunc func(context.Context, time.Duration) error

	// Option configures a Controller
	Option func(*Controller)

	attemptOutcome struct {
		value any
		err   error
	}
)

// New creates a retry controller with the default signature
// catalogue, a context-aware sleep, and the shared random source
func New(opts ...Option) *Controller {
	c := &Controller{
		classifier: DefaultSignatures(),
		sleep:      Sleep,
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClassifier replaces the error classifier
func WithClassifier(cl Classifier) Option {
	return func(c *Controller) {
		c.classifier = cl
	}
}

// WithSleep replaces the backoff sleep, letting tests run without
// real delays
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// WithRand replaces the jitter source with a deterministic one
func WithRand(fn func() float64) Option {
	return func(c *Controller) {
		c.random = fn
	}
}

// Sleep waits for the given duration or until the context ends,
// whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do executes the operation under the policy, returning its value
// and the complete attempt history. Attempt zero is the first try.
// Each attempt runs in its own goroutine so a call that ignores
// cancellation cannot stall the controller past the context deadline
func (c *Controller) Do(
	ctx context.Context, p *Policy, op Operation,
) (any, []Attempt, error) {
	if p == nil {
		p = &Policy{}
	}
	budget := max(p.MaxAttempts, 1)

	var history []Attempt
	for attempt := 0; ; attempt++ {
		started := time.Now()
		value, err := c.perform(ctx, op)
		rec := Attempt{
			Number:   attempt,
			Duration: time.Since(started).Milliseconds(),
		}

		if err == nil {
			history = append(history, rec)
			return value, history, nil
		}

		rec.Error = err.Error()
		rec.Class = c.classifier.Classify(err)

		if !p.Retries(rec.Class) || attempt+1 >= budget {
			history = append(history, rec)
			if p.Retries(rec.Class) && budget > 1 {
				err = fmt.Errorf("%w: %w", ErrExhausted, err)
			}
			return nil, history, err
		}

		rec.Delay = c.delay(p, attempt)
		history = append(history, rec)

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, rec.Delay)
		}
		wait := time.Duration(rec.Delay) * time.Millisecond
		if err := c.sleep(ctx, wait); err != nil {
			return nil, history, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
	}
}

// perform runs one attempt, abandoning it when the context ends
// before the operation returns
func (c *Controller) perform(
	ctx context.Context, op Operation,
) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan attemptOutcome, 1)
	go func() {
		value, err := op(ctx)
		done <- attemptOutcome{value: value, err: err}
	}()
	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// delay computes the backoff after the given attempt:
// min(base * multiplier^attempt, max), sampled uniformly from
// [delay/2, delay] when jitter is enabled
func (c *Controller) delay(p *Policy, attempt int) int64 {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	d := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if p.MaxDelay > 0 {
		d = min(d, float64(p.MaxDelay))
	}
	if p.Jitter {
		d = d/2 + c.random()*(d/2)
	}
	return int64(d)
}
