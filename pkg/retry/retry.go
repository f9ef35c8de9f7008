// Package retry wraps arbitrary operations with classify-then-backoff
// retry. Errors are classified against a signature catalogue before
// any retry decision: transient failures consume retry budget,
// permanent failures abort immediately, and timeouts retry only when
// the policy allows it
package retry

import "errors"

type (
	// Class buckets a failure by how retry should treat it
	Class string

	// Attempt records a single try of an operation. Number starts at
	// zero for the first try; Delay is the backoff that followed the
	// attempt, zero for the last one. Times are in milliseconds
	Attempt struct {
		Number   int    `json:"number"`
		Error    string `json:"error,omitempty"`
		Class    Class  `json:"class,omitempty"`
		Delay    int64  `json:"delay,omitempty"`
		Duration int64  `json:"duration"`
	}

	// Policy controls retry behavior for one operation. MaxAttempts
	// counts every try including the first; zero or one disables
	// retry. Delays are in milliseconds. OnRetry, when set, is called
	// before each backoff wait
	Policy struct {
		MaxAttempts   int
		BaseDelay     int64
		MaxDelay      int64
		Multiplier    float64
		Jitter        bool
		RetryAll      bool
		RetryTimeouts bool
		OnRetry       func(attempt int, err error, delay int64)
	}
)

const (
	// ClassTransient marks a failure likely to succeed on retry
	ClassTransient Class = "transient"

	// ClassPermanent marks a failure retrying cannot fix
	ClassPermanent Class = "permanent"

	// ClassTimeout marks an operation stopped by a deadline
	ClassTimeout Class = "timeout"
)

var (
	// ErrExhausted wraps the final error once every configured
	// attempt has failed
	ErrExhausted = errors.New("retry budget exhausted")

	// ErrInterrupted wraps a context error that stopped the retry
	// loop during a backoff wait
	ErrInterrupted = errors.New("retry interrupted")
)

// Retries reports whether a failure of the given class consumes
// retry budget under the policy rather than aborting
func (p *Policy) Retries(c Class) bool {
	switch c {
	case ClassTransient:
		return true
	case ClassTimeout:
		return p.RetryTimeouts
	default:
		return p.RetryAll
	}
}
