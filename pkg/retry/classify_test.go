package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/retry"
)

func TestClassifyTransient(t *testing.T) {
	cl := retry.DefaultSignatures()

	for _, msg := range []string{
		"dial tcp: connection refused",
		"read: Connection Reset by peer",
		"write: broken pipe",
		"request failed: i/o timeout",
		"rate limit exceeded",
		"upstream throttled the request",
		"429 Too Many Requests",
		"service temporarily unavailable",
		"resource busy, try again",
		"step endpoint returned status 503: unavailable",
		"step endpoint returned status 500: oops",
	} {
		err := errors.New(msg)
		assert.Equal(t, retry.ClassTransient, cl.Classify(err), msg)
	}
}

func TestClassifyPermanent(t *testing.T) {
	cl := retry.DefaultSignatures()

	for _, msg := range []string{
		"invalid argument",
		"record not found",
		"step endpoint returned status 404: missing",
		"division by zero",
	} {
		err := errors.New(msg)
		assert.Equal(t, retry.ClassPermanent, cl.Classify(err), msg)
	}
}

func TestClassifyTimeout(t *testing.T) {
	cl := retry.DefaultSignatures()

	assert.Equal(t, retry.ClassTimeout,
		cl.Classify(context.DeadlineExceeded))
	assert.Equal(t, retry.ClassTimeout,
		cl.Classify(fmt.Errorf("step: %w", context.DeadlineExceeded)))
}

func TestClassifyExtensions(t *testing.T) {
	as := assert.New(t)

	cl := retry.DefaultSignatures().
		WithTransient("replica lag").
		WithPermanent("connection reset by proxy")

	as.Equal(retry.ClassTransient,
		cl.Classify(errors.New("detected replica lag")))

	// permanent signatures win over transient ones
	as.Equal(retry.ClassPermanent,
		cl.Classify(errors.New("Connection Reset by Proxy")))

	// the base catalogue is unchanged
	base := retry.DefaultSignatures()
	as.Equal(retry.ClassPermanent,
		base.Classify(errors.New("replica lag")))
}

func TestPolicyRetries(t *testing.T) {
	as := assert.New(t)

	p := &retry.Policy{}
	as.True(p.Retries(retry.ClassTransient))
	as.False(p.Retries(retry.ClassPermanent))
	as.False(p.Retries(retry.ClassTimeout))

	p = &retry.Policy{RetryTimeouts: true}
	as.True(p.Retries(retry.ClassTimeout))
	as.False(p.Retries(retry.ClassPermanent))

	p = &retry.Policy{RetryAll: true}
	as.True(p.Retries(retry.ClassPermanent))
}
