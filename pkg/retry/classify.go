package retry

import (
	"context"
	"errors"
	"strings"
)

type (
	// Classifier sorts errors into retry classes
	Classifier interface {
		Classify(error) Class
	}

	// Signatures classifies errors by case-insensitive substring
	// match against known failure text. Permanent signatures win over
	// transient ones, and context deadline errors always classify as
	// timeouts
	Signatures struct {
		transient []string
		permanent []string
	}
)

// Failure text that usually clears up on its own: dropped
// connections, throttling, contended locks, and overloaded upstreams
var transientSignatures = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"eof",
	"rate limit",
	"throttled",
	"too many requests",
	"temporarily unavailable",
	"try again",
	"lock contention",
	"deadlock",
	"status 429",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
}

var _ Classifier = (*Signatures)(nil)

// DefaultSignatures returns the built-in failure catalogue
func DefaultSignatures() *Signatures {
	return &Signatures{transient: transientSignatures}
}

// WithTransient extends the catalogue with additional transient
// signatures
func (s *Signatures) WithTransient(subs ...string) *Signatures {
	res := *s
	res.transient = append(lowered(s.transient), lowered(subs)...)
	return &res
}

// WithPermanent extends the catalogue with signatures that force the
// permanent class even when a transient signature also matches
func (s *Signatures) WithPermanent(subs ...string) *Signatures {
	res := *s
	res.permanent = append(lowered(s.permanent), lowered(subs)...)
	return &res
}

// Classify buckets an error. Deadline errors are timeouts, permanent
// signatures win over transient ones, and anything unrecognized is
// permanent
func (s *Signatures) Classify(err error) Class {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	msg := strings.ToLower(err.Error())
	for _, sub := range s.permanent {
		if strings.Contains(msg, sub) {
			return ClassPermanent
		}
	}
	for _, sub := range s.transient {
		if strings.Contains(msg, sub) {
			return ClassTransient
		}
	}
	return ClassPermanent
}

func lowered(subs []string) []string {
	res := make([]string, len(subs))
	for i, sub := range subs {
		res[i] = strings.ToLower(sub)
	}
	return res
}
