package expr

import (
	"fmt"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// SyntaxError reports a malformed expression along with the byte
	// offset of the offending token
	SyntaxError struct {
		Pos  int
		Got  string
		Want string
	}

	// TypeError reports an operand or result of the wrong type
	TypeError struct {
		Pos int
		Msg string
	}

	// ResolveError reports a reference that names no known value
	ResolveError struct {
		Ref api.Ref
	}
)

func (e *SyntaxError) Error() string {
	if e.Want != "" {
		return fmt.Sprintf("syntax error at %d: expected %s, found %s",
			e.Pos, e.Want, e.Got)
	}
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Got)
}

func (e *SyntaxError) Unwrap() error {
	return api.ErrCondition
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at %d: %s", e.Pos, e.Msg)
}

func (e *TypeError) Unwrap() error {
	return api.ErrCondition
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve reference %q", e.Ref.Raw)
}

func (e *ResolveError) Unwrap() error {
	return api.ErrCondition
}
