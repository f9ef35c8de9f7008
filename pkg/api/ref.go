package api

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Ref is a parsed reference expression: a tagged path naming a value
// in exactly one of three namespaces. References rooted at "input"
// read the raw run input, references rooted at "run" read run-scoped
// metadata, and any other root names the published output of a prior
// step
type Ref struct {
	Raw  string
	Root Name
	Path string
}

// Reserved reference roots. Step output names must not collide with
// these
const (
	InputRoot Name = "input"
	RunRoot   Name = "run"
)

// ParseRef parses a reference expression of the form
// root(.ident|[index])* into its root name and a gjson-style path
// below the root
func ParseRef(s string) (Ref, error) {
	root, i, err := refIdent(s, 0)
	if err != nil {
		return Ref{}, err
	}
	var segs []string
	for i < len(s) {
		var seg string
		switch s[i] {
		case '.':
			seg, i, err = refIdent(s, i+1)
		case '[':
			seg, i, err = refIndex(s, i+1)
		default:
			err = fmt.Errorf("%w: %q: unexpected %q at offset %d",
				ErrInvalidRef, s, s[i], i)
		}
		if err != nil {
			return Ref{}, err
		}
		segs = append(segs, seg)
	}
	return Ref{Raw: s, Root: Name(root), Path: strings.Join(segs, ".")}, nil
}

func refIdent(s string, at int) (string, int, error) {
	i := at
	if i >= len(s) || !identStart(s[i]) {
		return "", 0, fmt.Errorf("%w: %q: expected identifier at offset %d",
			ErrInvalidRef, s, at)
	}
	for i < len(s) && identPart(s[i]) {
		i++
	}
	return s[at:i], i, nil
}

func refIndex(s string, at int) (string, int, error) {
	i := at
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == at || i >= len(s) || s[i] != ']' {
		return "", 0, fmt.Errorf("%w: %q: expected index at offset %d",
			ErrInvalidRef, s, at)
	}
	return s[at:i], i + 1, nil
}

func identStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func identPart(c byte) bool {
	return identStart(c) || c >= '0' && c <= '9'
}

// IsInput returns true for references into the raw run input
func (r Ref) IsInput() bool {
	return r.Root == InputRoot
}

// IsRun returns true for references into run-scoped metadata
func (r Ref) IsRun() bool {
	return r.Root == RunRoot
}

// IsStep returns true for references to a prior step's output
func (r Ref) IsStep() bool {
	return !r.IsInput() && !r.IsRun()
}

// Lookup resolves the path portion of the reference against the raw
// JSON document holding its root value. The boolean result reports
// whether the path exists
func (r Ref) Lookup(doc []byte) (any, bool) {
	if r.Path == "" {
		return gjson.ParseBytes(doc).Value(), true
	}
	res := gjson.GetBytes(doc, r.Path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

func (r Ref) String() string {
	return r.Raw
}

// IsName reports whether s is a bare identifier usable as an output
// slot or param name
func IsName(s Name) bool {
	str := string(s)
	if str == "" || !identStart(str[0]) {
		return false
	}
	for i := 1; i < len(str); i++ {
		if !identPart(str[i]) {
			return false
		}
	}
	return true
}
