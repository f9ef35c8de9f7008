package schema

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

type (
	// Severity ranks how a rule violation is reported
	Severity string

	// Mode selects how violations surface. Strict reports every
	// violation as an error and rejects properties beyond the ones a
	// schema declares; an object schema declaring no properties
	// constrains none, so set the schema's Strict flag to reject all
	// undeclared properties outright. Lenient downgrades violations
	// to warnings and tolerates undeclared properties unless the
	// schema marks itself strict
	Mode int

	// Issue describes a single violation found during validation
	Issue struct {
		Path     string   `json:"path"`
		Message  string   `json:"message"`
		Severity Severity `json:"severity"`
	}

	// Report collects the issues of one validation pass
	Report struct {
		Issues []Issue `json:"issues,omitempty"`
	}

	validator struct {
		mode   Mode
		issues []Issue
	}
)

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	Strict Mode = iota
	Lenient
)

// floatTolerance absorbs binary rounding in multiple-of checks
const floatTolerance = 1e-9

// Validate checks a JSON-shaped value against a schema and reports
// every violation found, not just the first. Values are expected in
// the shapes produced by encoding/json: map[string]any, []any,
// float64, string, bool, and nil. root prefixes every issue path,
// so a caller validating step input passes "input" and a violation
// at loads[2].value reports as input.loads[2].value
func Validate(value any, s *Schema, mode Mode, root string) *Report {
	v := &validator{mode: mode}
	v.check(root, value, s)
	return &Report{Issues: v.issues}
}

// OK returns true when the report contains no error-severity issues
func (r *Report) OK() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Warnings returns only the warning-severity issues
func (r *Report) Warnings() []Issue {
	var res []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			res = append(res, issue)
		}
	}
	return res
}

func (r *Report) String() string {
	msgs := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		msgs[i] = fmt.Sprintf("%s: %s", issue.Path, issue.Message)
	}
	return strings.Join(msgs, "; ")
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

func (v *validator) report(path, format string, args ...any) {
	sev := SeverityError
	if v.mode == Lenient {
		sev = SeverityWarning
	}
	v.issues = append(v.issues, Issue{
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	})
}

func (v *validator) check(path string, value any, s *Schema) {
	if s == nil {
		return
	}
	if !v.checkType(path, value, s) {
		return
	}
	if len(s.Enum) > 0 && !enumContains(s.Enum, value) {
		v.report(path, "value %v not in enum", value)
	}

	switch val := value.(type) {
	case map[string]any:
		v.checkObject(path, val, s)
	case []any:
		v.checkArray(path, val, s)
	case string:
		v.checkString(path, val, s)
	default:
		if n, ok := numericValue(value); ok {
			v.checkNumber(path, n, s)
		}
	}
}

// checkType reports a mismatch between the declared type and the
// value's actual shape. A false return stops deeper rule checks
func (v *validator) checkType(path string, value any, s *Schema) bool {
	if s.Type == "" || s.Type == TypeAny {
		return true
	}
	actual := shapeOf(value)
	switch s.Type {
	case TypeInteger:
		if n, ok := numericValue(value); ok && n == math.Trunc(n) {
			return true
		}
		v.report(path, "expected integer, got %s", actual)
	case TypeNumber:
		if actual == "number" {
			return true
		}
		v.report(path, "expected number, got %s", actual)
	default:
		if actual == string(s.Type) {
			return true
		}
		v.report(path, "expected %s, got %s", s.Type, actual)
	}
	return false
}

func (v *validator) checkObject(path string, val map[string]any, s *Schema) {
	for _, name := range s.Required {
		if _, ok := val[name]; !ok {
			v.report(joinPath(path, name), "required property missing")
		}
	}
	for name, prop := range s.Properties {
		child, ok := val[name]
		if !ok {
			continue
		}
		v.check(joinPath(path, name), child, prop)
	}
	if s.Strict || (v.mode == Strict && len(s.Properties) > 0) {
		for name := range val {
			if _, ok := s.Properties[name]; !ok {
				v.report(joinPath(path, name), "undeclared property")
			}
		}
	}
}

func (v *validator) checkArray(path string, val []any, s *Schema) {
	if s.MinItems != nil && len(val) < *s.MinItems {
		v.report(path, "expected at least %d items, got %d",
			*s.MinItems, len(val))
	}
	if s.MaxItems != nil && len(val) > *s.MaxItems {
		v.report(path, "expected at most %d items, got %d",
			*s.MaxItems, len(val))
	}
	if s.UniqueItems {
		for i := 1; i < len(val); i++ {
			for j := 0; j < i; j++ {
				if valuesEqual(val[i], val[j]) {
					v.report(indexPath(path, i),
						"duplicate of item %d", j)
				}
			}
		}
	}
	if s.Items != nil {
		for i, item := range val {
			v.check(indexPath(path, i), item, s.Items)
		}
	}
}

func (v *validator) checkString(path, val string, s *Schema) {
	length := utf8.RuneCountInString(val)
	if s.MinLength != nil && length < *s.MinLength {
		v.report(path, "expected length >= %d, got %d",
			*s.MinLength, length)
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		v.report(path, "expected length <= %d, got %d",
			*s.MaxLength, length)
	}
	if s.Pattern != "" {
		re, err := pattern(s.Pattern)
		if err != nil {
			v.report(path, "invalid pattern %q", s.Pattern)
			return
		}
		if !re.MatchString(val) {
			v.report(path, "value %q does not match %q", val, s.Pattern)
		}
	}
}

func (v *validator) checkNumber(path string, n float64, s *Schema) {
	if s.Minimum != nil && n < *s.Minimum {
		v.report(path, "expected >= %v, got %v", *s.Minimum, n)
	}
	if s.Maximum != nil && n > *s.Maximum {
		v.report(path, "expected <= %v, got %v", *s.Maximum, n)
	}
	if s.MultipleOf != nil && *s.MultipleOf != 0 {
		rem := math.Abs(math.Mod(n, *s.MultipleOf))
		if rem > floatTolerance && *s.MultipleOf-rem > floatTolerance {
			v.report(path, "expected a multiple of %v, got %v",
				*s.MultipleOf, n)
		}
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

func shapeOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := numericValue(value); ok {
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func numericValue(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if valuesEqual(e, value) {
			return true
		}
	}
	return false
}

// valuesEqual compares primitive values, treating all numeric types
// as interchangeable. Composite values never compare equal
func valuesEqual(a, b any) bool {
	if an, ok := numericValue(a); ok {
		bn, ok := numericValue(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}
