// Package schema validates JSON-shaped values against declarative,
// data-driven schemas. Schemas arrive as part of a workflow definition
// rather than as Go types, so every rule is interpreted at runtime
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

type (
	// Type names the JSON shape a value must have
	Type string

	// Schema is a declarative rule set for a single value. Rules that
	// do not apply to the value's actual type are ignored
	Schema struct {
		Type        Type               `json:"type,omitempty" yaml:"type,omitempty"`
		Required    []string           `json:"required,omitempty" yaml:"required,omitempty"`
		Properties  map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
		Strict      bool               `json:"strict,omitempty" yaml:"strict,omitempty"`
		Minimum     *float64           `json:"minimum,omitempty" yaml:"minimum,omitempty"`
		Maximum     *float64           `json:"maximum,omitempty" yaml:"maximum,omitempty"`
		MultipleOf  *float64           `json:"multiple_of,omitempty" yaml:"multiple_of,omitempty"`
		MinLength   *int               `json:"min_length,omitempty" yaml:"min_length,omitempty"`
		MaxLength   *int               `json:"max_length,omitempty" yaml:"max_length,omitempty"`
		Pattern     string             `json:"pattern,omitempty" yaml:"pattern,omitempty"`
		Enum        []any              `json:"enum,omitempty" yaml:"enum,omitempty"`
		MinItems    *int               `json:"min_items,omitempty" yaml:"min_items,omitempty"`
		MaxItems    *int               `json:"max_items,omitempty" yaml:"max_items,omitempty"`
		UniqueItems bool               `json:"unique_items,omitempty" yaml:"unique_items,omitempty"`
		Items       *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	}
)

const (
	TypeAny     Type = "any"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

var (
	ErrUnknownType   = errors.New("unknown schema type")
	ErrBadPattern    = errors.New("invalid pattern")
	ErrBoundsCrossed = errors.New("minimum exceeds maximum")
)

var validTypes = map[Type]bool{
	"": true, TypeAny: true, TypeObject: true, TypeArray: true,
	TypeString: true, TypeNumber: true, TypeInteger: true,
	TypeBoolean: true,
}

// patterns caches compiled regular expressions keyed by source text
var patterns sync.Map

// Check verifies that the schema itself is well-formed: known type
// names, compilable patterns, and coherent bounds. Item and property
// schemas are checked recursively
func (s *Schema) Check() error {
	if s == nil {
		return nil
	}
	if !validTypes[s.Type] {
		return fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
	if s.Pattern != "" {
		if _, err := pattern(s.Pattern); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrBadPattern, s.Pattern, err)
		}
	}
	if s.Minimum != nil && s.Maximum != nil && *s.Minimum > *s.Maximum {
		return fmt.Errorf("%w: %v > %v",
			ErrBoundsCrossed, *s.Minimum, *s.Maximum)
	}
	if s.MinLength != nil && s.MaxLength != nil &&
		*s.MinLength > *s.MaxLength {
		return fmt.Errorf("%w: length %d > %d",
			ErrBoundsCrossed, *s.MinLength, *s.MaxLength)
	}
	if s.MinItems != nil && s.MaxItems != nil && *s.MinItems > *s.MaxItems {
		return fmt.Errorf("%w: items %d > %d",
			ErrBoundsCrossed, *s.MinItems, *s.MaxItems)
	}
	for name, prop := range s.Properties {
		if err := prop.Check(); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	if err := s.Items.Check(); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	return nil
}

func pattern(src string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(src); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	patterns.Store(src, re)
	return re, nil
}
