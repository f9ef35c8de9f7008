package api

import (
	"context"
	"maps"
)

// Metadata carries run-scoped context: caller identity, correlation
// IDs, and anything else steps may reference through the run
// namespace
type Metadata map[string]any

// Reserved metadata keys populated by the engine on every run
const (
	MetaRunID    = "id"
	MetaWorkflow = "workflow"
)

type metadataKey struct{}

// Apply merges the keys and values of the other metadata set into a
// copy of this one, the other set winning on collision
func (m Metadata) Apply(other Metadata) Metadata {
	if m == nil && other == nil {
		return Metadata{}
	}
	res := make(Metadata, len(m)+len(other))
	maps.Copy(res, m)
	maps.Copy(res, other)
	return res
}

// GetString retrieves a non-empty string value from metadata
func (m Metadata) GetString(key string) (string, bool) {
	val, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// WithMetadata attaches run metadata to a context. The engine does
// this before invoking a step function so transports can forward it
func WithMetadata(ctx context.Context, m Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, m)
}

// MetadataFrom retrieves run metadata from a context, or an empty set
// when none is attached
func MetadataFrom(ctx context.Context) Metadata {
	if m, ok := ctx.Value(metadataKey{}).(Metadata); ok {
		return m
	}
	return Metadata{}
}
