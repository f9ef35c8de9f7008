package expr

import (
	"encoding/json"

	"github.com/kode4food/paisley/pkg/api"
)

// MapResolver resolves references against a map of root names to
// plain values. It is primarily a convenience for tests and for
// callers evaluating expressions outside a run
type MapResolver map[string]any

var _ Resolver = MapResolver(nil)

func (m MapResolver) Resolve(ref api.Ref) (any, error) {
	root, ok := m[string(ref.Root)]
	if !ok {
		return nil, &ResolveError{Ref: ref}
	}
	doc, err := json.Marshal(root)
	if err != nil {
		return nil, &ResolveError{Ref: ref}
	}
	v, ok := ref.Lookup(doc)
	if !ok {
		return nil, &ResolveError{Ref: ref}
	}
	return v, nil
}
