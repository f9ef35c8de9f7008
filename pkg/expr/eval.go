package expr

import (
	"fmt"

	"github.com/kode4food/paisley/pkg/api"
)

// Resolver supplies the value behind a reference during evaluation.
// Implementations report a missing reference as an error rather than
// returning a nil value
type Resolver interface {
	Resolve(api.Ref) (any, error)
}

// Eval evaluates the expression against the given Resolver. The
// expression must produce a boolean; any other result is a type error
func (e *Expr) Eval(r Resolver) (bool, error) {
	v, err := e.root.eval(r)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{
			Msg: fmt.Sprintf(
				"expression must produce a boolean, got %s", shapeName(v),
			),
		}
	}
	return b, nil
}

func (n *litNode) eval(Resolver) (any, error) {
	return n.val, nil
}

func (n *refNode) eval(r Resolver) (any, error) {
	return r.Resolve(n.ref)
}

func (n *listNode) eval(r Resolver) (any, error) {
	items := make([]any, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(r)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func (n *notNode) eval(r Resolver) (any, error) {
	b, err := evalBool(n.expr, r, "NOT", n.pos)
	if err != nil {
		return nil, err
	}
	return !b, nil
}

func (n *andNode) eval(r Resolver) (any, error) {
	left, err := evalBool(n.left, r, "AND", n.pos)
	if err != nil {
		return nil, err
	}
	if !left {
		return false, nil
	}
	return evalBoolAny(n.right, r, "AND", n.pos)
}

func (n *orNode) eval(r Resolver) (any, error) {
	left, err := evalBool(n.left, r, "OR", n.pos)
	if err != nil {
		return nil, err
	}
	if left {
		return true, nil
	}
	return evalBoolAny(n.right, r, "OR", n.pos)
}

func (n *cmpNode) eval(r Resolver) (any, error) {
	left, err := n.left.eval(r)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(r)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case opEq:
		return equalValues(left, right), nil
	case opNe:
		return !equalValues(left, right), nil
	case opIn, opNotIn:
		list, ok := right.([]any)
		if !ok {
			return nil, &TypeError{
				Pos: n.pos,
				Msg: fmt.Sprintf(
					"%s requires a list on the right, got %s",
					n.op, shapeName(right),
				),
			}
		}
		found := false
		for _, item := range list {
			if equalValues(left, item) {
				found = true
				break
			}
		}
		if n.op == opNotIn {
			return !found, nil
		}
		return found, nil
	}

	ln, ok := numeric(left)
	if !ok {
		return nil, &TypeError{
			Pos: n.pos,
			Msg: fmt.Sprintf(
				"%s requires numeric operands, got %s", n.op, shapeName(left),
			),
		}
	}
	rn, ok := numeric(right)
	if !ok {
		return nil, &TypeError{
			Pos: n.pos,
			Msg: fmt.Sprintf(
				"%s requires numeric operands, got %s", n.op, shapeName(right),
			),
		}
	}
	switch n.op {
	case opLt:
		return ln < rn, nil
	case opLe:
		return ln <= rn, nil
	case opGt:
		return ln > rn, nil
	default:
		return ln >= rn, nil
	}
}

func evalBool(n node, r Resolver, op string, pos int) (bool, error) {
	v, err := n.eval(r)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{
			Pos: pos,
			Msg: fmt.Sprintf(
				"%s requires boolean operands, got %s", op, shapeName(v),
			),
		}
	}
	return b, nil
}

func evalBoolAny(n node, r Resolver, op string, pos int) (any, error) {
	b, err := evalBool(n, r, op, pos)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// equalValues compares two resolved values. Numbers compare across
// numeric kinds; a type mismatch is false, never an error; composite
// values never compare equal
func equalValues(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if ln, ok := numeric(left); ok {
		rn, ok := numeric(right)
		return ok && ln == rn
	}
	switch l := left.(type) {
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	}
	return false
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func shapeName(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := numeric(v); ok {
		return "number"
	}
	switch v.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
