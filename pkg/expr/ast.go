package expr

import "github.com/kode4food/paisley/pkg/api"

type (
	node interface {
		eval(Resolver) (any, error)
	}

	litNode struct {
		val any
	}

	refNode struct {
		ref api.Ref
		pos int
	}

	listNode struct {
		items []node
	}

	notNode struct {
		expr node
		pos  int
	}

	andNode struct {
		left  node
		right node
		pos   int
	}

	orNode struct {
		left  node
		right node
		pos   int
	}

	cmpOp int

	cmpNode struct {
		op    cmpOp
		left  node
		right node
		pos   int
	}
)

const (
	opEq cmpOp = iota
	opNe
	opLt
	opGt
	opLe
	opGe
	opIn
	opNotIn
)

var cmpOpNames = map[cmpOp]string{
	opEq:    "==",
	opNe:    "!=",
	opLt:    "<",
	opGt:    ">",
	opLe:    "<=",
	opGe:    ">=",
	opIn:    "IN",
	opNotIn: "NOT IN",
}

func (o cmpOp) String() string {
	return cmpOpNames[o]
}
