package expr

import (
	"strconv"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// Expr is a compiled condition expression. Compilation happens
	// once; evaluation resolves references against a Resolver and is
	// safe for concurrent use
	Expr struct {
		root node
		src  string
	}

	parser struct {
		scan  *scanner
		tok   token
		ahead *token
	}
)

// Parse compiles a condition expression. The grammar is boolean:
// OR over AND over comparisons over unary NOT over primaries, with
// parentheses for grouping. Comparisons are non-associative
func Parse(src string) (*Expr, error) {
	p := &parser{scan: &scanner{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokenEOF {
		return nil, &SyntaxError{
			Pos: p.tok.pos, Want: "end of expression", Got: p.tok.String(),
		}
	}
	return &Expr{root: root, src: src}, nil
}

// String returns the source text the expression was compiled from
func (e *Expr) String() string {
	return e.src
}

// Refs returns every reference the expression mentions, in source
// order, duplicates included
func (e *Expr) Refs() []api.Ref {
	return collectRefs(e.root, nil)
}

func collectRefs(n node, refs []api.Ref) []api.Ref {
	switch n := n.(type) {
	case *refNode:
		refs = append(refs, n.ref)
	case *listNode:
		for _, item := range n.items {
			refs = collectRefs(item, refs)
		}
	case *notNode:
		refs = collectRefs(n.expr, refs)
	case *andNode:
		refs = collectRefs(n.left, refs)
		refs = collectRefs(n.right, refs)
	case *orNode:
		refs = collectRefs(n.left, refs)
		refs = collectRefs(n.right, refs)
	case *cmpNode:
		refs = collectRefs(n.left, refs)
		refs = collectRefs(n.right, refs)
	}
	return refs
}

func (p *parser) advance() error {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return nil
	}
	tok, err := p.scan.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// peek fills the one-token lookahead used to distinguish NOT IN from
// a unary NOT at comparison position
func (p *parser) peek() (token, error) {
	if p.ahead == nil {
		tok, err := p.scan.next()
		if err != nil {
			return token{}, err
		}
		p.ahead = &tok
	}
	return *p.ahead, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokenOr {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right, pos: pos}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokenAnd {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right, pos: pos}
	}
	return left, nil
}

func (p *parser) parseCmp() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	op, ok, err := p.cmpOperator()
	if err != nil {
		return nil, err
	}
	if !ok {
		return left, nil
	}
	pos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if op == opNotIn {
		// cmpOperator left us on NOT; step past IN as well
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if _, chained, err := p.cmpOperator(); err != nil {
		return nil, err
	} else if chained {
		return nil, &SyntaxError{
			Pos: p.tok.pos,
			Got: "chained comparison; use AND to combine",
		}
	}
	return &cmpNode{op: op, left: left, right: right, pos: pos}, nil
}

// parseUnary reads a NOT chain; NOT binds tighter than the comparison
// operators, so its operand is always a primary
func (p *parser) parseUnary() (node, error) {
	if p.tok.kind == tokenNot {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{expr: expr, pos: pos}, nil
	}
	return p.parsePrimary()
}

// cmpOperator reports the comparison operator at the current token,
// without consuming it. NOT followed by IN reads ahead one token
func (p *parser) cmpOperator() (cmpOp, bool, error) {
	switch p.tok.kind {
	case tokenEq:
		return opEq, true, nil
	case tokenNe:
		return opNe, true, nil
	case tokenLt:
		return opLt, true, nil
	case tokenGt:
		return opGt, true, nil
	case tokenLe:
		return opLe, true, nil
	case tokenGe:
		return opGe, true, nil
	case tokenIn:
		return opIn, true, nil
	case tokenNot:
		next, err := p.peek()
		if err != nil {
			return 0, false, err
		}
		if next.kind == tokenIn {
			return opNotIn, true, nil
		}
	}
	return 0, false, nil
}

func (p *parser) parsePrimary() (node, error) {
	switch tok := p.tok; tok.kind {
	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokenRParen {
			return nil, &SyntaxError{
				Pos: p.tok.pos, Want: `")"`, Got: p.tok.String(),
			}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	case tokenLBracket:
		return p.parseList()
	case tokenNumber:
		return p.parseNumber()
	case tokenString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: tok.text}, nil
	case tokenTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: true}, nil
	case tokenFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: false}, nil
	case tokenNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: nil}, nil
	case tokenRef:
		ref, err := api.ParseRef(tok.text)
		if err != nil {
			return nil, &SyntaxError{
				Pos: tok.pos,
				Got: "invalid reference " + tok.String(),
			}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &refNode{ref: ref, pos: tok.pos}, nil
	}
	return nil, &SyntaxError{
		Pos: p.tok.pos, Want: "a value", Got: p.tok.String(),
	}
}

// parseList reads a bracketed list of literals. References and nested
// lists are not permitted as list members
func (p *parser) parseList() (node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var items []node
	if p.tok.kind == tokenRBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &listNode{items: items}, nil
	}
	for {
		item, err := p.parseListItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		switch p.tok.kind {
		case tokenComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokenRBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &listNode{items: items}, nil
		default:
			return nil, &SyntaxError{
				Pos: p.tok.pos, Want: `"," or "]"`, Got: p.tok.String(),
			}
		}
	}
}

func (p *parser) parseListItem() (node, error) {
	switch tok := p.tok; tok.kind {
	case tokenNumber:
		return p.parseNumber()
	case tokenString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: tok.text}, nil
	case tokenTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: true}, nil
	case tokenFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: false}, nil
	case tokenNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &litNode{val: nil}, nil
	}
	return nil, &SyntaxError{
		Pos: p.tok.pos, Want: "a literal", Got: p.tok.String(),
	}
}

func (p *parser) parseNumber() (node, error) {
	tok := p.tok
	val, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return nil, &SyntaxError{
			Pos: tok.pos, Got: "malformed number " + tok.String(),
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &litNode{val: val}, nil
}
