package expr

import (
	"fmt"
	"strings"
)

type (
	tokenKind int

	token struct {
		kind tokenKind
		text string
		pos  int
	}

	scanner struct {
		src string
		pos int
	}
)

const (
	tokenEOF tokenKind = iota
	tokenRef
	tokenNumber
	tokenString
	tokenTrue
	tokenFalse
	tokenNull
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenEq
	tokenNe
	tokenLt
	tokenGt
	tokenLe
	tokenGe
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

// Keywords are matched case-insensitively; reference roots and paths
// remain case-sensitive
var keywords = map[string]tokenKind{
	"and":   tokenAnd,
	"or":    tokenOr,
	"not":   tokenNot,
	"in":    tokenIn,
	"true":  tokenTrue,
	"false": tokenFalse,
	"null":  tokenNull,
}

func (t token) String() string {
	if t.kind == tokenEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

func (s *scanner) next() (token, error) {
	s.skipSpace()
	start := s.pos
	if s.pos >= len(s.src) {
		return token{kind: tokenEOF, pos: start}, nil
	}

	c := s.src[s.pos]
	switch {
	case c == '(':
		s.pos++
		return token{tokenLParen, "(", start}, nil
	case c == ')':
		s.pos++
		return token{tokenRParen, ")", start}, nil
	case c == '[':
		s.pos++
		return token{tokenLBracket, "[", start}, nil
	case c == ']':
		s.pos++
		return token{tokenRBracket, "]", start}, nil
	case c == ',':
		s.pos++
		return token{tokenComma, ",", start}, nil
	case c == '=':
		if s.peekAt(1) == '=' {
			s.pos += 2
			return token{tokenEq, "==", start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Got: `"=" (did you mean "==")`}
	case c == '!':
		if s.peekAt(1) == '=' {
			s.pos += 2
			return token{tokenNe, "!=", start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Got: `"!"`}
	case c == '<':
		if s.peekAt(1) == '=' {
			s.pos += 2
			return token{tokenLe, "<=", start}, nil
		}
		s.pos++
		return token{tokenLt, "<", start}, nil
	case c == '>':
		if s.peekAt(1) == '=' {
			s.pos += 2
			return token{tokenGe, ">=", start}, nil
		}
		s.pos++
		return token{tokenGt, ">", start}, nil
	case c == '\'' || c == '"':
		return s.scanString(c)
	case isDigit(c):
		return s.scanNumber()
	case c == '-':
		if isDigit(s.peekAt(1)) {
			return s.scanNumber()
		}
		return token{}, &SyntaxError{Pos: start, Got: `"-"`}
	case isWordStart(c):
		return s.scanWord()
	}
	return token{}, &SyntaxError{
		Pos: start, Got: fmt.Sprintf("%q", string(c)),
	}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// peekAt returns the byte at the given offset from the current
// position, or zero past the end of the source
func (s *scanner) peekAt(offset int) byte {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

func (s *scanner) scanNumber() (token, error) {
	start := s.pos
	if s.src[s.pos] == '-' {
		s.pos++
	}
	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.pos++
	}
	if s.pos < len(s.src) && s.src[s.pos] == '.' && isDigit(s.peekAt(1)) {
		s.pos++
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.pos++
		}
	}
	return token{tokenNumber, s.src[start:s.pos], start}, nil
}

func (s *scanner) scanString(quote byte) (token, error) {
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case quote:
			s.pos++
			return token{tokenString, b.String(), start}, nil
		case '\\':
			s.pos++
			if s.pos >= len(s.src) {
				break
			}
			switch esc := s.src[s.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				return token{}, &SyntaxError{
					Pos: s.pos,
					Got: fmt.Sprintf("unknown escape %q", string(esc)),
				}
			}
			s.pos++
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return token{}, &SyntaxError{Pos: start, Got: "unterminated string"}
}

// scanWord reads a keyword or a full reference expression, including
// dotted segments and bracketed indexes
func (s *scanner) scanWord() (token, error) {
	start := s.pos
scan:
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case isWordPart(c) || c == '.':
			s.pos++
		case c == '[':
			s.pos++
			for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
				s.pos++
			}
			if s.pos >= len(s.src) || s.src[s.pos] != ']' {
				return token{}, &SyntaxError{
					Pos: s.pos, Got: "malformed index",
				}
			}
			s.pos++
		default:
			break scan
		}
	}
	text := s.src[start:s.pos]
	if kind, ok := keywords[strings.ToLower(text)]; ok {
		return token{kind, text, start}, nil
	}
	return token{tokenRef, text, start}, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigit(c)
}
