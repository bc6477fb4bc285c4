package coretools

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	maxExpressionLength = 4096
	maxNestingDepth     = 128
)

var (
	// ErrInvalidExpression is returned for anything that is not plain arithmetic
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrDivisionByZero is returned when a divisor evaluates to zero
	ErrDivisionByZero = errors.New("division by zero")
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind  tokenKind
	value float64
	op    byte
	pos   int
}

// Evaluate computes an arithmetic expression made of numeric literals,
// parentheses, unary signs and the binary operators + - * /.
// Any other token is rejected; nothing is ever executed.
func Evaluate(expression string) (float64, error) {
	if len(expression) > maxExpressionLength {
		return 0, fmt.Errorf("%w: expression longer than %d characters", ErrInvalidExpression, maxExpressionLength)
	}

	tokens, err := tokenize(expression)
	if err != nil {
		return 0, err
	}

	p := &parser{tokens: tokens}
	value, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected token at position %d", ErrInvalidExpression, tok.pos)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrInvalidExpression)
	}
	return value, nil
}

func tokenize(s string) ([]token, error) {
	tokens := make([]token, 0, len(s)/2+1)

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{kind: tokOp, op: c, pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case isDigit(c) || c == '.':
			start := i
			seenDot := false
			for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
				if s[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("%w: malformed number at position %d", ErrInvalidExpression, start)
					}
					seenDot = true
				}
				i++
			}
			literal := s[start:i]
			if literal == "." {
				return nil, fmt.Errorf("%w: malformed number at position %d", ErrInvalidExpression, start)
			}
			value, err := strconv.ParseFloat(literal, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed number at position %d", ErrInvalidExpression, start)
			}
			tokens = append(tokens, token{kind: tokNumber, value: value, pos: start})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at position %d", ErrInvalidExpression, c, i)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(s)})
	return tokens, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// parser is a recursive-descent evaluator:
//
//	expr   := term (('+' | '-') term)*
//	term   := unary (('*' | '/') unary)*
//	unary  := ('+' | '-') unary | primary
//	primary := number | '(' expr ')'
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpr(depth int) (float64, error) {
	left, err := p.parseTerm(depth)
	if err != nil {
		return 0, err
	}

	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.op != '+' && tok.op != '-') {
			return left, nil
		}
		p.next()

		right, err := p.parseTerm(depth)
		if err != nil {
			return 0, err
		}
		if tok.op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm(depth int) (float64, error) {
	left, err := p.parseUnary(depth)
	if err != nil {
		return 0, err
	}

	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.op != '*' && tok.op != '/') {
			return left, nil
		}
		p.next()

		right, err := p.parseUnary(depth)
		if err != nil {
			return 0, err
		}
		if tok.op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		left /= right
	}
}

func (p *parser) parseUnary(depth int) (float64, error) {
	if depth > maxNestingDepth {
		return 0, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidExpression, maxNestingDepth)
	}

	tok := p.peek()
	if tok.kind == tokOp && (tok.op == '+' || tok.op == '-') {
		p.next()
		value, err := p.parseUnary(depth + 1)
		if err != nil {
			return 0, err
		}
		if tok.op == '-' {
			return -value, nil
		}
		return value, nil
	}
	return p.parsePrimary(depth)
}

func (p *parser) parsePrimary(depth int) (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.value, nil
	case tokLParen:
		value, err := p.parseExpr(depth + 1)
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis at position %d", ErrInvalidExpression, closing.pos)
		}
		return value, nil
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrInvalidExpression)
	default:
		return 0, fmt.Errorf("%w: unexpected token at position %d", ErrInvalidExpression, tok.pos)
	}
}
