package parser

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/token"
)

// Precedence from loosest to tightest:
//
//	expression  := term ( "or" term )*
//	term        := comparison ( "and" comparison )*
//	comparison  := additive ( ( ">" | "<" | ">=" | "<=" | "==" | crossing ) additive )*
//	additive    := multiplicative ( ( "+" | "-" ) multiplicative )*
//	multiplicative := factor ( ( "*" | "/" ) factor )*
//	factor      := call | number | "-" number | "(" expression ")" | identifier | string | boolean
//
// crossing is crosses_above, crosses_below, or the keyword form "crosses above|below".

type tier struct {
	kind      ast.Kind
	operators []token.OperatorType
	next      func(*Parser) (ast.Node, error)
}

func (p *Parser) parseExpression() (ast.Node, error) {
	return p.fold(tier{kind: ast.KindExpression, operators: []token.OperatorType{token.OpOr}, next: (*Parser).parseTerm})
}

func (p *Parser) parseTerm() (ast.Node, error) {
	return p.fold(tier{kind: ast.KindTerm, operators: []token.OperatorType{token.OpAnd}, next: (*Parser).parseComparison})
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	return p.fold(tier{
		kind:      ast.KindArithmetics,
		operators: []token.OperatorType{token.OpPlus, token.OpMinus},
		next:      (*Parser).parseMultiplicative,
	})
}

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	return p.fold(tier{
		kind:      ast.KindArithmetics,
		operators: []token.OperatorType{token.OpMultiply, token.OpDivide},
		next:      (*Parser).parseFactor,
	})
}

// fold parses a left-associative chain of one tier.
func (p *Parser) fold(t tier) (ast.Node, error) {
	left, err := t.next(p)
	if err != nil {
		return nil, err
	}

	for p.current().IsOperator(t.operators...) {
		op := p.advance()

		right, err := t.next(p)
		if err != nil {
			return nil, err
		}

		left = ast.NewBinary(t.kind, op, left, right)
	}

	return left, nil
}

var comparisonOperators = []token.OperatorType{
	token.OpGreater, token.OpLess, token.OpGreaterEqual, token.OpLessEqual, token.OpEqual,
}

func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		var (
			op   token.Token
			kind ast.Kind
		)

		switch cur := p.current(); {
		case cur.IsOperator(comparisonOperators...):
			op, kind = p.advance(), ast.KindComparison
		case cur.IsOperator(token.OpCrossesAbove, token.OpCrossesBelow):
			op, kind = p.advance(), ast.KindCondition
		case cur.Is(token.Crosses):
			crossing, err := p.parseCrossesKeyword()
			if err != nil {
				return nil, err
			}

			op, kind = crossing, ast.KindCondition
		default:
			return left, nil
		}

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = ast.NewBinary(kind, op, left, right)
	}
}

// parseCrossesKeyword turns `crosses above` and `crosses below` into the named crossing operators.
func (p *Parser) parseCrossesKeyword() (token.Token, error) {
	crosses := p.advance()

	direction := p.current()

	switch direction.Kind {
	case token.Above:
		p.advance()

		return token.New(token.Operator, string(token.OpCrossesAbove), crosses.Line, crosses.Column), nil
	case token.Below:
		p.advance()

		return token.New(token.Operator, string(token.OpCrossesBelow), crosses.Line, crosses.Column), nil
	default:
		return token.Token{}, p.unexpected(direction)
	}
}

func (p *Parser) parseFactor() (ast.Node, error) {
	if p.isFunctionCall() {
		return p.parseFunctionCall()
	}

	tok := p.current()

	switch {
	case tok.Is(token.Number):
		p.advance()

		return p.numberNode(tok, false)
	case tok.IsOperator(token.OpMinus) && p.peek().Is(token.Number):
		p.advance()

		return p.numberNode(p.advance(), true)
	case tok.Is(token.LeftParen):
		p.advance()

		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.RightParen); err != nil {
			return nil, err
		}

		return expr, nil
	case tok.Is(token.Identifier), tok.Is(token.String):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralText, Text: tok.Text}, nil
	case tok.Is(token.True), tok.Is(token.False):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralBool, Bool: tok.Is(token.True)}, nil
	default:
		return nil, p.unexpected(tok)
	}
}

func someQuantity(q float64) optional.Option[float64] {
	return optional.Some(q)
}
