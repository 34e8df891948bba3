// Package parser builds the syntax tree of a strategy from its tokens by recursive descent.
package parser

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/lexer"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/token"
	"github.com/rxtech-lab/argo-dsl/internal/logger"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// DefaultRequiredBlocks are the strategy blocks a program must contain unless overridden.
var DefaultRequiredBlocks = []ast.BlockKind{ast.BlockParameters}

// stringKeys may take a bare identifier as their value.
var stringKeys = map[string]bool{
	"ticker":       true,
	"exchange":     true,
	"symbol":       true,
	"timespan":     true,
	"from":         true,
	"to":           true,
	"positionMode": true,
}

// Option configures a Parser.
type Option func(*Parser)

// WithRequiredBlocks replaces the set of strategy blocks that must be present.
func WithRequiredBlocks(kinds ...ast.BlockKind) Option {
	return func(p *Parser) {
		p.required = kinds
	}
}

// WithLogger sets the logger used for parse tracing.
func WithLogger(l *logger.Logger) Option {
	return func(p *Parser) {
		p.logger = l.Named("parser")
	}
}

// Parser consumes a token stream. A Parser is single use.
type Parser struct {
	tokens   []token.Token
	pos      int
	required []ast.BlockKind
	logger   *logger.Logger

	root     *ast.Root
	implicit *ast.Strategy
	seen     map[ast.BlockKind]bool
	blocks   map[token.Kind]blockParser
}

type blockParser func(p *Parser, strategy *ast.Strategy) error

// New creates a parser over tokens. A missing End token is appended.
func New(tokens []token.Token, opts ...Option) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != token.End {
		line, column := 1, 1
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1]
			line, column = last.Line, last.Column+len(last.Text)
		}

		tokens = append(tokens, token.New(token.End, "", line, column))
	}

	p := &Parser{
		tokens:   tokens,
		pos:      0,
		required: DefaultRequiredBlocks,
		logger:   logger.NewNopLogger(),
		root:     &ast.Root{Config: nil, Data: nil, Strategy: nil},
		implicit: nil,
		seen:     map[ast.BlockKind]bool{},
	}

	p.blocks = map[token.Kind]blockParser{
		token.Parameters: (*Parser).parseParameters,
		token.Config:     (*Parser).parseStrategyConfig,
		token.Indicators: (*Parser).parseIndicators,
		token.Data:       (*Parser).parseStrategyData,
		token.Entry:      (*Parser).parseEntry,
		token.Exit:       (*Parser).parseExit,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ParseString lexes and parses src.
func ParseString(src string, opts ...Option) (*ast.Root, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}

	return New(tokens, opts...).Parse()
}

// Parse parses the whole program.
func (p *Parser) Parse() (*ast.Root, error) {
	for !p.check(token.End) {
		tok := p.current()

		switch tok.Kind {
		case token.Config:
			if err := p.parseRootConfig(); err != nil {
				return nil, err
			}
		case token.Data:
			if err := p.parseRootData(); err != nil {
				return nil, err
			}
		case token.Strategy:
			if err := p.parseStrategy(); err != nil {
				return nil, err
			}
		case token.Parameters, token.Indicators, token.Entry, token.Exit:
			if err := p.parseImplicitBlock(); err != nil {
				return nil, err
			}
		default:
			return nil, p.unexpected(tok)
		}
	}

	if err := p.checkRequired(); err != nil {
		return nil, err
	}

	p.logger.Debug("parsed program", zap.Int("tokens", len(p.tokens)))

	return p.root, nil
}

func (p *Parser) checkRequired() error {
	for _, kind := range p.required {
		if p.root.Strategy == nil {
			return errors.Newf(errors.ErrCodeMissingBlock, "Missing required block '%s'", kind)
		}

		if _, ok := p.root.Strategy.Block(kind); !ok {
			return errors.Newf(errors.ErrCodeMissingBlock, "Missing required block '%s'", kind)
		}
	}

	return nil
}

func (p *Parser) parseStrategy() error {
	start := p.advance()

	if p.root.Strategy != nil {
		return errors.NewAt(errors.ErrCodeDuplicateStrategy, start.Line, start.Column, "Duplicate strategy")
	}

	name, err := p.expect(token.Identifier)
	if err != nil {
		return err
	}

	if _, err := p.expect(token.LeftBrace); err != nil {
		return err
	}

	strategy := &ast.Strategy{Pos: ast.PosOf(start), Name: name.Text, Blocks: nil}
	p.root.Strategy = strategy

	for !p.check(token.RightBrace) {
		if err := p.parseBodyBlock(strategy); err != nil {
			return err
		}
	}

	p.advance()
	p.logger.Debug("parsed strategy", zap.String("name", strategy.Name), zap.Int("blocks", len(strategy.Blocks)))

	return nil
}

// parseImplicitBlock handles strategy blocks written at the top level without a strategy wrapper.
func (p *Parser) parseImplicitBlock() error {
	if p.implicit == nil {
		if p.root.Strategy != nil {
			tok := p.current()

			return errors.NewAt(errors.ErrCodeDuplicateStrategy, tok.Line, tok.Column, "Duplicate strategy")
		}

		p.implicit = &ast.Strategy{Pos: ast.PosOf(p.current()), Name: "", Blocks: nil}
		p.root.Strategy = p.implicit
	}

	return p.parseBodyBlock(p.implicit)
}

func (p *Parser) parseBodyBlock(strategy *ast.Strategy) error {
	tok := p.current()

	parse, ok := p.blocks[tok.Kind]
	if !ok {
		return p.unexpected(tok)
	}

	return parse(p, strategy)
}

// claim records that a block kind was used and rejects a second occurrence.
func (p *Parser) claim(kind ast.BlockKind, tok token.Token) error {
	if p.seen[kind] {
		return errors.NewAt(errors.ErrCodeDuplicateBlock, tok.Line, tok.Column, "Duplicate block '%s'", kind)
	}

	p.seen[kind] = true

	return nil
}

func (p *Parser) parseRootConfig() error {
	tok := p.advance()
	if err := p.claim(ast.BlockConfig, tok); err != nil {
		return err
	}

	block, err := p.parseNestedBlock(ast.BlockConfig, tok)
	if err != nil {
		return err
	}

	p.root.Config = block

	return nil
}

func (p *Parser) parseStrategyConfig(_ *ast.Strategy) error {
	return p.parseRootConfig()
}

func (p *Parser) parseRootData() error {
	tok := p.advance()
	if err := p.claim(ast.BlockData, tok); err != nil {
		return err
	}

	list, err := p.parseDataList(tok)
	if err != nil {
		return err
	}

	p.root.Data = list

	return nil
}

func (p *Parser) parseStrategyData(_ *ast.Strategy) error {
	return p.parseRootData()
}

func (p *Parser) parseParameters(strategy *ast.Strategy) error {
	tok := p.advance()
	if err := p.claim(ast.BlockParameters, tok); err != nil {
		return err
	}

	block, err := p.parseNestedBlock(ast.BlockParameters, tok)
	if err != nil {
		return err
	}

	strategy.Blocks = append(strategy.Blocks, block)

	return nil
}

func (p *Parser) parseIndicators(strategy *ast.Strategy) error {
	tok := p.advance()
	if err := p.claim(ast.BlockIndicators, tok); err != nil {
		return err
	}

	if _, err := p.expect(token.LeftBrace); err != nil {
		return err
	}

	block := ast.NewBlock(ast.BlockIndicators, ast.PosOf(tok))

	for p.check(token.Identifier) {
		name := p.advance()

		if _, err := p.expect(token.Equals); err != nil {
			return err
		}

		if !p.isFunctionCall() {
			return p.unexpected(p.current())
		}

		call, err := p.parseFunctionCall()
		if err != nil {
			return err
		}

		block.Set(name.Text, &ast.Assignment{Pos: ast.PosOf(name), Name: name.Text, Expr: call})
		p.skip(token.Comma)
	}

	if _, err := p.expect(token.RightBrace); err != nil {
		return err
	}

	strategy.Blocks = append(strategy.Blocks, block)
	p.logger.Debug("parsed indicators", zap.Strings("names", block.Keys()))

	return nil
}

func (p *Parser) parseEntry(strategy *ast.Strategy) error {
	return p.parseRule(strategy, ast.BlockEntry)
}

func (p *Parser) parseExit(strategy *ast.Strategy) error {
	return p.parseRule(strategy, ast.BlockExit)
}

// parseRule parses entry and exit: one or more `when <expr>` clauses with an optional action.
// Extra clauses are joined to the first with a logical and.
func (p *Parser) parseRule(strategy *ast.Strategy, kind ast.BlockKind) error {
	tok := p.advance()
	if err := p.claim(kind, tok); err != nil {
		return err
	}

	if _, err := p.expect(token.LeftBrace); err != nil {
		return err
	}

	block := ast.NewBlock(kind, ast.PosOf(tok))

	var (
		condition ast.Node
		action    *ast.Action
	)

	for !p.check(token.RightBrace) {
		if p.check(token.LeftBrace) {
			if action != nil || condition == nil {
				cur := p.current()

				return errors.NewAt(errors.ErrCodeInvalidActionClause, cur.Line, cur.Column, "Unexpected action clause")
			}

			parsed, err := p.parseAction()
			if err != nil {
				return err
			}

			action = parsed

			continue
		}

		when, err := p.expect(token.When)
		if err != nil {
			return err
		}

		expr, err := p.parseExpression()
		if err != nil {
			return err
		}

		if condition == nil {
			condition = expr
		} else {
			and := token.New(token.Operator, string(token.OpAnd), when.Line, when.Column)
			condition = ast.NewBinary(ast.KindLogicalCondition, and, condition, expr)
		}
	}

	p.advance()

	if condition == nil {
		return errors.NewAt(errors.ErrCodeMissingBlock, tok.Line, tok.Column, "Block '%s' requires a when clause", kind)
	}

	block.Set("Conditions", condition)
	if action != nil {
		block.Set("Action", action)
	}

	strategy.Blocks = append(strategy.Blocks, block)

	return nil
}

// parseAction parses `{ buy <n>|all }`, `{ sell <n>|all }` or `{ close }`.
func (p *Parser) parseAction() (*ast.Action, error) {
	p.advance()

	tok := p.current()
	action := &ast.Action{Pos: ast.PosOf(tok), Type: "", All: false}

	switch {
	case tok.Is(token.Buy):
		action.Type = ast.ActionBuy
	case tok.Is(token.Sell):
		action.Type = ast.ActionSell
	case tok.Is(token.Identifier) && tok.Text == string(ast.ActionClose):
		action.Type = ast.ActionClose
	default:
		return nil, errors.NewAt(errors.ErrCodeInvalidActionClause, tok.Line, tok.Column, "Unknown action '%s'", tok.Text)
	}

	p.advance()

	if action.Type != ast.ActionClose {
		switch {
		case p.check(token.All):
			p.advance()
			action.All = true
		case p.check(token.Number):
			quantity, err := p.parseNumber(p.advance(), false)
			if err != nil {
				return nil, err
			}

			action.Quantity = someQuantity(quantity)
		}
	}

	if _, err := p.expect(token.RightBrace); err != nil {
		return nil, err
	}

	return action, nil
}

func (p *Parser) parseDataList(start token.Token) (*ast.List, error) {
	if _, err := p.expect(token.LeftBracket); err != nil {
		return nil, err
	}

	list := &ast.List{Pos: ast.PosOf(start), Items: nil}

	for !p.check(token.RightBracket) {
		open := p.current()

		block, err := p.parseNestedBlock(ast.BlockData, open)
		if err != nil {
			return nil, err
		}

		ticker, ok := block.Get("ticker")
		if value, isValue := ticker.(*ast.ValueNode); !ok || !isValue || value.Literal != ast.LiteralText || value.Text == "" {
			return nil, errors.NewAt(errors.ErrCodeMissingTicker, open.Line, open.Column, "No ticker found")
		}

		list.Items = append(list.Items, block)
		p.skip(token.Comma)
	}

	p.advance()

	return list, nil
}

// parseNestedBlock parses `{ key: scalar | key { ... } | key = call ... }`.
// The opening brace is expected at the current token.
func (p *Parser) parseNestedBlock(kind ast.BlockKind, start token.Token) (*ast.Block, error) {
	if _, err := p.expect(token.LeftBrace); err != nil {
		return nil, err
	}

	block := ast.NewBlock(kind, ast.PosOf(start))

	for !p.check(token.RightBrace) {
		key, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}

		switch {
		case p.check(token.Colon):
			p.advance()

			scalar, err := p.parseScalar(key.Text)
			if err != nil {
				return nil, err
			}

			block.Set(key.Text, scalar)
		case p.check(token.LeftBrace):
			nested, err := p.parseNestedBlock(ast.BlockNested, key)
			if err != nil {
				return nil, err
			}

			block.Set(key.Text, &ast.ValueNode{Pos: ast.PosOf(key), Literal: ast.LiteralMap, Map: nested})
		case p.check(token.Equals):
			p.advance()

			if !p.isFunctionCall() {
				return nil, p.unexpected(p.current())
			}

			call, err := p.parseFunctionCall()
			if err != nil {
				return nil, err
			}

			block.Set(key.Text, &ast.Assignment{Pos: ast.PosOf(key), Name: key.Text, Expr: call})
		default:
			return nil, p.unexpected(p.current())
		}

		p.skip(token.Comma)
	}

	p.advance()

	return block, nil
}

func (p *Parser) parseScalar(key string) (*ast.ValueNode, error) {
	tok := p.current()

	switch {
	case tok.Is(token.Number):
		p.advance()

		return p.numberNode(tok, false)
	case tok.IsOperator(token.OpMinus) && p.peek().Is(token.Number):
		p.advance()

		return p.numberNode(p.advance(), true)
	case tok.Is(token.True), tok.Is(token.False):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralBool, Bool: tok.Is(token.True)}, nil
	case tok.Is(token.String):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralText, Text: tok.Text}, nil
	case tok.Is(token.Date):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralDate, Text: tok.Text}, nil
	case tok.Is(token.Identifier) && stringKeys[key]:
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralText, Text: tok.Text}, nil
	default:
		return nil, p.unexpected(tok)
	}
}

func (p *Parser) numberNode(tok token.Token, negate bool) (*ast.ValueNode, error) {
	n, err := p.parseNumber(tok, negate)
	if err != nil {
		return nil, err
	}

	return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralNumber, Number: n}, nil
}

func (p *Parser) parseNumber(tok token.Token, negate bool) (float64, error) {
	n, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return 0, errors.NewAt(errors.ErrCodeInvalidNumber, tok.Line, tok.Column, "Invalid number '%s'", tok.Text)
	}

	if negate {
		n = -n
	}

	return n, nil
}

func (p *Parser) isFunctionCall() bool {
	return p.check(token.Identifier) && p.peek().Is(token.LeftParen)
}

func (p *Parser) parseFunctionCall() (*ast.FunctionCall, error) {
	name := p.advance()
	p.advance() // (

	call := &ast.FunctionCall{Pos: ast.PosOf(name), Name: name.Text, Args: nil}

	for !p.check(token.RightParen) {
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}

		call.Args = append(call.Args, arg)

		if p.check(token.Comma) {
			comma := p.advance()
			if p.check(token.RightParen) {
				return nil, errors.NewAt(errors.ErrCodeTrailingComma, comma.Line, comma.Column, "Trailing comma in function call")
			}

			continue
		}

		if !p.check(token.RightParen) {
			return nil, p.unexpected(p.current())
		}
	}

	p.advance()

	return call, nil
}

func (p *Parser) parseArgument() (ast.Node, error) {
	if p.isFunctionCall() {
		return p.parseFunctionCall()
	}

	tok := p.current()

	switch {
	case tok.Is(token.Identifier), tok.Is(token.String):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralText, Text: tok.Text}, nil
	case tok.Is(token.Number):
		p.advance()

		return p.numberNode(tok, false)
	case tok.IsOperator(token.OpMinus) && p.peek().Is(token.Number):
		p.advance()

		return p.numberNode(p.advance(), true)
	case tok.Is(token.True), tok.Is(token.False):
		p.advance()

		return &ast.ValueNode{Pos: ast.PosOf(tok), Literal: ast.LiteralBool, Bool: tok.Is(token.True)}, nil
	default:
		return nil, p.unexpected(tok)
	}
}

func (p *Parser) current() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}

	return p.tokens[len(p.tokens)-1]
}

// advance returns the current token and moves past it. It never moves past End.
func (p *Parser) advance() token.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != token.End {
		p.pos++
	}

	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.current().Kind == kind
}

func (p *Parser) skip(kind token.Kind) {
	if p.check(kind) {
		p.advance()
	}
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if !p.check(kind) {
		return token.Token{}, p.unexpected(p.current())
	}

	return p.advance(), nil
}

func (p *Parser) unexpected(tok token.Token) error {
	if tok.Kind == token.End {
		return errors.NewAt(errors.ErrCodeUnexpectedEnd, tok.Line, tok.Column, "Unexpected end of input")
	}

	return errors.NewAt(errors.ErrCodeUnexpectedToken, tok.Line, tok.Column, "Unexpected token '%s'", tok.Text)
}
