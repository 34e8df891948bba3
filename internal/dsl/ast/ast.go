// Package ast defines the syntax tree of the strategy language.
//
// The node set is closed: every node implements Node through an unexported method, and
// consumers switch over the concrete types. Binary operators share one node type tagged
// with their precedence tier.
package ast

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/token"
)

// Kind enumerates every node shape.
type Kind int

const (
	KindValue Kind = iota
	KindBlock
	KindList
	KindFunctionCall
	KindAssignment
	KindArithmetics
	KindComparison
	KindTerm
	KindExpression
	KindLogicalCondition
	KindCondition
	KindAction
	KindStrategy
	KindRoot
)

var kindNames = [...]string{
	KindValue:            "Value",
	KindBlock:            "Block",
	KindList:             "List",
	KindFunctionCall:     "FunctionCall",
	KindAssignment:       "Assignment",
	KindArithmetics:      "Arithmetics",
	KindComparison:       "Comparison",
	KindTerm:             "Term",
	KindExpression:       "Expression",
	KindLogicalCondition: "LogicalCondition",
	KindCondition:        "Condition",
	KindAction:           "Action",
	KindStrategy:         "Strategy",
	KindRoot:             "Root",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Unknown"
}

// IsBinary reports whether the kind is one of the binary operator tiers.
func (k Kind) IsBinary() bool {
	switch k {
	case KindArithmetics, KindComparison, KindTerm, KindExpression, KindLogicalCondition, KindCondition:
		return true
	default:
		return false
	}
}

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// PosOf returns the position of a token.
func PosOf(tok token.Token) Pos {
	return Pos{Line: tok.Line, Column: tok.Column}
}

// Node is implemented by every syntax tree node.
type Node interface {
	Kind() Kind
	Position() Pos
	node()
}

// LiteralKind tags what a ValueNode holds.
type LiteralKind int

const (
	LiteralNumber LiteralKind = iota
	LiteralBool
	LiteralText
	LiteralDate
	LiteralMap
)

// ValueNode is a literal: number, boolean, text (a quoted string or a bare name), date, or a nested map.
type ValueNode struct {
	Pos     Pos
	Literal LiteralKind
	Number  float64
	Bool    bool
	Text    string
	Map     *Block
}

// BlockKind tags the block a Block node was parsed from.
type BlockKind string

const (
	BlockParameters BlockKind = "parameters"
	BlockConfig     BlockKind = "config"
	BlockIndicators BlockKind = "indicators"
	BlockData       BlockKind = "data"
	BlockEntry      BlockKind = "entry"
	BlockExit       BlockKind = "exit"
	BlockNested     BlockKind = "nested"
)

// Entry is one key of a Block.
type Entry struct {
	Key   string
	Value Node
}

// Block is an ordered key to node map.
type Block struct {
	Pos     Pos
	Type    BlockKind
	Entries []Entry
}

// List is an ordered sequence of blocks, used by data.
type List struct {
	Pos   Pos
	Items []*Block
}

// FunctionCall invokes a registered function.
type FunctionCall struct {
	Pos  Pos
	Name string
	Args []Node
}

// Assignment binds an indicator name to an expression.
type Assignment struct {
	Pos  Pos
	Name string
	Expr Node
}

// Binary is a binary operation at one of the precedence tiers.
type Binary struct {
	Pos      Pos
	Tier     Kind
	Operator token.OperatorType
	Origin   token.Origin
	Left     Node
	Right    Node
}

// ActionType is what an action clause does.
type ActionType string

const (
	ActionBuy   ActionType = "buy"
	ActionSell  ActionType = "sell"
	ActionClose ActionType = "close"
)

// Action is a trade instruction attached to an entry or exit rule.
type Action struct {
	Pos      Pos
	Type     ActionType
	Quantity optional.Option[float64]
	All      bool
}

// Strategy is a named strategy with its body blocks in source order.
type Strategy struct {
	Pos    Pos
	Name   string
	Blocks []*Block
}

// Root is the whole program.
type Root struct {
	Config   *Block
	Data     *List
	Strategy *Strategy
}

func (*ValueNode) Kind() Kind    { return KindValue }
func (*Block) Kind() Kind        { return KindBlock }
func (*List) Kind() Kind         { return KindList }
func (*FunctionCall) Kind() Kind { return KindFunctionCall }
func (*Assignment) Kind() Kind   { return KindAssignment }
func (b *Binary) Kind() Kind     { return b.Tier }
func (*Action) Kind() Kind       { return KindAction }
func (*Strategy) Kind() Kind     { return KindStrategy }
func (*Root) Kind() Kind         { return KindRoot }

func (n *ValueNode) Position() Pos    { return n.Pos }
func (n *Block) Position() Pos        { return n.Pos }
func (n *List) Position() Pos         { return n.Pos }
func (n *FunctionCall) Position() Pos { return n.Pos }
func (n *Assignment) Position() Pos   { return n.Pos }
func (n *Binary) Position() Pos       { return n.Pos }
func (n *Action) Position() Pos       { return n.Pos }
func (n *Strategy) Position() Pos     { return n.Pos }
func (*Root) Position() Pos           { return Pos{Line: 1, Column: 1} }

func (*ValueNode) node()    {}
func (*Block) node()        {}
func (*List) node()         {}
func (*FunctionCall) node() {}
func (*Assignment) node()   {}
func (*Binary) node()       {}
func (*Action) node()       {}
func (*Strategy) node()     {}
func (*Root) node()         {}

// NewBinary builds a binary node for the given tier from its operator token.
func NewBinary(tier Kind, op token.Token, left, right Node) *Binary {
	return &Binary{
		Pos:      PosOf(op),
		Tier:     tier,
		Operator: op.Operator,
		Origin:   op.Origin,
		Left:     left,
		Right:    right,
	}
}

// NewBlock creates an empty block of the given kind.
func NewBlock(kind BlockKind, pos Pos) *Block {
	return &Block{Pos: pos, Type: kind, Entries: nil}
}

// Set stores a value under key. A repeated key replaces the earlier value in place.
func (b *Block) Set(key string, value Node) {
	for i := range b.Entries {
		if b.Entries[i].Key == key {
			b.Entries[i].Value = value

			return
		}
	}

	b.Entries = append(b.Entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (b *Block) Get(key string) (Node, bool) {
	for _, entry := range b.Entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}

	return nil, false
}

// Keys returns the keys in source order.
func (b *Block) Keys() []string {
	keys := make([]string, len(b.Entries))
	for i, entry := range b.Entries {
		keys[i] = entry.Key
	}

	return keys
}

// Block returns the first strategy block of the given kind.
func (s *Strategy) Block(kind BlockKind) (*Block, bool) {
	for _, block := range s.Blocks {
		if block.Type == kind {
			return block, true
		}
	}

	return nil, false
}
