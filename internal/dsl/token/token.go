// Package token defines the lexical vocabulary of the strategy language.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	Illegal Kind = iota
	End

	Identifier
	Number
	String
	Date
	Operator

	// keywords
	When
	Crosses
	Above
	Below
	Buy
	Sell
	All
	True
	False
	Strategy
	Parameters
	Indicators
	Data
	Entry
	Exit
	Config

	// punctuation
	LeftParen
	RightParen
	Comma
	LeftBrace
	RightBrace
	Colon
	Equals
	LeftBracket
	RightBracket
)

var kindNames = map[Kind]string{
	Illegal:      "Illegal",
	End:          "End",
	Identifier:   "Identifier",
	Number:       "Number",
	String:       "String",
	Date:         "Date",
	Operator:     "Operator",
	When:         "When",
	Crosses:      "Crosses",
	Above:        "Above",
	Below:        "Below",
	Buy:          "Buy",
	Sell:         "Sell",
	All:          "All",
	True:         "True",
	False:        "False",
	Strategy:     "Strategy",
	Parameters:   "Parameters",
	Indicators:   "Indicators",
	Data:         "Data",
	Entry:        "Entry",
	Exit:         "Exit",
	Config:       "Config",
	LeftParen:    "LeftParen",
	RightParen:   "RightParen",
	Comma:        "Comma",
	LeftBrace:    "LeftBrace",
	RightBrace:   "RightBrace",
	Colon:        "Colon",
	Equals:       "Equals",
	LeftBracket:  "LeftBracket",
	RightBracket: "RightBracket",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsBlockKeyword reports whether the kind opens a strategy body block.
func (k Kind) IsBlockKeyword() bool {
	switch k {
	case Parameters, Indicators, Data, Entry, Exit, Config:
		return true
	default:
		return false
	}
}

var keywords = map[string]Kind{
	"when":       When,
	"crosses":    Crosses,
	"above":      Above,
	"below":      Below,
	"buy":        Buy,
	"sell":       Sell,
	"all":        All,
	"true":       True,
	"false":      False,
	"strategy":   Strategy,
	"parameters": Parameters,
	"indicators": Indicators,
	"data":       Data,
	"entry":      Entry,
	"exit":       Exit,
	"config":     Config,
}

// LookupKeyword returns the keyword kind for word, if any.
func LookupKeyword(word string) (Kind, bool) {
	kind, ok := keywords[word]

	return kind, ok
}

// OperatorType identifies an operator.
type OperatorType string

const (
	OpNone         OperatorType = ""
	OpAnd          OperatorType = "and"
	OpOr           OperatorType = "or"
	OpCrosses      OperatorType = "crosses"
	OpCrossesAbove OperatorType = "crosses_above"
	OpCrossesBelow OperatorType = "crosses_below"
	OpGreater      OperatorType = ">"
	OpLess         OperatorType = "<"
	OpGreaterEqual OperatorType = ">="
	OpLessEqual    OperatorType = "<="
	OpEqual        OperatorType = "=="
	OpPlus         OperatorType = "+"
	OpMinus        OperatorType = "-"
	OpMultiply     OperatorType = "*"
	OpDivide       OperatorType = "/"
)

// Origin is the category an operator belongs to.
type Origin string

const (
	OriginNone         Origin = "none"
	OriginMathematical Origin = "mathematical"
	OriginLogical      Origin = "logical"
	OriginComparison   Origin = "comparison"
	OriginDomain       Origin = "domain"
)

var operators = map[string]OperatorType{
	"and":           OpAnd,
	"or":            OpOr,
	"crosses":       OpCrosses,
	"crosses_above": OpCrossesAbove,
	"crosses_below": OpCrossesBelow,
	">":             OpGreater,
	"<":             OpLess,
	">=":            OpGreaterEqual,
	"<=":            OpLessEqual,
	"==":            OpEqual,
	"+":             OpPlus,
	"-":             OpMinus,
	"*":             OpMultiply,
	"/":             OpDivide,
}

// LookupOperator returns the operator named by text, if any.
func LookupOperator(text string) (OperatorType, bool) {
	op, ok := operators[text]

	return op, ok
}

// Origin returns the category of the operator.
func (o OperatorType) Origin() Origin {
	switch o {
	case OpPlus, OpMinus, OpMultiply, OpDivide:
		return OriginMathematical
	case OpAnd, OpOr:
		return OriginLogical
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return OriginComparison
	case OpCrosses, OpCrossesAbove, OpCrossesBelow:
		return OriginDomain
	default:
		return OriginNone
	}
}

// Token is a single lexeme with its source position.
type Token struct {
	Kind     Kind
	Text     string
	Line     int
	Column   int
	Operator OperatorType
	Origin   Origin
}

// New builds a token, filling the operator category for operator tokens.
func New(kind Kind, text string, line, column int) Token {
	tok := Token{
		Kind:     kind,
		Text:     text,
		Line:     line,
		Column:   column,
		Operator: OpNone,
		Origin:   OriginNone,
	}

	if kind == Operator {
		if op, ok := LookupOperator(text); ok {
			tok.Operator = op
			tok.Origin = op.Origin()
		}
	}

	return tok
}

// Is reports whether the token has the given kind.
func (t Token) Is(kind Kind) bool {
	return t.Kind == kind
}

// IsOperator reports whether the token is the given operator.
func (t Token) IsOperator(ops ...OperatorType) bool {
	if t.Kind != Operator {
		return false
	}

	for _, op := range ops {
		if t.Operator == op {
			return true
		}
	}

	return false
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Kind, t.Text, t.Line, t.Column)
}
