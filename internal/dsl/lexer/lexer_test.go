package lexer

import (
	"strings"
	"testing"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/token"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LexerTestSuite struct {
	suite.Suite
}

func TestLexerSuite(t *testing.T) {
	suite.Run(t, new(LexerTestSuite))
}

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}

	return out
}

func (suite *LexerTestSuite) TestEmptyInput() {
	tokens, err := Tokenize("   \n\t ")
	suite.NoError(err)
	suite.Len(tokens, 1)
	suite.Equal(token.End, tokens[0].Kind)
	suite.Equal(2, tokens[0].Line)
}

func (suite *LexerTestSuite) TestKeywordsAndIdentifiers() {
	tokens, err := Tokenize("strategy Cross parameters fast_ma when crosses above")
	suite.NoError(err)
	suite.Equal([]token.Kind{
		token.Strategy, token.Identifier, token.Parameters, token.Identifier,
		token.When, token.Crosses, token.Above, token.End,
	}, kinds(tokens))
	suite.Equal("Cross", tokens[1].Text)
}

func (suite *LexerTestSuite) TestNamedOperators() {
	tokens, err := Tokenize("a and b or c crosses_above d crosses_below e")
	suite.NoError(err)

	suite.Equal(token.OpAnd, tokens[1].Operator)
	suite.Equal(token.OriginLogical, tokens[1].Origin)
	suite.Equal(token.OpOr, tokens[3].Operator)
	suite.Equal(token.OpCrossesAbove, tokens[5].Operator)
	suite.Equal(token.OriginDomain, tokens[5].Origin)
	suite.Equal(token.OpCrossesBelow, tokens[7].Operator)
}

func (suite *LexerTestSuite) TestSymbolOperators() {
	tokens, err := Tokenize("+ - * / > < >= <= == =")
	suite.NoError(err)

	texts := make([]string, 0, len(tokens))
	for _, tok := range tokens[:len(tokens)-1] {
		texts = append(texts, tok.Text)
	}

	suite.Equal([]string{"+", "-", "*", "/", ">", "<", ">=", "<=", "==", "="}, texts)
	suite.Equal(token.OpEqual, tokens[8].Operator)
	suite.Equal(token.OriginComparison, tokens[8].Origin)
	suite.Equal(token.Equals, tokens[9].Kind)
	suite.Equal(token.OriginMathematical, tokens[0].Origin)
}

func (suite *LexerTestSuite) TestNumbers() {
	tokens, err := Tokenize("14 0.25 100")
	suite.NoError(err)
	suite.Equal("14", tokens[0].Text)
	suite.Equal("0.25", tokens[1].Text)
	suite.Equal(token.Number, tokens[1].Kind)
	suite.Equal("100", tokens[2].Text)
}

func (suite *LexerTestSuite) TestInvalidNumber() {
	_, err := Tokenize("x: 5.")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidNumber))
}

func (suite *LexerTestSuite) TestDateLookahead() {
	tests := []struct {
		name     string
		input    string
		expected []token.Kind
	}{
		{name: "full date", input: "2024-01-31", expected: []token.Kind{token.Date, token.End}},
		{name: "year minus number", input: "2024-1", expected: []token.Kind{token.Number, token.Operator, token.Number, token.End}},
		{name: "partial date", input: "2024-01-3", expected: []token.Kind{token.Number, token.Operator, token.Number, token.Operator, token.Number, token.End}},
		{name: "date followed by digit", input: "2024-01-311", expected: []token.Kind{token.Number, token.Operator, token.Number, token.Operator, token.Number, token.End}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			tokens, err := Tokenize(tc.input)
			suite.NoError(err)
			suite.Equal(tc.expected, kinds(tokens))
		})
	}
}

func (suite *LexerTestSuite) TestStringLiteral() {
	tokens, err := Tokenize(`MA("close", 5)`)
	suite.NoError(err)
	suite.Equal([]token.Kind{
		token.Identifier, token.LeftParen, token.String, token.Comma, token.Number, token.RightParen, token.End,
	}, kinds(tokens))
	suite.Equal("close", tokens[2].Text)
}

func (suite *LexerTestSuite) TestUnterminatedString() {
	_, err := Tokenize("MA(\"close, 5)\n")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnterminatedString))
}

func (suite *LexerTestSuite) TestUnknownCharacter() {
	_, err := Tokenize("parameters {\n  fast: 5 @\n}")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnexpectedCharacter))

	var dslErr *errors.Error
	suite.True(errors.As(err, &dslErr))
	suite.Equal(2, dslErr.Line)
	suite.Equal(11, dslErr.Column)
	suite.Contains(err.Error(), "'@'")
}

func (suite *LexerTestSuite) TestPositions() {
	tokens, err := Tokenize("entry {\n  when x > 1\n}")
	suite.NoError(err)

	suite.Equal(1, tokens[0].Line)
	suite.Equal(1, tokens[0].Column)
	suite.Equal(7, tokens[1].Column)
	// when
	suite.Equal(2, tokens[2].Line)
	suite.Equal(3, tokens[2].Column)
	// >
	suite.Equal(10, tokens[4].Column)
	// }
	suite.Equal(3, tokens[6].Line)
	suite.Equal(1, tokens[6].Column)
}

func (suite *LexerTestSuite) TestPunctuation() {
	tokens, err := Tokenize("( ) , { } : = [ ]")
	suite.NoError(err)
	suite.Equal([]token.Kind{
		token.LeftParen, token.RightParen, token.Comma, token.LeftBrace, token.RightBrace,
		token.Colon, token.Equals, token.LeftBracket, token.RightBracket, token.End,
	}, kinds(tokens))
}

func (suite *LexerTestSuite) TestRoundTrip() {
	src := `strategy Cross {
  parameters { fast: 5 slow: 20 use_rsi: true }
  indicators { fast_ma = MA(close, fast) }
  data [ { ticker: AAPL from: 2024-01-01 to: 2024-06-30 } ]
  entry { when fast_ma crosses_above slow_ma and rsi <= 30.5 or x == 1 }
}`
	first, err := Tokenize(src)
	suite.NoError(err)

	texts := make([]string, 0, len(first))
	for _, tok := range first {
		texts = append(texts, tok.Text)
	}

	second, err := Tokenize(strings.Join(texts, " "))
	suite.NoError(err)
	suite.Equal(len(first), len(second))

	for i := range first {
		suite.Equal(first[i].Kind, second[i].Kind, "token %d", i)
		suite.Equal(first[i].Text, second[i].Text, "token %d", i)
		suite.Equal(first[i].Operator, second[i].Operator, "token %d", i)
	}
}
