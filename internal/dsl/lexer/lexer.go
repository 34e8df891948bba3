// Package lexer turns strategy source text into tokens.
package lexer

import (
	"unicode/utf8"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/token"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// Lexer scans source text left to right, tracking 1-based line and column.
type Lexer struct {
	src    string
	pos    int
	line   int
	column int
}

// New creates a lexer over src.
func New(src string) *Lexer {
	return &Lexer{
		src:    src,
		pos:    0,
		line:   1,
		column: 1,
	}
}

// Tokenize scans the whole source and returns the token stream terminated by an End token.
func Tokenize(src string) ([]token.Token, error) {
	return New(src).Tokenize()
}

// Tokenize scans the remaining input.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	tokens := make([]token.Token, 0, len(l.src)/3+1)

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)
		if tok.Kind == token.End {
			return tokens, nil
		}
	}
}

// Next returns the next token. At end of input it keeps returning End.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.src) {
		return token.New(token.End, "", l.line, l.column), nil
	}

	line, column := l.line, l.column
	c := l.src[l.pos]

	switch {
	case isLetter(c):
		return l.scanWord(line, column), nil
	case isDigit(c):
		if l.matchDate() {
			text := l.src[l.pos : l.pos+10]
			l.advanceN(10)

			return token.New(token.Date, text, line, column), nil
		}

		return l.scanNumber(line, column)
	case c == '"':
		return l.scanString(line, column)
	}

	switch c {
	case '+', '-', '*', '/', '>', '<':
		l.advance()
		if l.peek() == '=' {
			l.advance()

			return token.New(token.Operator, string(c)+"=", line, column), nil
		}

		return token.New(token.Operator, string(c), line, column), nil
	case '=':
		l.advance()
		if l.peek() == '=' {
			l.advance()

			return token.New(token.Operator, "==", line, column), nil
		}

		return token.New(token.Equals, "=", line, column), nil
	}

	if kind, ok := punctuation[c]; ok {
		l.advance()

		return token.New(kind, string(c), line, column), nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])

	return token.Token{}, errors.NewAt(errors.ErrCodeUnexpectedCharacter, line, column, "Unexpected character '%c'", r)
}

var punctuation = map[byte]token.Kind{
	'(': token.LeftParen,
	')': token.RightParen,
	',': token.Comma,
	'{': token.LeftBrace,
	'}': token.RightBrace,
	':': token.Colon,
	'[': token.LeftBracket,
	']': token.RightBracket,
}

func (l *Lexer) scanWord(line, column int) token.Token {
	start := l.pos
	for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos])) {
		l.advance()
	}

	word := l.src[start:l.pos]

	// keywords win over named operators ("crosses" is both)
	if kind, ok := token.LookupKeyword(word); ok {
		return token.New(kind, word, line, column)
	}

	if _, ok := token.LookupOperator(word); ok {
		return token.New(token.Operator, word, line, column)
	}

	return token.New(token.Identifier, word, line, column)
}

func (l *Lexer) scanNumber(line, column int) (token.Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.advance()
	}

	if l.peek() == '.' {
		if l.pos+1 >= len(l.src) || !isDigit(l.src[l.pos+1]) {
			return token.Token{}, errors.NewAt(errors.ErrCodeInvalidNumber, line, column,
				"Invalid number '%s.'", l.src[start:l.pos])
		}

		l.advance()
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
	}

	return token.New(token.Number, l.src[start:l.pos], line, column), nil
}

func (l *Lexer) scanString(line, column int) (token.Token, error) {
	l.advance() // opening quote
	start := l.pos

	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\n' {
			break
		}

		l.advance()
	}

	if l.pos >= len(l.src) || l.src[l.pos] != '"' {
		return token.Token{}, errors.NewAt(errors.ErrCodeUnterminatedString, line, column, "Unterminated string")
	}

	text := l.src[start:l.pos]
	l.advance() // closing quote

	return token.New(token.String, text, line, column), nil
}

// matchDate commits only when a full DDDD-DD-DD is present and not followed by another digit.
func (l *Lexer) matchDate() bool {
	if l.pos+10 > len(l.src) {
		return false
	}

	s := l.src[l.pos : l.pos+10]
	for i := 0; i < 10; i++ {
		switch i {
		case 4, 7:
			if s[i] != '-' {
				return false
			}
		default:
			if !isDigit(s[i]) {
				return false
			}
		}
	}

	return l.pos+10 == len(l.src) || !isDigit(l.src[l.pos+10])
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}

	return l.src[l.pos]
}

func (l *Lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	l.pos++
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
