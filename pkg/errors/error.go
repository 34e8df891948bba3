// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized by the pipeline stage that raises them:
//   - General errors (1-99): Unknown and general errors
//   - Lexical errors (100-199): Characters the lexer cannot tokenize
//   - Syntax errors (200-299): Unexpected tokens, duplicate or missing blocks
//   - Semantic errors (300-399): Operand types, unknown functions and variables, indicator arguments
//   - Validation errors (400-499): Trading config rules and service settings
//   - Market data errors (700-799): Market data fetching, caching and parsing errors
//   - Queue errors (800-899): Job submission and consumption failures
//
// Errors raised against strategy source carry the 1-based line and column of the offending token.
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidArgument, "period must be a number")
//
//	// Create an error located in the source text
//	err := errors.NewAt(errors.ErrCodeUnexpectedToken, tok.Line, tok.Column, "Unexpected token '%s'", tok.Text)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch bars", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeFunctionNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Line and Column locate the error in strategy source. Zero when unknown.
	Line   int
	Column int
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// NewAt creates a new Error located at the given line and column.
// The position is appended to the message the same way the parser reports it.
func NewAt(code ErrorCode, line, column int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s at line %d, col %d", fmt.Sprintf(format, args...), line, column),
		Cause:   nil,
		Line:    line,
		Column:  column,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches a target *Error by code. A target with an empty message matches any message,
// so errors.Is(err, errors.New(code, "")) tests for a code anywhere in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code != e.Code {
		return false
	}

	return t.Message == "" || t.Message == e.Message
}

// At returns a copy of e located at line and column.
// An error that already carries a position is returned unchanged.
func (e *Error) At(line, column int) *Error {
	if e.Line != 0 {
		return e
	}

	located := NewAt(e.Code, line, column, "%s", e.Message)
	located.Cause = e.Cause

	return located
}

// Position returns the source position of e and whether it has one.
func (e *Error) Position() (line, column int, ok bool) {
	return e.Line, e.Column, e.Line != 0
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCategory returns the category of the error's code.
func GetCategory(err error) Category {
	return GetCode(err).Category()
}

// InsufficientDataError is raised when a series is shorter than an indicator period requires.
type InsufficientDataError struct {
	Required int
	Actual   int
	// Symbol is the series name when known.
	Symbol  string
	Message string
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
// It uses errors.As to check the error chain.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
