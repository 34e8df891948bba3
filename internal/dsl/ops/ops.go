// Package ops implements the broadcasting operators of the strategy language.
//
// Scalars behave as length-1 vectors. The result of a binary operation has the length of the
// longer operand and element i is computed from left[i mod len(left)] and right[i mod len(right)].
package ops

import (
	"github.com/rxtech-lab/argo-dsl/internal/dsl/token"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

type arithmeticFunc func(a, b float64) float64

type comparisonFunc func(a, b float64) bool

type logicalFunc func(a, b bool) bool

var arithmetic = map[token.OperatorType]arithmeticFunc{
	token.OpPlus:     func(a, b float64) float64 { return a + b },
	token.OpMinus:    func(a, b float64) float64 { return a - b },
	token.OpMultiply: func(a, b float64) float64 { return a * b },
	token.OpDivide:   func(a, b float64) float64 { return a / b },
}

var comparison = map[token.OperatorType]comparisonFunc{
	token.OpGreater:      func(a, b float64) bool { return a > b },
	token.OpLess:         func(a, b float64) bool { return a < b },
	token.OpGreaterEqual: func(a, b float64) bool { return a >= b },
	token.OpLessEqual:    func(a, b float64) bool { return a <= b },
}

var logical = map[token.OperatorType]logicalFunc{
	token.OpAnd: func(a, b bool) bool { return a && b },
	token.OpOr:  func(a, b bool) bool { return a || b },
}

// Supported reports whether op can be applied.
func Supported(op string) bool {
	o, ok := token.LookupOperator(op)
	if !ok {
		return false
	}

	switch o {
	case token.OpEqual, token.OpCrossesAbove, token.OpCrossesBelow:
		return true
	}

	_, isArithmetic := arithmetic[o]
	_, isComparison := comparison[o]
	_, isLogical := logical[o]

	return isArithmetic || isComparison || isLogical
}

// Apply evaluates left op right with broadcasting.
func Apply(left, right value.Value, op string) (value.Value, error) {
	o, ok := token.LookupOperator(op)
	if !ok || !Supported(op) {
		return nil, errors.Newf(errors.ErrCodeUnknownOperator, "unknown operator %s", op)
	}

	if left == nil || right == nil {
		return nil, unsupported(op)
	}

	if fn, ok := arithmetic[o]; ok {
		return applyArithmetic(left, right, op, fn)
	}

	if fn, ok := comparison[o]; ok {
		return applyComparison(left, right, op, fn)
	}

	if fn, ok := logical[o]; ok {
		return applyLogical(left, right, op, fn)
	}

	switch o {
	case token.OpEqual:
		return applyEqual(left, right, op)
	case token.OpCrossesAbove:
		return applyCross(left, right, op, true)
	default:
		return applyCross(left, right, op, false)
	}
}

func unsupported(op string) error {
	return errors.Newf(errors.ErrCodeUnsupportedOperands, "unsupported types for operator %s", op)
}

func numericPair(left, right value.Value, op string) ([]float64, []float64, error) {
	if !value.IsNumeric(left) || !value.IsNumeric(right) {
		return nil, nil, unsupported(op)
	}

	l, _ := value.NumericSeries(left)
	r, _ := value.NumericSeries(right)

	return l, r, nil
}

func broadcastLen(l, r int) int {
	if l == 0 || r == 0 {
		return 0
	}

	return max(l, r)
}

func applyArithmetic(left, right value.Value, op string, fn arithmeticFunc) (value.Value, error) {
	l, r, err := numericPair(left, right, op)
	if err != nil {
		return nil, err
	}

	n := broadcastLen(len(l), len(r))
	out := make(value.Numbers, n)

	for i := 0; i < n; i++ {
		out[i] = fn(l[i%len(l)], r[i%len(r)])
	}

	return out, nil
}

func applyComparison(left, right value.Value, op string, fn comparisonFunc) (value.Value, error) {
	l, r, err := numericPair(left, right, op)
	if err != nil {
		return nil, err
	}

	n := broadcastLen(len(l), len(r))
	out := make(value.Bools, n)

	for i := 0; i < n; i++ {
		out[i] = fn(l[i%len(l)], r[i%len(r)])
	}

	return out, nil
}

func applyEqual(left, right value.Value, op string) (value.Value, error) {
	if value.IsNumeric(left) && value.IsNumeric(right) {
		return applyComparison(left, right, op, func(a, b float64) bool { return a == b })
	}

	if value.IsBoolean(left) && value.IsBoolean(right) {
		return applyLogical(left, right, op, func(a, b bool) bool { return a == b })
	}

	return nil, unsupported(op)
}

// truthSeries accepts a boolean pair or a numeric pair; non-zero numbers are true.
func truthSeries(left, right value.Value, op string) ([]bool, []bool, error) {
	if value.IsBoolean(left) && value.IsBoolean(right) {
		l, _ := value.BoolSeries(left)
		r, _ := value.BoolSeries(right)

		return l, r, nil
	}

	if value.IsNumeric(left) && value.IsNumeric(right) {
		l, _ := value.NumericSeries(left)
		r, _ := value.NumericSeries(right)

		return toBools(l), toBools(r), nil
	}

	return nil, nil, unsupported(op)
}

func toBools(series []float64) []bool {
	out := make([]bool, len(series))
	for i, v := range series {
		out[i] = v != 0
	}

	return out
}

func applyLogical(left, right value.Value, op string, fn logicalFunc) (value.Value, error) {
	l, r, err := truthSeries(left, right, op)
	if err != nil {
		return nil, err
	}

	n := broadcastLen(len(l), len(r))
	out := make(value.Bools, n)

	for i := 0; i < n; i++ {
		out[i] = fn(l[i%len(l)], r[i%len(r)])
	}

	return out, nil
}

// applyCross marks the bars where left moved from at-or-below right to above it (or the reverse).
// The first element is always false.
func applyCross(left, right value.Value, op string, above bool) (value.Value, error) {
	l, r, err := numericPair(left, right, op)
	if err != nil {
		return nil, err
	}

	n := broadcastLen(len(l), len(r))
	out := make(value.Bools, n)

	for i := 1; i < n; i++ {
		prevL, prevR := l[(i-1)%len(l)], r[(i-1)%len(r)]
		curL, curR := l[i%len(l)], r[i%len(r)]

		if above {
			out[i] = prevL <= prevR && curL > curR
		} else {
			out[i] = prevL >= prevR && curL < curR
		}
	}

	return out, nil
}
