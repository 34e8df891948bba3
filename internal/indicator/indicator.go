package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// Names of the built-in indicator functions.
const (
	NameMA   = "MA"
	NameRSI  = "RSI"
	NameEMA  = "EMA"
	NameATR  = "ATR"
	NameMACD = "MACD"
)

// Variables is the live variable map of an evaluation.
type Variables = map[string]value.Value

// Func computes an indicator series from its call arguments.
// Arguments arrive as written: series are usually names looked up in vars, or vectors from nested calls.
type Func func(args []value.Value, vars Variables) ([]float64, error)

// Builtins returns the indicator functions every registry starts with.
func Builtins() map[string]Func {
	return map[string]Func{
		NameMA:   MA,
		NameRSI:  RSI,
		NameEMA:  EMA,
		NameATR:  ATR,
		NameMACD: MACD,
	}
}

func expectArgs(fn string, args []value.Value, n int) error {
	if len(args) != n {
		return errors.Newf(errors.ErrCodeInvalidArgument, "%s: expected %d arguments, got %d", fn, n, len(args))
	}

	return nil
}

// series resolves a series argument: a variable name holding a numeric vector, or the vector itself.
func series(fn string, arg value.Value, vars Variables) ([]float64, error) {
	switch x := arg.(type) {
	case value.Numbers:
		return x, nil
	case value.Text:
		v, ok := vars[string(x)]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeVariableNotFound, "%s: variable %s is not defined", fn, string(x))
		}

		data, err := value.AsNumbers(v)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidArgument, err, "%s: variable %s must be a numeric series", fn, string(x))
		}

		return data, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "%s: series must be a variable name or a numeric series", fn)
	}
}

// period resolves a period argument: a number, or the name of a numeric variable.
// The result must be a positive integer.
func period(fn string, arg value.Value, vars Variables) (int, error) {
	var p float64

	switch x := arg.(type) {
	case value.Number:
		p = float64(x)
	case value.Text:
		v, ok := vars[string(x)]
		if !ok {
			return 0, errors.Newf(errors.ErrCodeVariableNotFound, "%s: variable %s is not defined", fn, string(x))
		}

		n, err := value.AsNumber(v)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeInvalidArgument, err, "%s: period variable %s must be a number", fn, string(x))
		}

		p = n
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidArgument, "%s: period must be a number or a variable name", fn)
	}

	if p <= 0 || p != math.Trunc(p) {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s: period must be a positive integer, got %v", fn, p)
	}

	// Periods past int32 never fit a series and would overflow the int conversion.
	if p > math.MaxInt32 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s: period %v is too large", fn, p)
	}

	return int(p), nil
}

func insufficient(fn string, required, actual int) error {
	return errors.Wrap(errors.ErrCodeInvalidPeriod, fn+": incorrect data or period",
		errors.NewInsufficientDataErrorf(required, actual, "", "%s: period needs %d data points, series has %d", fn, required, actual))
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
