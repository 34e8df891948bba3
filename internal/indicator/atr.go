package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// ATR is the average true range with Wilder smoothing: ATR(high, low, close, period).
// Outputs before index period are NaN.
func ATR(args []value.Value, vars Variables) ([]float64, error) {
	if err := expectArgs(NameATR, args, 4); err != nil {
		return nil, err
	}

	high, err := series(NameATR, args[0], vars)
	if err != nil {
		return nil, err
	}

	low, err := series(NameATR, args[1], vars)
	if err != nil {
		return nil, err
	}

	closes, err := series(NameATR, args[2], vars)
	if err != nil {
		return nil, err
	}

	if len(high) != len(closes) || len(low) != len(closes) {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "%s: high, low and close must have the same length", NameATR)
	}

	p, err := period(NameATR, args[3], vars)
	if err != nil {
		return nil, err
	}

	if p >= len(closes) {
		return nil, insufficient(NameATR, p+1, len(closes))
	}

	trueRange := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		trueRange[i] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))
	}

	out := nanSeries(len(closes))

	sum := 0.0
	for i := 1; i <= p; i++ {
		sum += trueRange[i]
	}

	out[p] = sum / float64(p)

	for i := p + 1; i < len(closes); i++ {
		out[i] = (out[i-1]*float64(p-1) + trueRange[i]) / float64(p)
	}

	return out, nil
}
