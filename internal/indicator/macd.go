package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// MACD is the MACD line: MACD(series, short, long) = EMA(series, short) - EMA(series, long).
// Outputs are NaN until both averages are defined.
func MACD(args []value.Value, vars Variables) ([]float64, error) {
	if err := expectArgs(NameMACD, args, 3); err != nil {
		return nil, err
	}

	data, err := series(NameMACD, args[0], vars)
	if err != nil {
		return nil, err
	}

	short, err := period(NameMACD, args[1], vars)
	if err != nil {
		return nil, err
	}

	long, err := period(NameMACD, args[2], vars)
	if err != nil {
		return nil, err
	}

	if short >= long {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "%s: short period %d must be less than long period %d", NameMACD, short, long)
	}

	if long > len(data) {
		return nil, insufficient(NameMACD, long, len(data))
	}

	fast := exponentialAverage(data, short)
	slow := exponentialAverage(data, long)

	out := nanSeries(len(data))
	for i := range data {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			out[i] = fast[i] - slow[i]
		}
	}

	return out, nil
}
