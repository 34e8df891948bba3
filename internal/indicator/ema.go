package indicator

import "github.com/rxtech-lab/argo-dsl/internal/dsl/value"

// EMA is the exponential moving average: EMA(series, period).
// It is seeded with the simple average of the first period values; earlier outputs are NaN.
func EMA(args []value.Value, vars Variables) ([]float64, error) {
	if err := expectArgs(NameEMA, args, 2); err != nil {
		return nil, err
	}

	data, err := series(NameEMA, args[0], vars)
	if err != nil {
		return nil, err
	}

	p, err := period(NameEMA, args[1], vars)
	if err != nil {
		return nil, err
	}

	if p > len(data) {
		return nil, insufficient(NameEMA, p, len(data))
	}

	return exponentialAverage(data, p), nil
}

func exponentialAverage(data []float64, p int) []float64 {
	out := nanSeries(len(data))
	alpha := 2.0 / float64(p+1)

	sum := 0.0
	for i := 0; i < p; i++ {
		sum += data[i]
	}

	out[p-1] = sum / float64(p)

	for i := p; i < len(data); i++ {
		out[i] = alpha*data[i] + (1-alpha)*out[i-1]
	}

	return out
}
