package indicator

import "github.com/rxtech-lab/argo-dsl/internal/dsl/value"

// MA is the simple moving average: MA(series, period).
// The first period-1 outputs have no full window and are 0.
func MA(args []value.Value, vars Variables) ([]float64, error) {
	if err := expectArgs(NameMA, args, 2); err != nil {
		return nil, err
	}

	data, err := series(NameMA, args[0], vars)
	if err != nil {
		return nil, err
	}

	p, err := period(NameMA, args[1], vars)
	if err != nil {
		return nil, err
	}

	if p > len(data) {
		return nil, insufficient(NameMA, p, len(data))
	}

	return movingAverage(data, p), nil
}

func movingAverage(data []float64, p int) []float64 {
	out := make([]float64, len(data))
	sum := 0.0

	for i := 0; i < p; i++ {
		sum += data[i]
	}

	out[p-1] = sum / float64(p)

	for i := p; i < len(data); i++ {
		sum += data[i] - data[i-p]
		out[i] = sum / float64(p)
	}

	return out
}
