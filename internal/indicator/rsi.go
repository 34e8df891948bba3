package indicator

import "github.com/rxtech-lab/argo-dsl/internal/dsl/value"

// RSI is the relative strength index with Wilder smoothing: RSI(series, period).
// Outputs before index period are NaN.
func RSI(args []value.Value, vars Variables) ([]float64, error) {
	if err := expectArgs(NameRSI, args, 2); err != nil {
		return nil, err
	}

	data, err := series(NameRSI, args[0], vars)
	if err != nil {
		return nil, err
	}

	p, err := period(NameRSI, args[1], vars)
	if err != nil {
		return nil, err
	}

	if p >= len(data) {
		return nil, insufficient(NameRSI, p+1, len(data))
	}

	return relativeStrength(data, p), nil
}

func relativeStrength(data []float64, p int) []float64 {
	out := nanSeries(len(data))
	gainSum, lossSum := 0.0, 0.0

	for i := 1; i <= p; i++ {
		diff := data[i] - data[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum -= diff
		}
	}

	avgGain := gainSum / float64(p)
	avgLoss := lossSum / float64(p)
	out[p] = rsiValue(avgGain, avgLoss)

	for i := p + 1; i < len(data); i++ {
		change := data[i] - data[i-1]
		gain, loss := 0.0, 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}

		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}
