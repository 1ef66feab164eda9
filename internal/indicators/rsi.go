package indicators

import "math"

const (
	// DefaultRsiPeriod is the default period of the RSI
	DefaultRsiPeriod = 14
)

// RSI calculates the Relative Strength Index with Wilder smoothing
type RSI struct {
	period int
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate computes the RSI series over closing prices.
// The first value appears at index period; a window without any movement yields 0.
func (r *RSI) Calculate(prices []float64) ([]float64, error) {
	if r.period <= 0 {
		return nil, errInvalidPeriod
	}

	out := nanSeries(len(prices))
	if len(prices) < r.period+1 {
		return out, nil
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = math.Abs(change)
		}
	}

	avgGains := wilderAverage(gains, r.period, 1)
	avgLosses := wilderAverage(losses, r.period, 1)

	for i := r.period; i < len(prices); i++ {
		total := avgGains[i] + avgLosses[i]
		if total == 0 {
			out[i] = 0
			continue
		}
		out[i] = 100 * avgGains[i] / total
	}
	return out, nil
}

// GetName returns the indicator name
func (r *RSI) GetName() string {
	return "RSI"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}
