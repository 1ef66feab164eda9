package indicators

import "math"

// SMA represents the Simple Moving Average
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the rolling mean. The first period-1 values are NaN.
func (s *SMA) Calculate(values []float64) ([]float64, error) {
	if s.period <= 0 {
		return nil, errInvalidPeriod
	}

	out := nanSeries(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= s.period {
			sum -= values[i-s.period]
		}
		if i >= s.period-1 {
			out[i] = sum / float64(s.period)
		}
	}
	return out, nil
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// rollingStdDev computes the population standard deviation over period values
func rollingStdDev(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	sum, sumSquares := 0.0, 0.0
	for i, v := range values {
		sum += v
		sumSquares += v * v
		if i >= period {
			old := values[i-period]
			sum -= old
			sumSquares -= old * old
		}
		if i >= period-1 {
			mean := sum / float64(period)
			variance := sumSquares/float64(period) - mean*mean
			if variance < 0 {
				// rounding on flat windows
				variance = 0
			}
			out[i] = math.Sqrt(variance)
		}
	}
	return out
}
