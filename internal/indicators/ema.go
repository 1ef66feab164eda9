package indicators

import "math"

// EMASeed selects how the first EMA value is produced
type EMASeed int

const (
	// SeedSMA starts with the simple mean of the first period values
	SeedSMA EMASeed = iota
	// SeedFirst starts with the first value, producing output from the very first index
	SeedFirst
)

// EMA represents the Exponential Moving Average
type EMA struct {
	period int
	seed   EMASeed
}

// NewEMA creates a new EMA seeded with an SMA
func NewEMA(period int) *EMA {
	return &EMA{period: period, seed: SeedSMA}
}

// NewEMAWithSeed creates a new EMA with an explicit seeding mode
func NewEMAWithSeed(period int, seed EMASeed) *EMA {
	return &EMA{period: period, seed: seed}
}

// Calculate computes the EMA. Leading NaN values in the input are skipped, so an EMA of
// another indicator's output starts once that indicator has warmed up.
func (e *EMA) Calculate(values []float64) ([]float64, error) {
	if e.period <= 0 {
		return nil, errInvalidPeriod
	}

	out := nanSeries(len(values))
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}

	alpha := 2.0 / float64(e.period+1)

	var (
		prev  float64
		first int
	)
	switch e.seed {
	case SeedFirst:
		if start >= len(values) {
			return out, nil
		}
		prev = values[start]
		first = start
	default:
		if len(values)-start < e.period {
			return out, nil
		}
		sum := 0.0
		for i := start; i < start+e.period; i++ {
			sum += values[i]
		}
		prev = sum / float64(e.period)
		first = start + e.period - 1
	}

	out[first] = prev
	for i := first + 1; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out, nil
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	if e.seed == SeedFirst {
		return 1
	}
	return e.period
}

// wilderAverage applies Wilder smoothing to values[from:], seeding with the mean of the
// first period values. Output before from+period-1 is NaN.
func wilderAverage(values []float64, period, from int) []float64 {
	out := nanSeries(len(values))
	if from < 0 || len(values)-from < period {
		return out
	}

	sum := 0.0
	for i := from; i < from+period; i++ {
		sum += values[i]
	}
	avg := sum / float64(period)
	out[from+period-1] = avg

	for i := from + period; i < len(values); i++ {
		avg = (avg*float64(period-1) + values[i]) / float64(period)
		out[i] = avg
	}
	return out
}
