package indicators

const (
	DefaultAdoscFast = 3
	DefaultAdoscSlow = 10
)

// ADOSC is the Chaikin Accumulation/Distribution Oscillator:
// EMA(fast) - EMA(slow) of the accumulation/distribution line.
type ADOSC struct {
	fastPeriod int
	slowPeriod int
}

// NewADOSC creates a new Chaikin oscillator
func NewADOSC(fastPeriod, slowPeriod int) *ADOSC {
	return &ADOSC{fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

// AccumulationDistribution computes the cumulative A/D line.
// Candles with high == low contribute nothing.
func AccumulationDistribution(high, low, close, volume []float64) []float64 {
	ad := make([]float64, len(close))
	total := 0.0
	for i := range close {
		span := high[i] - low[i]
		if span > 0 {
			clv := ((close[i] - low[i]) - (high[i] - close[i])) / span
			total += clv * volume[i]
		}
		ad[i] = total
	}
	return ad
}

// Calculate computes the oscillator. Both EMAs are seeded with the first A/D value, and
// output before index slow-1 is NaN.
func (a *ADOSC) Calculate(high, low, close, volume []float64) ([]float64, error) {
	if a.fastPeriod <= 0 || a.slowPeriod <= 0 {
		return nil, errInvalidPeriod
	}
	if err := checkLengths("ADOSC", high, low, close, volume); err != nil {
		return nil, err
	}

	ad := AccumulationDistribution(high, low, close, volume)
	fast, err := NewEMAWithSeed(a.fastPeriod, SeedFirst).Calculate(ad)
	if err != nil {
		return nil, err
	}
	slow, err := NewEMAWithSeed(a.slowPeriod, SeedFirst).Calculate(ad)
	if err != nil {
		return nil, err
	}

	out := nanSeries(len(close))
	start := a.GetRequiredPeriods() - 1
	for i := start; i < len(close); i++ {
		out[i] = fast[i] - slow[i]
	}
	return out, nil
}

// GetName returns the indicator name
func (a *ADOSC) GetName() string {
	return "ADOSC"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ADOSC) GetRequiredPeriods() int {
	if a.fastPeriod > a.slowPeriod {
		return a.fastPeriod
	}
	return a.slowPeriod
}
