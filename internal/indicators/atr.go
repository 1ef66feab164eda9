package indicators

import "math"

const (
	DefaultAtrPeriod = 14
)

// ATR represents the Average True Range technical indicator
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Calculate computes ATR with Wilder smoothing. The first value appears at index period.
func (a *ATR) Calculate(high, low, close []float64) ([]float64, error) {
	if a.period <= 0 {
		return nil, errInvalidPeriod
	}
	if err := checkLengths("ATR", high, low, close); err != nil {
		return nil, err
	}

	trueRange := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		trueRange[i] = calculateTrueRange(high[i], low[i], close[i-1])
	}

	return wilderAverage(trueRange, a.period, 1), nil
}

// calculateTrueRange = max(High-Low, abs(High-PrevClose), abs(Low-PrevClose))
func calculateTrueRange(high, low, prevClose float64) float64 {
	hl := high - low
	hc := math.Abs(high - prevClose)
	lc := math.Abs(low - prevClose)

	return math.Max(hl, math.Max(hc, lc))
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}
