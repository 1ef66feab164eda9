package indicators

const (
	// DefaultMfiPeriod is the default period of the MFI
	DefaultMfiPeriod = 14
)

// MFI represents the Money Flow Index technical indicator
//
//	Raw Money Flow = Typical Price * Volume
//	Money Ratio = Positive Money Flow / Negative Money Flow
//	Money Flow Index = 100 - (100 / (1 + Money Ratio))
type MFI struct {
	period int
}

// NewMFI creates a new Money Flow Index indicator with given period
func NewMFI(period int) *MFI {
	return &MFI{period: period}
}

// Calculate computes the MFI series. The first value appears at index period.
// A window where the typical price never changes yields 0.
func (m *MFI) Calculate(high, low, close, volume []float64) ([]float64, error) {
	if m.period <= 0 {
		return nil, errInvalidPeriod
	}
	if err := checkLengths("MFI", high, low, close, volume); err != nil {
		return nil, err
	}

	n := len(close)
	out := nanSeries(n)
	if n < m.period+1 {
		return out, nil
	}

	positive := make([]float64, n)
	negative := make([]float64, n)
	prevTypical := (high[0] + low[0] + close[0]) / 3.0
	for i := 1; i < n; i++ {
		typical := (high[i] + low[i] + close[i]) / 3.0
		flow := typical * volume[i]
		if typical > prevTypical {
			positive[i] = flow
		} else if typical < prevTypical {
			negative[i] = flow
		}
		prevTypical = typical
	}

	posSum, negSum := 0.0, 0.0
	for i := 1; i < n; i++ {
		posSum += positive[i]
		negSum += negative[i]
		if i > m.period {
			posSum -= positive[i-m.period]
			negSum -= negative[i-m.period]
		}
		if i >= m.period {
			total := posSum + negSum
			if total == 0 {
				out[i] = 0
				continue
			}
			out[i] = 100 * posSum / total
		}
	}
	return out, nil
}

// GetName returns the indicator name
func (m *MFI) GetName() string {
	return "MFI"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (m *MFI) GetRequiredPeriods() int {
	return m.period + 1
}
