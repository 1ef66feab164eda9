package indicators

const (
	DefaultMacdFast   = 12
	DefaultMacdSlow   = 26
	DefaultMacdSignal = 9
)

// MACD represents the MACD technical indicator
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// MACDResult holds the three MACD output lines
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// NewMACD creates a new MACD indicator
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}
}

// Calculate computes MACD = EMA(fast) - EMA(slow), the signal EMA of MACD and the histogram.
// The MACD line starts at index slow-1 and the signal line signal-1 ticks later.
func (m *MACD) Calculate(prices []float64) (MACDResult, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return MACDResult{}, errInvalidPeriod
	}

	fast, err := NewEMA(m.fastPeriod).Calculate(prices)
	if err != nil {
		return MACDResult{}, err
	}
	slow, err := NewEMA(m.slowPeriod).Calculate(prices)
	if err != nil {
		return MACDResult{}, err
	}

	macd := nanSeries(len(prices))
	start := m.slowPeriod - 1
	if m.fastPeriod > m.slowPeriod {
		start = m.fastPeriod - 1
	}
	for i := start; i < len(prices); i++ {
		macd[i] = fast[i] - slow[i]
	}

	signal, err := NewEMA(m.signalPeriod).Calculate(macd)
	if err != nil {
		return MACDResult{}, err
	}

	hist := nanSeries(len(prices))
	for i := range prices {
		if IsFinite(macd[i]) && IsFinite(signal[i]) {
			hist[i] = macd[i] - signal[i]
		}
	}

	return MACDResult{MACD: macd, Signal: signal, Histogram: hist}, nil
}

// GetName returns the indicator name
func (m *MACD) GetName() string {
	return "MACD"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod - 1
}
