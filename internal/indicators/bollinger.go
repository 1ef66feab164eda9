package indicators

const (
	DefaultBollingerPeriod = 20
	DefaultBollingerDevUp  = 2.0
	DefaultBollingerDevDn  = 2.0
)

// BollingerBands represents the Bollinger Bands technical indicator (SMA middle band)
type BollingerBands struct {
	period int
	devUp  float64
	devDn  float64
}

// BandsResult holds the three band lines
type BandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// NewBollingerBands creates Bollinger Bands with separate up and down deviation multipliers
func NewBollingerBands(period int, devUp, devDn float64) *BollingerBands {
	return &BollingerBands{period: period, devUp: devUp, devDn: devDn}
}

// Calculate computes the bands using the population standard deviation of the window
func (bb *BollingerBands) Calculate(prices []float64) (BandsResult, error) {
	middle, err := NewSMA(bb.period).Calculate(prices)
	if err != nil {
		return BandsResult{}, err
	}
	std := rollingStdDev(prices, bb.period)

	upper := nanSeries(len(prices))
	lower := nanSeries(len(prices))
	for i := bb.period - 1; i < len(prices); i++ {
		upper[i] = middle[i] + bb.devUp*std[i]
		lower[i] = middle[i] - bb.devDn*std[i]
	}

	return BandsResult{Upper: upper, Middle: middle, Lower: lower}, nil
}

// GetName returns the indicator name
func (bb *BollingerBands) GetName() string {
	return "BBANDS"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}
