package features

import (
	"fmt"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/indicators"
	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// EngineConfig holds indicator parameters and the number of trailing rows to keep
type EngineConfig struct {
	AdoscFast  int
	AdoscSlow  int
	AtrPeriod  int
	MacdFast   int
	MacdSlow   int
	MacdSignal int
	MfiPeriod  int
	BBPeriod   int
	BBDevUp    float64
	BBDevDown  float64
	RsiPeriod  int

	// Rows is how many trailing rows survive truncation; <= 0 keeps everything
	Rows int
}

// DefaultEngineConfig returns the parameters the dataset pipeline has always used
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AdoscFast:  24,
		AdoscSlow:  45,
		AtrPeriod:  24,
		MacdFast:   indicators.DefaultMacdFast,
		MacdSlow:   indicators.DefaultMacdSlow,
		MacdSignal: indicators.DefaultMacdSignal,
		MfiPeriod:  30,
		BBPeriod:   indicators.DefaultBollingerPeriod,
		BBDevUp:    indicators.DefaultBollingerDevUp,
		BBDevDown:  indicators.DefaultBollingerDevDn,
		RsiPeriod:  indicators.DefaultRsiPeriod,
		Rows:       500,
	}
}

// IndicatorEngine turns raw OHLCV arrays into the raw (not yet normalized) feature table
type IndicatorEngine struct {
	cfg EngineConfig
}

// NewIndicatorEngine creates an engine with the given configuration
func NewIndicatorEngine(cfg EngineConfig) *IndicatorEngine {
	return &IndicatorEngine{cfg: cfg}
}

// Config returns the engine configuration
func (e *IndicatorEngine) Config() EngineConfig {
	return e.cfg
}

// ComputeCandles is Compute over a candle slice
func (e *IndicatorEngine) ComputeCandles(data []types.OHLCV) (*FeatureTable, error) {
	return e.Compute(types.SplitColumns(data))
}

// Compute calculates every indicator over the full input, truncates to the trailing
// Rows rows and zeroes NaN/Inf. The result is in Schema order.
func (e *IndicatorEngine) Compute(cols types.Columns) (*FeatureTable, error) {
	n := cols.Len()
	if n == 0 {
		return nil, simerrors.NewDataError("engine", "Compute", simerrors.ErrInsufficientData)
	}
	if len(cols.Open) != n || len(cols.High) != n || len(cols.Low) != n || len(cols.Volume) != n {
		return nil, simerrors.NewValidationError("engine", "Compute", "ohlcv arrays have different lengths")
	}

	adosc, err := indicators.NewADOSC(e.cfg.AdoscFast, e.cfg.AdoscSlow).Calculate(cols.High, cols.Low, cols.Close, cols.Volume)
	if err != nil {
		return nil, e.wrap("adosc", err)
	}
	atr, err := indicators.NewATR(e.cfg.AtrPeriod).Calculate(cols.High, cols.Low, cols.Close)
	if err != nil {
		return nil, e.wrap("atr", err)
	}
	macd, err := indicators.NewMACD(e.cfg.MacdFast, e.cfg.MacdSlow, e.cfg.MacdSignal).Calculate(cols.Close)
	if err != nil {
		return nil, e.wrap("macd", err)
	}
	mfi, err := indicators.NewMFI(e.cfg.MfiPeriod).Calculate(cols.High, cols.Low, cols.Close, cols.Volume)
	if err != nil {
		return nil, e.wrap("mfi", err)
	}
	bands, err := indicators.NewBollingerBands(e.cfg.BBPeriod, e.cfg.BBDevUp, e.cfg.BBDevDown).Calculate(cols.Close)
	if err != nil {
		return nil, e.wrap("bbands", err)
	}
	rsi, err := indicators.NewRSI(e.cfg.RsiPeriod).Calculate(cols.Close)
	if err != nil {
		return nil, e.wrap("rsi", err)
	}

	diffLowHigh := make([]float64, n)
	diffOpenClose := make([]float64, n)
	for i := 0; i < n; i++ {
		diffLowHigh[i] = (cols.High[i] - cols.Low[i]) / cols.Low[i]
		diffOpenClose[i] = (cols.Close[i] - cols.Open[i]) / cols.Open[i]
	}

	table, err := NewFeatureTable(Schema, map[string][]float64{
		ColOpen:                cols.Open,
		ColClose:               cols.Close,
		ColHigh:                cols.High,
		ColLow:                 cols.Low,
		ColVolume:              cols.Volume,
		ColAdosc:               adosc,
		ColAtr:                 atr,
		ColMacd:                macd.MACD,
		ColMacdSignal:          macd.Signal,
		ColMacdHist:            macd.Histogram,
		ColMfi:                 mfi,
		ColUpperBand:           bands.Upper,
		ColMiddleBand:          bands.Middle,
		ColLowerBand:           bands.Lower,
		ColRsi:                 rsi,
		ColDifferenceLowHigh:   diffLowHigh,
		ColDifferenceOpenClose: diffOpenClose,
	})
	if err != nil {
		return nil, err
	}

	if e.cfg.Rows > 0 {
		table = table.Tail(e.cfg.Rows)
	}
	return table.Sanitized(), nil
}

func (e *IndicatorEngine) wrap(indicator string, err error) error {
	return simerrors.NewDataError("engine", "Compute", fmt.Errorf("%s: %w", indicator, err)).
		WithContext("indicator", indicator)
}
