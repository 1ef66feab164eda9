package types

import "time"

// OHLCV is one historical candle. Timestamp is zero when the source has no time column.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Columns holds candle fields split into index-aligned arrays
type Columns struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// SplitColumns converts candles into per-field arrays
func SplitColumns(data []OHLCV) Columns {
	cols := Columns{
		Open:   make([]float64, len(data)),
		High:   make([]float64, len(data)),
		Low:    make([]float64, len(data)),
		Close:  make([]float64, len(data)),
		Volume: make([]float64, len(data)),
	}
	for i, c := range data {
		cols.Open[i] = c.Open
		cols.High[i] = c.High
		cols.Low[i] = c.Low
		cols.Close[i] = c.Close
		cols.Volume[i] = c.Volume
	}
	return cols
}

// Len returns the number of rows
func (c Columns) Len() int {
	return len(c.Close)
}
