package data

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

// DefaultDataFilter trims candle series before feature computation
type DefaultDataFilter struct{}

func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByDateRange keeps candles with start <= timestamp <= end. A zero bound is open.
func (f *DefaultDataFilter) FilterByDateRange(candles []types.OHLCV, start, end time.Time) []types.OHLCV {
	inRange := func(ts time.Time) bool {
		return (start.IsZero() || !ts.Before(start)) && (end.IsZero() || !ts.After(end))
	}

	out := make([]types.OHLCV, 0, len(candles))
	for _, c := range candles {
		if inRange(c.Timestamp) {
			out = append(out, c)
		}
	}
	return out
}

// LastN keeps the trailing n candles; n <= 0 keeps everything
func (f *DefaultDataFilter) LastN(candles []types.OHLCV, n int) []types.OHLCV {
	if n <= 0 || n >= len(candles) {
		return candles
	}
	return candles[len(candles)-n:]
}

// ValidateTimeSequence rejects out-of-order and repeated timestamps. Series without
// timestamps pass.
func (f *DefaultDataFilter) ValidateTimeSequence(candles []types.OHLCV) error {
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Timestamp, candles[i].Timestamp
		if cur.IsZero() && prev.IsZero() {
			continue
		}
		switch {
		case cur.Before(prev):
			return fmt.Errorf("candle %d at %s precedes candle %d at %s",
				i, cur.Format(time.RFC3339), i-1, prev.Format(time.RFC3339))
		case cur.Equal(prev):
			return fmt.Errorf("candle %d repeats timestamp %s", i, cur.Format(time.RFC3339))
		}
	}
	return nil
}
