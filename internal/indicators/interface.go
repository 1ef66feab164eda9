package indicators

import (
	"errors"
	"fmt"
	"math"
)

// Indicator is implemented by every full-series indicator in this package.
// Output series have the same length as the input; warm-up positions hold NaN.
type Indicator interface {
	GetName() string
	GetRequiredPeriods() int
}

var errInvalidPeriod = errors.New("period must be positive")

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func checkLengths(name string, series ...[]float64) error {
	for i := 1; i < len(series); i++ {
		if len(series[i]) != len(series[0]) {
			return fmt.Errorf("%s: input series have different lengths (%d vs %d)", name, len(series[0]), len(series[i]))
		}
	}
	return nil
}

// Sanitize returns a copy of values with NaN and ±Inf replaced by 0
func Sanitize(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if IsFinite(v) {
			out[i] = v
		}
	}
	return out
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
