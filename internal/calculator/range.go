package calculator

import (
	"errors"
	"math"
	"sort"

	"github.com/markcheno/go-talib"

	"StockScanner/internal/model"
)

// MinMax returns the smallest and largest of values.
func MinMax(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// PriorHigh returns the maximum of the n values before the latest one.
func PriorHigh(values []float64, n int) (float64, error) {
	if err := checkWindow("prior_high", len(values), n+1); err != nil {
		return 0, err
	}
	end := len(values) - 1
	_, hi := MinMax(values[end-n : end])
	return hi, nil
}

// RangePercent returns (max-min)/min×100 over the last n values.
func RangePercent(values []float64, n int) (float64, error) {
	if err := checkWindow("range_percent", len(values), n); err != nil {
		return 0, err
	}
	lo, hi := MinMax(values[len(values)-n:])
	if lo <= 0 {
		return 0, errors.New("range_percent: non-positive minimum")
	}
	return (hi - lo) / lo * 100, nil
}

// Quantile returns the q-quantile (0..1) of the defined values using linear
// interpolation between order statistics.
func Quantile(values []float64, q float64) (float64, error) {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if Defined(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return 0, model.ErrInsufficientData
	}
	if q < 0 || q > 1 {
		return 0, model.Invalid("quantile", "q must be within [0,1], got %v", q)
	}
	sort.Float64s(defined)
	pos := q * float64(len(defined)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return defined[lo] + (defined[hi]-defined[lo])*frac, nil
}

// TrendSlope is the least-squares slope of values against their index.
func TrendSlope(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, model.ErrInsufficientData
	}
	slope := talib.LinearRegSlope(values, len(values))
	return slope[len(slope)-1], nil
}

// PercentChange returns the change of the last value against the value n bars back.
func PercentChange(values []float64, n int) (float64, error) {
	if err := checkWindow("percent_change", len(values), n+1); err != nil {
		return 0, err
	}
	base := values[len(values)-1-n]
	if base == 0 {
		return 0, errors.New("percent_change: zero base")
	}
	return (values[len(values)-1] - base) / base * 100, nil
}
