package calculator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"StockScanner/internal/model"
)

// Defined reports whether v is a usable number.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// maskWarmup replaces the first n values with NaN.
func maskWarmup(values []float64, n int) {
	for i := 0; i < n && i < len(values); i++ {
		values[i] = math.NaN()
	}
}

func checkWindow(name string, n, period int) error {
	if period <= 0 {
		return model.Invalid(name+".period", "must be positive, got %d", period)
	}
	if n < period {
		return fmt.Errorf("%s(%d) over %d values: %w", name, period, n, model.ErrInsufficientData)
	}
	return nil
}

// SMA computes the simple moving average series. Indexes before period-1 are NaN.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkWindow("sma", len(values), period); err != nil {
		return nil, err
	}
	out := talib.Sma(values, period)
	maskWarmup(out, period-1)
	return out, nil
}

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded with the first value so every index is defined.
func EMA(values []float64, span int) ([]float64, error) {
	if err := checkWindow("ema", len(values), 1); err != nil {
		return nil, err
	}
	if span <= 0 {
		return nil, model.Invalid("ema.span", "must be positive, got %d", span)
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + alpha*(values[i]-out[i-1])
	}
	return out, nil
}

// Mean returns the arithmetic mean of values, NaN when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PriorMean averages the n values that precede the latest one.
func PriorMean(values []float64, n int) (float64, error) {
	if err := checkWindow("prior_mean", len(values), n+1); err != nil {
		return 0, err
	}
	end := len(values) - 1
	return Mean(values[end-n : end]), nil
}
