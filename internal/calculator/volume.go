package calculator

import (
	"github.com/markcheno/go-talib"

	"StockScanner/internal/model"
)

// VWAP computes a rolling volume-weighted average of the typical price over
// the trailing window. The first window-1 bars use the bars available so far.
// A window with zero volume falls back to the bar's typical price.
func VWAP(bars []model.Bar, window int) ([]float64, error) {
	if err := checkWindow("vwap", len(bars), 1); err != nil {
		return nil, err
	}
	if window <= 0 {
		return nil, model.Invalid("vwap.window", "must be positive, got %d", window)
	}
	out := make([]float64, len(bars))
	var pv, vol float64
	for i, b := range bars {
		pv += b.TypicalPrice() * b.Volume
		vol += b.Volume
		if i >= window {
			old := bars[i-window]
			pv -= old.TypicalPrice() * old.Volume
			vol -= old.Volume
		}
		if vol > 0 {
			out[i] = pv / vol
		} else {
			out[i] = b.TypicalPrice()
		}
	}
	return out, nil
}

// OBV computes on-balance volume seeded with the first bar's volume.
func OBV(closes, volumes []float64) ([]float64, error) {
	if len(closes) != len(volumes) {
		return nil, model.Invalid("obv", "closes and volumes differ in length (%d != %d)", len(closes), len(volumes))
	}
	if err := checkWindow("obv", len(closes), 1); err != nil {
		return nil, err
	}
	return talib.Obv(closes, volumes), nil
}

// PercentileRank places the last value inside the min-max range of the
// trailing window, in percent. A flat window ranks 0.
func PercentileRank(values []float64, window int) (float64, error) {
	if err := checkWindow("percentile_rank", len(values), window); err != nil {
		return 0, err
	}
	tail := values[len(values)-window:]
	lo, hi := MinMax(tail)
	if hi-lo == 0 {
		return 0, nil
	}
	return (tail[len(tail)-1] - lo) / (hi - lo) * 100, nil
}
