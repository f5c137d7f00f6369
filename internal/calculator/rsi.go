package calculator

import (
	"math"

	"github.com/markcheno/go-talib"

	"StockScanner/internal/model"
)

// NeutralRSI is reported wherever RSI is undefined.
const NeutralRSI = 50.0

// RSI computes the relative strength index from simple rolling means of gains
// and losses. Every index is defined: warm-up and 0/0 positions read 50, a
// window with gains and no losses reads 100. A series shorter than period
// yields all 50s.
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, model.Invalid("rsi.period", "must be positive, got %d", period)
	}
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = NeutralRSI
	}
	if len(closes) < period {
		return out, nil
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else if change < 0 {
			losses[i] = -change
		}
	}
	avgGain := talib.Sma(gains, period)
	avgLoss := talib.Sma(losses, period)

	for i := period - 1; i < len(closes); i++ {
		g, l := avgGain[i], avgLoss[i]
		// rolling sums can leave tiny negative residue
		if g < 1e-12 {
			g = 0
		}
		if l < 1e-12 {
			l = 0
		}
		switch {
		case l == 0 && g == 0:
			out[i] = NeutralRSI
		case l == 0:
			out[i] = 100
		default:
			rs := g / l
			out[i] = math.Max(0, math.Min(100, 100-100/(1+rs)))
		}
	}
	return out, nil
}
