package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// BollingerBands holds the band series. Indexes before period-1 are NaN.
type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes SMA(period) ± numStd × sample standard deviation.
func Bollinger(closes []float64, period int, numStd float64) (BollingerBands, error) {
	if err := checkWindow("bollinger", len(closes), period); err != nil {
		return BollingerBands{}, err
	}
	middle, err := SMA(closes, period)
	if err != nil {
		return BollingerBands{}, err
	}
	std := sampleStd(closes, period)

	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		upper[i] = middle[i] + numStd*std[i]
		lower[i] = middle[i] - numStd*std[i]
	}
	return BollingerBands{Upper: upper, Middle: middle, Lower: lower}, nil
}

// Width returns (upper-lower)/middle×100 per index; NaN where undefined.
func (b BollingerBands) Width() []float64 {
	out := make([]float64, len(b.Middle))
	for i := range out {
		if !Defined(b.Middle[i]) || b.Middle[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (b.Upper[i] - b.Lower[i]) / b.Middle[i] * 100
	}
	return out
}

// sampleStd is the rolling standard deviation with n-1 in the denominator.
func sampleStd(values []float64, period int) []float64 {
	if period < 2 {
		out := make([]float64, len(values))
		maskWarmup(out, period-1)
		return out
	}
	variance := talib.Var(values, period)
	scale := float64(period) / float64(period-1)
	out := make([]float64, len(values))
	for i, v := range variance {
		if v < 0 {
			v = 0
		}
		out[i] = math.Sqrt(v * scale)
	}
	maskWarmup(out, period-1)
	return out
}
