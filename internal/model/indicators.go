package model

import "math"

// Indicator names used as IndicatorSet keys.
const (
	IndSMAVolume     = "sma_volume"
	IndEMAShort      = "ema_short"
	IndEMALong       = "ema_long"
	IndRSI           = "rsi"
	IndMACDLine      = "macd_line"
	IndMACDSignal    = "macd_signal"
	IndMACDHistogram = "macd_histogram"
	IndVWAP          = "vwap"
	IndOBV           = "obv"
	IndBBUpper       = "bb_upper"
	IndBBMiddle      = "bb_middle"
	IndBBLower       = "bb_lower"
	IndBBWidth       = "bb_width"
	IndSMAFast       = "sma_50"
	IndSMASlow       = "sma_200"
	IndVolumeAverage = "volume_avg"
)

// IndicatorSet maps an indicator name to a series aligned index-for-index with
// the source Series. Warm-up positions hold NaN.
type IndicatorSet map[string][]float64

// Last returns the final value of the named series and whether it is defined.
func (s IndicatorSet) Last(name string) (float64, bool) {
	return s.At(name, len(s[name])-1)
}

// At returns the value at index i of the named series and whether it is defined.
func (s IndicatorSet) At(name string, i int) (float64, bool) {
	vals, ok := s[name]
	if !ok || i < 0 || i >= len(vals) {
		return 0, false
	}
	v := vals[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SwingKind distinguishes swing highs from swing lows.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a local extremum of a value series.
type SwingPoint struct {
	Index int
	Price float64
	Kind  SwingKind
}
