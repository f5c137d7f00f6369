package structure

import (
	"fmt"

	"StockScanner/internal/calculator"
	"StockScanner/internal/model"
)

// ConvergencePercent measures how much the high-low range narrowed between the
// first and last bar: (start-end)/start*100. A non-positive starting range
// yields 0.
func ConvergencePercent(highs, lows []float64) float64 {
	if len(highs) == 0 || len(highs) != len(lows) {
		return 0
	}
	start := highs[0] - lows[0]
	end := highs[len(highs)-1] - lows[len(lows)-1]
	if start <= 0 {
		return 0
	}
	return (start - end) / start * 100
}

// VolumeDeclinePercent compares the mean volume of the first half of the
// trailing period with the mean of the second half. Positive means volume
// dried up. A zero early mean yields 0.
func VolumeDeclinePercent(volumes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, model.Invalid("volume_decline.period", "must be at least 2, got %d", period)
	}
	if len(volumes) < period {
		return 0, fmt.Errorf("volume decline over %d bars: %w", period, model.ErrInsufficientData)
	}
	recent := volumes[len(volumes)-period:]
	half := period / 2
	early := calculator.Mean(recent[:half])
	late := calculator.Mean(recent[len(recent)-half:])
	if early <= 0 {
		return 0, nil
	}
	return (early - late) / early * 100, nil
}

// Direction of a price breakout.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionNone   Direction = "none"
	DirectionEither Direction = "either"
)

// Breakout describes the latest bar against the preceding lookback-1 bars.
type Breakout struct {
	Direction        Direction
	VolumeChangePct  float64
	ReferenceHigh    float64
	ReferenceLow     float64
	VolumeComparable bool
}

// BreakoutCheck classifies the latest close against the max high and min low of
// the preceding lookback-1 bars, and the latest volume against their mean.
func BreakoutCheck(bars []model.Bar, lookback int) (Breakout, error) {
	if lookback < 2 {
		return Breakout{}, model.Invalid("breakout.lookback", "must be at least 2, got %d", lookback)
	}
	if len(bars) < lookback {
		return Breakout{}, fmt.Errorf("breakout over %d bars: %w", lookback, model.ErrInsufficientData)
	}
	window := bars[len(bars)-lookback:]
	prior := window[:len(window)-1]
	latest := window[len(window)-1]

	out := Breakout{Direction: DirectionNone, ReferenceHigh: prior[0].High, ReferenceLow: prior[0].Low}
	var volSum float64
	for _, b := range prior {
		if b.High > out.ReferenceHigh {
			out.ReferenceHigh = b.High
		}
		if b.Low < out.ReferenceLow {
			out.ReferenceLow = b.Low
		}
		volSum += b.Volume
	}
	if avg := volSum / float64(len(prior)); avg > 0 {
		out.VolumeChangePct = (latest.Volume - avg) / avg * 100
		out.VolumeComparable = true
	}
	switch {
	case latest.Close > out.ReferenceHigh:
		out.Direction = DirectionUp
	case latest.Close < out.ReferenceLow:
		out.Direction = DirectionDown
	}
	return out, nil
}

// Confirmed reports a price breakout backed by at least minVolumeIncreasePct
// more volume, in the wanted direction.
func (b Breakout) Confirmed(want Direction, minVolumeIncreasePct float64) bool {
	if b.Direction == DirectionNone || !b.VolumeComparable {
		return false
	}
	if b.VolumeChangePct < minVolumeIncreasePct {
		return false
	}
	return want == DirectionEither || want == b.Direction
}
