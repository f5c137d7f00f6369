package scanner

import (
	"errors"

	"StockScanner/internal/calculator"
	"StockScanner/internal/model"
)

// crossWindow is how many recent bars a crossover may have happened in.
const crossWindow = 5

// crossedAbove reports whether a moved from <= b to > b within the last
// crossWindow bars.
func crossedAbove(a, b []float64) bool {
	n := len(a)
	for i := 1; i <= crossWindow && n-1-i >= 0; i++ {
		prev, curr := n-1-i, n-i
		if !calculator.Defined(a[prev]) || !calculator.Defined(b[prev]) {
			continue
		}
		if a[prev] <= b[prev] && a[curr] > b[curr] {
			return true
		}
	}
	return false
}

// GoldenCrossParams flags a recent short-over-long EMA cross on exploding volume.
type GoldenCrossParams struct {
	ShortSpan         int     `yaml:"short_span"`
	LongSpan          int     `yaml:"long_span"`
	VolumePeriod      int     `yaml:"volume_period"`
	VolumeIncreasePct float64 `yaml:"volume_increase_pct"`
}

func DefaultGoldenCross() *GoldenCrossParams {
	return &GoldenCrossParams{ShortSpan: 50, LongSpan: 200, VolumePeriod: 20, VolumeIncreasePct: 50}
}

func (p *GoldenCrossParams) Kind() Kind { return KindGoldenCross }

func (p *GoldenCrossParams) Validate() error {
	errs := []error{
		positive("short_span", p.ShortSpan),
		positive("long_span", p.LongSpan),
		positive("volume_period", p.VolumePeriod),
	}
	if p.ShortSpan >= p.LongSpan {
		errs = append(errs, model.Invalid("short_span", "must be below long_span (%d >= %d)", p.ShortSpan, p.LongSpan))
	}
	if p.VolumeIncreasePct < 0 {
		errs = append(errs, model.Invalid("volume_increase_pct", "must not be negative, got %v", p.VolumeIncreasePct))
	}
	return errors.Join(errs...)
}

func (p *GoldenCrossParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	closes := s.Closes()
	if ema, err := calculator.EMA(closes, p.ShortSpan); err == nil {
		a.Indicators[model.IndEMAShort] = ema
	}
	if ema, err := calculator.EMA(closes, p.LongSpan); err == nil {
		a.Indicators[model.IndEMALong] = ema
	}
	if avg, err := calculator.SMA(s.Volumes(), p.VolumePeriod); err == nil {
		a.Indicators[model.IndVolumeAverage] = avg
	}
	return a
}

func (p *GoldenCrossParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	n := a.Series.Len()

	short, long := a.Indicators[model.IndEMAShort], a.Indicators[model.IndEMALong]
	enough := n >= max(p.ShortSpan, p.LongSpan)+crossWindow && len(short) == n && len(long) == n
	v.check("golden_cross_recent", enough, enough && crossedAbove(short, long))

	avg, ok := a.Indicators.Last(model.IndVolumeAverage)
	ok = ok && avg > 0
	var explosion float64
	if ok {
		volume := a.Series.Last().Volume
		explosion = (volume - avg) / avg * 100
		v.note("volume", volume, true)
		v.note("volume_increase_pct", explosion, true)
	}
	v.check("volume_explosion", ok, explosion >= p.VolumeIncreasePct)
	v.noteLast(a.Indicators, model.IndEMAShort, model.IndEMALong, model.IndVolumeAverage)
	return v.result(0)
}

// MACDZeroParams flags a MACD line crossing above zero out of a sideways range.
type MACDZeroParams struct {
	Fast                 int     `yaml:"fast"`
	Slow                 int     `yaml:"slow"`
	Signal               int     `yaml:"signal"`
	SidewaysDays         int     `yaml:"sideways_days"`
	SidewaysThresholdPct float64 `yaml:"sideways_threshold_pct"`
	VolumeConfirmation   bool    `yaml:"volume_confirmation"`
	VolumeSMAPeriod      int     `yaml:"volume_sma_period"`
	VolumeRatioMin       float64 `yaml:"volume_ratio_min"`
}

func DefaultMACDZero() *MACDZeroParams {
	return &MACDZeroParams{
		Fast:                 12,
		Slow:                 26,
		Signal:               9,
		SidewaysDays:         5,
		SidewaysThresholdPct: 2.0,
		VolumeConfirmation:   true,
		VolumeSMAPeriod:      10,
		VolumeRatioMin:       1.2,
	}
}

func (p *MACDZeroParams) Kind() Kind { return KindMACDZero }

func (p *MACDZeroParams) Validate() error {
	errs := []error{
		positive("fast", p.Fast),
		positive("slow", p.Slow),
		positive("signal", p.Signal),
		positive("sideways_days", p.SidewaysDays),
		positiveFloat("sideways_threshold_pct", p.SidewaysThresholdPct),
		positive("volume_sma_period", p.VolumeSMAPeriod),
		positiveFloat("volume_ratio_min", p.VolumeRatioMin),
	}
	if p.Fast >= p.Slow {
		errs = append(errs, model.Invalid("fast", "must be below slow (%d >= %d)", p.Fast, p.Slow))
	}
	return errors.Join(errs...)
}

func (p *MACDZeroParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	if m, err := calculator.MACD(s.Closes(), p.Fast, p.Slow, p.Signal); err == nil {
		a.Indicators[model.IndMACDLine] = m.Line
		a.Indicators[model.IndMACDSignal] = m.Signal
		a.Indicators[model.IndMACDHistogram] = m.Histogram
	}
	if sma, err := calculator.SMA(s.Volumes(), p.VolumeSMAPeriod); err == nil {
		a.Indicators[model.IndSMAVolume] = sma
	}
	if rng, err := calculator.RangePercent(s.Closes(), p.SidewaysDays+1); err == nil {
		a.Measures["sideways_range_pct"] = model.Some(rng)
	}
	return a
}

func (p *MACDZeroParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	n := a.Series.Len()

	line := a.Indicators[model.IndMACDLine]
	enough := n >= p.Slow+p.Signal+crossWindow && len(line) == n
	zero := make([]float64, len(line))
	v.check("macd_zero_cross_recent", enough, enough && crossedAbove(line, zero))

	hist, histOK := a.Indicators.Last(model.IndMACDHistogram)
	v.check("histogram_positive", histOK, hist > 0)

	rng, rngOK := a.measure("sideways_range_pct")
	v.check("sideways_before_breakout", n >= p.SidewaysDays+crossWindow && rngOK, rng <= p.SidewaysThresholdPct)
	v.note("sideways_range_pct", rng, rngOK)

	if p.VolumeConfirmation {
		sma, ok := a.Indicators.Last(model.IndSMAVolume)
		ok = ok && sma > 0
		var ratio float64
		if ok {
			ratio = a.Series.Last().Volume / sma
			v.note("volume_ratio", ratio, true)
		}
		v.check("volume_confirmed", ok, ratio >= p.VolumeRatioMin)
	}
	v.noteLast(a.Indicators, model.IndMACDLine, model.IndMACDSignal, model.IndMACDHistogram)
	return v.result(0)
}
