package scanner

import (
	"errors"
	"math"

	"StockScanner/internal/calculator"
	"StockScanner/internal/model"
	"StockScanner/internal/structure"
)

// TriangleParams flags a converging range on drying volume that breaks out on
// a volume surge.
type TriangleParams struct {
	Period                    int                 `yaml:"period"`
	ConvergenceThresholdPct   float64             `yaml:"convergence_threshold_pct"`
	DeclinePeriod             int                 `yaml:"decline_period"`
	DeclineThresholdPct       float64             `yaml:"decline_threshold_pct"`
	BreakoutVolumeIncreasePct float64             `yaml:"breakout_volume_increase_pct"`
	BreakoutLookback          int                 `yaml:"breakout_lookback"`
	Direction                 structure.Direction `yaml:"direction"`
}

func DefaultTriangle() *TriangleParams {
	return &TriangleParams{
		Period:                    20,
		ConvergenceThresholdPct:   3.0,
		DeclinePeriod:             10,
		DeclineThresholdPct:       20,
		BreakoutVolumeIncreasePct: 40,
		BreakoutLookback:          5,
		Direction:                 structure.DirectionUp,
	}
}

func (p *TriangleParams) Kind() Kind { return KindTriangle }

func (p *TriangleParams) Validate() error {
	var errs []error
	if p.Period < 10 {
		errs = append(errs, model.Invalid("period", "must be at least 10, got %d", p.Period))
	}
	if p.DeclinePeriod < 2 {
		errs = append(errs, model.Invalid("decline_period", "must be at least 2, got %d", p.DeclinePeriod))
	}
	if p.BreakoutLookback < 2 {
		errs = append(errs, model.Invalid("breakout_lookback", "must be at least 2, got %d", p.BreakoutLookback))
	}
	switch p.Direction {
	case structure.DirectionUp, structure.DirectionDown, structure.DirectionEither:
	default:
		errs = append(errs, model.Invalid("direction", "must be up, down or either, got %q", p.Direction))
	}
	if p.BreakoutVolumeIncreasePct < 0 {
		errs = append(errs, model.Invalid("breakout_volume_increase_pct", "must not be negative, got %v",
			p.BreakoutVolumeIncreasePct))
	}
	errs = append(errs,
		percent("convergence_threshold_pct", p.ConvergenceThresholdPct),
		percent("decline_threshold_pct", p.DeclineThresholdPct),
	)
	return errors.Join(errs...)
}

func (p *TriangleParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	if s.Len() >= p.Period {
		window := s.Tail(p.Period)
		highs, lows := window.Highs(), window.Lows()
		a.Measures["convergence_pct"] = model.Some(structure.ConvergencePercent(highs, lows))
		if slope, err := calculator.TrendSlope(highs); err == nil {
			a.Measures["high_slope"] = model.Some(slope)
		}
		if slope, err := calculator.TrendSlope(lows); err == nil {
			a.Measures["low_slope"] = model.Some(slope)
		}
	}
	if pct, err := structure.VolumeDeclinePercent(s.Volumes(), p.DeclinePeriod); err == nil {
		a.Measures["volume_decline_pct"] = model.Some(pct)
	}
	if b, err := structure.BreakoutCheck(s.Bars(), p.BreakoutLookback); err == nil {
		a.Breakout = &b
	}
	return a
}

func (p *TriangleParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()

	conv, convOK := a.measure("convergence_pct")
	v.check("triangle_formation", convOK, conv >= p.ConvergenceThresholdPct)

	decline, declineOK := a.measure("volume_decline_pct")
	v.check("volume_declined", declineOK, decline >= p.DeclineThresholdPct)

	b := a.Breakout
	v.check("breakout_confirmed", b != nil, b != nil && b.Confirmed(p.Direction, p.BreakoutVolumeIncreasePct))

	v.note("convergence_pct", conv, convOK)
	v.note("volume_decline_pct", decline, declineOK)
	for _, name := range []string{"high_slope", "low_slope"} {
		val, ok := a.measure(name)
		v.note(name, val, ok)
	}
	if b != nil {
		v.note("breakout_volume_change_pct", b.VolumeChangePct, b.VolumeComparable)
		v.label("breakout_direction", string(b.Direction))
	}
	return v.result(0)
}

// RSIDivergenceParams flags a bullish RSI divergence out of oversold territory
// that is followed by a resistance breakout on volume.
type RSIDivergenceParams struct {
	RSIPeriod             int     `yaml:"rsi_period"`
	DivergencePeriod      int     `yaml:"divergence_period"`
	SwingWindow           int     `yaml:"swing_window"`
	MinStrength           float64 `yaml:"min_strength"`
	OversoldThreshold     float64 `yaml:"oversold_threshold"`
	ResistancePeriod      int     `yaml:"resistance_period"`
	ResistanceBreakoutPct float64 `yaml:"resistance_breakout_pct"`
	VolumeMultiplier      float64 `yaml:"volume_multiplier"`
}

func DefaultRSIDivergence() *RSIDivergenceParams {
	return &RSIDivergenceParams{
		RSIPeriod:             14,
		DivergencePeriod:      20,
		SwingWindow:           3,
		MinStrength:           0.6,
		OversoldThreshold:     30,
		ResistancePeriod:      10,
		ResistanceBreakoutPct: 1.5,
		VolumeMultiplier:      1.5,
	}
}

func (p *RSIDivergenceParams) Kind() Kind { return KindRSIDivergence }

func (p *RSIDivergenceParams) Validate() error {
	errs := []error{
		positive("rsi_period", p.RSIPeriod),
		positive("swing_window", p.SwingWindow),
		percent("oversold_threshold", p.OversoldThreshold),
		positive("resistance_period", p.ResistancePeriod),
		positiveFloat("volume_multiplier", p.VolumeMultiplier),
	}
	if p.DivergencePeriod < 2*p.SwingWindow+1 {
		errs = append(errs, model.Invalid("divergence_period", "must hold at least one swing window (%d < %d)",
			p.DivergencePeriod, 2*p.SwingWindow+1))
	}
	if p.MinStrength < 0 {
		errs = append(errs, model.Invalid("min_strength", "must not be negative, got %v", p.MinStrength))
	}
	return errors.Join(errs...)
}

// minStrengthDenominator floors the normalised price change.
const minStrengthDenominator = 0.001

func (p *RSIDivergenceParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	rsi, err := calculator.RSI(s.Closes(), p.RSIPeriod)
	if err != nil {
		return a
	}
	a.Indicators[model.IndRSI] = rsi
	if s.Len() < p.DivergencePeriod {
		return a
	}
	lows := s.Tail(p.DivergencePeriod).Lows()
	rsiTail := rsi[len(rsi)-p.DivergencePeriod:]
	a.Swings["price_lows"] = structure.Filter(structure.FindLocalExtrema(lows, p.SwingWindow), model.SwingLow)
	a.Swings["rsi_lows"] = structure.Filter(structure.FindLocalExtrema(rsiTail, p.SwingWindow), model.SwingLow)

	priceLows, rsiLows := a.Swings["price_lows"], a.Swings["rsi_lows"]
	if len(priceLows) < 2 || len(rsiLows) < 2 {
		return a
	}
	lastP, prevP := priceLows[len(priceLows)-1], priceLows[len(priceLows)-2]
	lastR, prevR := rsiLows[len(rsiLows)-1], rsiLows[len(rsiLows)-2]
	if lastP.Price < prevP.Price && lastR.Price > prevR.Price {
		priceChange := math.Abs(lastP.Price-prevP.Price) / prevP.Price
		rsiChange := math.Abs(lastR.Price-prevR.Price) / 100
		strength := 0.0
		if priceChange > 0 {
			strength = rsiChange / math.Max(priceChange, minStrengthDenominator)
		}
		a.Measures["divergence_strength"] = model.Some(strength)
	}
	return a
}

func (p *RSIDivergenceParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	s := a.Series
	n := s.Len()
	enough := n >= p.DivergencePeriod

	strength, found := a.measure("divergence_strength")
	v.check("bullish_divergence", enough, found && strength >= p.MinStrength)
	v.note("divergence_strength", strength, found)

	rsi := a.Indicators[model.IndRSI]
	oversold := false
	if enough && len(rsi) == n {
		lo, _ := calculator.MinMax(rsi[n-p.DivergencePeriod:])
		oversold = lo <= p.OversoldThreshold
		v.note("rsi_window_min", lo, true)
	}
	v.check("rsi_oversold", enough && len(rsi) == n, oversold)

	resistance, err := calculator.PriorHigh(s.Highs(), p.ResistancePeriod)
	broken := err == nil && s.Last().Close >= resistance*(1+p.ResistanceBreakoutPct/100)
	v.check("resistance_breakout", enough && err == nil, broken)
	v.note("resistance", resistance, err == nil)

	volumeConfirmed(v, "volume_confirmed", s, p.VolumeMultiplier)
	v.noteLast(a.Indicators, model.IndRSI)
	return v.result(0)
}

// BollingerSqueezeParams flags a breakout above the upper band after band
// width sat in the bottom percentile of its recent history.
type BollingerSqueezeParams struct {
	Period            int     `yaml:"period"`
	StdDev            float64 `yaml:"std_dev"`
	SqueezeMonths     int     `yaml:"squeeze_months"`
	SqueezePercentile float64 `yaml:"squeeze_percentile"`
	BreakoutPct       float64 `yaml:"breakout_pct"`
	VolumeMultiplier  float64 `yaml:"volume_multiplier"`
	ConsecutiveDays   int     `yaml:"consecutive_days"`
}

func DefaultBollingerSqueeze() *BollingerSqueezeParams {
	return &BollingerSqueezeParams{
		Period:            20,
		StdDev:            2.0,
		SqueezeMonths:     6,
		SqueezePercentile: 10,
		BreakoutPct:       1.0,
		VolumeMultiplier:  1.5,
		ConsecutiveDays:   2,
	}
}

const (
	tradingDaysPerMonth = 22
	// upperBandProximity is how close to the upper band a close must stay.
	upperBandProximity = 0.98
)

func (p *BollingerSqueezeParams) Kind() Kind { return KindBollingerSqueeze }

func (p *BollingerSqueezeParams) Validate() error {
	errs := []error{
		positiveFloat("std_dev", p.StdDev),
		positive("squeeze_months", p.SqueezeMonths),
		positiveFloat("volume_multiplier", p.VolumeMultiplier),
		positive("consecutive_days", p.ConsecutiveDays),
	}
	if p.Period < 2 {
		errs = append(errs, model.Invalid("period", "must be at least 2, got %d", p.Period))
	}
	if p.SqueezePercentile <= 0 || p.SqueezePercentile > 100 {
		errs = append(errs, model.Invalid("squeeze_percentile", "must be within (0,100], got %v", p.SqueezePercentile))
	}
	return errors.Join(errs...)
}

func (p *BollingerSqueezeParams) squeezeBars() int {
	return p.SqueezeMonths * tradingDaysPerMonth
}

func (p *BollingerSqueezeParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	bb, err := calculator.Bollinger(s.Closes(), p.Period, p.StdDev)
	if err != nil {
		return a
	}
	width := bb.Width()
	a.Indicators[model.IndBBUpper] = bb.Upper
	a.Indicators[model.IndBBMiddle] = bb.Middle
	a.Indicators[model.IndBBLower] = bb.Lower
	a.Indicators[model.IndBBWidth] = width

	if s.Len() >= p.Period-1+p.squeezeBars() {
		history := width[len(width)-p.squeezeBars():]
		if q, err := calculator.Quantile(history, p.SqueezePercentile/100); err == nil {
			a.Measures["squeeze_threshold"] = model.Some(q)
		}
	}
	return a
}

func (p *BollingerSqueezeParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	s := a.Series
	n := s.Len()

	width, widthOK := a.Indicators.Last(model.IndBBWidth)
	threshold, thresholdOK := a.measure("squeeze_threshold")
	v.check("squeeze", widthOK && thresholdOK, width <= threshold)
	v.note("squeeze_threshold", threshold, thresholdOK)

	upper, upperOK := a.Indicators.Last(model.IndBBUpper)
	v.check("upper_band_breakout", upperOK, upperOK && s.Last().Close >= upper*(1+p.BreakoutPct/100))

	volumeConfirmed(v, "volume_confirmed", s, p.VolumeMultiplier)

	consecutive := n >= max(p.Period, p.ConsecutiveDays)
	if consecutive {
		for i := n - p.ConsecutiveDays; i < n; i++ {
			u, ok := a.Indicators.At(model.IndBBUpper, i)
			if !ok || s.Bar(i).Close < u*upperBandProximity {
				consecutive = false
				break
			}
		}
	}
	v.check("consecutive_upper_closes", n >= max(p.Period, p.ConsecutiveDays), consecutive)
	v.noteLast(a.Indicators, model.IndBBUpper, model.IndBBMiddle, model.IndBBLower, model.IndBBWidth)
	return v.result(0)
}
