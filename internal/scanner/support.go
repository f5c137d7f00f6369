package scanner

import (
	"errors"

	"StockScanner/internal/calculator"
	"StockScanner/internal/harmonic"
	"StockScanner/internal/model"
	"StockScanner/internal/structure"
)

const (
	// vwapDipWindow is how far back a dip under VWAP may be.
	vwapDipWindow = 10
	// vwapReclaimWindow is how recent the close back above VWAP must be.
	vwapReclaimWindow = 3
	// priorVolumeBars is the volume baseline used by breakout confirmations.
	priorVolumeBars = 5
	// minBottomLookback leaves room for two swing lows.
	minBottomLookback = 3
)

// volumeConfirmed compares the latest volume with multiplier times the mean of
// the priorVolumeBars bars before it.
func volumeConfirmed(v *verdict, name string, s model.Series, multiplier float64) {
	vols := s.Volumes()
	mean, err := calculator.PriorMean(vols, priorVolumeBars)
	ok := err == nil && mean > 0
	if ok {
		v.note("volume_baseline", mean, true)
	}
	v.check(name, ok, ok && vols[len(vols)-1] >= mean*multiplier)
}

// VWAPSupportParams flags a dip under VWAP that was bought back, with rising
// swing lows.
type VWAPSupportParams struct {
	VWAPPeriod          int     `yaml:"vwap_period"`
	SupportTolerancePct float64 `yaml:"support_tolerance_pct"`
	BottomLookback      int     `yaml:"bottom_lookback"`
	VolumeConfirmation  bool    `yaml:"volume_confirmation"`
	VolumeMultiplier    float64 `yaml:"volume_multiplier"`
	VolumeSMAPeriod     int     `yaml:"volume_sma_period"`
}

func DefaultVWAPSupport() *VWAPSupportParams {
	return &VWAPSupportParams{
		VWAPPeriod:          20,
		SupportTolerancePct: 1.0,
		BottomLookback:      10,
		VolumeConfirmation:  true,
		VolumeMultiplier:    1.5,
		VolumeSMAPeriod:     10,
	}
}

func (p *VWAPSupportParams) Kind() Kind { return KindVWAPSupport }

func (p *VWAPSupportParams) Validate() error {
	return errors.Join(
		positive("vwap_period", p.VWAPPeriod),
		percent("support_tolerance_pct", p.SupportTolerancePct),
		positiveFloat("volume_multiplier", p.VolumeMultiplier),
		positive("volume_sma_period", p.VolumeSMAPeriod),
		atLeast("bottom_lookback", p.BottomLookback, minBottomLookback),
	)
}

func (p *VWAPSupportParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	if vwap, err := calculator.VWAP(s.Bars(), p.VWAPPeriod); err == nil {
		a.Indicators[model.IndVWAP] = vwap
	}
	if sma, err := calculator.SMA(s.Volumes(), p.VolumeSMAPeriod); err == nil {
		a.Indicators[model.IndSMAVolume] = sma
	}
	lows := s.Tail(p.BottomLookback + 5).Lows()
	a.Swings["bottoms"] = structure.Filter(structure.FindLocalExtrema(lows, 1), model.SwingLow)
	return a
}

func (p *VWAPSupportParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	s := a.Series
	n := s.Len()
	vwap := a.Indicators[model.IndVWAP]

	enough := n >= p.VWAPPeriod+p.BottomLookback && len(vwap) == n
	dipped, reclaimed := false, false
	if enough {
		for i := max(0, n-vwapDipWindow); i < n; i++ {
			b := s.Bar(i)
			if b.Low < vwap[i]*(1-p.SupportTolerancePct/100) {
				dipped = true
			}
			if i >= n-vwapReclaimWindow && b.Close > vwap[i] {
				reclaimed = true
			}
		}
	}
	v.check("vwap_dip", enough, dipped)
	v.check("vwap_reclaim", enough, reclaimed)

	bottoms := a.Swings["bottoms"]
	rising := len(bottoms) >= 2 && bottoms[len(bottoms)-1].Price > bottoms[len(bottoms)-2].Price
	v.check("rising_bottoms", n >= p.BottomLookback+5, rising)

	if p.VolumeConfirmation {
		sma, ok := a.Indicators.Last(model.IndSMAVolume)
		ok = ok && sma > 0
		var ratio float64
		if ok {
			ratio = s.Last().Volume / sma
			v.note("volume_ratio", ratio, true)
		}
		v.check("volume_confirmed", ok, ratio >= p.VolumeMultiplier)
	}
	v.noteLast(a.Indicators, model.IndVWAP, model.IndSMAVolume)
	if n > 0 {
		v.note("close", s.Last().Close, true)
	}
	return v.result(0)
}

// FibonacciParams flags a retest of a Fibonacci retracement level that lines up
// with a harmonic pattern and recovering lows.
type FibonacciParams struct {
	LookbackPeriod       int              `yaml:"lookback_period"`
	RetracementMinPct    float64          `yaml:"retracement_min_pct"`
	RetracementMaxPct    float64          `yaml:"retracement_max_pct"`
	TolerancePct         float64          `yaml:"tolerance_pct"`
	Pattern              harmonic.Pattern `yaml:"pattern"`
	HarmonicTolerancePct float64          `yaml:"harmonic_tolerance_pct"`
	SwingWindow          int              `yaml:"swing_window"`
	VolumeMultiplier     float64          `yaml:"volume_multiplier"`
}

func DefaultFibonacci() *FibonacciParams {
	return &FibonacciParams{
		LookbackPeriod:       50,
		RetracementMinPct:    38.2,
		RetracementMaxPct:    50,
		TolerancePct:         2.0,
		Pattern:              harmonic.Auto,
		HarmonicTolerancePct: 5.0,
		SwingWindow:          5,
		VolumeMultiplier:     1.3,
	}
}

func (p *FibonacciParams) Kind() Kind { return KindFibonacci }

func (p *FibonacciParams) Validate() error {
	errs := []error{
		percent("retracement_min_pct", p.RetracementMinPct),
		percent("retracement_max_pct", p.RetracementMaxPct),
		percent("tolerance_pct", p.TolerancePct),
		percent("harmonic_tolerance_pct", p.HarmonicTolerancePct),
		positive("swing_window", p.SwingWindow),
		positiveFloat("volume_multiplier", p.VolumeMultiplier),
	}
	if p.LookbackPeriod < 20 {
		errs = append(errs, model.Invalid("lookback_period", "must be at least 20, got %d", p.LookbackPeriod))
	}
	if p.RetracementMinPct > p.RetracementMaxPct {
		errs = append(errs, model.Invalid("retracement_min_pct", "must not exceed retracement_max_pct (%v > %v)",
			p.RetracementMinPct, p.RetracementMaxPct))
	}
	if _, err := harmonic.ParsePattern(string(p.Pattern)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// fibLevels are the retracement ratios a retest may land on.
var fibLevels = []float64{0.382, 0.5, 0.618}

func (p *FibonacciParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	if s.Len() < p.LookbackPeriod {
		return a
	}
	window := s.Tail(p.LookbackPeriod)
	pattern, _ := harmonic.ParsePattern(string(p.Pattern))
	res := harmonic.Detect(window.Closes(), p.SwingWindow, pattern, p.HarmonicTolerancePct)
	a.Harmonic = &res

	highs, lows := window.Highs(), window.Lows()
	hiIdx, loIdx := 0, 0
	for i := range highs {
		if highs[i] > highs[hiIdx] {
			hiIdx = i
		}
		if lows[i] < lows[loIdx] {
			loIdx = i
		}
	}
	a.Measures["swing_high"] = model.Some(highs[hiIdx])
	a.Measures["swing_low"] = model.Some(lows[loIdx])
	if hiIdx < loIdx {
		a.Measures["swing_range"] = model.Some(highs[hiIdx] - lows[loIdx])
	}
	return a
}

func (p *FibonacciParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	s := a.Series
	n := s.Len()

	// Levels are measured down from the swing high of a high-then-low swing.
	high, _ := a.measure("swing_high")
	rng, swingOK := a.measure("swing_range")
	retest := false
	if swingOK && n > 0 {
		price := s.Last().Close
		upper := high - rng*p.RetracementMinPct/100
		lower := high - rng*p.RetracementMaxPct/100
		tol := rng * p.TolerancePct / 100
		near := false
		for _, lvl := range fibLevels {
			if d := price - (high - rng*lvl); d <= tol && d >= -tol {
				near = true
				break
			}
		}
		retest = price >= lower && price <= upper && near
		v.note("fib_upper", upper, true)
		v.note("fib_lower", lower, true)
	}
	v.check("fib_retracement", n >= p.LookbackPeriod, retest)

	matched := a.Harmonic != nil && a.Harmonic.Matched
	v.check("harmonic_pattern", a.Harmonic != nil, matched)
	if matched {
		v.label("harmonic_pattern", string(a.Harmonic.Pattern))
	}

	support := false
	if n >= p.LookbackPeriod+5 {
		lows := s.Tail(10).Lows()
		recent := lows[len(lows)-5:]
		support = true
		for i := 1; i < len(recent); i++ {
			if recent[i] < recent[i-1] {
				support = false
				break
			}
		}
		lo, _ := calculator.MinMax(lows)
		support = support && s.Last().Close > lo*1.01
	}
	v.check("fib_support", n >= p.LookbackPeriod+5, support)

	volumeConfirmed(v, "volume_confirmed", s, p.VolumeMultiplier)
	v.note("swing_high", high, swingOK)
	v.note("swing_range", rng, swingOK)
	if n > 0 {
		v.note("close", s.Last().Close, true)
	}
	return v.result(0)
}
