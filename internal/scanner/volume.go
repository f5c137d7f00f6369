package scanner

import (
	"errors"

	"StockScanner/internal/calculator"
	"StockScanner/internal/model"
)

// VolumeIncreaseParams flags volume rising bar over bar for Periods bars and
// ending well above its moving average.
type VolumeIncreaseParams struct {
	Periods    int     `yaml:"periods"`
	SMAPeriod  int     `yaml:"sma_period"`
	Multiplier float64 `yaml:"multiplier"`
}

func DefaultVolumeIncrease() *VolumeIncreaseParams {
	return &VolumeIncreaseParams{Periods: 3, SMAPeriod: 10, Multiplier: 1.5}
}

func (p *VolumeIncreaseParams) Kind() Kind { return KindVolumeIncrease }

func (p *VolumeIncreaseParams) Validate() error {
	var errs []error
	if p.Periods < 1 || p.Periods > 4 {
		errs = append(errs, model.Invalid("periods", "must be within [1,4], got %d", p.Periods))
	}
	errs = append(errs,
		positive("sma_period", p.SMAPeriod),
		positiveFloat("multiplier", p.Multiplier),
	)
	return errors.Join(errs...)
}

func (p *VolumeIncreaseParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	if sma, err := calculator.SMA(s.Volumes(), p.SMAPeriod); err == nil {
		a.Indicators[model.IndSMAVolume] = sma
	}
	return a
}

func (p *VolumeIncreaseParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	vols := a.Series.Volumes()
	n := len(vols)

	need := p.Periods + 1
	rising := n >= need
	if rising {
		for i := n - need + 1; i < n; i++ {
			if vols[i] <= vols[i-1] {
				rising = false
				break
			}
		}
	}
	v.check("volume_progression", n >= need, rising)

	var ratio float64
	sma, ok := a.Indicators.Last(model.IndSMAVolume)
	ok = ok && sma > 0
	if ok {
		ratio = vols[n-1] / sma
		v.note("volume", vols[n-1], true)
		v.note("volume_ratio", ratio, true)
		v.note(model.IndSMAVolume, sma, true)
	}
	v.check("volume_above_average", ok, ok && vols[n-1] >= sma*p.Multiplier)
	if n > 0 {
		v.note("close", a.Series.Last().Close, true)
	}
	return v.result(ratio)
}

// TripleVolumeParams requires a volume spike, RSI inside a band and OBV near
// the top of its recent range.
type TripleVolumeParams struct {
	AvgPeriod       int     `yaml:"avg_period"`
	Multiplier      float64 `yaml:"multiplier"`
	RSIPeriod       int     `yaml:"rsi_period"`
	RSIMin          float64 `yaml:"rsi_min"`
	RSIMax          float64 `yaml:"rsi_max"`
	OBVPeriod       int     `yaml:"obv_period"`
	OBVThresholdPct float64 `yaml:"obv_threshold_pct"`
}

func DefaultTripleVolume() *TripleVolumeParams {
	return &TripleVolumeParams{
		AvgPeriod:       20,
		Multiplier:      2.0,
		RSIPeriod:       14,
		RSIMin:          60,
		RSIMax:          70,
		OBVPeriod:       20,
		OBVThresholdPct: 95,
	}
}

func (p *TripleVolumeParams) Kind() Kind { return KindTripleVolume }

func (p *TripleVolumeParams) Validate() error {
	errs := []error{
		positive("avg_period", p.AvgPeriod),
		positiveFloat("multiplier", p.Multiplier),
		positive("rsi_period", p.RSIPeriod),
		percent("rsi_min", p.RSIMin),
		percent("rsi_max", p.RSIMax),
		positive("obv_period", p.OBVPeriod),
		percent("obv_threshold_pct", p.OBVThresholdPct),
	}
	if p.RSIMin > p.RSIMax {
		errs = append(errs, model.Invalid("rsi_min", "must not exceed rsi_max (%v > %v)", p.RSIMin, p.RSIMax))
	}
	return errors.Join(errs...)
}

func (p *TripleVolumeParams) prepare(s model.Series) Analysis {
	a := newAnalysis(s)
	closes := s.Closes()
	if rsi, err := calculator.RSI(closes, p.RSIPeriod); err == nil {
		a.Indicators[model.IndRSI] = rsi
	}
	if obv, err := calculator.OBV(closes, s.Volumes()); err == nil {
		a.Indicators[model.IndOBV] = obv
	}
	if avg, err := calculator.SMA(s.Volumes(), p.AvgPeriod); err == nil {
		a.Indicators[model.IndVolumeAverage] = avg
	}
	if rank, err := calculator.PercentileRank(a.Indicators[model.IndOBV], p.OBVPeriod); err == nil {
		a.Measures["obv_percentile"] = model.Some(rank)
	}
	return a
}

func (p *TripleVolumeParams) evaluate(a Analysis) model.ScanResult {
	v := newVerdict()
	n := a.Series.Len()
	enough := n >= max(p.AvgPeriod, p.RSIPeriod, p.OBVPeriod)

	avg, avgOK := a.Indicators.Last(model.IndVolumeAverage)
	var volume float64
	if n > 0 {
		volume = a.Series.Last().Volume
	}
	v.check("volume_spike", enough && avgOK, volume >= avg*p.Multiplier)

	rsi, rsiOK := a.Indicators.Last(model.IndRSI)
	v.check("rsi_in_range", enough && rsiOK, rsi >= p.RSIMin && rsi <= p.RSIMax)

	rank, rankOK := a.measure("obv_percentile")
	v.check("obv_at_peak", enough && rankOK, rank >= p.OBVThresholdPct)

	v.note("volume", volume, n > 0)
	v.note("obv_percentile", rank, rankOK)
	v.noteLast(a.Indicators, model.IndVolumeAverage, model.IndRSI, model.IndOBV)
	return v.result(0)
}
