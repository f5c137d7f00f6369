// Package scanner holds the pattern scanners. Each scanner kind carries its own
// parameter struct; a scan prepares indicators and structural measurements for
// one series and evaluates them into a ScanResult.
package scanner

import (
	"errors"
	"fmt"
	"strings"

	"StockScanner/internal/harmonic"
	"StockScanner/internal/model"
	"StockScanner/internal/structure"
)

// Kind identifies a scanner.
type Kind string

const (
	KindVolumeIncrease   Kind = "volume_increase"
	KindGoldenCross      Kind = "golden_cross"
	KindMACDZero         Kind = "macd_zero_breakout"
	KindVWAPSupport      Kind = "vwap_support"
	KindTripleVolume     Kind = "triple_volume"
	KindTriangle         Kind = "triangle_breakout"
	KindRSIDivergence    Kind = "rsi_divergence"
	KindBollingerSqueeze Kind = "bollinger_squeeze"
	KindFibonacci        Kind = "fibonacci_harmonic"
)

// Kinds lists every scanner in display order.
var Kinds = []Kind{
	KindVolumeIncrease,
	KindGoldenCross,
	KindMACDZero,
	KindVWAPSupport,
	KindTripleVolume,
	KindTriangle,
	KindRSIDivergence,
	KindBollingerSqueeze,
	KindFibonacci,
}

// ParseKind resolves a scanner name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", model.Invalid("scanner", "unknown scanner %q", s)
}

// Ranked reports whether matches of this kind are ordered by SortKey descending.
func (k Kind) Ranked() bool {
	return k == KindVolumeIncrease
}

// Params is a scanner's typed parameter set. The unexported methods seal the
// interface to the parameter structs of this package.
type Params interface {
	Kind() Kind
	Validate() error
	prepare(s model.Series) Analysis
	evaluate(a Analysis) model.ScanResult
}

// Default returns the default parameters for a kind.
func Default(kind Kind) (Params, error) {
	switch kind {
	case KindVolumeIncrease:
		return DefaultVolumeIncrease(), nil
	case KindGoldenCross:
		return DefaultGoldenCross(), nil
	case KindMACDZero:
		return DefaultMACDZero(), nil
	case KindVWAPSupport:
		return DefaultVWAPSupport(), nil
	case KindTripleVolume:
		return DefaultTripleVolume(), nil
	case KindTriangle:
		return DefaultTriangle(), nil
	case KindRSIDivergence:
		return DefaultRSIDivergence(), nil
	case KindBollingerSqueeze:
		return DefaultBollingerSqueeze(), nil
	case KindFibonacci:
		return DefaultFibonacci(), nil
	}
	return nil, model.Invalid("scanner", "unknown scanner %q", kind)
}

// Decode fills the defaults of kind through decode (for example a yaml.Node's
// Decode method) and validates the outcome. A nil decode keeps the defaults.
func Decode(kind Kind, decode func(v any) error) (Params, error) {
	p, err := Default(kind)
	if err != nil {
		return nil, err
	}
	if decode != nil {
		if err := decode(p); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, errors.Join(model.ErrInvalidConfig, err))
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return p, nil
}

// Analysis is everything a scanner evaluates for one series: the series
// itself, the indicators it asked for and its structural findings.
type Analysis struct {
	Series     model.Series
	Indicators model.IndicatorSet
	Swings     map[string][]model.SwingPoint
	Measures   map[string]model.Metric
	Breakout   *structure.Breakout
	Harmonic   *harmonic.Result
}

func newAnalysis(s model.Series) Analysis {
	return Analysis{
		Series:     s,
		Indicators: model.IndicatorSet{},
		Swings:     map[string][]model.SwingPoint{},
		Measures:   map[string]model.Metric{},
	}
}

func (a Analysis) measure(name string) (float64, bool) {
	m, ok := a.Measures[name]
	return m.Value, ok && m.Valid
}

// Prepare computes the indicators and structure p needs.
func Prepare(s model.Series, p Params) Analysis {
	return p.prepare(s)
}

// Evaluate turns a prepared analysis into a verdict.
func Evaluate(a Analysis, p Params) model.ScanResult {
	res := p.evaluate(a)
	res.Symbol = a.Series.Symbol
	res.Scanner = string(p.Kind())
	return res
}

// Scan runs p over s. It never fails: criteria that cannot be evaluated on
// a short series are reported as not evaluated and the result does not match.
func Scan(s model.Series, p Params) model.ScanResult {
	return Evaluate(Prepare(s, p), p)
}

// verdict accumulates criteria and snapshot values.
type verdict struct {
	criteria []model.Criterion
	snapshot map[string]float64
	labels   map[string]string
}

func newVerdict() *verdict {
	return &verdict{snapshot: map[string]float64{}}
}

func (v *verdict) label(name, value string) {
	if v.labels == nil {
		v.labels = map[string]string{}
	}
	v.labels[name] = value
}

// check records a criterion; a criterion that was not evaluated never passes.
func (v *verdict) check(name string, evaluated, passed bool) {
	v.criteria = append(v.criteria, model.Criterion{Name: name, Evaluated: evaluated, Passed: evaluated && passed})
}

// note stores a snapshot value when it is defined.
func (v *verdict) note(name string, value float64, ok bool) {
	if ok {
		v.snapshot[name] = value
	}
}

func (v *verdict) result(sortKey float64) model.ScanResult {
	match := len(v.criteria) > 0
	for _, c := range v.criteria {
		if !c.Passed {
			match = false
			break
		}
	}
	return model.ScanResult{Snapshot: v.snapshot, Labels: v.labels, Criteria: v.criteria, Match: match, SortKey: sortKey}
}

// noteLast copies the last defined value of each named indicator into the snapshot.
func (v *verdict) noteLast(ind model.IndicatorSet, names ...string) {
	for _, name := range names {
		val, ok := ind.Last(name)
		v.note(name, val, ok)
	}
}

func positive(field string, v int) error {
	if v <= 0 {
		return model.Invalid(field, "must be positive, got %d", v)
	}
	return nil
}

func positiveFloat(field string, v float64) error {
	if v <= 0 {
		return model.Invalid(field, "must be positive, got %v", v)
	}
	return nil
}

func atLeast(field string, v, lo int) error {
	if v < lo {
		return model.Invalid(field, "must be at least %d, got %d", lo, v)
	}
	return nil
}

func percent(field string, v float64) error {
	if v < 0 || v > 100 {
		return model.Invalid(field, "must be within [0,100], got %v", v)
	}
	return nil
}
