package strategy

import (
	"errors"
	"sort"
	"strings"

	"StockScanner/internal/model"
)

// ScreenKind names a fundamental screen.
type ScreenKind string

const (
	ScreenLowPE         ScreenKind = "low_pe"
	ScreenHighROE       ScreenKind = "high_roe"
	ScreenLowPB         ScreenKind = "low_pb"
	ScreenDividend      ScreenKind = "dividend"
	ScreenLowDebt       ScreenKind = "low_debt"
	ScreenRevenueGrowth ScreenKind = "revenue_growth"
	ScreenProfitMargin  ScreenKind = "profit_margin"
	ScreenCombinedValue ScreenKind = "combined_value"
	ScreenHighVolume    ScreenKind = "high_volume"
	ScreenMomentum      ScreenKind = "momentum"
	ScreenValue         ScreenKind = "value"
	ScreenGrowth        ScreenKind = "growth"
)

var ScreenKinds = []ScreenKind{
	ScreenLowPE, ScreenHighROE, ScreenLowPB, ScreenDividend, ScreenLowDebt, ScreenRevenueGrowth,
	ScreenProfitMargin, ScreenCombinedValue, ScreenHighVolume, ScreenMomentum, ScreenValue, ScreenGrowth,
}

// MaxScreenHits bounds a screen's output.
const MaxScreenHits = 50

// ParseScreen resolves a screen name.
func ParseScreen(s string) (ScreenKind, error) {
	k := ScreenKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ScreenKinds {
		if k == known {
			return k, nil
		}
	}
	return "", model.Invalid("screen", "unknown screen %q", s)
}

// Screen is a bounded fundamental filter. Min and Max bound the screen's own
// metric; the named caps apply to the multi-metric screens. Market cap is in
// millions.
type Screen struct {
	Kind           ScreenKind `yaml:"kind"`
	MinMarketCapM  float64    `yaml:"min_market_cap_m"`
	MaxMarketCapM  float64    `yaml:"max_market_cap_m"`
	Min            float64    `yaml:"min"`
	Max            float64    `yaml:"max"`
	MaxPE          float64    `yaml:"max_pe"`
	MaxPB          float64    `yaml:"max_pb"`
	MinROE         float64    `yaml:"min_roe"`
	MaxDebtEquity  float64    `yaml:"max_debt_equity"`
	Min3MChangePct float64    `yaml:"min_3m_change_pct"`
	Min6MChangePct float64    `yaml:"min_6m_change_pct"`
}

// DefaultScreen returns the stock bounds of kind.
func DefaultScreen(kind ScreenKind) Screen {
	sc := Screen{
		Kind:           kind,
		MinMarketCapM:  100,
		MaxMarketCapM:  100000,
		MaxPE:          15,
		MaxPB:          2,
		MinROE:         15,
		MaxDebtEquity:  1,
		Min3MChangePct: 15,
		Min6MChangePct: 25,
	}
	switch kind {
	case ScreenLowPE:
		sc.Min, sc.Max = 0, 15
	case ScreenHighROE:
		sc.Min, sc.Max = 15, 100
	case ScreenLowPB:
		sc.Min, sc.Max = 0, 2
	case ScreenDividend:
		sc.Min, sc.Max = 3, 20
	case ScreenLowDebt:
		sc.Min, sc.Max = 0, 1
	case ScreenRevenueGrowth:
		sc.Min, sc.Max = 10, 50
	case ScreenProfitMargin:
		sc.Min, sc.Max = 10, 40
	case ScreenHighVolume:
		sc.Min = 1_000_000
	case ScreenMomentum:
		sc.Min = 10
	}
	return sc
}

func (sc Screen) ranged() bool {
	switch sc.Kind {
	case ScreenLowPE, ScreenHighROE, ScreenLowPB, ScreenDividend, ScreenLowDebt, ScreenRevenueGrowth, ScreenProfitMargin:
		return true
	}
	return false
}

func (sc Screen) Validate() error {
	var errs []error
	if _, err := ParseScreen(string(sc.Kind)); err != nil {
		errs = append(errs, err)
	}
	if sc.MinMarketCapM > sc.MaxMarketCapM {
		errs = append(errs, model.Invalid("screen.min_market_cap_m", "must not exceed max_market_cap_m (%v > %v)",
			sc.MinMarketCapM, sc.MaxMarketCapM))
	}
	if sc.ranged() && sc.Min > sc.Max {
		errs = append(errs, model.Invalid("screen.min", "must not exceed max (%v > %v)", sc.Min, sc.Max))
	}
	return errors.Join(errs...)
}

// Candidate is one symbol's input to a screen.
type Candidate struct {
	Fundamentals model.Fundamentals
	Technical    model.TechnicalSnapshot
}

// ScreenHit is a symbol that passed a screen.
type ScreenHit struct {
	Symbol       string             `json:"symbol"`
	Screen       ScreenKind         `json:"screen"`
	SortKey      float64            `json:"sort_key"`
	Fundamentals model.Fundamentals `json:"fundamentals"`
}

func within(m model.Metric, lo, hi float64) bool {
	return m.Valid && m.Value >= lo && m.Value <= hi
}

func atMost(m model.Metric, hi float64) bool { return m.Valid && m.Value <= hi }

func atLeast(m model.Metric, lo float64) bool { return m.Valid && m.Value >= lo }

// Check applies the screen to one candidate and returns its sort key. Missing
// metrics never pass.
func (sc Screen) Check(c Candidate) (float64, bool) {
	f, t := c.Fundamentals, c.Technical
	if !within(f.MarketCap, sc.MinMarketCapM*1e6, sc.MaxMarketCapM*1e6) {
		return 0, false
	}
	switch sc.Kind {
	case ScreenLowPE:
		return f.PE.Value, within(f.PE, sc.Min, sc.Max)
	case ScreenHighROE:
		return f.ROEPct.Value, within(f.ROEPct, sc.Min, sc.Max)
	case ScreenLowPB:
		return f.PB.Value, within(f.PB, sc.Min, sc.Max)
	case ScreenDividend:
		return f.DividendYieldPct.Value, within(f.DividendYieldPct, sc.Min, sc.Max)
	case ScreenLowDebt:
		return f.DebtToEquity.Value, within(f.DebtToEquity, sc.Min, sc.Max)
	case ScreenRevenueGrowth:
		return f.RevenueGrowthPct.Value, within(f.RevenueGrowthPct, sc.Min, sc.Max)
	case ScreenProfitMargin:
		return f.NetMarginPct.Value, within(f.NetMarginPct, sc.Min, sc.Max)
	case ScreenCombinedValue:
		ok := atMost(f.PE, sc.MaxPE) && atMost(f.PB, sc.MaxPB) && atLeast(f.ROEPct, sc.MinROE) &&
			atMost(f.DebtToEquity, sc.MaxDebtEquity)
		return f.PE.Value + f.PB.Value - f.ROEPct.Value + f.DebtToEquity.Value, ok
	case ScreenHighVolume:
		return f.AverageVolume.Value, atLeast(f.AverageVolume, sc.Min)
	case ScreenMomentum:
		return t.Change1M.Value, atLeast(t.Change1M, sc.Min)
	case ScreenValue:
		return f.PE.Value + f.PB.Value, atMost(f.PE, sc.MaxPE) && atMost(f.PB, sc.MaxPB)
	case ScreenGrowth:
		ok := atLeast(t.Change3M, sc.Min3MChangePct) && atLeast(t.Change6M, sc.Min6MChangePct)
		return t.Change3M.Value + t.Change6M.Value, ok
	}
	return 0, false
}

// Ascending reports whether lower sort keys rank first.
func (k ScreenKind) Ascending() bool {
	switch k {
	case ScreenLowPE, ScreenLowPB, ScreenLowDebt, ScreenCombinedValue, ScreenValue:
		return true
	}
	return false
}

// Technical reports whether the screen reads price history besides fundamentals.
func (k ScreenKind) Technical() bool {
	return k == ScreenMomentum || k == ScreenGrowth
}

// Run filters candidates through the screen, orders them by its sort key and
// keeps the best MaxScreenHits.
func (sc Screen) Run(candidates []Candidate) []ScreenHit {
	var hits []ScreenHit
	for _, c := range candidates {
		key, ok := sc.Check(c)
		if !ok {
			continue
		}
		hits = append(hits, ScreenHit{Symbol: c.Fundamentals.Symbol, Screen: sc.Kind, SortKey: key, Fundamentals: c.Fundamentals})
	}
	asc := sc.Kind.Ascending()
	sort.SliceStable(hits, func(i, j int) bool {
		if asc {
			return hits[i].SortKey < hits[j].SortKey
		}
		return hits[i].SortKey > hits[j].SortKey
	})
	if len(hits) > MaxScreenHits {
		hits = hits[:MaxScreenHits]
	}
	return hits
}
