package strategy

import (
	"errors"

	"StockScanner/internal/model"
)

// Band holds the excellent (2 points) and good (1 point) bounds of a criterion.
type Band struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
}

// Thresholds configures every scoring criterion. Valuation and leverage bands
// are upper bounds, the rest are lower bounds. Both ends are inclusive, so a
// P/B of exactly Excellent earns 2 points.
type Thresholds struct {
	PE                 Band    `yaml:"pe"`
	PB                 Band    `yaml:"pb"`
	EVToEBITDA         Band    `yaml:"ev_ebitda"`
	NetMarginPct       Band    `yaml:"net_margin_pct"`
	RevenueGrowthPct   Band    `yaml:"revenue_growth_pct"`
	NetIncomeGrowthPct Band    `yaml:"net_income_growth_pct"`
	ROEPct             Band    `yaml:"roe_pct"`
	DebtToEquity       Band    `yaml:"debt_equity"`
	CurrentRatio       Band    `yaml:"current_ratio"`
	RSIGoodMin         float64 `yaml:"rsi_good_min"`
	RSIGoodMax         float64 `yaml:"rsi_good_max"`
	VolumeMultiplier   float64 `yaml:"volume_multiplier"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		PE:                 Band{Excellent: 8, Good: 15},
		PB:                 Band{Excellent: 1, Good: 2},
		EVToEBITDA:         Band{Excellent: 6, Good: 8},
		NetMarginPct:       Band{Excellent: 10, Good: 5},
		RevenueGrowthPct:   Band{Excellent: 10, Good: 5},
		NetIncomeGrowthPct: Band{Excellent: 10, Good: 0},
		ROEPct:             Band{Excellent: 15, Good: 10},
		DebtToEquity:       Band{Excellent: 1, Good: 2},
		CurrentRatio:       Band{Excellent: 1.5, Good: 1},
		RSIGoodMin:         40,
		RSIGoodMax:         60,
		VolumeMultiplier:   1.2,
	}
}

// Validate rejects bands whose excellent bound is weaker than the good bound.
func (t Thresholds) Validate() error {
	type namedBand struct {
		name string
		band Band
	}
	var errs []error
	upper := []namedBand{{"pe", t.PE}, {"pb", t.PB}, {"ev_ebitda", t.EVToEBITDA}, {"debt_equity", t.DebtToEquity}}
	for _, nb := range upper {
		if nb.band.Excellent > nb.band.Good {
			errs = append(errs, model.Invalid("scoring.thresholds."+nb.name, "excellent %v must not exceed good %v",
				nb.band.Excellent, nb.band.Good))
		}
	}
	lower := []namedBand{
		{"net_margin_pct", t.NetMarginPct},
		{"revenue_growth_pct", t.RevenueGrowthPct},
		{"net_income_growth_pct", t.NetIncomeGrowthPct},
		{"roe_pct", t.ROEPct},
		{"current_ratio", t.CurrentRatio},
	}
	for _, nb := range lower {
		if nb.band.Excellent < nb.band.Good {
			errs = append(errs, model.Invalid("scoring.thresholds."+nb.name, "excellent %v must not be below good %v",
				nb.band.Excellent, nb.band.Good))
		}
	}
	if t.RSIGoodMin > t.RSIGoodMax {
		errs = append(errs, model.Invalid("scoring.thresholds.rsi_good_min", "must not exceed rsi_good_max (%v > %v)", t.RSIGoodMin, t.RSIGoodMax))
	}
	if t.VolumeMultiplier <= 0 {
		errs = append(errs, model.Invalid("scoring.thresholds.volume_multiplier", "must be positive, got %v", t.VolumeMultiplier))
	}
	return errors.Join(errs...)
}

// lowerIsBetter awards points for a positive valuation ratio under the band.
// A zero or negative ratio (losses, negative equity) scores 0.
func lowerIsBetter(name string, m model.Metric, b Band) model.CriterionScore {
	var points int
	switch {
	case !m.Valid || m.Value <= 0:
		points = 0
	case m.Value <= b.Excellent:
		points = 2
	case m.Value <= b.Good:
		points = 1
	}
	return model.CriterionScore{Name: name, Value: m, Points: points}
}

func higherIsBetter(name string, m model.Metric, b Band) model.CriterionScore {
	var points int
	switch {
	case !m.Valid:
		points = 0
	case m.Value >= b.Excellent:
		points = 2
	case m.Value >= b.Good:
		points = 1
	}
	return model.CriterionScore{Name: name, Value: m, Points: points}
}

func scorePE(m model.Metric, b Band) model.CriterionScore { return lowerIsBetter("pe", m, b) }

func scorePB(m model.Metric, b Band) model.CriterionScore { return lowerIsBetter("pb", m, b) }

func scoreEVToEBITDA(m model.Metric, b Band) model.CriterionScore {
	return lowerIsBetter("ev_ebitda", m, b)
}

func scoreNetMargin(m model.Metric, b Band) model.CriterionScore {
	return higherIsBetter("net_margin_pct", m, b)
}

func scoreRevenueGrowth(m model.Metric, b Band) model.CriterionScore {
	return higherIsBetter("revenue_growth_3y_pct", m, b)
}

// scoreNetIncomeGrowth requires growth strictly above the good bound, so flat
// earnings do not count as growth.
func scoreNetIncomeGrowth(m model.Metric, b Band) model.CriterionScore {
	var points int
	switch {
	case !m.Valid:
		points = 0
	case m.Value >= b.Excellent:
		points = 2
	case m.Value > b.Good:
		points = 1
	}
	return model.CriterionScore{Name: "net_income_growth_3y_pct", Value: m, Points: points}
}

func scoreROE(m model.Metric, b Band) model.CriterionScore { return higherIsBetter("roe_pct", m, b) }

// scoreDebtToEquity accepts a zero ratio; negative equity scores 0.
func scoreDebtToEquity(m model.Metric, b Band) model.CriterionScore {
	var points int
	switch {
	case !m.Valid || m.Value < 0:
		points = 0
	case m.Value <= b.Excellent:
		points = 2
	case m.Value <= b.Good:
		points = 1
	}
	return model.CriterionScore{Name: "debt_equity", Value: m, Points: points}
}

func scoreCurrentRatio(m model.Metric, b Band) model.CriterionScore {
	return higherIsBetter("current_ratio", m, b)
}

// scoreOperatingCashFlow gives 2 points for positive cash flow backed by a
// profit and 1 point for positive cash flow alone.
func scoreOperatingCashFlow(ocf, netIncome model.Metric) model.CriterionScore {
	var points int
	switch {
	case !ocf.Valid || ocf.Value <= 0:
		points = 0
	case netIncome.Valid && netIncome.Value > 0:
		points = 2
	default:
		points = 1
	}
	return model.CriterionScore{Name: "operating_cash_flow", Value: ocf, Points: points}
}

// scoreAboveAverage gives 2 points for a price above its moving average.
func scoreAboveAverage(name string, price, avg model.Metric) model.CriterionScore {
	points := 0
	if price.Valid && avg.Valid && price.Value > avg.Value {
		points = 2
	}
	return model.CriterionScore{Name: name, Value: avg, Points: points}
}

// scoreRSI rewards strength: 2 points at or above the upper bound, 1 point
// inside the neutral band.
func scoreRSI(rsi model.Metric, goodMin, goodMax float64) model.CriterionScore {
	var points int
	switch {
	case !rsi.Valid:
		points = 0
	case rsi.Value >= goodMax:
		points = 2
	case rsi.Value >= goodMin:
		points = 1
	}
	return model.CriterionScore{Name: "rsi", Value: rsi, Points: points}
}

func scoreMACD(line, signal model.Metric) model.CriterionScore {
	points := 0
	if line.Valid && signal.Valid && line.Value > signal.Value {
		points = 2
	}
	return model.CriterionScore{Name: "macd_above_signal", Value: line, Points: points}
}

func scoreVolume(volume, avg model.Metric, multiplier float64) model.CriterionScore {
	points := 0
	if volume.Valid && avg.Valid && volume.Value > avg.Value*multiplier {
		points = 2
	}
	return model.CriterionScore{Name: "volume_above_average", Value: volume, Points: points}
}
