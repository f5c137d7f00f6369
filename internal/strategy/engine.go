package strategy

import (
	"errors"
	"fmt"

	"StockScanner/internal/model"
)

const (
	// MaxFundamentalPoints caps the fundamental category.
	MaxFundamentalPoints = 20
	// MaxTechnicalPoints caps the technical category.
	MaxTechnicalPoints = 10
	// MaxScore is the best attainable total.
	MaxScore = MaxFundamentalPoints + MaxTechnicalPoints
)

// Tier maps every score at or above MinScore to a recommendation.
type Tier struct {
	MinScore       int                  `yaml:"min_score"`
	Recommendation model.Recommendation `yaml:"recommendation"`
}

// DefaultTiers is the 5-level recommendation ladder, best first.
var DefaultTiers = []Tier{
	{20, model.StrongBuy},
	{16, model.Buy},
	{12, model.Hold},
	{8, model.Sell},
	{0, model.StrongSell},
}

// Config holds the scoring thresholds, the tier ladder and the minimum score a
// batch keeps.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Tiers      []Tier     `yaml:"tiers"`
	MinScore   int        `yaml:"min_score"`
}

// DefaultConfig returns the stock thresholds and tiers.
func DefaultConfig() Config {
	return Config{
		Thresholds: DefaultThresholds(),
		Tiers:      append([]Tier(nil), DefaultTiers...),
	}
}

// Validate checks thresholds and requires the tiers to be strictly descending
// and to cover every score down to 0.
func (c Config) Validate() error {
	errs := []error{c.Thresholds.Validate(), ValidateTiers(c.Tiers)}
	if c.MinScore < 0 || c.MinScore > MaxScore {
		errs = append(errs, model.Invalid("scoring.min_score", "must be within [0,%d], got %d", MaxScore, c.MinScore))
	}
	return errors.Join(errs...)
}

// ValidateTiers checks that tiers are monotonic and exhaustive over [0,MaxScore].
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return model.Invalid("scoring.tiers", "at least one tier is required")
	}
	var errs []error
	for i, t := range tiers {
		if t.Recommendation == "" {
			errs = append(errs, model.Invalid(fmt.Sprintf("scoring.tiers[%d]", i), "recommendation is empty"))
		}
		if t.MinScore > MaxScore {
			errs = append(errs, model.Invalid(fmt.Sprintf("scoring.tiers[%d]", i), "min_score %d exceeds %d", t.MinScore, MaxScore))
		}
		if i > 0 && t.MinScore >= tiers[i-1].MinScore {
			errs = append(errs, model.Invalid(fmt.Sprintf("scoring.tiers[%d]", i),
				"min_score must be below the previous tier (%d >= %d)", t.MinScore, tiers[i-1].MinScore))
		}
	}
	if last := tiers[len(tiers)-1]; last.MinScore > 0 {
		errs = append(errs, model.Invalid("scoring.tiers", "lowest tier starts at %d, scores below it have no recommendation", last.MinScore))
	}
	return errors.Join(errs...)
}

// mapTier maps a total score to a recommendation.
func mapTier(score int, tiers []Tier) model.Recommendation {
	for _, t := range tiers {
		if score >= t.MinScore {
			return t.Recommendation
		}
	}
	return model.StrongSell
}

// Evaluate scores one symbol. Missing metrics award 0 points.
func Evaluate(f model.Fundamentals, t model.TechnicalSnapshot, cfg Config) model.ScoreBreakdown {
	th := cfg.Thresholds
	fundamental := []model.CriterionScore{
		scorePE(f.PE, th.PE),
		scorePB(f.PB, th.PB),
		scoreEVToEBITDA(f.EVToEBITDA, th.EVToEBITDA),
		scoreNetMargin(f.NetMarginPct, th.NetMarginPct),
		scoreRevenueGrowth(f.RevenueGrowthPct, th.RevenueGrowthPct),
		scoreNetIncomeGrowth(f.NetIncomeGrowthPct, th.NetIncomeGrowthPct),
		scoreROE(f.ROEPct, th.ROEPct),
		scoreDebtToEquity(f.DebtToEquity, th.DebtToEquity),
		scoreCurrentRatio(f.CurrentRatio, th.CurrentRatio),
		scoreOperatingCashFlow(f.OperatingCashFlow, f.NetIncome),
	}
	technical := []model.CriterionScore{
		scoreAboveAverage("price_above_sma200", t.Price, t.SMA200),
		scoreAboveAverage("price_above_sma50", t.Price, t.SMA50),
		scoreRSI(t.RSI, th.RSIGoodMin, th.RSIGoodMax),
		scoreMACD(t.MACD, t.MACDSignal),
		scoreVolume(t.Volume, t.VolumeAvg20, th.VolumeMultiplier),
	}

	fPoints := min(sumPoints(fundamental), MaxFundamentalPoints)
	tPoints := min(sumPoints(technical), MaxTechnicalPoints)
	score := fPoints + tPoints

	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	return model.ScoreBreakdown{
		Symbol:            f.Symbol,
		Fundamental:       fundamental,
		Technical:         technical,
		FundamentalPoints: fPoints,
		TechnicalPoints:   tPoints,
		Score:             score,
		Recommendation:    mapTier(score, tiers),
	}
}

func sumPoints(scores []model.CriterionScore) int {
	total := 0
	for _, s := range scores {
		total += s.Points
	}
	return total
}
