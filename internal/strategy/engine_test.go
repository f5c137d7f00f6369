package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScanner/internal/model"
)

func excellentFundamentals() model.Fundamentals {
	return model.Fundamentals{
		Symbol:             "THYAO",
		PE:                 model.Some(5),
		PB:                 model.Some(0.8),
		EVToEBITDA:         model.Some(4),
		NetMarginPct:       model.Some(20),
		RevenueGrowthPct:   model.Some(15),
		NetIncomeGrowthPct: model.Some(12),
		ROEPct:             model.Some(25),
		DebtToEquity:       model.Some(0.5),
		CurrentRatio:       model.Some(2),
		OperatingCashFlow:  model.Some(1e9),
		NetIncome:          model.Some(5e8),
	}
}

func excellentTechnical() model.TechnicalSnapshot {
	return model.TechnicalSnapshot{
		Price:       model.Some(110),
		SMA50:       model.Some(100),
		SMA200:      model.Some(90),
		RSI:         model.Some(65),
		MACD:        model.Some(1.2),
		MACDSignal:  model.Some(0.8),
		Volume:      model.Some(2000),
		VolumeAvg20: model.Some(1000),
	}
}

func TestEvaluate_AllExcellentScoresThirty(t *testing.T) {
	sb := Evaluate(excellentFundamentals(), excellentTechnical(), DefaultConfig())
	assert.Equal(t, "THYAO", sb.Symbol)
	assert.Len(t, sb.Fundamental, 10)
	assert.Len(t, sb.Technical, 5)
	assert.Equal(t, MaxFundamentalPoints, sb.FundamentalPoints)
	assert.Equal(t, MaxTechnicalPoints, sb.TechnicalPoints)
	assert.Equal(t, 30, sb.Score)
	assert.Equal(t, model.StrongBuy, sb.Recommendation)
	for _, c := range append(sb.Fundamental, sb.Technical...) {
		assert.Equal(t, 2, c.Points, c.Name)
	}
}

func TestEvaluate_NothingScoresZero(t *testing.T) {
	sb := Evaluate(model.Fundamentals{Symbol: "EMPTY"}, model.TechnicalSnapshot{}, DefaultConfig())
	assert.Equal(t, 0, sb.Score)
	assert.Equal(t, model.StrongSell, sb.Recommendation)

	poor := model.Fundamentals{
		PE:                 model.Some(40),
		PB:                 model.Some(5),
		EVToEBITDA:         model.Some(20),
		NetMarginPct:       model.Some(1),
		RevenueGrowthPct:   model.Some(-3),
		NetIncomeGrowthPct: model.Some(0),
		ROEPct:             model.Some(2),
		DebtToEquity:       model.Some(4),
		CurrentRatio:       model.Some(0.6),
		OperatingCashFlow:  model.Some(-1e6),
		NetIncome:          model.Some(-2e6),
	}
	weak := model.TechnicalSnapshot{
		Price:       model.Some(80),
		SMA50:       model.Some(90),
		SMA200:      model.Some(100),
		RSI:         model.Some(30),
		MACD:        model.Some(-1),
		MACDSignal:  model.Some(-0.5),
		Volume:      model.Some(900),
		VolumeAvg20: model.Some(1000),
	}
	sb = Evaluate(poor, weak, DefaultConfig())
	assert.Equal(t, 0, sb.Score)
	assert.Equal(t, model.StrongSell, sb.Recommendation)
}

func TestEvaluate_GoodBandsScoreOne(t *testing.T) {
	f := model.Fundamentals{
		PE:                 model.Some(12),
		PB:                 model.Some(1.5),
		EVToEBITDA:         model.Some(7),
		NetMarginPct:       model.Some(6),
		RevenueGrowthPct:   model.Some(5),
		NetIncomeGrowthPct: model.Some(3),
		ROEPct:             model.Some(10),
		DebtToEquity:       model.Some(1.8),
		CurrentRatio:       model.Some(1.2),
		OperatingCashFlow:  model.Some(10),
		NetIncome:          model.Some(-5),
	}
	tech := model.TechnicalSnapshot{RSI: model.Some(50)}
	sb := Evaluate(f, tech, DefaultConfig())
	assert.Equal(t, 10, sb.FundamentalPoints)
	assert.Equal(t, 1, sb.TechnicalPoints)
	assert.Equal(t, 11, sb.Score)
	assert.Equal(t, model.Sell, sb.Recommendation)
}

func TestEvaluate_NonPositiveValuationScoresZero(t *testing.T) {
	f := model.Fundamentals{PE: model.Some(-4), PB: model.Some(0), DebtToEquity: model.Some(0)}
	sb := Evaluate(f, model.TechnicalSnapshot{}, DefaultConfig())
	byName := map[string]int{}
	for _, c := range sb.Fundamental {
		byName[c.Name] = c.Points
	}
	assert.Equal(t, 0, byName["pe"])
	assert.Equal(t, 0, byName["pb"])
	assert.Equal(t, 2, byName["debt_equity"])
}

func TestEvaluate_BandEdgesAreInclusive(t *testing.T) {
	f := model.Fundamentals{
		PE:           model.Some(15),
		PB:           model.Some(1),
		EVToEBITDA:   model.Some(6),
		DebtToEquity: model.Some(1),
	}
	sb := Evaluate(f, model.TechnicalSnapshot{}, DefaultConfig())
	byName := map[string]int{}
	for _, c := range sb.Fundamental {
		byName[c.Name] = c.Points
	}
	assert.Equal(t, 1, byName["pe"])
	assert.Equal(t, 2, byName["pb"])
	assert.Equal(t, 2, byName["ev_ebitda"])
	assert.Equal(t, 2, byName["debt_equity"])
}

func TestMapTier_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		want  model.Recommendation
	}{
		{30, model.StrongBuy},
		{20, model.StrongBuy},
		{19, model.Buy},
		{16, model.Buy},
		{15, model.Hold},
		{12, model.Hold},
		{11, model.Sell},
		{8, model.Sell},
		{7, model.StrongSell},
		{0, model.StrongSell},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mapTier(c.score, DefaultTiers), "score %d", c.score)
	}
}

func TestEvaluate_CustomTiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiers = []Tier{{MinScore: 25, Recommendation: model.Buy}, {MinScore: 0, Recommendation: model.Hold}}
	require.NoError(t, cfg.Validate())

	sb := Evaluate(excellentFundamentals(), excellentTechnical(), cfg)
	assert.Equal(t, model.Buy, sb.Recommendation)
	sb = Evaluate(model.Fundamentals{}, excellentTechnical(), cfg)
	assert.Equal(t, model.Hold, sb.Recommendation)
}

func TestValidateTiers(t *testing.T) {
	require.NoError(t, ValidateTiers(DefaultTiers))

	err := ValidateTiers([]Tier{{10, model.Buy}, {12, model.Hold}, {0, model.Sell}})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	err = ValidateTiers([]Tier{{20, model.Buy}, {5, model.Sell}})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "lowest tier")

	assert.ErrorIs(t, ValidateTiers(nil), model.ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Thresholds.PE = Band{Excellent: 20, Good: 15}
	cfg.Thresholds.ROEPct = Band{Excellent: 5, Good: 10}
	cfg.Thresholds.RSIGoodMin = 70
	cfg.MinScore = 31
	err := cfg.Validate()
	require.ErrorIs(t, err, model.ErrInvalidConfig)
	for _, field := range []string{"thresholds.pe", "thresholds.roe_pct", "rsi_good_min", "min_score"} {
		assert.Contains(t, err.Error(), field)
	}
}

func risingSeries(n int, interval string) model.Series {
	bars := make([]model.Bar, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return model.NewSeries("RISE", "1y", interval, bars)
}

func TestTechnicalFromSeries(t *testing.T) {
	_, err := TechnicalFromSeries(risingSeries(MinScoringBars-1, "1d"))
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	snap, err := TechnicalFromSeries(risingSeries(60, "1d"))
	require.NoError(t, err)
	assert.Equal(t, model.Some(159), snap.Price)
	assert.True(t, snap.SMA50.Valid)
	assert.InDelta(t, 134.5, snap.SMA50.Value, 1e-9)
	assert.False(t, snap.SMA200.Valid)
	assert.Equal(t, model.Some(100), snap.RSI)
	assert.Greater(t, snap.MACD.Value, 0.0)
	assert.InDelta(t, 1000, snap.VolumeAvg20.Value, 1e-9)
	assert.InDelta(t, 21.0/138*100, snap.Change1M.Value, 1e-9)
	assert.False(t, snap.Change3M.Valid)

	weekly, err := TechnicalFromSeries(risingSeries(60, "1wk"))
	require.NoError(t, err)
	assert.InDelta(t, 4.0/155*100, weekly.Change1M.Value, 1e-9)
	assert.True(t, weekly.Change6M.Valid)
}
