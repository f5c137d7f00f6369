package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScanner/internal/model"
)

func candidate(symbol string, mutate func(f *model.Fundamentals, t *model.TechnicalSnapshot)) Candidate {
	c := Candidate{Fundamentals: model.Fundamentals{Symbol: symbol, MarketCap: model.Some(5e9)}}
	mutate(&c.Fundamentals, &c.Technical)
	return c
}

func symbols(hits []ScreenHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Symbol
	}
	return out
}

func TestScreen_LowPE(t *testing.T) {
	candidates := []Candidate{
		candidate("AAA", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) { f.PE = model.Some(12) }),
		candidate("BBB", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) { f.PE = model.Some(4) }),
		candidate("CCC", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) { f.PE = model.Some(22) }),
		candidate("DDD", func(*model.Fundamentals, *model.TechnicalSnapshot) {}),
		candidate("EEE", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) {
			f.PE = model.Some(3)
			f.MarketCap = model.Some(1e6)
		}),
	}
	hits := DefaultScreen(ScreenLowPE).Run(candidates)
	assert.Equal(t, []string{"BBB", "AAA"}, symbols(hits))
	assert.Equal(t, 4.0, hits[0].SortKey)
	assert.Equal(t, ScreenLowPE, hits[0].Screen)
}

func TestScreen_DescendingKinds(t *testing.T) {
	candidates := []Candidate{
		candidate("LOW", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) { f.ROEPct = model.Some(18) }),
		candidate("HIGH", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) { f.ROEPct = model.Some(40) }),
		candidate("OUT", func(f *model.Fundamentals, _ *model.TechnicalSnapshot) { f.ROEPct = model.Some(150) }),
	}
	assert.Equal(t, []string{"HIGH", "LOW"}, symbols(DefaultScreen(ScreenHighROE).Run(candidates)))
}

func TestScreen_CombinedValue(t *testing.T) {
	good := func(f *model.Fundamentals, _ *model.TechnicalSnapshot) {
		f.PE = model.Some(8)
		f.PB = model.Some(1)
		f.ROEPct = model.Some(20)
		f.DebtToEquity = model.Some(0.5)
	}
	better := func(f *model.Fundamentals, t *model.TechnicalSnapshot) {
		good(f, t)
		f.ROEPct = model.Some(30)
	}
	leveraged := func(f *model.Fundamentals, t *model.TechnicalSnapshot) {
		good(f, t)
		f.DebtToEquity = model.Some(3)
	}
	hits := DefaultScreen(ScreenCombinedValue).Run([]Candidate{
		candidate("GOOD", good), candidate("BETTER", better), candidate("LEVER", leveraged),
	})
	require.Len(t, hits, 2)
	assert.Equal(t, []string{"BETTER", "GOOD"}, symbols(hits))
	assert.InDelta(t, 8+1-30+0.5, hits[0].SortKey, 1e-12)
}

func TestScreen_TechnicalScreens(t *testing.T) {
	grower := candidate("GROW", func(_ *model.Fundamentals, t *model.TechnicalSnapshot) {
		t.Change1M = model.Some(12)
		t.Change3M = model.Some(20)
		t.Change6M = model.Some(40)
	})
	laggard := candidate("LAG", func(_ *model.Fundamentals, t *model.TechnicalSnapshot) {
		t.Change1M = model.Some(2)
		t.Change3M = model.Some(20)
		t.Change6M = model.Some(10)
	})
	all := []Candidate{grower, laggard}
	assert.Equal(t, []string{"GROW"}, symbols(DefaultScreen(ScreenMomentum).Run(all)))
	assert.Equal(t, []string{"GROW"}, symbols(DefaultScreen(ScreenGrowth).Run(all)))
	assert.Empty(t, DefaultScreen(ScreenHighVolume).Run(all))
}

func TestScreen_Validate(t *testing.T) {
	for _, k := range ScreenKinds {
		assert.NoError(t, DefaultScreen(k).Validate(), k)
	}

	sc := DefaultScreen(ScreenDividend)
	sc.Min, sc.Max = 10, 5
	assert.ErrorIs(t, sc.Validate(), model.ErrInvalidConfig)

	_, err := ParseScreen("cheap")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	k, err := ParseScreen(" Low_PB ")
	require.NoError(t, err)
	assert.Equal(t, ScreenLowPB, k)
}
