package scan

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"StockScanner/internal/collector"
	"StockScanner/internal/model"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

// volumeSeries ends with three rising volume bars and a final spike.
func volumeSeries(symbol string, spike float64) model.Series {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	vols := make([]float64, 0, 30)
	for len(vols) < 26 {
		vols = append(vols, 1000)
	}
	vols = append(vols, 1100, 1300, 1600, spike)
	bars := make([]model.Bar, len(vols))
	for i, v := range vols {
		bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: v}
	}
	return model.NewSeries(symbol, "", "", bars)
}

func universe(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("SYM%02d", i)
	}
	return out
}

func TestRun_SkipsFailingSymbols(t *testing.T) {
	p := collector.NewStaticProvider()
	symbols := universe(10)
	for i, sym := range symbols {
		p.SetSeries(model.NewSeries(sym, "", "", collector.GenerateBars(100, 0.1, 260)))
		if i%3 == 1 {
			p.Fail(sym, fmt.Errorf("static %s: %w: timeout", sym, model.ErrProviderFailure))
		}
	}
	logger, logs := observed()

	report, err := NewRunner(p, p, nil, 3, logger).Run(context.Background(), ForScoring(symbols, strategy.DefaultConfig()))
	require.NoError(t, err)
	assert.Len(t, report.Scores, 7)
	assert.Len(t, report.Failures, 3)
	assert.Equal(t, 10, report.Scanned)
	assert.False(t, report.Cancelled)
	assert.Equal(t, 3, logs.FilterMessage("fetch failed").Len())
	for _, entry := range logs.FilterMessage("fetch failed").All() {
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Contains(t, entry.ContextMap(), "symbol")
	}
	for _, f := range report.Failures {
		assert.ErrorIs(t, f.Err, model.ErrProviderFailure)
		assert.False(t, f.Insufficient)
	}
}

func TestRun_InsufficientDataIsSkipped(t *testing.T) {
	p := collector.NewStaticProvider()
	p.SetSeries(volumeSeries("LONG", 5000))
	p.SetSeries(model.NewSeries("EMPTY", "", "", nil))
	logger, logs := observed()

	req := ForScanner([]string{"LONG", "EMPTY"}, scanner.DefaultVolumeIncrease())
	report, err := NewRunner(p, nil, nil, 2, logger).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, "LONG", report.Matches[0].Symbol)
	require.Len(t, report.Failures, 1)
	assert.True(t, report.Failures[0].Insufficient)
	assert.Equal(t, 1, logs.FilterMessage("insufficient data").Len())
	assert.Zero(t, logs.FilterMessage("fetch failed").Len())

	req.MinBars = 40
	report, err = NewRunner(p, nil, nil, 2, nil).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, report.Matches)
	assert.Len(t, report.Failures, 2)
}

func TestRun_RankedScannerOrdersBySortKey(t *testing.T) {
	p := collector.NewStaticProvider()
	p.SetSeries(volumeSeries("AAA", 3000))
	p.SetSeries(volumeSeries("BBB", 5000))
	p.SetSeries(volumeSeries("CCC", 4000))
	p.SetSeries(volumeSeries("DDD", 1000))

	req := ForScanner([]string{"AAA", "BBB", "CCC", "DDD"}, scanner.DefaultVolumeIncrease())
	report, err := NewRunner(p, nil, nil, 4, nil).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Matches, 3)
	got := []string{report.Matches[0].Symbol, report.Matches[1].Symbol, report.Matches[2].Symbol}
	assert.Equal(t, []string{"BBB", "CCC", "AAA"}, got)
	assert.Equal(t, string(scanner.KindVolumeIncrease), report.Kind)
}

func TestRun_ScoresSortedDescending(t *testing.T) {
	p := collector.NewStaticProvider()
	for _, sym := range []string{"NONE", "MID", "BEST"} {
		p.SetSeries(model.NewSeries(sym, "", "", collector.GenerateBars(50, 0.2, 260)))
	}
	p.SetFundamentals(model.Fundamentals{
		Symbol: "BEST", PE: model.Some(5), PB: model.Some(0.8), EVToEBITDA: model.Some(4),
		NetMarginPct: model.Some(20), RevenueGrowthPct: model.Some(15), NetIncomeGrowthPct: model.Some(12),
		ROEPct: model.Some(25), DebtToEquity: model.Some(0.5), CurrentRatio: model.Some(2),
		OperatingCashFlow: model.Some(10), NetIncome: model.Some(5),
	})
	p.SetFundamentals(model.Fundamentals{Symbol: "MID", PE: model.Some(12), ROEPct: model.Some(12)})

	report, err := NewRunner(p, p, nil, 2, nil).Run(context.Background(), ForScoring([]string{"NONE", "MID", "BEST"}, strategy.DefaultConfig()))
	require.NoError(t, err)
	require.Len(t, report.Scores, 3)
	assert.Equal(t, "BEST", report.Scores[0].Symbol)
	assert.Equal(t, "MID", report.Scores[1].Symbol)
	assert.Equal(t, "NONE", report.Scores[2].Symbol)
	assert.Equal(t, strategy.MaxFundamentalPoints, report.Scores[0].FundamentalPoints)

	cfg := strategy.DefaultConfig()
	cfg.MinScore = report.Scores[1].Score + 1
	report, err = NewRunner(p, p, nil, 2, nil).Run(context.Background(), ForScoring([]string{"NONE", "MID", "BEST"}, cfg))
	require.NoError(t, err)
	require.Len(t, report.Scores, 1)
	assert.Equal(t, "BEST", report.Scores[0].Symbol)
}

func TestCollect_TiesBreakOnFundamentalPoints(t *testing.T) {
	outcomes := []outcome{
		{done: true, score: &model.ScoreBreakdown{Symbol: "TECH", Score: 15, FundamentalPoints: 6}},
		{done: true, score: &model.ScoreBreakdown{Symbol: "FUND", Score: 15, FundamentalPoints: 12}},
		{done: true, score: &model.ScoreBreakdown{Symbol: "TOP", Score: 22, FundamentalPoints: 14}},
		{},
	}
	report := &Report{}
	cfg := strategy.DefaultConfig()
	NewRunner(nil, nil, nil, 1, nil).collect(report, Request{Scoring: &cfg}, outcomes)
	require.Len(t, report.Scores, 3)
	assert.Equal(t, "TOP", report.Scores[0].Symbol)
	assert.Equal(t, "FUND", report.Scores[1].Symbol)
	assert.Equal(t, "TECH", report.Scores[2].Symbol)
	assert.Equal(t, 3, report.Scanned)
}

func TestRun_Screen(t *testing.T) {
	p := collector.NewStaticProvider()
	p.SetFundamentals(model.Fundamentals{Symbol: "CHEAP", PE: model.Some(4), MarketCap: model.Some(5e9)})
	p.SetFundamentals(model.Fundamentals{Symbol: "FAIR", PE: model.Some(11), MarketCap: model.Some(5e9)})
	p.SetFundamentals(model.Fundamentals{Symbol: "RICH", PE: model.Some(35), MarketCap: model.Some(5e9)})

	req := ForScreen([]string{"FAIR", "RICH", "CHEAP"}, strategy.DefaultScreen(strategy.ScreenLowPE))
	report, err := NewRunner(nil, p, nil, 2, nil).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Hits, 2)
	assert.Equal(t, "CHEAP", report.Hits[0].Symbol)
	assert.Equal(t, "FAIR", report.Hits[1].Symbol)
	assert.Equal(t, "screen:low_pe", report.Kind)

	_, err = NewRunner(nil, p, nil, 2, nil).Run(context.Background(),
		ForScreen([]string{"CHEAP"}, strategy.DefaultScreen(strategy.ScreenMomentum)))
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestRun_InvalidRequestFetchesNothing(t *testing.T) {
	p := collector.NewStaticProvider()
	p.SetSeries(volumeSeries("AAA", 3000))
	r := NewRunner(p, p, nil, 2, nil)

	bad := scanner.DefaultVolumeIncrease()
	bad.Periods = 9
	_, err := r.Run(context.Background(), ForScanner([]string{"AAA"}, bad))
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	req := ForScanner([]string{"AAA"}, scanner.DefaultVolumeIncrease())
	cfg := strategy.DefaultConfig()
	req.Scoring = &cfg
	_, err = r.Run(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	req = ForScanner([]string{"AAA"}, scanner.DefaultVolumeIncrease())
	req.Period = "10y"
	_, err = r.Run(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = r.Run(context.Background(), ForScanner([]string{" ", ""}, scanner.DefaultVolumeIncrease()))
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	assert.Zero(t, p.Calls("AAA"))
}

func TestRun_PreCancelled(t *testing.T) {
	p := collector.NewStaticProvider()
	p.SetSeries(volumeSeries("AAA", 3000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(p, nil, nil, 2, nil).Run(ctx, ForScanner([]string{"AAA"}, scanner.DefaultVolumeIncrease()))
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Zero(t, report.Scanned)
	assert.Empty(t, report.Failures)
	assert.Zero(t, p.Calls("AAA"))
}

// cancellingProvider cancels the batch once it has served n series.
type cancellingProvider struct {
	collector.SeriesProvider
	n      int32
	served atomic.Int32
	cancel context.CancelFunc
}

func (p *cancellingProvider) FetchSeries(ctx context.Context, symbol, period, interval string) (model.Series, error) {
	s, err := p.SeriesProvider.FetchSeries(ctx, symbol, period, interval)
	if p.served.Add(1) == p.n {
		p.cancel()
	}
	return s, err
}

func TestRun_CancelBetweenSymbols(t *testing.T) {
	static := collector.NewStaticProvider()
	symbols := universe(10)
	for _, sym := range symbols {
		static.SetSeries(volumeSeries(sym, 4000))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &cancellingProvider{SeriesProvider: static, n: 3, cancel: cancel}
	logger, logs := observed()

	report, err := NewRunner(p, nil, nil, 1, logger).Run(ctx, ForScanner(symbols, scanner.DefaultVolumeIncrease()))
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 3, report.Scanned)
	require.Len(t, report.Matches, 3)
	assert.Equal(t, []string{"SYM00", "SYM01", "SYM02"},
		[]string{report.Matches[0].Symbol, report.Matches[1].Symbol, report.Matches[2].Symbol})
	assert.Empty(t, report.Failures)
	assert.Zero(t, logs.FilterMessage("fetch failed").Len())
	assert.Zero(t, static.Calls("SYM05"))
}

func TestRequest_NormalizesSymbols(t *testing.T) {
	assert.Equal(t, []string{"GARAN", "AKBNK"}, normalize([]string{"garan", " AKBNK", "GARAN", ""}))
	assert.Equal(t, "scoring", ForScoring(nil, strategy.DefaultConfig()).Kind())
}

// panickingProvider panics when asked for one symbol.
type panickingProvider struct {
	collector.SeriesProvider
	symbol string
}

func (p panickingProvider) FetchSeries(ctx context.Context, symbol, period, interval string) (model.Series, error) {
	if symbol == p.symbol {
		panic("corrupt payload")
	}
	return p.SeriesProvider.FetchSeries(ctx, symbol, period, interval)
}

func TestRun_PanicSkipsOnlyThatSymbol(t *testing.T) {
	static := collector.NewStaticProvider()
	for _, sym := range []string{"AAA", "BAD", "CCC"} {
		static.SetSeries(volumeSeries(sym, 4000))
	}
	logger, logs := observed()

	r := NewRunner(panickingProvider{SeriesProvider: static, symbol: "BAD"}, nil, nil, 2, logger)
	report, err := r.Run(context.Background(), ForScanner([]string{"AAA", "BAD", "CCC"}, scanner.DefaultVolumeIncrease()))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	require.Len(t, report.Matches, 2)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "BAD", report.Failures[0].Symbol)
	assert.ErrorContains(t, report.Failures[0].Err, "corrupt payload")
	assert.Equal(t, 1, logs.FilterMessage("symbol evaluation panicked").Len())
}

func TestRun_ShortSeriesWithSmallVWAPWindows(t *testing.T) {
	p := collector.NewStaticProvider()
	bars := collector.GenerateBars(50, 0.5, 7)
	p.SetSeries(model.NewSeries("SHORT", "", "", bars))

	params := scanner.DefaultVWAPSupport()
	params.VWAPPeriod, params.BottomLookback = 3, 3
	require.NoError(t, params.Validate())

	report, err := NewRunner(p, nil, nil, 1, nil).Run(context.Background(), ForScanner([]string{"SHORT"}, params))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Empty(t, report.Failures)
}
