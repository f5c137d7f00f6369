package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScanner/internal/model"
)

const chartJSON = `{"chart":{"result":[{"timestamp":[1704153600,1704240000,1704326400,1704412800],
"indicators":{"quote":[{
"open":[10.0,10.2,null,10.4],
"high":[10.5,10.6,null,10.9],
"low":[9.8,10.0,null,10.3],
"close":[10.2,10.4,null,10.8],
"volume":[1000,1500,null,2000]}]}}],"error":null}}`

const summaryJSON = `{"quoteSummary":{"result":[{
"price":{"longName":"Turk Hava Yollari","regularMarketPrice":{"raw":280.5},"marketCap":{"raw":3.8e11}},
"summaryDetail":{"trailingPE":{"raw":4.2},"dividendYield":{"raw":0.035},"averageVolume":{"raw":2.5e7}},
"defaultKeyStatistics":{"priceToBook":{"raw":0.9},"enterpriseValue":{"raw":600},"enterpriseToEbitda":{}},
"financialData":{"returnOnEquity":{"raw":0.31},"debtToEquity":{"raw":85.0},"profitMargins":{"raw":0.22},
"currentRatio":{"raw":1.3},"operatingCashflow":{"raw":9e10},"ebitda":{"raw":120}},
"assetProfile":{"sector":"Industrials"},
"incomeStatementHistory":{"incomeStatementHistory":[
{"endDate":{"raw":1703980800},"totalRevenue":{"raw":160},"netIncome":{"raw":50}},
{"endDate":{"raw":1640908800},"totalRevenue":{"raw":100},"netIncome":{"raw":20}},
{"endDate":{"raw":1672444800},"totalRevenue":{"raw":120},"netIncome":{"raw":40}}]}
}],"error":null}}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *YahooClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewYahooClient("", ".IS", 5*time.Second, nil)
	c.ChartURL = srv.URL + "/chart"
	c.SummaryURL = srv.URL + "/summary"
	return c
}

func TestYahoo_FetchSeries(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(chartJSON))
	})

	s, err := c.FetchSeries(context.Background(), "THYAO", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, "/chart/THYAO.IS", gotPath)
	assert.Equal(t, "interval=1d&range=1y", gotQuery)
	assert.Equal(t, "THYAO", s.Symbol)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 10.8, s.Last().Close)
	assert.Equal(t, []float64{1000, 1500, 2000}, s.Volumes())
}

func TestYahoo_FetchSeriesFailures(t *testing.T) {
	c := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "BROKEN") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	_, err := c.FetchSeries(context.Background(), "BROKEN", "1y", "1d")
	assert.ErrorIs(t, err, model.ErrProviderFailure)

	_, err = c.FetchSeries(context.Background(), "DELISTED", "1y", "1d")
	assert.ErrorIs(t, err, model.ErrProviderFailure)
	assert.Contains(t, err.Error(), "No data found")

	_, err = c.FetchSeries(context.Background(), "THYAO", "10y", "1d")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestYahoo_FetchFundamentals(t *testing.T) {
	c := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summary/THYAO.IS", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("modules"), "financialData")
		_, _ = w.Write([]byte(summaryJSON))
	})

	f, err := c.FetchFundamentals(context.Background(), "THYAO")
	require.NoError(t, err)
	assert.Equal(t, "Turk Hava Yollari", f.Name)
	assert.Equal(t, "Industrials", f.Sector)
	assert.Equal(t, model.Some(4.2), f.PE)
	assert.Equal(t, model.Some(0.9), f.PB)
	assert.InDelta(t, 5.0, f.EVToEBITDA.Value, 1e-12)
	assert.InDelta(t, 31.0, f.ROEPct.Value, 1e-9)
	assert.InDelta(t, 0.85, f.DebtToEquity.Value, 1e-12)
	assert.InDelta(t, 22.0, f.NetMarginPct.Value, 1e-9)
	assert.InDelta(t, 3.5, f.DividendYieldPct.Value, 1e-9)
	assert.Equal(t, model.Some(3.8e11), f.MarketCap)
	assert.Equal(t, model.Some(50), f.NetIncome)
	assert.True(t, f.OperatingCashFlow.Valid)
	// revenue 100 -> 120 -> 160: (20% + 33.3%) / 2
	assert.InDelta(t, (0.2+40.0/120)/2*100, f.RevenueGrowthPct.Value, 1e-9)
	// net income 20 -> 40 -> 50: (100% + 25%) / 2
	assert.InDelta(t, 62.5, f.NetIncomeGrowthPct.Value, 1e-9)
	assert.False(t, f.CurrentRatio.Value == 0)
}

func TestAverageYoYGrowth(t *testing.T) {
	assert.Equal(t, model.None, AverageYoYGrowth([]model.Metric{model.Some(1), model.Some(2)}))
	assert.Equal(t, model.None, AverageYoYGrowth([]model.Metric{model.Some(0), model.Some(0), model.Some(5)}))

	got := AverageYoYGrowth([]model.Metric{model.Some(-100), model.Some(-50), model.Some(50)})
	require.True(t, got.Valid)
	assert.InDelta(t, (0.5+2.0)/2*100, got.Value, 1e-9)
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "GARAN.IS", WithSuffix("GARAN", ".IS"))
	assert.Equal(t, "GARAN.IS", WithSuffix("GARAN.IS", ".IS"))
	assert.Equal(t, "^XU100", WithSuffix("^XU100", ".IS"))
	assert.Equal(t, "AAPL", WithSuffix("AAPL", ""))
	assert.Equal(t, "GARAN", BareSymbol("GARAN.IS", ".IS"))
}

func dailyBars(start time.Time, n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 2, Low: c - 2, Close: c + 1, Volume: 100}
	}
	return bars
}

func TestArchive_RoundTripAndWeekly(t *testing.T) {
	dir := t.TempDir()
	// 2024-01-01 is a Monday
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := model.NewSeries("GARAN", "5y", "1d", dailyBars(start, 14))
	require.NoError(t, WriteArchive(dir, s))
	_, err := os.Stat(filepath.Join(dir, "GARAN.parquet"))
	require.NoError(t, err)

	p := NewArchiveProvider(dir, nil)
	got, err := p.FetchSeries(context.Background(), "GARAN", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), got.Bars())

	weekly, err := p.FetchSeries(context.Background(), "GARAN", "1y", "1wk")
	require.NoError(t, err)
	require.Equal(t, 2, weekly.Len())
	w := weekly.Bar(0)
	assert.Equal(t, start, w.Time)
	assert.Equal(t, 100.0, w.Open)
	assert.Equal(t, 108.0, w.High)
	assert.Equal(t, 98.0, w.Low)
	assert.Equal(t, 107.0, w.Close)
	assert.Equal(t, 700.0, w.Volume)

	_, err = p.FetchSeries(context.Background(), "MISSING", "1y", "1d")
	assert.ErrorIs(t, err, model.ErrProviderFailure)
}

func TestArchive_PeriodWindow(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteArchive(dir, model.NewSeries("AKBNK", "5y", "1d", dailyBars(start, 400))))

	got, err := NewArchiveProvider(dir, nil).FetchSeries(context.Background(), "AKBNK", "1mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, 32, got.Len())
	assert.Equal(t, "1mo", got.Period)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider()
	p.SetSeries(model.NewSeries("ASELS", "", "", GenerateBars(50, 0.1, 30)))
	p.Fail("BAD", model.ErrProviderFailure)

	s, err := p.FetchSeries(context.Background(), "ASELS", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, 30, s.Len())
	assert.Equal(t, "1y", s.Period)

	_, err = p.FetchSeries(context.Background(), "BAD", "1y", "1d")
	assert.ErrorIs(t, err, model.ErrProviderFailure)
	_, err = p.FetchSeries(context.Background(), "NOPE", "1y", "1d")
	assert.ErrorIs(t, err, model.ErrProviderFailure)
	assert.Equal(t, 1, p.Calls("ASELS"))

	f, err := p.FetchFundamentals(context.Background(), "ASELS")
	require.NoError(t, err)
	assert.Equal(t, "ASELS", f.Symbol)
}

func TestUniverses(t *testing.T) {
	got, err := StaticUniverse{"garan", "AKBNK", " GARAN ", ""}.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"GARAN", "AKBNK"}, got)

	path := filepath.Join(t.TempDir(), "tickers.txt")
	content := "# BIST override\nthyao\nGARAN\nREIT\nETF\nA\nTOOLONGX\nBAD-1\n\nGARAN\nASELS\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	got, err = FileUniverse{Path: path}.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ASELS", "GARAN", "THYAO"}, got)

	_, err = FileUniverse{Path: filepath.Join(t.TempDir(), "missing.txt")}.ListSymbols(context.Background())
	assert.Error(t, err)
}

func TestLimiter(t *testing.T) {
	l := NewLimiter("test", 1, 1)
	require.NoError(t, l.Wait(context.Background()))

	// the next token is a second away, past the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorContains(t, l.Wait(ctx), "rate limiter test")

	done, stop := context.WithCancel(context.Background())
	stop()
	assert.Error(t, l.Wait(done))

	assert.NoError(t, NewLimiter("free", 0, 0).Wait(context.Background()))
}
