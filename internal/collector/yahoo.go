package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"StockScanner/internal/model"
)

const (
	DefaultChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"

	summaryModules = "price,summaryDetail,defaultKeyStatistics,financialData,assetProfile," +
		"incomeStatementHistory,cashflowStatementHistory"
)

// YahooClient serves series and fundamentals from the Yahoo Finance public API.
type YahooClient struct {
	Client     *http.Client
	ChartURL   string
	SummaryURL string

	// Suffix is appended to bare tickers, ".IS" for Borsa Istanbul.
	Suffix    string
	SymbolMap map[string]string

	logger *zap.Logger
}

// NewYahooClient creates a client with optional proxy support.
func NewYahooClient(proxyURL, suffix string, timeout time.Duration, logger *zap.Logger) *YahooClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YahooClient{
		Client:     &http.Client{Timeout: timeout, Transport: transport},
		ChartURL:   DefaultChartURL,
		SummaryURL: DefaultSummaryURL,
		Suffix:     suffix,
		SymbolMap: map[string]string{
			"BIST100": "XU100.IS",
			"XU100":   "XU100.IS",
			"BIST30":  "XU030.IS",
			"XU030":   "XU030.IS",
		},
		logger: logger,
	}
}

func (c *YahooClient) Name() string { return "yahoo" }

func (c *YahooClient) yahooSymbol(symbol string) string {
	if mapped, ok := c.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return WithSuffix(symbol, c.Suffix)
}

// get issues a GET and decodes the JSON body into out.
func (c *YahooClient) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d, body: %.200s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

// FetchSeries downloads bars for symbol. Null bars (holidays, halts) are
// dropped by the series constructor.
func (c *YahooClient) FetchSeries(ctx context.Context, symbol, period, interval string) (model.Series, error) {
	if err := ValidatePeriod(period, interval); err != nil {
		return model.Series{}, err
	}
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		c.ChartURL, url.PathEscape(c.yahooSymbol(symbol)), interval, period)

	var chart yahooChart
	if err := c.get(ctx, u, &chart); err != nil {
		return model.Series{}, fmt.Errorf("yahoo chart %s: %w: %w", symbol, model.ErrProviderFailure, err)
	}
	if chart.Chart.Error != nil {
		return model.Series{}, fmt.Errorf("yahoo chart %s: %w: %s", symbol, model.ErrProviderFailure, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.Series{}, fmt.Errorf("yahoo chart %s: no data returned: %w", symbol, model.ErrInsufficientData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}
	series := model.NewSeries(symbol, period, interval, bars)
	c.logger.Debug("yahoo chart fetched",
		zap.String("symbol", symbol), zap.Int("raw", len(bars)), zap.Int("bars", series.Len()))
	return series, nil
}

// yahooValue is Yahoo's {"raw": ..., "fmt": ...} number wrapper. Missing
// values arrive as {} or null.
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

func (v *yahooValue) metric() model.Metric {
	if v == nil || v.Raw == nil || math.IsNaN(*v.Raw) || math.IsInf(*v.Raw, 0) {
		return model.None
	}
	return model.Some(*v.Raw)
}

type yahooStatement struct {
	EndDate                        *yahooValue `json:"endDate"`
	TotalRevenue                   *yahooValue `json:"totalRevenue"`
	NetIncome                      *yahooValue `json:"netIncome"`
	TotalCashFromOperatingActivity *yahooValue `json:"totalCashFromOperatingActivities"`
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName           string      `json:"longName"`
				ShortName          string      `json:"shortName"`
				RegularMarketPrice *yahooValue `json:"regularMarketPrice"`
				MarketCap          *yahooValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE    *yahooValue `json:"trailingPE"`
				ForwardPE     *yahooValue `json:"forwardPE"`
				DividendYield *yahooValue `json:"dividendYield"`
				AverageVolume *yahooValue `json:"averageVolume"`
				MarketCap     *yahooValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook        *yahooValue `json:"priceToBook"`
				EnterpriseToEbitda *yahooValue `json:"enterpriseToEbitda"`
				EnterpriseValue    *yahooValue `json:"enterpriseValue"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ReturnOnEquity    *yahooValue `json:"returnOnEquity"`
				DebtToEquity      *yahooValue `json:"debtToEquity"`
				ProfitMargins     *yahooValue `json:"profitMargins"`
				CurrentRatio      *yahooValue `json:"currentRatio"`
				OperatingCashflow *yahooValue `json:"operatingCashflow"`
				Ebitda            *yahooValue `json:"ebitda"`
			} `json:"financialData"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			IncomeStatementHistory struct {
				Statements []yahooStatement `json:"incomeStatementHistory"`
			} `json:"incomeStatementHistory"`
			CashflowStatementHistory struct {
				Statements []yahooStatement `json:"cashflowStatements"`
			} `json:"cashflowStatementHistory"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// FetchFundamentals downloads the quote summary of symbol and converts ratios
// to the units the scoring engine expects (percentages, plain D/E ratio).
func (c *YahooClient) FetchFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error) {
	u := fmt.Sprintf("%s/%s?modules=%s", c.SummaryURL, url.PathEscape(c.yahooSymbol(symbol)), url.QueryEscape(summaryModules))

	var summary yahooSummary
	if err := c.get(ctx, u, &summary); err != nil {
		return model.Fundamentals{}, fmt.Errorf("yahoo summary %s: %w: %w", symbol, model.ErrProviderFailure, err)
	}
	if summary.QuoteSummary.Error != nil {
		return model.Fundamentals{}, fmt.Errorf("yahoo summary %s: %w: %s", symbol, model.ErrProviderFailure,
			summary.QuoteSummary.Error.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return model.Fundamentals{}, fmt.Errorf("yahoo summary %s: %w: empty result", symbol, model.ErrProviderFailure)
	}
	r := summary.QuoteSummary.Result[0]

	f := model.Fundamentals{
		Symbol:            symbol,
		Name:              r.Price.LongName,
		Sector:            r.AssetProfile.Sector,
		Price:             r.Price.RegularMarketPrice.metric(),
		MarketCap:         firstValid(r.Price.MarketCap.metric(), r.SummaryDetail.MarketCap.metric()),
		PE:                bounded(firstValid(r.SummaryDetail.TrailingPE.metric(), r.SummaryDetail.ForwardPE.metric()), 0, 1000),
		PB:                bounded(r.DefaultKeyStatistics.PriceToBook.metric(), 0, 100),
		NetMarginPct:      scaled(r.FinancialData.ProfitMargins.metric(), 100),
		ROEPct:            scaled(r.FinancialData.ReturnOnEquity.metric(), 100),
		DebtToEquity:      scaled(r.FinancialData.DebtToEquity.metric(), 0.01),
		CurrentRatio:      r.FinancialData.CurrentRatio.metric(),
		DividendYieldPct:  scaled(r.SummaryDetail.DividendYield.metric(), 100),
		AverageVolume:     r.SummaryDetail.AverageVolume.metric(),
		OperatingCashFlow: r.FinancialData.OperatingCashflow.metric(),
		FetchedAt:         time.Now().UTC(),
	}
	if f.Name == "" {
		f.Name = r.Price.ShortName
	}

	f.EVToEBITDA = r.DefaultKeyStatistics.EnterpriseToEbitda.metric()
	if !f.EVToEBITDA.Valid {
		ev, ebitda := r.DefaultKeyStatistics.EnterpriseValue.metric(), r.FinancialData.Ebitda.metric()
		if ev.Valid && ebitda.Valid && ebitda.Value != 0 {
			f.EVToEBITDA = model.Some(ev.Value / ebitda.Value)
		}
	}

	income := chronological(r.IncomeStatementHistory.Statements)
	revenues := make([]model.Metric, len(income))
	netIncomes := make([]model.Metric, len(income))
	for i, s := range income {
		revenues[i] = s.TotalRevenue.metric()
		netIncomes[i] = s.NetIncome.metric()
	}
	f.RevenueGrowthPct = AverageYoYGrowth(revenues)
	f.NetIncomeGrowthPct = AverageYoYGrowth(netIncomes)
	if n := len(netIncomes); n > 0 {
		f.NetIncome = netIncomes[n-1]
	}
	if !f.OperatingCashFlow.Valid {
		cash := chronological(r.CashflowStatementHistory.Statements)
		if n := len(cash); n > 0 {
			f.OperatingCashFlow = cash[n-1].TotalCashFromOperatingActivity.metric()
		}
	}
	return f, nil
}

// chronological orders statements oldest first and keeps the last four years.
func chronological(statements []yahooStatement) []yahooStatement {
	out := append([]yahooStatement(nil), statements...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EndDate.metric().Value < out[j].EndDate.metric().Value
	})
	if len(out) > 4 {
		out = out[len(out)-4:]
	}
	return out
}

// AverageYoYGrowth averages the year-over-year growth of consecutive annual
// values in percent. It needs at least three values and skips years whose
// base is zero or missing.
func AverageYoYGrowth(values []model.Metric) model.Metric {
	if len(values) < 3 {
		return model.None
	}
	var sum float64
	var n int
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if !prev.Valid || !cur.Valid || math.Abs(prev.Value) <= 1e-6 {
			continue
		}
		sum += (cur.Value - prev.Value) / math.Abs(prev.Value)
		n++
	}
	if n == 0 {
		return model.None
	}
	return model.Some(sum / float64(n) * 100)
}

func firstValid(metrics ...model.Metric) model.Metric {
	for _, m := range metrics {
		if m.Valid {
			return m
		}
	}
	return model.None
}

// bounded drops values outside (lo, hi).
func bounded(m model.Metric, lo, hi float64) model.Metric {
	if !m.Valid || m.Value <= lo || m.Value >= hi {
		return model.None
	}
	return m
}

func scaled(m model.Metric, factor float64) model.Metric {
	if !m.Valid {
		return m
	}
	return model.Some(m.Value * factor)
}
