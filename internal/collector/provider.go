package collector

import (
	"context"
	"strings"
	"time"

	"StockScanner/internal/model"
)

// SeriesProvider serves price history for one symbol.
type SeriesProvider interface {
	FetchSeries(ctx context.Context, symbol, period, interval string) (model.Series, error)
	Name() string
}

// FundamentalsProvider serves the fundamentals snapshot of one symbol.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error)
}

// UniverseProvider lists the symbols a scan covers.
type UniverseProvider interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// Periods maps each supported history window to its calendar length.
var Periods = map[string]time.Duration{
	"1mo": 31 * 24 * time.Hour,
	"3mo": 92 * 24 * time.Hour,
	"6mo": 183 * 24 * time.Hour,
	"1y":  366 * 24 * time.Hour,
	"2y":  2 * 366 * 24 * time.Hour,
	"5y":  5 * 366 * 24 * time.Hour,
}

// ValidatePeriod rejects history windows and bar intervals the providers do not serve.
func ValidatePeriod(period, interval string) error {
	if _, ok := Periods[period]; !ok {
		return model.Invalid("period", "unsupported period %q (want 1mo, 3mo, 6mo, 1y, 2y or 5y)", period)
	}
	if interval != "1d" && interval != "1wk" {
		return model.Invalid("interval", "unsupported interval %q (want 1d or 1wk)", interval)
	}
	return nil
}

// WithSuffix appends the exchange suffix to a bare ticker. Index symbols and
// tickers that already carry an exchange are left alone.
func WithSuffix(symbol, suffix string) string {
	if suffix == "" || strings.HasPrefix(symbol, "^") || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + suffix
}

// BareSymbol strips the exchange suffix again.
func BareSymbol(symbol, suffix string) string {
	if suffix == "" {
		return symbol
	}
	return strings.TrimSuffix(symbol, suffix)
}
