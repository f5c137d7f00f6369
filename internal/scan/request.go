// Package scan runs one scanner, the scoring engine or a fundamental screen
// over a symbol universe.
package scan

import (
	"errors"
	"strings"

	"StockScanner/internal/collector"
	"StockScanner/internal/model"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
)

const (
	DefaultPeriod   = "1y"
	DefaultInterval = "1d"
	DefaultWorkers  = 4
)

// Request describes one batch. Exactly one of Scanner, Scoring and Screen is set.
type Request struct {
	Symbols  []string
	Period   string
	Interval string

	// MinBars marks shorter series as insufficient before evaluation. An
	// empty series is always insufficient.
	MinBars int

	Scanner scanner.Params
	Scoring *strategy.Config
	Screen  *strategy.Screen
}

// ForScanner builds a request running p over symbols with default period and interval.
func ForScanner(symbols []string, p scanner.Params) Request {
	return Request{Symbols: symbols, Period: DefaultPeriod, Interval: DefaultInterval, Scanner: p}
}

// ForScoring builds a scoring request.
func ForScoring(symbols []string, cfg strategy.Config) Request {
	return Request{Symbols: symbols, Period: DefaultPeriod, Interval: DefaultInterval, Scoring: &cfg}
}

// ForScreen builds a screen request.
func ForScreen(symbols []string, sc strategy.Screen) Request {
	return Request{Symbols: symbols, Period: "6mo", Interval: DefaultInterval, Screen: &sc}
}

// Kind names what the request runs.
func (r Request) Kind() string {
	switch {
	case r.Scanner != nil:
		return string(r.Scanner.Kind())
	case r.Scoring != nil:
		return "scoring"
	case r.Screen != nil:
		return "screen:" + string(r.Screen.Kind)
	}
	return ""
}

// Validate rejects the request before any symbol is fetched.
func (r Request) Validate() error {
	var errs []error
	set := 0
	for _, present := range []bool{r.Scanner != nil, r.Scoring != nil, r.Screen != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		errs = append(errs, model.Invalid("request", "exactly one of scanner, scoring or screen must be set (got %d)", set))
	}
	if len(normalize(r.Symbols)) == 0 {
		errs = append(errs, model.Invalid("symbols", "no symbols to scan"))
	}
	if err := collector.ValidatePeriod(r.Period, r.Interval); err != nil {
		errs = append(errs, err)
	}
	if r.MinBars < 0 {
		errs = append(errs, model.Invalid("min_bars", "must not be negative (got %d)", r.MinBars))
	}
	if r.Scanner != nil {
		if err := r.Scanner.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Scoring != nil {
		if err := r.Scoring.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Screen != nil {
		if err := r.Screen.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// normalize uppercases, trims and dedupes symbols keeping their first position.
func normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
