package collector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// DefaultBISTSymbols is the built-in universe of liquid Borsa Istanbul names.
var DefaultBISTSymbols = []string{
	"AKBNK", "GARAN", "ISCTR", "HALKB", "VAKBN", "YKBNK", "TSKB", "ALBRK",
	"KCHOL", "SAHOL", "DOHOL", "TAVHL", "ASELS", "TCELL", "TTKOM", "LOGO",
	"THYAO", "PGSUS", "FROTO", "TOASO", "OTKAR", "TUPRS", "EREGL", "KRDMD",
	"AKSEN", "ZOREN", "PETKM", "SASA", "SISE", "BIMAS", "MGROS", "SOKM",
	"ARCLK", "VESTL", "ENKAI", "EKGYO", "KOZAL", "KOZAA", "GUBRF", "HEKTS",
	"ULKER", "CCOLA", "AEFES", "TKFEN", "OYAKC", "ASTOR", "KONTR", "ODAS",
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{2,6}$`)

// excludedTickers are fund and instrument tokens that show up in scraped
// ticker lists but are not equities.
var excludedTickers = map[string]bool{
	"REIT": true, "CEF": true, "ETF": true, "WARRANT": true, "FON": true, "FUND": true,
}

// StaticUniverse is a fixed symbol list. Symbols are upper-cased and
// deduplicated, keeping first-seen order.
type StaticUniverse []string

func (u StaticUniverse) ListSymbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(u))
	out := make([]string, 0, len(u))
	for _, s := range u {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// FileUniverse reads one ticker per line. Blank lines and '#' comments are
// skipped, tickers must look like ^[A-Z0-9]{2,6}$ after upper-casing, fund
// tokens are dropped and the result is deduplicated and sorted.
type FileUniverse struct {
	Path string
}

func (u FileUniverse) ListSymbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(u.Path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer f.Close()

	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if s == "" || strings.HasPrefix(s, "#") || excludedTickers[s] {
			continue
		}
		if tickerPattern.MatchString(s) {
			seen[s] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
