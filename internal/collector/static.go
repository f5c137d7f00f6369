package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockScanner/internal/model"
)

// StaticProvider serves fixed series and fundamentals from memory. Errors
// registered for a symbol are returned instead of data.
type StaticProvider struct {
	mu           sync.RWMutex
	series       map[string]model.Series
	fundamentals map[string]model.Fundamentals
	errs         map[string]error
	calls        map[string]int
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		series:       map[string]model.Series{},
		fundamentals: map[string]model.Fundamentals{},
		errs:         map[string]error{},
		calls:        map[string]int{},
	}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) SetSeries(s model.Series) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[s.Symbol] = s
}

func (p *StaticProvider) SetFundamentals(f model.Fundamentals) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fundamentals[f.Symbol] = f
}

// Fail makes every fetch of symbol return err.
func (p *StaticProvider) Fail(symbol string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[symbol] = err
}

// Calls reports how many fetches symbol has seen.
func (p *StaticProvider) Calls(symbol string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls[symbol]
}

func (p *StaticProvider) FetchSeries(ctx context.Context, symbol, period, interval string) (model.Series, error) {
	if err := ctx.Err(); err != nil {
		return model.Series{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[symbol]++
	if err := p.errs[symbol]; err != nil {
		return model.Series{}, err
	}
	s, ok := p.series[symbol]
	if !ok {
		return model.Series{}, fmt.Errorf("static %s: %w: unknown symbol", symbol, model.ErrProviderFailure)
	}
	return model.NewSeries(symbol, period, interval, s.Bars()), nil
}

func (p *StaticProvider) FetchFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return model.Fundamentals{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.errs[symbol]; err != nil {
		return model.Fundamentals{}, err
	}
	f, ok := p.fundamentals[symbol]
	if !ok {
		return model.Fundamentals{Symbol: symbol}, nil
	}
	return f, nil
}

// GenerateBars builds n daily bars drifting from base by step percent per bar,
// ending today. Used for development runs without network access.
func GenerateBars(base, stepPct float64, n int) []model.Bar {
	bars := make([]model.Bar, n)
	end := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < n; i++ {
		p := base * (1 + float64(i-n/2)*stepPct/100)
		bars[i] = model.Bar{
			Time:   end.AddDate(0, 0, -(n - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1_000_000,
		}
	}
	return bars
}
