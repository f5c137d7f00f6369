package model

import (
	"sort"
	"time"
)

// Bar represents a single OHLCV candlestick.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the bar has positive prices and volume and high >= low.
func (b Bar) Valid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.Volume <= 0 {
		return false
	}
	return b.High >= b.Low
}

// TypicalPrice returns (high+low+close)/3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Series is an ordered run of bars for one symbol over one (period, interval)
// window. Bars are strictly increasing in time; the slice is never handed out
// for mutation.
type Series struct {
	Symbol   string
	Period   string
	Interval string
	bars     []Bar
}

// NewSeries drops invalid bars, sorts the rest by time and keeps the last bar
// for any duplicated timestamp.
func NewSeries(symbol, period, interval string, raw []Bar) Series {
	bars := make([]Bar, 0, len(raw))
	for _, b := range raw {
		if b.Valid() {
			bars = append(bars, b)
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return Series{Symbol: symbol, Period: period, Interval: interval, bars: out}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.bars) }

// Bar returns the i-th bar.
func (s Series) Bar(i int) Bar { return s.bars[i] }

// Last returns the most recent bar. It panics on an empty series.
func (s Series) Last() Bar { return s.bars[len(s.bars)-1] }

// Bars returns a copy of the bars.
func (s Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Tail returns a series holding the last n bars.
func (s Series) Tail(n int) Series {
	if n >= len(s.bars) {
		return s
	}
	if n < 0 {
		n = 0
	}
	return Series{Symbol: s.Symbol, Period: s.Period, Interval: s.Interval, bars: s.bars[len(s.bars)-n:]}
}

func (s Series) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = pick(b)
	}
	return out
}

func (s Series) Highs() []float64   { return s.column(func(b Bar) float64 { return b.High }) }
func (s Series) Lows() []float64    { return s.column(func(b Bar) float64 { return b.Low }) }
func (s Series) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }
