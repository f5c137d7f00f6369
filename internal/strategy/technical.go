package strategy

import (
	"fmt"

	"StockScanner/internal/calculator"
	"StockScanner/internal/model"
)

// MinScoringBars is the shortest history the technical snapshot accepts.
const MinScoringBars = 50

// barsPerMonth approximates a month of bars for the price-change fields.
func barsPerMonth(interval string) int {
	if interval == "1wk" {
		return 4
	}
	return 21
}

// TechnicalFromSeries derives the scoring snapshot from the last bar of s.
// Indicators whose warm-up exceeds the series stay missing.
func TechnicalFromSeries(s model.Series) (model.TechnicalSnapshot, error) {
	if s.Len() < MinScoringBars {
		return model.TechnicalSnapshot{}, fmt.Errorf("technical snapshot of %s needs %d bars, got %d: %w",
			s.Symbol, MinScoringBars, s.Len(), model.ErrInsufficientData)
	}
	closes, volumes := s.Closes(), s.Volumes()
	last := s.Last()

	snap := model.TechnicalSnapshot{
		Price:  model.Some(last.Close),
		Volume: model.Some(last.Volume),
	}
	snap.SMA50 = lastOf(calculator.SMA(closes, 50))
	snap.SMA200 = lastOf(calculator.SMA(closes, 200))
	snap.VolumeAvg20 = lastOf(calculator.SMA(volumes, 20))
	snap.RSI = lastOf(calculator.RSI(closes, 14))
	if m, err := calculator.MACD(closes, 12, 26, 9); err == nil {
		snap.MACD = lastOf(m.Line, nil)
		snap.MACDSignal = lastOf(m.Signal, nil)
	}

	month := barsPerMonth(s.Interval)
	snap.Change1M = metricOf(calculator.PercentChange(closes, month))
	snap.Change3M = metricOf(calculator.PercentChange(closes, 3*month))
	snap.Change6M = metricOf(calculator.PercentChange(closes, 6*month))
	return snap, nil
}

func lastOf(values []float64, err error) model.Metric {
	if err != nil || len(values) == 0 {
		return model.None
	}
	v := values[len(values)-1]
	if !calculator.Defined(v) {
		return model.None
	}
	return model.Some(v)
}

func metricOf(v float64, err error) model.Metric {
	if err != nil || !calculator.Defined(v) {
		return model.None
	}
	return model.Some(v)
}
