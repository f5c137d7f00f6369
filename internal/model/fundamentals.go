package model

import "time"

// Metric is an optional number. The zero value is missing.
type Metric struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Some wraps a present value.
func Some(v float64) Metric { return Metric{Value: v, Valid: true} }

// None is a missing value.
var None = Metric{}

// Fundamentals is the per-symbol snapshot served by a fundamentals provider.
// Percent fields are expressed in percent (12.5 means 12.5%).
type Fundamentals struct {
	Symbol             string
	Name               string
	Sector             string
	Price              Metric
	MarketCap          Metric
	PE                 Metric
	PB                 Metric
	EVToEBITDA         Metric
	NetMarginPct       Metric
	RevenueGrowthPct   Metric // 3-year
	NetIncomeGrowthPct Metric // 3-year
	ROEPct             Metric
	DebtToEquity       Metric
	CurrentRatio       Metric
	OperatingCashFlow  Metric
	NetIncome          Metric
	DividendYieldPct   Metric
	AverageVolume      Metric
	FetchedAt          time.Time
}

// TechnicalSnapshot holds the last-bar values the scoring engine reads.
type TechnicalSnapshot struct {
	Price       Metric
	SMA50       Metric
	SMA200      Metric
	RSI         Metric
	MACD        Metric
	MACDSignal  Metric
	Volume      Metric
	VolumeAvg20 Metric

	// Percent price changes over roughly one, three and six months of bars.
	Change1M Metric
	Change3M Metric
	Change6M Metric
}
