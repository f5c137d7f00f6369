package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"StockScanner/internal/model"
)

// archiveRow is one daily bar as stored in <SYMBOL>.parquet.
type archiveRow struct {
	Timestamp int64   `parquet:"t"` // unix milliseconds
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    float64 `parquet:"v"`
}

// ArchiveProvider serves series from a directory of daily parquet archives.
// Weekly series are aggregated from the daily bars.
type ArchiveProvider struct {
	Dir    string
	logger *zap.Logger
}

func NewArchiveProvider(dir string, logger *zap.Logger) *ArchiveProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveProvider{Dir: dir, logger: logger}
}

func (p *ArchiveProvider) Name() string { return "parquet" }

// ArchivePath is where the archive of symbol lives under dir.
func ArchivePath(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol)+".parquet")
}

func (p *ArchiveProvider) FetchSeries(ctx context.Context, symbol, period, interval string) (model.Series, error) {
	if err := ValidatePeriod(period, interval); err != nil {
		return model.Series{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Series{}, err
	}
	path := ArchivePath(p.Dir, symbol)
	rows, err := parquet.ReadFile[archiveRow](path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Series{}, fmt.Errorf("archive %s: %w: no archive at %s", symbol, model.ErrProviderFailure, path)
	}
	if err != nil {
		return model.Series{}, fmt.Errorf("archive %s: %w: %w", symbol, model.ErrProviderFailure, err)
	}

	daily := model.NewSeries(symbol, period, "1d", rowsToBars(rows))
	if daily.Len() == 0 {
		return daily, nil
	}
	cutoff := daily.Last().Time.Add(-Periods[period])
	bars := daily.Bars()
	start := 0
	for start < len(bars) && bars[start].Time.Before(cutoff) {
		start++
	}
	bars = bars[start:]
	if interval == "1wk" {
		bars = aggregateDailyToWeekly(bars)
	}
	p.logger.Debug("archive read", zap.String("symbol", symbol), zap.Int("rows", len(rows)), zap.Int("bars", len(bars)))
	return model.NewSeries(symbol, period, interval, bars), nil
}

// WriteArchive stores the daily bars of s under dir, replacing any previous archive.
func WriteArchive(dir string, s model.Series) error {
	if s.Interval != "" && s.Interval != "1d" {
		return model.Invalid("archive.interval", "archives hold daily bars, got %q", s.Interval)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	bars := s.Bars()
	rows := make([]archiveRow, len(bars))
	for i, b := range bars {
		rows[i] = archiveRow{
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	if err := parquet.WriteFile(ArchivePath(dir, s.Symbol), rows); err != nil {
		return fmt.Errorf("write archive %s: %w", s.Symbol, err)
	}
	return nil
}

func rowsToBars(rows []archiveRow) []model.Bar {
	bars := make([]model.Bar, len(rows))
	for i, r := range rows {
		bars[i] = model.Bar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars
}

// aggregateDailyToWeekly folds ascending daily bars into ISO-week bars stamped
// with the first trading day of the week.
func aggregateDailyToWeekly(daily []model.Bar) []model.Bar {
	if len(daily) == 0 {
		return nil
	}
	weekKey := func(t time.Time) int {
		y, w := t.ISOWeek()
		return y*100 + w
	}

	var weekly []model.Bar
	week := daily[0]
	for _, d := range daily[1:] {
		if weekKey(d.Time) != weekKey(week.Time) {
			weekly = append(weekly, week)
			week = d
			continue
		}
		week.High = max(week.High, d.High)
		week.Low = min(week.Low, d.Low)
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
