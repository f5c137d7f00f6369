package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScanner/internal/collector"
	"StockScanner/internal/model"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, 12, cfg.Scoring.MinScore)
	assert.Equal(t, strategy.Band{Excellent: 8, Good: 15}, cfg.Scoring.Thresholds.PE)
	// untouched thresholds keep their defaults
	assert.Equal(t, strategy.DefaultThresholds().PB, cfg.Scoring.Thresholds.PB)
	require.Len(t, cfg.Jobs, 5)

	job, ok := cfg.Job("volume-daily")
	require.True(t, ok)
	req, err := cfg.Request(job, []string{"GARAN"})
	require.NoError(t, err)
	require.NotNil(t, req.Scanner)
	assert.Equal(t, scanner.KindVolumeIncrease, req.Scanner.Kind())

	job, _ = cfg.Job("golden-cross-weekly")
	req, err = cfg.Request(job, []string{"GARAN"})
	require.NoError(t, err)
	assert.Equal(t, "1wk", req.Interval)
	assert.Equal(t, "5y", req.Period)

	job, _ = cfg.Job("score-weekly")
	req, err = cfg.Request(job, []string{"GARAN"})
	require.NoError(t, err)
	require.NotNil(t, req.Scoring)
	assert.Equal(t, 16, req.Scoring.MinScore)
	assert.Equal(t, 12, cfg.Scoring.MinScore)

	job, _ = cfg.Job("cheap-banks")
	req, err = cfg.Request(job, []string{"GARAN"})
	require.NoError(t, err)
	require.NotNil(t, req.Screen)
	assert.Equal(t, strategy.ScreenLowPE, req.Screen.Kind)
	assert.Equal(t, 10.0, req.Screen.Max)
	assert.Equal(t, 100.0, req.Screen.MinMarketCapM)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, SourceYahoo, cfg.DataSource.Type)
	assert.Equal(t, "1y", cfg.Scan.Period)
	assert.Equal(t, strategy.DefaultTiers, cfg.Scoring.Tiers)

	symbols, err := cfg.SymbolSource().ListSymbols(t.Context())
	require.NoError(t, err)
	assert.Len(t, symbols, len(collector.DefaultBISTSymbols))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SCANNER_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("SCANNER_WORKERS", "9")
	t.Setenv("SCANNER_DATA_SOURCE", "parquet")
	t.Setenv("SCANNER_ARCHIVE_DIR", "/srv/bars")

	cfg, err := Load(writeConfig(t, "scan:\n  workers: 2\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, 9, cfg.Scan.Workers)
	assert.Equal(t, SourceParquet, cfg.DataSource.Type)
	assert.Equal(t, "/srv/bars", cfg.DataSource.ArchiveDir)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log: {level: loud}
data_source: {type: parquet}
scan: {period: 10y, interval: 1d, workers: 0}
scoring:
  tiers:
    - {min_score: 10, recommendation: Buy}
    - {min_score: 12, recommendation: Hold}
telegram: {bot_token: "x"}
jobs:
  - {name: a, type: scanner, kind: golden_cross, params: {short_span: 50, long_span: 20}}
  - {name: a, type: scanner, kind: moon_phase}
  - {name: c, cron: "every day", type: scoring}
  - {name: d, type: screen, kind: low_pe, params: {min: 9, max: 3}}
`))
	require.NoError(t, err)
	cfg.Scan.Workers = 0

	err = cfg.Validate()
	require.ErrorIs(t, err, model.ErrInvalidConfig)
	for _, want := range []string{
		"log.level", "data_source.archive_dir", "period", "scan.workers", "tiers",
		"telegram", "jobs[0] a", "duplicate job", "jobs[2].cron", "jobs[3] d",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRequest_UnknownType(t *testing.T) {
	cfg := Default()
	_, err := cfg.Request(Job{Name: "x", Type: "backtest"}, []string{"GARAN"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	// a missing type defaults to a scanner job
	req, err := cfg.Request(Job{Name: "x", Kind: "triangle_breakout"}, []string{"GARAN"})
	require.NoError(t, err)
	assert.Equal(t, scanner.KindTriangle, req.Scanner.Kind())
}

func TestSymbolSource(t *testing.T) {
	cfg := Default()
	cfg.Universe.Symbols = []string{"thyao", "garan"}
	got, err := cfg.SymbolSource().ListSymbols(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"THYAO", "GARAN"}, got)

	cfg.Universe.File = filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(cfg.Universe.File, []byte("asels\n"), 0o644))
	got, err = cfg.SymbolSource().ListSymbols(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"ASELS"}, got)
}
