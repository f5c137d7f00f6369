package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockScanner/internal/collector"
	"StockScanner/internal/model"
	"StockScanner/internal/scan"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
	"StockScanner/pkg/logger"
)

const (
	SourceYahoo   = "yahoo"
	SourceParquet = "parquet"
)

// Config holds all application configuration.
type Config struct {
	Log        logger.Options  `yaml:"log"`
	DataSource DataSource      `yaml:"data_source"`
	Universe   Universe        `yaml:"universe"`
	Scan       Scan            `yaml:"scan"`
	Scoring    strategy.Config `yaml:"scoring"`
	Jobs       []Job           `yaml:"jobs"`
	Telegram   Telegram        `yaml:"telegram"`
	Database   Database        `yaml:"database"`

	// Env holds the values read from the environment and .env.
	Env Env `yaml:"-"`
}

type DataSource struct {
	Type              string        `yaml:"type"`
	ArchiveDir        string        `yaml:"archive_dir"`
	SymbolSuffix      string        `yaml:"symbol_suffix"`
	Proxy             string        `yaml:"proxy"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Universe is either an explicit symbol list or a ticker file. Empty means the
// built-in BIST list.
type Universe struct {
	Symbols []string `yaml:"symbols"`
	File    string   `yaml:"file"`
}

type Scan struct {
	Period   string `yaml:"period"`
	Interval string `yaml:"interval"`
	Workers  int    `yaml:"workers"`
	MinBars  int    `yaml:"min_bars"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether a bot token is configured.
func (t Telegram) Enabled() bool { return t.BotToken != "" }

type Database struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Env is the deployment layer. Every key is read as SCANNER_<NAME> first and
// as the bare name second.
type Env struct {
	TelegramToken  string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string  `envconfig:"TELEGRAM_CHAT_ID"`
	Proxy          string  `envconfig:"HTTPS_PROXY"`
	SQLitePath     string  `envconfig:"SQLITE_PATH"`
	LogLevel       string  `envconfig:"LOG_LEVEL"`
	LogFormat      string  `envconfig:"LOG_FORMAT"`
	DataSource     string  `envconfig:"DATA_SOURCE"`
	ArchiveDir     string  `envconfig:"ARCHIVE_DIR"`
	Workers        int     `envconfig:"WORKERS"`
	RequestsPerSec float64 `envconfig:"REQUESTS_PER_SECOND"`
	RunOnStart     bool    `envconfig:"RUN_ON_START"`
}

// Default returns the configuration used when the file sets nothing.
func Default() *Config {
	return &Config{
		Log: logger.Options{Level: "info", Format: "console"},
		DataSource: DataSource{
			Type:              SourceYahoo,
			SymbolSuffix:      ".IS",
			RequestsPerSecond: collector.DefaultRequestsPerSecond,
			Burst:             1,
			Timeout:           15 * time.Second,
		},
		Scan: Scan{
			Period:   scan.DefaultPeriod,
			Interval: scan.DefaultInterval,
			Workers:  scan.DefaultWorkers,
		},
		Scoring:  strategy.DefaultConfig(),
		Database: Database{SQLitePath: "data/scanner.db"},
	}
}

// Load reads config from a YAML file, then applies .env and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()
	if err := envconfig.Process("SCANNER", &cfg.Env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv()

	if cfg.DataSource.Type == "" {
		cfg.DataSource.Type = SourceYahoo
	}
	if cfg.DataSource.Burst == 0 {
		cfg.DataSource.Burst = 1
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 15 * time.Second
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = scan.DefaultWorkers
	}
	if len(cfg.Scoring.Tiers) == 0 {
		cfg.Scoring.Tiers = append([]strategy.Tier(nil), strategy.DefaultTiers...)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	e := c.Env
	if e.TelegramToken != "" {
		c.Telegram.BotToken = e.TelegramToken
	}
	if e.TelegramChatID != "" {
		c.Telegram.ChatID = e.TelegramChatID
	}
	if e.Proxy != "" {
		c.DataSource.Proxy = e.Proxy
	}
	if e.SQLitePath != "" {
		c.Database.SQLitePath = e.SQLitePath
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		c.Log.Format = e.LogFormat
	}
	if e.DataSource != "" {
		c.DataSource.Type = e.DataSource
	}
	if e.ArchiveDir != "" {
		c.DataSource.ArchiveDir = e.ArchiveDir
	}
	if e.Workers > 0 {
		c.Scan.Workers = e.Workers
	}
	if e.RequestsPerSec > 0 {
		c.DataSource.RequestsPerSecond = e.RequestsPerSec
	}
}

// Validate reports every invalid setting at once, including each job's
// scanner parameters.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, model.Invalid("log.level", "%v", err))
	}
	switch c.DataSource.Type {
	case SourceYahoo:
	case SourceParquet:
		if c.DataSource.ArchiveDir == "" {
			errs = append(errs, model.Invalid("data_source.archive_dir", "is required for the parquet source"))
		}
	default:
		errs = append(errs, model.Invalid("data_source.type", "unknown source %q (want yahoo or parquet)", c.DataSource.Type))
	}
	if c.DataSource.RequestsPerSecond < 0 {
		errs = append(errs, model.Invalid("data_source.requests_per_second", "must not be negative"))
	}
	if c.DataSource.Timeout < 0 {
		errs = append(errs, model.Invalid("data_source.timeout", "must not be negative"))
	}
	if err := collector.ValidatePeriod(c.Scan.Period, c.Scan.Interval); err != nil {
		errs = append(errs, err)
	}
	if c.Scan.Workers < 1 {
		errs = append(errs, model.Invalid("scan.workers", "must be at least 1, got %d", c.Scan.Workers))
	}
	if c.Scan.MinBars < 0 {
		errs = append(errs, model.Invalid("scan.min_bars", "must not be negative"))
	}
	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, model.Invalid("telegram", "bot_token and chat_id must be set together"))
	}

	seen := map[string]bool{}
	for i, j := range c.Jobs {
		if j.Name == "" {
			errs = append(errs, model.Invalid(fmt.Sprintf("jobs[%d].name", i), "is required"))
		} else if seen[j.Name] {
			errs = append(errs, model.Invalid(fmt.Sprintf("jobs[%d].name", i), "duplicate job %q", j.Name))
		}
		seen[j.Name] = true
		if j.Cron != "" {
			if _, err := cronParser.Parse(j.Cron); err != nil {
				errs = append(errs, model.Invalid(fmt.Sprintf("jobs[%d].cron", i), "%v", err))
			}
		}
		if _, err := c.Request(j, []string{"CHECK"}); err != nil {
			errs = append(errs, fmt.Errorf("jobs[%d] %s: %w", i, j.Name, err))
		}
	}
	return errors.Join(errs...)
}

// cronParser accepts the six-field format with seconds used by the scheduler.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// SymbolSource builds the configured symbol universe.
func (c *Config) SymbolSource() collector.UniverseProvider {
	switch {
	case c.Universe.File != "":
		return collector.FileUniverse{Path: c.Universe.File}
	case len(c.Universe.Symbols) > 0:
		return collector.StaticUniverse(c.Universe.Symbols)
	}
	return collector.StaticUniverse(collector.DefaultBISTSymbols)
}

// Job finds a job by name.
func (c *Config) Job(name string) (Job, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// Request turns a job into a validated scan request over symbols.
func (c *Config) Request(j Job, symbols []string) (scan.Request, error) {
	req := scan.Request{
		Symbols:  symbols,
		Period:   c.Scan.Period,
		Interval: c.Scan.Interval,
		MinBars:  c.Scan.MinBars,
	}
	if j.Period != "" {
		req.Period = j.Period
	}
	if j.Interval != "" {
		req.Interval = j.Interval
	}

	switch j.Type {
	case JobScanner, "":
		kind, err := scanner.ParseKind(j.Kind)
		if err != nil {
			return req, err
		}
		if req.Scanner, err = scanner.Decode(kind, j.decoder()); err != nil {
			return req, err
		}
	case JobScoring:
		sc := c.Scoring
		sc.Tiers = append([]strategy.Tier(nil), c.Scoring.Tiers...)
		if dec := j.decoder(); dec != nil {
			if err := dec(&sc); err != nil {
				return req, errors.Join(model.ErrInvalidConfig, fmt.Errorf("decode scoring params: %w", err))
			}
		}
		req.Scoring = &sc
	case JobScreen:
		kind, err := strategy.ParseScreen(j.Kind)
		if err != nil {
			return req, err
		}
		sc := strategy.DefaultScreen(kind)
		if dec := j.decoder(); dec != nil {
			if err := dec(&sc); err != nil {
				return req, errors.Join(model.ErrInvalidConfig, fmt.Errorf("decode screen params: %w", err))
			}
		}
		sc.Kind = kind
		req.Screen = &sc
	default:
		return req, model.Invalid("type", "unknown job type %q (want scanner, scoring or screen)", j.Type)
	}
	return req, req.Validate()
}
