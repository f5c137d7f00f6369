package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StockScanner/internal/collector"
	"StockScanner/internal/config"
	"StockScanner/internal/notifier"
	"StockScanner/internal/recorder"
	"StockScanner/internal/scan"
	"StockScanner/internal/scheduler"
	"StockScanner/pkg/logger"
)

// App carries the components shared by every command.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Yahoo    *collector.YahooClient
	Series   collector.SeriesProvider
	Limiter  *collector.Limiter
	Runner   *scan.Runner
	Universe collector.UniverseProvider
	Recorder recorder.Recorder
	Notifier *notifier.TelegramNotifier
}

func main() {
	var (
		cfgPath string
		app     = &App{}
	)
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	} else {
		cfgPath = "configs/config.yaml"
	}

	root := &cobra.Command{
		Use:           "scanner",
		Short:         "BIST equity screener",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cfgPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", cfgPath, "path to the YAML config")

	root.AddCommand(
		newRunCmd(app),
		newScoreCmd(app),
		newScreenCmd(app),
		newServeCmd(app),
		newSymbolsCmd(app),
		newArchiveCmd(app),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *App) init(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	l, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	a.Config, a.Logger = cfg, l

	ds := cfg.DataSource
	a.Yahoo = collector.NewYahooClient(ds.Proxy, ds.SymbolSuffix, ds.Timeout, l)
	switch ds.Type {
	case config.SourceParquet:
		a.Series = collector.NewArchiveProvider(ds.ArchiveDir, l)
	default:
		a.Series = a.Yahoo
	}
	a.Limiter = collector.NewLimiter(ds.Type, ds.RequestsPerSecond, ds.Burst)
	a.Runner = scan.NewRunner(a.Series, a.Yahoo, a.Limiter, cfg.Scan.Workers, l)
	a.Universe = cfg.SymbolSource()

	a.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, l)
		if err != nil {
			l.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			a.Recorder = sr
		}
	}
	if cfg.Telegram.Enabled() {
		a.Notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, ds.Proxy, l)
	}
	l.Debug("app initialised",
		zap.String("source", a.Series.Name()),
		zap.Int("workers", cfg.Scan.Workers),
		zap.Bool("telegram", a.Notifier != nil))
	return nil
}

func (a *App) close() {
	if a.Recorder != nil {
		if err := a.Recorder.Close(); err != nil {
			a.Logger.Warn("close recorder", zap.Error(err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// scheduler builds a Scheduler over the app components. The notifier is only
// set when Telegram is configured.
func (a *App) scheduler(ctx context.Context) *scheduler.Scheduler {
	var sender scheduler.Sender
	if a.Notifier != nil {
		sender = a.Notifier
	}
	return scheduler.NewScheduler(ctx, a.Config, a.Runner, a.Universe, sender, a.Recorder, a.Logger)
}
