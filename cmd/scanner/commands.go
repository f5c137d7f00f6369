package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"regexp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StockScanner/internal/collector"
	"StockScanner/internal/notifier"
	"StockScanner/internal/scan"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
)

// outputFlags are shared by the commands that print a report.
type outputFlags struct {
	symbols []string
	asJSON  bool
	record  bool
}

func (o *outputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&o.symbols, "symbols", "s", nil, "symbols to scan instead of the configured universe")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&o.record, "record", false, "store the run in the database")
}

func newRunCmd(app *App) *cobra.Command {
	out := &outputFlags{}
	cmd := &cobra.Command{
		Use:   "run <job|scanner>",
		Short: "Run a configured job or a scanner with default parameters",
		Example: `  scanner run volume-daily
  scanner run golden_cross --symbols THYAO,GARAN
  scanner run harmonic --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, ok := app.Config.Job(args[0]); ok && len(out.symbols) == 0 {
				report, err := app.scheduler(ctx).RunJob(ctx, args[0])
				if err != nil {
					return err
				}
				return printReport(args[0], report, out.asJSON)
			}
			kind, err := scanner.ParseKind(args[0])
			if err != nil {
				return fmt.Errorf("%q is neither a job nor a scanner: %w", args[0], err)
			}
			p, err := scanner.Default(kind)
			if err != nil {
				return err
			}
			return app.runAdhoc(ctx, string(kind), out, func(symbols []string) scan.Request {
				return scan.ForScanner(symbols, p)
			})
		},
	}
	out.bind(cmd)
	return cmd
}

func newScoreCmd(app *App) *cobra.Command {
	out := &outputFlags{}
	var minScore int
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score the universe on fundamentals and technicals (0-30)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config.Scoring
			if cmd.Flags().Changed("min-score") {
				cfg.MinScore = minScore
			}
			return app.runAdhoc(cmd.Context(), "scoring", out, func(symbols []string) scan.Request {
				return scan.ForScoring(symbols, cfg)
			})
		},
	}
	cmd.Flags().IntVar(&minScore, "min-score", 0, "drop symbols scoring below this")
	out.bind(cmd)
	return cmd
}

func newScreenCmd(app *App) *cobra.Command {
	out := &outputFlags{}
	var lo, hi float64
	cmd := &cobra.Command{
		Use:       "screen <kind>",
		Short:     "Run a fundamental screen",
		ValidArgs: screenNames(),
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := strategy.ParseScreen(args[0])
			if err != nil {
				return err
			}
			sc := strategy.DefaultScreen(kind)
			if cmd.Flags().Changed("min") {
				sc.Min = lo
			}
			if cmd.Flags().Changed("max") {
				sc.Max = hi
			}
			return app.runAdhoc(cmd.Context(), "screen "+string(kind), out, func(symbols []string) scan.Request {
				return scan.ForScreen(symbols, sc)
			})
		},
	}
	cmd.Flags().Float64Var(&lo, "min", 0, "lower bound of the screened metric")
	cmd.Flags().Float64Var(&hi, "max", 0, "upper bound of the screened metric")
	out.bind(cmd)
	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled jobs and answer Telegram commands until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := app.Logger

			sched := app.scheduler(ctx)
			n, err := sched.RegisterAll()
			if err != nil {
				return fmt.Errorf("register jobs: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if app.Notifier != nil {
				go app.Notifier.StartPolling(ctx, sched.HandleCommand)
				log.Info("telegram polling started")
			} else {
				log.Warn("telegram not configured, reports are only recorded")
			}

			if runOnStart || app.Config.Env.RunOnStart {
				for _, job := range app.Config.Jobs {
					log.Info("RUN_ON_START enabled, executing job now", zap.String("job", job.Name))
					go func() {
						if _, err := sched.RunJob(ctx, job.Name); err != nil {
							log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
						}
					}()
				}
			}

			log.Info("scanner is running, press Ctrl+C to stop", zap.Int("scheduled_jobs", n))
			<-ctx.Done()
			log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run every configured job once at startup")
	return cmd
}

func newSymbolsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List the configured universe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := app.Universe.ListSymbols(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range symbols {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newArchiveCmd(app *App) *cobra.Command {
	var (
		dir     string
		period  string
		symbols []string
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Download daily bars from Yahoo into the parquet archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dir == "" {
				dir = app.Config.DataSource.ArchiveDir
			}
			if dir == "" {
				return fmt.Errorf("no archive directory: set --dir or data_source.archive_dir")
			}
			if err := collector.ValidatePeriod(period, "1d"); err != nil {
				return err
			}
			if len(symbols) == 0 {
				var err error
				if symbols, err = app.Universe.ListSymbols(ctx); err != nil {
					return err
				}
			}

			written := 0
			for _, sym := range symbols {
				if ctx.Err() != nil {
					break
				}
				if err := app.Limiter.Wait(ctx); err != nil {
					break
				}
				s, err := app.Yahoo.FetchSeries(ctx, sym, period, "1d")
				if err != nil {
					app.Logger.Warn("archive fetch failed", zap.String("symbol", sym), zap.Error(err))
					continue
				}
				if err := collector.WriteArchive(dir, s); err != nil {
					return err
				}
				written++
			}
			app.Logger.Info("archive updated", zap.String("dir", dir), zap.Int("symbols", written))
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d symbols archived in %s\n", written, len(symbols), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "archive directory (default data_source.archive_dir)")
	cmd.Flags().StringVar(&period, "period", "5y", "history window to download")
	cmd.Flags().StringSliceVarP(&symbols, "symbols", "s", nil, "symbols to archive instead of the configured universe")
	return cmd
}

// runAdhoc runs a request built over the universe with the configured scan
// settings and prints the report. Screens keep their shorter history window.
func (a *App) runAdhoc(ctx context.Context, label string, out *outputFlags, build func([]string) scan.Request) error {
	symbols := out.symbols
	if len(symbols) == 0 {
		var err error
		if symbols, err = a.Universe.ListSymbols(ctx); err != nil {
			return err
		}
	}
	req := build(symbols)
	if req.Screen == nil {
		req.Period = a.Config.Scan.Period
	}
	req.Interval = a.Config.Scan.Interval
	req.MinBars = a.Config.Scan.MinBars

	report, err := a.Runner.Run(ctx, req)
	if err != nil {
		return err
	}
	if out.record {
		if _, err := a.Recorder.RecordRun(label, report); err != nil {
			a.Logger.Error("record run", zap.Error(err))
		}
	}
	return printReport(label, report, out.asJSON)
}

var tagPattern = regexp.MustCompile(`</?[a-z]+>`)

func printReport(label string, r *scan.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Print(html.UnescapeString(tagPattern.ReplaceAllString(notifier.FormatReport(label, r), "")))
	return nil
}

func screenNames() []string {
	names := make([]string, len(strategy.ScreenKinds))
	for i, k := range strategy.ScreenKinds {
		names[i] = string(k)
	}
	return names
}
