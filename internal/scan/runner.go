package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockScanner/internal/collector"
	"StockScanner/internal/model"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
)

// Failure is a symbol skipped by a batch.
type Failure struct {
	Symbol       string `json:"symbol"`
	Err          error  `json:"-"`
	Insufficient bool   `json:"insufficient"`
}

// Report is the outcome of one batch. Matches, Scores and Hits are filled
// according to the request kind.
type Report struct {
	Kind       string                 `json:"kind"`
	Matches    []model.ScanResult     `json:"matches,omitempty"`
	Scores     []model.ScoreBreakdown `json:"scores,omitempty"`
	Hits       []strategy.ScreenHit   `json:"hits,omitempty"`
	Failures   []Failure              `json:"failures,omitempty"`
	Scanned    int                    `json:"scanned"`
	Cancelled  bool                   `json:"cancelled"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Len is the number of collected results of the report's kind.
func (r *Report) Len() int {
	return len(r.Matches) + len(r.Scores) + len(r.Hits)
}

// Runner fetches symbols through its providers and evaluates them.
type Runner struct {
	Series       collector.SeriesProvider
	Fundamentals collector.FundamentalsProvider
	Limiter      *collector.Limiter
	Workers      int
	logger       *zap.Logger
}

// NewRunner wires the providers. A nil limiter disables pacing and a nil
// logger discards output.
func NewRunner(series collector.SeriesProvider, fundamentals collector.FundamentalsProvider,
	limiter *collector.Limiter, workers int, logger *zap.Logger) *Runner {
	if limiter == nil {
		limiter = collector.NewLimiter("unpaced", 0, 1)
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Series: series, Fundamentals: fundamentals, Limiter: limiter, Workers: workers, logger: logger}
}

// outcome is one symbol's slot in a batch.
type outcome struct {
	done      bool
	match     *model.ScanResult
	score     *model.ScoreBreakdown
	candidate *strategy.Candidate
	failure   *Failure
}

// Run validates req and evaluates every symbol. Per-symbol failures, panics
// included, are logged and skipped. A cancelled ctx stops the batch between
// symbols; the report then has Cancelled set and holds the results collected
// so far. Only an invalid request returns an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", req.Kind(), err)
	}
	if err := r.check(req); err != nil {
		return nil, err
	}

	symbols := normalize(req.Symbols)
	report := &Report{Kind: req.Kind(), StartedAt: time.Now()}
	r.logger.Info("scan started",
		zap.String("kind", report.Kind),
		zap.Int("symbols", len(symbols)),
		zap.String("period", req.Period),
		zap.String("interval", req.Interval),
	)

	outcomes := make([]outcome, len(symbols))
	var g errgroup.Group
	g.SetLimit(r.Workers)
	for i, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("symbol evaluation panicked", zap.String("symbol", sym), zap.Any("panic", p))
					outcomes[i] = outcome{done: true, failure: &Failure{Symbol: sym, Err: fmt.Errorf("%s: panic: %v", sym, p)}}
				}
			}()
			outcomes[i] = r.process(ctx, req, sym)
			return nil
		})
	}
	_ = g.Wait()

	r.collect(report, req, outcomes)
	report.Cancelled = ctx.Err() != nil
	report.FinishedAt = time.Now()
	r.logger.Info("scan finished",
		zap.String("kind", report.Kind),
		zap.Int("scanned", report.Scanned),
		zap.Int("results", report.Len()),
		zap.Int("failures", len(report.Failures)),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (r *Runner) check(req Request) error {
	if r.Series == nil && (req.Scanner != nil || req.Scoring != nil || (req.Screen != nil && req.Screen.Kind.Technical())) {
		return fmt.Errorf("scan %s: %w", req.Kind(), model.Invalid("data_source", "no series provider configured"))
	}
	if r.Fundamentals == nil && (req.Scoring != nil || req.Screen != nil) {
		return fmt.Errorf("scan %s: %w", req.Kind(), model.Invalid("data_source", "no fundamentals provider configured"))
	}
	return nil
}

func (r *Runner) process(ctx context.Context, req Request, symbol string) outcome {
	if ctx.Err() != nil {
		return outcome{}
	}
	switch {
	case req.Scanner != nil:
		return r.runScanner(ctx, req, symbol)
	case req.Scoring != nil:
		return r.runScoring(ctx, req, symbol)
	default:
		return r.runScreen(ctx, req, symbol)
	}
}

func (r *Runner) runScanner(ctx context.Context, req Request, symbol string) outcome {
	s, err := r.fetchSeries(ctx, req, symbol)
	if err != nil {
		return r.fail(ctx, symbol, err)
	}
	res := scanner.Scan(s, req.Scanner)
	return outcome{done: true, match: &res}
}

func (r *Runner) runScoring(ctx context.Context, req Request, symbol string) outcome {
	s, err := r.fetchSeries(ctx, req, symbol)
	if err != nil {
		return r.fail(ctx, symbol, err)
	}
	tech, err := strategy.TechnicalFromSeries(s)
	if err != nil {
		return r.fail(ctx, symbol, fmt.Errorf("%s: %w", symbol, err))
	}
	f, err := r.fetchFundamentals(ctx, symbol)
	if err != nil {
		return r.fail(ctx, symbol, err)
	}
	sb := strategy.Evaluate(f, tech, *req.Scoring)
	sb.Symbol = symbol
	return outcome{done: true, score: &sb}
}

func (r *Runner) runScreen(ctx context.Context, req Request, symbol string) outcome {
	c := strategy.Candidate{}
	if req.Screen.Kind.Technical() {
		s, err := r.fetchSeries(ctx, req, symbol)
		if err != nil {
			return r.fail(ctx, symbol, err)
		}
		if c.Technical, err = strategy.TechnicalFromSeries(s); err != nil {
			return r.fail(ctx, symbol, fmt.Errorf("%s: %w", symbol, err))
		}
	}
	f, err := r.fetchFundamentals(ctx, symbol)
	if err != nil {
		return r.fail(ctx, symbol, err)
	}
	f.Symbol = symbol
	c.Fundamentals = f
	return outcome{done: true, candidate: &c}
}

func (r *Runner) fetchSeries(ctx context.Context, req Request, symbol string) (model.Series, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return model.Series{}, err
	}
	s, err := r.Series.FetchSeries(ctx, symbol, req.Period, req.Interval)
	if err != nil {
		return model.Series{}, err
	}
	if need := max(req.MinBars, 1); s.Len() < need {
		return model.Series{}, fmt.Errorf("%s: %w: %d bars, need %d", symbol, model.ErrInsufficientData, s.Len(), need)
	}
	return s, nil
}

func (r *Runner) fetchFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return model.Fundamentals{}, err
	}
	return r.Fundamentals.FetchFundamentals(ctx, symbol)
}

// fail logs one skipped symbol. Work interrupted by cancellation is dropped
// without a log line.
func (r *Runner) fail(ctx context.Context, symbol string, err error) outcome {
	if ctx.Err() != nil {
		return outcome{}
	}
	f := &Failure{Symbol: symbol, Err: err, Insufficient: errors.Is(err, model.ErrInsufficientData)}
	if f.Insufficient {
		r.logger.Info("insufficient data", zap.String("symbol", symbol), zap.Error(err))
	} else {
		r.logger.Warn("fetch failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return outcome{done: true, failure: f}
}

func (r *Runner) collect(report *Report, req Request, outcomes []outcome) {
	var candidates []strategy.Candidate
	minScore := 0
	if req.Scoring != nil {
		minScore = req.Scoring.MinScore
	}
	for _, o := range outcomes {
		if !o.done {
			continue
		}
		report.Scanned++
		switch {
		case o.failure != nil:
			report.Failures = append(report.Failures, *o.failure)
		case o.match != nil:
			if o.match.Match {
				report.Matches = append(report.Matches, *o.match)
			}
		case o.score != nil:
			if o.score.Score >= minScore {
				report.Scores = append(report.Scores, *o.score)
			}
		case o.candidate != nil:
			candidates = append(candidates, *o.candidate)
		}
	}

	if req.Scanner != nil && req.Scanner.Kind().Ranked() {
		sort.SliceStable(report.Matches, func(i, j int) bool {
			return report.Matches[i].SortKey > report.Matches[j].SortKey
		})
	}
	sort.SliceStable(report.Scores, func(i, j int) bool {
		a, b := report.Scores[i], report.Scores[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.FundamentalPoints > b.FundamentalPoints
	})
	if req.Screen != nil {
		report.Hits = req.Screen.Run(candidates)
	}
}
