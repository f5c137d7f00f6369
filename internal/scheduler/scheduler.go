package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockScanner/internal/collector"
	"StockScanner/internal/config"
	"StockScanner/internal/notifier"
	"StockScanner/internal/recorder"
	"StockScanner/internal/scan"
	"StockScanner/internal/scanner"
	"StockScanner/internal/strategy"
)

// Sender delivers a formatted report.
type Sender interface {
	SendReport(ctx context.Context, text string) error
}

// Scheduler runs the configured jobs on their cron schedules and on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Config   *config.Config
	Runner   *scan.Runner
	Universe collector.UniverseProvider
	Notifier Sender
	Recorder recorder.Recorder
	Ctx      context.Context

	logger  *zap.Logger
	entries map[string]cron.EntryID
	mu      sync.Mutex
	running map[string]bool
}

// NewScheduler creates a new Scheduler. A nil notifier disables messages.
func NewScheduler(ctx context.Context, cfg *config.Config, runner *scan.Runner, universe collector.UniverseProvider,
	sender Sender, rec recorder.Recorder, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		Config:   cfg,
		Runner:   runner,
		Universe: universe,
		Notifier: sender,
		Recorder: rec,
		Ctx:      ctx,
		logger:   logger,
		entries:  map[string]cron.EntryID{},
		running:  map[string]bool{},
	}
}

// RegisterAll schedules every job that has a cron expression.
func (s *Scheduler) RegisterAll() (int, error) {
	n := 0
	for _, job := range s.Config.Jobs {
		if job.Cron == "" {
			continue
		}
		name := job.Name
		id, err := s.Cron.AddFunc(job.Cron, func() { s.runScheduled(name) })
		if err != nil {
			return n, fmt.Errorf("register job %s: %w", name, err)
		}
		s.entries[name] = id
		n++
	}
	return n, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runScheduled(name string) {
	if _, err := s.RunJob(s.Ctx, name); err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
	}
}

// RunJob executes a configured job now. A job already running is skipped.
func (s *Scheduler) RunJob(ctx context.Context, name string) (*scan.Report, error) {
	job, ok := s.Config.Job(name)
	if !ok {
		return nil, fmt.Errorf("unknown job %q", name)
	}

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.logger.Warn("job still running, skipped", zap.String("job", name))
		return nil, fmt.Errorf("job %s is already running", name)
	}
	s.running[name] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	symbols, err := s.Universe.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	req, err := s.Config.Request(job, symbols)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, job.Name, req, job.Notify)
}

// execute runs req, records the report and optionally sends it.
func (s *Scheduler) execute(ctx context.Context, label string, req scan.Request, notify bool) (*scan.Report, error) {
	s.logger.Info("running job", zap.String("job", label), zap.String("kind", req.Kind()))
	report, err := s.Runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.Recorder.RecordRun(label, report); err != nil {
		s.logger.Error("record run", zap.String("job", label), zap.Error(err))
	}
	if notify {
		s.trySend(ctx, notifier.FormatReport(label, report))
	}
	return report, nil
}

// adhoc builds a request over the universe using the scan defaults.
func (s *Scheduler) adhoc(ctx context.Context, build func(symbols []string) scan.Request) (scan.Request, error) {
	symbols, err := s.Universe.ListSymbols(ctx)
	if err != nil {
		return scan.Request{}, fmt.Errorf("list symbols: %w", err)
	}
	req := build(symbols)
	req.Period = s.Config.Scan.Period
	req.Interval = s.Config.Scan.Interval
	req.MinBars = s.Config.Scan.MinBars
	return req, nil
}

const helpText = `Komutlar:
/scan &lt;tarayıcı&gt; - varsayılan parametrelerle tarama
/score - temel + teknik puanlama
/screen &lt;filtre&gt; - temel analiz filtresi
/run &lt;iş&gt; - tanımlı işi çalıştır
/jobs - tanımlı işler
/help - bu mesaj`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var (
		label string
		req   scan.Request
		err   error
	)
	switch strings.ToLower(fields[0]) {
	case "/jobs":
		return s.formatJobs()
	case "/run":
		report, err := s.RunJob(ctx, arg)
		if err != nil {
			return "❌ " + err.Error()
		}
		return notifier.FormatReport(arg, report)
	case "/scan":
		kind, perr := scanner.ParseKind(arg)
		if perr != nil {
			return "❌ " + perr.Error() + "\n" + kindList()
		}
		p, _ := scanner.Default(kind)
		label = string(kind)
		req, err = s.adhoc(ctx, func(symbols []string) scan.Request { return scan.ForScanner(symbols, p) })
	case "/score":
		label = "scoring"
		req, err = s.adhoc(ctx, func(symbols []string) scan.Request { return scan.ForScoring(symbols, s.Config.Scoring) })
	case "/screen":
		kind, perr := strategy.ParseScreen(arg)
		if perr != nil {
			return "❌ " + perr.Error()
		}
		label = "screen " + string(kind)
		req, err = s.adhoc(ctx, func(symbols []string) scan.Request {
			return scan.ForScreen(symbols, strategy.DefaultScreen(kind))
		})
	default:
		return helpText
	}
	if err != nil {
		return "❌ " + err.Error()
	}
	report, err := s.execute(ctx, label, req, false)
	if err != nil {
		return "❌ " + err.Error()
	}
	return notifier.FormatReport(label, report)
}

func (s *Scheduler) formatJobs() string {
	if len(s.Config.Jobs) == 0 {
		return "Tanımlı iş yok."
	}
	jobs := append([]config.Job(nil), s.Config.Jobs...)
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	var b strings.Builder
	b.WriteString("🗂 <b>İşler</b>\n")
	for _, j := range jobs {
		sched := j.Cron
		if sched == "" {
			sched = "manuel"
		}
		b.WriteString(fmt.Sprintf("• %s: %s (%s)", j.Name, j.Label(), sched))
		if id, ok := s.entries[j.Name]; ok {
			if next := s.Cron.Entry(id).Next; !next.IsZero() {
				b.WriteString(" → " + next.Format("2006-01-02 15:04"))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func kindList() string {
	names := make([]string, len(scanner.Kinds))
	for i, k := range scanner.Kinds {
		names[i] = string(k)
	}
	return "Tarayıcılar: " + strings.Join(names, ", ")
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendReport(ctx, text); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}

// cronLogger adapts zap to cron's logging interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
