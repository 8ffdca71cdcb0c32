package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"Moonia/internal/analysis"
	"Moonia/internal/model"
	"Moonia/internal/notifier"
)

// Runner performs one analysis.
type Runner interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Report, error)
}

// Sender delivers a chat message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Options are the per-run inputs shared by scheduled and on-demand analyses.
type Options struct {
	Watchlist []string
	Profile   model.RiskProfile
	Investor  analysis.Investor
	Explain   bool
}

const helpText = "🌕 <b>Moonia commands</b>\n" +
	"• /analyze TICKER: analyze one ticker now\n" +
	"• /history TICKER: the last 60 bars with their indicators\n" +
	"• /watchlist: show the watched tickers\n" +
	"• /help: this message"

// Scheduler runs the daily watchlist job and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer Runner
	Notifier Sender
	Options  Options
	Logger   *zap.Logger
	Ctx      context.Context

	// mu serializes analyses so scheduled and on-demand runs never overlap.
	mu sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, opts Options, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		Analyzer: runner,
		Notifier: sender,
		Options:  opts,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register adds the daily watchlist job.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.watchlistTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Int("watchlist", len(s.Options.Watchlist)))
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunWatchlistNow executes the watchlist job immediately.
func (s *Scheduler) RunWatchlistNow() {
	s.watchlistTask()
}

func (s *Scheduler) watchlistTask() {
	s.Logger.Info("running watchlist task", zap.Strings("symbols", s.Options.Watchlist))
	for _, symbol := range s.Options.Watchlist {
		if s.Ctx.Err() != nil {
			return
		}
		s.trySend(s.analyze(s.Ctx, symbol, s.formatReport))
	}
}

func (s *Scheduler) formatReport(r *analysis.Report) string {
	return notifier.FormatReport(r, s.Options.Investor.InsightMode)
}

// analyze runs one symbol and returns the chat text, success or not.
func (s *Scheduler) analyze(ctx context.Context, symbol string, render func(*analysis.Report) string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.Analyzer.Run(ctx, analysis.Request{
		Symbol:   symbol,
		Profile:  s.Options.Profile,
		Investor: s.Options.Investor,
		Explain:  s.Options.Explain,
	})
	if err != nil {
		s.Logger.Error("analysis failed", zap.String("symbol", symbol), zap.Error(err))
		return notifier.FormatFailure(symbol, err)
	}
	return render(report)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	name, arg := parseCommand(command)
	switch name {
	case "/analyze":
		if arg == "" {
			return "Usage: /analyze TICKER"
		}
		return s.analyze(ctx, arg, s.formatReport)
	case "/history":
		if arg == "" {
			return "Usage: /history TICKER"
		}
		return s.analyze(ctx, arg, notifier.FormatHistory)
	case "/watchlist":
		return notifier.FormatWatchlist(s.Options.Watchlist)
	default:
		return helpText
	}
}

// parseCommand splits "/cmd@bot ARG" into its lower-cased command and first argument.
func parseCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	var arg string
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}
	return name, arg
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Send(s.Ctx, text); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}

// cronLogger routes cron's internal logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
