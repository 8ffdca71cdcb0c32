package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"Moonia/internal/analysis"
	"Moonia/internal/collector"
	"Moonia/internal/config"
	"Moonia/internal/explainer"
	"Moonia/internal/metrics"
	"Moonia/internal/model"
	"Moonia/internal/notifier"
	"Moonia/internal/scheduler"
)

func main() {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	var (
		cfgPath = flag.String("config", "configs/config.yaml", "path to the YAML config file")
		explain = flag.Bool("explain", false, "attach an AI explanation to each report")
		asJSON  = flag.Bool("json", false, "print reports as JSON")
		watch   = flag.Bool("watch", false, "run the daily watchlist job and Telegram commands")
		history = flag.Bool("history", false, "append the last 60 bars with their indicators to the text report")
		risk    = flag.Float64("risk", 0, "risk tolerance percent in [0,100], overrides config")
		equity  = flag.Float64("equity", 0, "account equity, overrides config")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: moonia [flags] TICKER...\n       moonia -watch [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" && !flagSet("config") {
		*cfgPath = v
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if flagSet("risk") {
		cfg.Risk.TolerancePercent = *risk
	}
	if flagSet("equity") {
		cfg.Risk.AccountEquity = *equity
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	fetcher := newFetcher(cfg)
	logger.Info("data source", zap.String("provider", fetcher.Name()))
	col := collector.NewCollector(fetcher, cfg.DataSource.LookbackDays, logger)

	var narrator analysis.Narrator
	if cfg.ExplainerEnabled() {
		narrator = explainer.New(explainer.Config{
			APIURL:  cfg.Explainer.APIURL,
			APIKey:  cfg.Explainer.APIKey,
			Model:   cfg.Explainer.Model,
			Timeout: cfg.Explainer.Timeout,
			Proxy:   cfg.Proxy,
		}, logger)
	} else if *explain {
		logger.Warn("explanations requested but explainer.api_key is not set")
	}

	m := metrics.NewMetrics()
	analyzer := analysis.NewAnalyzer(col, narrator, cfg.Explainer.Strategy, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := model.RiskProfile{
		RiskTolerancePercent: cfg.Risk.TolerancePercent,
		AccountEquity:        cfg.Risk.AccountEquity,
	}
	investor := analysis.Investor{
		Goal:        cfg.Investor.Goal,
		Experience:  cfg.Investor.Experience,
		InsightMode: cfg.Investor.InsightMode,
	}

	if *watch {
		if err := cfg.ValidateWatch(); err != nil {
			logger.Fatal("watch config validation", zap.Error(err))
		}
		opts := scheduler.Options{
			Watchlist: cfg.Watchlist,
			Profile:   profile,
			Investor:  investor,
			Explain:   cfg.ExplainerEnabled(),
		}
		if err := runWatch(ctx, cfg, analyzer, m, opts, logger); err != nil {
			logger.Fatal("watch mode", zap.Error(err))
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	for _, ticker := range flag.Args() {
		report, err := analyzer.Run(ctx, analysis.Request{
			Symbol:   ticker,
			Profile:  profile,
			Investor: investor,
			Explain:  *explain,
		})
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "⚠️ %s: %v. Please check the ticker symbol.\n", ticker, err)
			continue
		}
		if err := printReport(report, *asJSON, *history, cfg.Investor.InsightMode); err != nil {
			logger.Error("print report", zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case config.ProviderAlpaca:
		return collector.NewAlpacaFetcher(cfg.DataSource.APIKey, cfg.DataSource.APISecret, cfg.DataSource.BaseURL)
	case config.ProviderREST:
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 100}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func printReport(report *analysis.Report, asJSON, history bool, insightMode string) error {
	if !asJSON {
		fmt.Println(notifier.FormatReport(report, insightMode))
		if history {
			fmt.Println()
			fmt.Println(notifier.FormatHistory(report))
		}
		fmt.Println()
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = os.Stdout.Write(pretty.Pretty(data))
	return err
}

func runWatch(ctx context.Context, cfg *config.Config, analyzer *analysis.Analyzer, m *metrics.Metrics, opts scheduler.Options, logger *zap.Logger) error {
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)

	sched := scheduler.NewScheduler(ctx, analyzer, tn, opts, logger)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info("telegram polling started")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing watchlist task now")
		go sched.RunWatchlistNow()
	}

	logger.Info("Moonia is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	logger.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
