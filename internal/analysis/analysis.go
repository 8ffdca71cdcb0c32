// Package analysis runs one end-to-end analysis of a ticker: fetch history,
// evaluate the strategy, and optionally attach a narrative explanation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Moonia/internal/calculator"
	"Moonia/internal/collector"
	"Moonia/internal/explainer"
	"Moonia/internal/metrics"
	"Moonia/internal/model"
	"Moonia/internal/strategy"
)

// HistoryRows is the number of trailing bars included in a report.
const HistoryRows = 60

// Narrator explains a signal in plain words. Implementations return display
// text even on failure.
type Narrator interface {
	Explain(ctx context.Context, ticker, direction, strategy string) string
}

// Investor carries the presentation preferences of the person asking.
type Investor struct {
	Goal        string `json:"goal"`
	Experience  string `json:"experience"`
	InsightMode string `json:"insight_mode"`
}

// Request is the input of one analysis run.
type Request struct {
	Symbol   string
	Profile  model.RiskProfile
	Investor Investor
	Explain  bool
}

// HistoryPoint is one row of the trailing history table. Indicator values are
// nil where the window is not yet full.
type HistoryPoint struct {
	Time       time.Time `json:"time"`
	Close      float64   `json:"close"`
	ShortAvg   *float64  `json:"short_avg"`
	LongAvg    *float64  `json:"long_avg"`
	Volatility *float64  `json:"volatility"`
}

// Report is the complete result of a run.
type Report struct {
	RunID       string                  `json:"run_id"`
	Symbol      string                  `json:"symbol"`
	Source      string                  `json:"source"`
	GeneratedAt time.Time               `json:"generated_at"`
	Profile     model.RiskProfile       `json:"profile"`
	Investor    Investor                `json:"investor"`
	Snapshot    model.IndicatorSnapshot `json:"snapshot"`
	Signal      model.SignalResult      `json:"signal"`
	Explanation string                  `json:"explanation,omitempty"`
	History     []HistoryPoint          `json:"history"`
}

// Analyzer wires the collector, strategy and optional narrator together.
type Analyzer struct {
	Collector *collector.Collector
	Narrator  Narrator
	Strategy  string
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// NewAnalyzer creates an Analyzer. narrator and m may be nil.
func NewAnalyzer(col *collector.Collector, narrator Narrator, strategyLabel string, m *metrics.Metrics, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategyLabel == "" {
		strategyLabel = explainer.DefaultStrategy
	}
	return &Analyzer{
		Collector: col,
		Narrator:  narrator,
		Strategy:  strategyLabel,
		Metrics:   m,
		Logger:    logger,
	}
}

// Run executes one analysis. Strategy errors are returned unchanged so callers
// can match strategy.ErrInsufficientHistory and strategy.ErrInvalidInput.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Report, error) {
	runID := uuid.NewString()
	log := a.Logger.With(zap.String("run_id", runID), zap.String("symbol", req.Symbol))

	if err := strategy.ValidateProfile(req.Profile); err != nil {
		a.fail("invalid_input")
		return nil, err
	}

	fetchStart := time.Now()
	series, err := a.Collector.Collect(ctx, req.Symbol)
	if a.Metrics != nil {
		a.Metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		a.fail("fetch")
		log.Warn("collect failed", zap.Error(err))
		return nil, fmt.Errorf("collect %s: %w", req.Symbol, err)
	}

	sig, snap, err := strategy.Evaluate(series, req.Profile)
	if err != nil {
		switch {
		case errors.Is(err, strategy.ErrInsufficientHistory):
			a.fail("insufficient_history")
		default:
			a.fail("invalid_input")
		}
		log.Warn("evaluate failed", zap.Error(err))
		return nil, err
	}

	report := &Report{
		RunID:       runID,
		Symbol:      series.Symbol,
		Source:      a.Collector.Fetcher.Name(),
		GeneratedAt: time.Now(),
		Profile:     req.Profile,
		Investor:    req.Investor,
		Snapshot:    *snap,
		Signal:      *sig,
		History:     History(series, HistoryRows),
	}

	if req.Explain && a.Narrator != nil {
		report.Explanation = a.Narrator.Explain(ctx, series.Symbol, string(sig.Direction), a.Strategy)
		if explainer.IsFailure(report.Explanation) && a.Metrics != nil {
			a.Metrics.ExplainerFailures.Inc()
		}
	}

	if a.Metrics != nil {
		a.Metrics.AnalysesTotal.WithLabelValues(string(sig.Direction)).Inc()
	}
	log.Info("analysis complete",
		zap.String("direction", string(sig.Direction)),
		zap.Float64("short_avg", snap.ShortAvg),
		zap.Float64("long_avg", snap.LongAvg),
		zap.Float64("volatility", snap.Volatility),
		zap.Int64("position_size", sig.PositionSize),
	)
	return report, nil
}

func (a *Analyzer) fail(reason string) {
	if a.Metrics != nil {
		a.Metrics.FailuresTotal.WithLabelValues(reason).Inc()
	}
}

// History returns the last rows bars with their rolling indicator values.
func History(series *model.PriceSeries, rows int) []HistoryPoint {
	closes := series.Closes()
	short := calculator.RollingSMA(closes, strategy.ShortWindow)
	long := calculator.RollingSMA(closes, strategy.LongWindow)
	vol := calculator.RollingAverageRange(series.Bars, strategy.VolatilityWindow)

	from := len(series.Bars) - rows
	if from < 0 {
		from = 0
	}
	points := make([]HistoryPoint, 0, len(series.Bars)-from)
	for i := from; i < len(series.Bars); i++ {
		points = append(points, HistoryPoint{
			Time:       series.Bars[i].Time,
			Close:      closes[i],
			ShortAvg:   defined(short[i]),
			LongAvg:    defined(long[i]),
			Volatility: defined(vol[i]),
		})
	}
	return points
}

func defined(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
