package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"Moonia/internal/model"
)

// DefaultLookbackDays covers one trading year.
const DefaultLookbackDays = 250

// Collector fetches and normalizes daily price history.
type Collector struct {
	Fetcher      Fetcher
	LookbackDays int
	Logger       *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, lookbackDays int, logger *zap.Logger) *Collector {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, LookbackDays: lookbackDays, Logger: logger}
}

// Collect fetches the daily bars of symbol, oldest first with one bar per date.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("empty symbol")
	}

	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch daily bars: no data for %s", symbol)
	}

	normalized := Normalize(bars)
	if dropped := len(bars) - len(normalized); dropped > 0 {
		c.Logger.Warn("dropped duplicate bars", zap.String("symbol", symbol), zap.Int("count", dropped))
	}
	c.Logger.Debug("collected bars",
		zap.String("symbol", symbol),
		zap.String("source", c.Fetcher.Name()),
		zap.Int("bars", len(normalized)),
	)

	return &model.PriceSeries{
		Symbol:    symbol,
		Bars:      normalized,
		FetchedAt: time.Now(),
	}, nil
}

// Normalize sorts bars by time and keeps the last bar seen for each calendar date.
func Normalize(bars []model.OHLCV) []model.OHLCV {
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := make([]model.OHLCV, 0, len(sorted))
	for _, b := range sorted {
		if n := len(out); n > 0 && sameDate(out[n-1].Time, b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
