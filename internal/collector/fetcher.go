package collector

import (
	"context"

	"Moonia/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns up to days of the most recent daily bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}
