package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"Moonia/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data API.
type AlpacaFetcher struct {
	Client *marketdata.Client
	Feed   marketdata.Feed
}

// NewAlpacaFetcher creates a fetcher for the given key pair. baseURL may be
// empty to use the Alpaca default.
func NewAlpacaFetcher(apiKey, apiSecret, baseURL string) *AlpacaFetcher {
	return &AlpacaFetcher{
		Client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		Feed: marketdata.IEX,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := time.Now().UTC()
	// weekends and holidays: ask for ~1.5x calendar days, trim afterwards
	start := end.AddDate(0, 0, -(days*3/2 + 10))

	raw, err := f.Client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Split,
		Feed:       f.Feed,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca get bars: %w", err)
	}

	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = model.OHLCV{
			Time:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		}
	}
	bars = Normalize(bars)
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
