package collector

import (
	"context"
	"time"

	"Moonia/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateMockBars(m.Price, days), nil
}

// generateMockBars produces a gentle uptrend around basePrice ending yesterday.
func generateMockBars(basePrice float64, count int) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
