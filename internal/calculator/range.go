package calculator

import (
	"errors"
	"fmt"

	"Moonia/internal/model"
)

// CalculateAverageRange returns the mean daily high-low range of the last period bars.
// It approximates the average true range without the previous-close gap terms.
func CalculateAverageRange(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period {
		return 0, fmt.Errorf("%w: range(%d) needs %d bars, have %d", ErrNotEnoughData, period, period, len(bars))
	}
	return mean(dailyRanges(bars[len(bars)-period:])), nil
}

// RollingAverageRange returns the average range ending at every bar.
// Entries without a full window are NaN.
func RollingAverageRange(bars []model.OHLCV, period int) []float64 {
	return RollingSMA(dailyRanges(bars), period)
}

func dailyRanges(bars []model.OHLCV) []float64 {
	ranges := make([]float64, len(bars))
	for i, b := range bars {
		ranges[i] = b.High - b.Low
	}
	return ranges
}
