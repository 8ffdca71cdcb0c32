package calculator

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotEnoughData is returned when a window is longer than the available data.
var ErrNotEnoughData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("%w: SMA(%d) needs %d prices, have %d", ErrNotEnoughData, period, period, len(prices))
	}
	return mean(prices[len(prices)-period:]), nil
}

// RollingSMA returns the SMA ending at every index of prices.
// Entries without a full window are NaN.
func RollingSMA(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		if period <= 0 || i+1 < period {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean(prices[i+1-period : i+1])
	}
	return out
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
