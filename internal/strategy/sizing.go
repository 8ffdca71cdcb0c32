package strategy

import (
	"math"

	"Moonia/internal/model"
)

// Direction maps the average crossover to a recommendation.
// Exact equality is HOLD.
func Direction(shortAvg, longAvg float64) model.Direction {
	switch {
	case shortAvg > longAvg:
		return model.DirectionBuy
	case shortAvg < longAvg:
		return model.DirectionSell
	default:
		return model.DirectionHold
	}
}

// MaxRiskAmount is the share of equity the investor is willing to lose on one trade.
func MaxRiskAmount(p model.RiskProfile) float64 {
	return p.AccountEquity * p.RiskTolerancePercent / 100
}

// PositionSize returns the whole number of shares whose loss at the stop
// stays within maxRisk. Zero volatility yields zero shares.
func PositionSize(maxRisk, volatility float64) int64 {
	stopDistance := StopMultiplier * volatility
	if stopDistance <= 0 || maxRisk <= 0 {
		return 0
	}
	shares := math.Floor(maxRisk / stopDistance)
	if shares < 0 || math.IsNaN(shares) {
		return 0
	}
	if shares >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(shares)
}
