// Package strategy turns a daily price series into a moving-average crossover
// signal with a volatility-based stop and position size.
//
// Canonical definitions:
//   - short/long average: mean close over the last 20 / 50 bars
//   - volatility: mean (high - low) over the last 14 bars
//   - direction: BUY if short > long, SELL if short < long, HOLD on exact equality
package strategy

import (
	"errors"
	"fmt"
	"math"

	"Moonia/internal/calculator"
	"Moonia/internal/model"
)

const (
	ShortWindow      = 20
	LongWindow       = 50
	VolatilityWindow = 14
	StopMultiplier   = 2.0

	// MinBars is the longest window plus the bar used for the previous averages.
	MinBars = LongWindow + 1
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvalidInput        = errors.New("invalid input")
)

// Snapshot computes the indicator values of the latest bar.
func Snapshot(series *model.PriceSeries) (*model.IndicatorSnapshot, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	closes := series.Closes()
	prev := closes[:len(closes)-1]

	snap := &model.IndicatorSnapshot{LatestClose: closes[len(closes)-1]}
	var err error
	if snap.ShortAvg, err = calculator.CalculateSMA(closes, ShortWindow); err != nil {
		return nil, historyError(err)
	}
	if snap.LongAvg, err = calculator.CalculateSMA(closes, LongWindow); err != nil {
		return nil, historyError(err)
	}
	if snap.PrevShortAvg, err = calculator.CalculateSMA(prev, ShortWindow); err != nil {
		return nil, historyError(err)
	}
	if snap.PrevLongAvg, err = calculator.CalculateSMA(prev, LongWindow); err != nil {
		return nil, historyError(err)
	}
	if snap.Volatility, err = calculator.CalculateAverageRange(series.Bars, VolatilityWindow); err != nil {
		return nil, historyError(err)
	}
	return snap, nil
}

// Evaluate derives the signal and sizing for series under profile.
// It is a pure function: identical inputs give identical results.
func Evaluate(series *model.PriceSeries, profile model.RiskProfile) (*model.SignalResult, *model.IndicatorSnapshot, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, nil, err
	}
	snap, err := Snapshot(series)
	if err != nil {
		return nil, nil, err
	}
	return Derive(snap, profile), snap, nil
}

// Derive computes the signal from an already computed snapshot.
// The profile is assumed valid.
func Derive(snap *model.IndicatorSnapshot, profile model.RiskProfile) *model.SignalResult {
	maxRisk := MaxRiskAmount(profile)
	res := &model.SignalResult{
		Direction:     Direction(snap.ShortAvg, snap.LongAvg),
		StopLoss:      snap.LatestClose - StopMultiplier*snap.Volatility,
		MaxRiskAmount: maxRisk,
		PositionSize:  PositionSize(maxRisk, snap.Volatility),
	}
	if snap.LongAvg != 0 {
		res.PercentDistanceFromLongAvg = (snap.LatestClose - snap.LongAvg) / snap.LongAvg * 100
	}
	return res
}

// ValidateProfile checks the risk tolerance and equity domain.
func ValidateProfile(p model.RiskProfile) error {
	if math.IsNaN(p.RiskTolerancePercent) || p.RiskTolerancePercent < 0 || p.RiskTolerancePercent > 100 {
		return fmt.Errorf("%w: risk tolerance %v%% outside [0,100]", ErrInvalidInput, p.RiskTolerancePercent)
	}
	if math.IsNaN(p.AccountEquity) || math.IsInf(p.AccountEquity, 0) || p.AccountEquity <= 0 {
		return fmt.Errorf("%w: account equity must be positive and finite, got %v", ErrInvalidInput, p.AccountEquity)
	}
	return nil
}

func validateSeries(series *model.PriceSeries) error {
	if series == nil {
		return fmt.Errorf("%w: nil price series", ErrInvalidInput)
	}
	for i := 1; i < len(series.Bars); i++ {
		if !series.Bars[i].Time.After(series.Bars[i-1].Time) {
			return fmt.Errorf("%w: bars not strictly ascending at index %d", ErrInvalidInput, i)
		}
	}
	if len(series.Bars) < MinBars {
		return fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientHistory, series.Symbol, len(series.Bars), MinBars)
	}
	return nil
}

func historyError(err error) error {
	return fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
}
