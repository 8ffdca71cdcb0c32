package strategy

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"Moonia/internal/model"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// makeSeries builds daily bars around the given closes with a fixed high-low range.
func makeSeries(closes []float64, dailyRange float64) *model.PriceSeries {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c + dailyRange/2,
			Low:   c - dailyRange/2,
			Close: c,
		}
	}
	return &model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// exampleCloses yields short=150, long=140, latest=155 over 51 bars.
func exampleCloses() []float64 {
	var closes []float64
	closes = append(closes, repeat(130, 21)...)
	closes = append(closes, repeat(140, 10)...)
	closes = append(closes, repeat(150, 18)...)
	closes = append(closes, 145, 155)
	return closes
}

func TestEvaluate_WorkedExample(t *testing.T) {
	series := makeSeries(exampleCloses(), 5)
	profile := model.RiskProfile{RiskTolerancePercent: 10, AccountEquity: 1000}

	sig, snap, err := Evaluate(series, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ShortAvg != 150 || snap.LongAvg != 140 || snap.Volatility != 5 || snap.LatestClose != 155 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if sig.Direction != model.DirectionBuy {
		t.Errorf("expected BUY, got %s", sig.Direction)
	}
	if sig.StopLoss != 145 {
		t.Errorf("expected stop loss 145, got %v", sig.StopLoss)
	}
	if sig.MaxRiskAmount != 100 {
		t.Errorf("expected max risk 100, got %v", sig.MaxRiskAmount)
	}
	if sig.PositionSize != 10 {
		t.Errorf("expected 10 shares, got %d", sig.PositionSize)
	}
	if math.Abs(sig.PercentDistanceFromLongAvg-10.714285714) > 1e-6 {
		t.Errorf("expected distance ~10.71%%, got %.4f", sig.PercentDistanceFromLongAvg)
	}
	if !snap.ShortRising() || !snap.LongRising() {
		t.Errorf("expected both averages rising, prev short=%v prev long=%v", snap.PrevShortAvg, snap.PrevLongAvg)
	}
}

func TestEvaluate_InsufficientHistory(t *testing.T) {
	profile := model.RiskProfile{RiskTolerancePercent: 10, AccountEquity: 1000}
	for _, n := range []int{0, 1, 14, 20, 49, 50} {
		_, _, err := Evaluate(makeSeries(repeat(100, n), 2), profile)
		if !errors.Is(err, ErrInsufficientHistory) {
			t.Errorf("%d bars: expected ErrInsufficientHistory, got %v", n, err)
		}
	}
	if _, _, err := Evaluate(makeSeries(repeat(100, MinBars), 2), profile); err != nil {
		t.Errorf("%d bars: unexpected error: %v", MinBars, err)
	}
}

func TestEvaluate_Direction(t *testing.T) {
	rising := make([]float64, 60)
	falling := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
		falling[i] = 200 - float64(i)
	}
	tests := []struct {
		name   string
		closes []float64
		want   model.Direction
	}{
		{"rising", rising, model.DirectionBuy},
		{"falling", falling, model.DirectionSell},
		{"flat", repeat(100, 60), model.DirectionHold},
	}
	profile := model.RiskProfile{RiskTolerancePercent: 50, AccountEquity: 1000}
	for _, tt := range tests {
		sig, _, err := Evaluate(makeSeries(tt.closes, 2), profile)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if sig.Direction != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, sig.Direction)
		}
	}
}

func TestDirection_TieIsHold(t *testing.T) {
	tests := []struct {
		short, long float64
		want        model.Direction
	}{
		{150, 140, model.DirectionBuy},
		{140, 150, model.DirectionSell},
		{140, 140, model.DirectionHold},
		{140.0000001, 140, model.DirectionBuy},
	}
	for _, tt := range tests {
		if got := Direction(tt.short, tt.long); got != tt.want {
			t.Errorf("Direction(%v, %v): expected %s, got %s", tt.short, tt.long, tt.want, got)
		}
	}
}

func TestEvaluate_ZeroVolatility(t *testing.T) {
	for _, equity := range []float64{100, 1000, 1e9} {
		sig, snap, err := Evaluate(makeSeries(repeat(100, 60), 0), model.RiskProfile{RiskTolerancePercent: 100, AccountEquity: equity})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.Volatility != 0 {
			t.Fatalf("expected zero volatility, got %v", snap.Volatility)
		}
		if sig.PositionSize != 0 {
			t.Errorf("equity %v: expected 0 shares at zero volatility, got %d", equity, sig.PositionSize)
		}
		if sig.StopLoss != 100 {
			t.Errorf("expected stop at the close, got %v", sig.StopLoss)
		}
	}
}

func TestEvaluate_InvalidProfile(t *testing.T) {
	series := makeSeries(exampleCloses(), 5)
	tests := []model.RiskProfile{
		{RiskTolerancePercent: -1, AccountEquity: 1000},
		{RiskTolerancePercent: 100.5, AccountEquity: 1000},
		{RiskTolerancePercent: math.NaN(), AccountEquity: 1000},
		{RiskTolerancePercent: 10, AccountEquity: 0},
		{RiskTolerancePercent: 10, AccountEquity: -50},
		{RiskTolerancePercent: 10, AccountEquity: math.Inf(1)},
		{RiskTolerancePercent: 10, AccountEquity: math.NaN()},
	}
	for _, p := range tests {
		if _, _, err := Evaluate(series, p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("profile %+v: expected ErrInvalidInput, got %v", p, err)
		}
	}
	for _, p := range []model.RiskProfile{{RiskTolerancePercent: 0, AccountEquity: 1}, {RiskTolerancePercent: 100, AccountEquity: 1}} {
		if _, _, err := Evaluate(series, p); err != nil {
			t.Errorf("profile %+v: unexpected error: %v", p, err)
		}
	}
}

func TestEvaluate_InvalidSeries(t *testing.T) {
	profile := model.RiskProfile{RiskTolerancePercent: 10, AccountEquity: 1000}
	if _, _, err := Evaluate(nil, profile); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil series: expected ErrInvalidInput, got %v", err)
	}

	series := makeSeries(exampleCloses(), 5)
	series.Bars[10].Time = series.Bars[9].Time
	if _, _, err := Evaluate(series, profile); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate date: expected ErrInvalidInput, got %v", err)
	}
}

func TestEvaluate_StopBelowClose(t *testing.T) {
	profile := model.RiskProfile{RiskTolerancePercent: 25, AccountEquity: 5000}
	for _, rng := range []float64{0.01, 1, 3.5, 20} {
		sig, snap, err := Evaluate(makeSeries(exampleCloses(), rng), profile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !(sig.StopLoss < snap.LatestClose) {
			t.Errorf("range %v: stop %v not below close %v", rng, sig.StopLoss, snap.LatestClose)
		}
		if sig.PositionSize < 0 {
			t.Errorf("range %v: negative position size %d", rng, sig.PositionSize)
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	series := makeSeries(exampleCloses(), 3.3)
	profile := model.RiskProfile{RiskTolerancePercent: 17, AccountEquity: 12345}
	sig1, snap1, err1 := Evaluate(series, profile)
	sig2, snap2, err2 := Evaluate(series, profile)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(sig1, sig2) || !reflect.DeepEqual(snap1, snap2) {
		t.Errorf("results differ between calls: %+v vs %+v", sig1, sig2)
	}
}

func TestPositionSize(t *testing.T) {
	tests := []struct {
		maxRisk, volatility float64
		want                int64
	}{
		{100, 5, 10},
		{99, 5, 9},
		{100, 0, 0},
		{0, 5, 0},
		{-10, 5, 0},
		{100, -1, 0},
		{5, 5, 0},
	}
	for _, tt := range tests {
		if got := PositionSize(tt.maxRisk, tt.volatility); got != tt.want {
			t.Errorf("PositionSize(%v, %v): expected %d, got %d", tt.maxRisk, tt.volatility, tt.want, got)
		}
	}
}
