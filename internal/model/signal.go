package model

// Direction is the trend-following recommendation.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Trend describes the direction in plain words.
func (d Direction) Trend() string {
	switch d {
	case DirectionBuy:
		return "bullish"
	case DirectionSell:
		return "bearish"
	default:
		return "unclear"
	}
}

// RiskProfile is the per-invocation risk input of an investor.
type RiskProfile struct {
	RiskTolerancePercent float64 `json:"risk_tolerance_percent"`
	AccountEquity        float64 `json:"account_equity"`
}

// IndicatorSnapshot holds the indicator values of the latest bar.
// PrevShortAvg and PrevLongAvg are the same averages one bar earlier.
type IndicatorSnapshot struct {
	ShortAvg     float64 `json:"short_avg"`
	LongAvg      float64 `json:"long_avg"`
	Volatility   float64 `json:"volatility"`
	LatestClose  float64 `json:"latest_close"`
	PrevShortAvg float64 `json:"prev_short_avg"`
	PrevLongAvg  float64 `json:"prev_long_avg"`
}

// ShortRising reports whether the short average rose over the last bar.
func (s IndicatorSnapshot) ShortRising() bool { return s.ShortAvg > s.PrevShortAvg }

// LongRising reports whether the long average rose over the last bar.
func (s IndicatorSnapshot) LongRising() bool { return s.LongAvg > s.PrevLongAvg }

// SignalResult is the output of the strategy engine.
type SignalResult struct {
	Direction                  Direction `json:"direction"`
	StopLoss                   float64   `json:"stop_loss"`
	MaxRiskAmount              float64   `json:"max_risk_amount"`
	PositionSize               int64     `json:"position_size"`
	PercentDistanceFromLongAvg float64   `json:"percent_distance_from_long_avg"`
}
