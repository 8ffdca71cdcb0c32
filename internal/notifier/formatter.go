package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"Moonia/internal/analysis"
	"Moonia/internal/config"
	"Moonia/internal/strategy"
)

// Disclaimer closes every report.
const Disclaimer = "🌕 <i>Disclaimer: Moonia provides educational insights only. No financial advice is given. Invest responsibly.</i>"

// money renders an amount rounded half away from zero to cents.
func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

func risingWord(up bool) string {
	if up {
		return "rising"
	}
	return "falling"
}

// FormatReport renders a report as Telegram HTML. insightMode selects the
// Simple or Advanced breakdown; anything else is treated as Simple.
func FormatReport(r *analysis.Report, insightMode string) string {
	var b strings.Builder
	snap, sig := r.Snapshot, r.Signal
	trend := sig.Direction.Trend()
	goal := strings.ToLower(r.Investor.Goal)
	experience := strings.ToLower(r.Investor.Experience)

	dist := sig.PercentDistanceFromLongAvg
	side := "above"
	if dist <= 0 {
		side = "below"
	}

	b.WriteString(fmt.Sprintf("🌕 <b>Moonia</b> | %s | %s\n\n", r.Symbol, r.GeneratedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("<b>Recommendation: %s</b>\n", sig.Direction))
	b.WriteString(fmt.Sprintf("🔺 Price is %.2f%% %s the %d-day average. The short-term average is %s, and the long-term average is %s.\n\n",
		math.Abs(dist), side, strategy.LongWindow, risingWord(snap.ShortRising()), risingWord(snap.LongRising())))

	b.WriteString("🧠 <b>Moonia Strategy Insight</b>\n")
	b.WriteString(fmt.Sprintf("  🎯 Buy Target Zone: around %s\n", money(snap.LatestClose)))
	b.WriteString(fmt.Sprintf("  🛑 Suggested Stop Loss: %s\n", money(sig.StopLoss)))
	b.WriteString(fmt.Sprintf("  📦 Recommended Position Size: %d shares\n", sig.PositionSize))
	b.WriteString(fmt.Sprintf("  💸 Max Risk Amount: %s\n", money(sig.MaxRiskAmount)))
	if goal != "" && experience != "" {
		b.WriteString(fmt.Sprintf("  📈 <i>Trend is %s, suitable for %s and %s investors.</i>\n", trend, goal, experience))
		b.WriteString(fmt.Sprintf("\n✅ <b>Your %s goal aligns with the current %s momentum.</b>\n", goal, trend))
	}

	b.WriteString("\n📉 <b>Why this makes sense</b>\n")
	if insightMode == config.InsightAdvanced {
		writeAdvanced(&b, r)
	} else {
		writeSimple(&b, r, side)
	}

	if r.Explanation != "" {
		b.WriteString("\n🤖 <b>Moonia AI's Take</b>\n")
		b.WriteString(html.EscapeString(r.Explanation))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(Disclaimer)
	return b.String()
}

func writeAdvanced(b *strings.Builder, r *analysis.Report) {
	snap, sig := r.Snapshot, r.Signal
	b.WriteString(fmt.Sprintf("  • %d-day MA: %s\n", strategy.ShortWindow, money(snap.ShortAvg)))
	b.WriteString(fmt.Sprintf("  • %d-day MA: %s\n", strategy.LongWindow, money(snap.LongAvg)))
	b.WriteString(fmt.Sprintf("  • ATR (%d): %s\n", strategy.VolatilityWindow, money(snap.Volatility)))
	b.WriteString(fmt.Sprintf("  • %% Distance from %d MA: %.2f%%\n", strategy.LongWindow, sig.PercentDistanceFromLongAvg))
	b.WriteString(fmt.Sprintf("  • Stop-Loss Recommendation: %s\n", money(sig.StopLoss)))
	b.WriteString(fmt.Sprintf("  • Max Risk Allowed: %s\n", money(sig.MaxRiskAmount)))
	b.WriteString(fmt.Sprintf("  • Position Sizing: <code>Shares = Risk ÷ (2 × ATR)</code> → %s ÷ %.2f = <b>%d shares</b>\n",
		decimal.NewFromFloat(sig.MaxRiskAmount).Round(2).StringFixed(2), strategy.StopMultiplier*snap.Volatility, sig.PositionSize))
	b.WriteString(fmt.Sprintf("  • Trend Signal: <b>%s</b>, from the crossover of short vs. long moving averages\n", sig.Direction))
	if goal, experience := strings.ToLower(r.Investor.Goal), strings.ToLower(r.Investor.Experience); goal != "" && experience != "" {
		b.WriteString(fmt.Sprintf("  • Strategy Fit: appropriate for <i>%s strategies</i> and <i>%s investors</i>\n", goal, experience))
	}
	b.WriteString("  • Volatility-adjusted stop and sizing included for risk control\n")
}

func writeSimple(b *strings.Builder, r *analysis.Report, side string) {
	snap, sig := r.Snapshot, r.Signal
	relation := "below"
	if snap.ShortAvg > snap.LongAvg {
		relation = "above"
	}
	b.WriteString(fmt.Sprintf("  • 📈 Short-term trend (%d-day avg): %s\n", strategy.ShortWindow, money(snap.ShortAvg)))
	b.WriteString(fmt.Sprintf("  • 🧭 Long-term trend (%d-day avg): %s\n", strategy.LongWindow, money(snap.LongAvg)))
	b.WriteString(fmt.Sprintf("  • 🌊 Daily movement (ATR): %s\n", money(snap.Volatility)))
	b.WriteString(fmt.Sprintf("  • 🛑 Suggested safety stop: ≈ %s\n\n", money(sig.StopLoss)))
	b.WriteString("Here's what it means:\n")
	b.WriteString(fmt.Sprintf("1. The current price is %.2f%% %s the long-term trend.\n", math.Abs(sig.PercentDistanceFromLongAvg), side))
	b.WriteString(fmt.Sprintf("2. The short-term trend is %s the long-term trend, a sign of %s momentum.\n", relation, sig.Direction.Trend()))
	b.WriteString(fmt.Sprintf("3. With a risk setting of %g%%, risk only <b>%s</b> on this trade.\n", r.Profile.RiskTolerancePercent, money(sig.MaxRiskAmount)))
	b.WriteString(fmt.Sprintf("4. That allows up to <b>%d shares</b> with a stop-loss at <b>%s</b>.\n", sig.PositionSize, money(sig.StopLoss)))
}

// FormatFailure renders a failed analysis for chat delivery.
func FormatFailure(symbol string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s</b>: analysis failed, check the ticker symbol.\n<code>%s</code>",
		html.EscapeString(symbol), html.EscapeString(err.Error()))
}

// FormatWatchlist lists the watched symbols.
func FormatWatchlist(symbols []string) string {
	if len(symbols) == 0 {
		return "👀 The watchlist is empty."
	}
	return "👀 <b>Watchlist</b>\n" + strings.Join(symbols, ", ")
}

// FormatHistory renders the report's trailing bars as a fixed-width table.
// Undefined indicator values print as "-".
func FormatHistory(r *analysis.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📁 <b>Historical Data</b> | %s, last %d bars\n<pre>", r.Symbol, len(r.History)))
	b.WriteString(fmt.Sprintf("%-10s %10s %10s %10s %8s\n", "Date", "Close",
		fmt.Sprintf("%dd", strategy.ShortWindow), fmt.Sprintf("%dd", strategy.LongWindow), "ATR"))
	for _, p := range r.History {
		b.WriteString(fmt.Sprintf("%-10s %10.2f %10s %10s %8s\n",
			p.Time.Format("2006-01-02"), p.Close, cell(p.ShortAvg), cell(p.LongAvg), cell(p.Volatility)))
	}
	b.WriteString("</pre>")
	return b.String()
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
