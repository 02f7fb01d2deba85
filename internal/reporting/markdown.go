package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderRunMarkdown renders a run report as Markdown.
func RenderRunMarkdown(r *RunReport) string {
	var sb strings.Builder
	run := r.Run
	agg := r.Aggregate

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", run.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", run.StrategyID))
	sb.WriteString(fmt.Sprintf("| Symbol | %s |\n", run.Symbol))
	sb.WriteString(fmt.Sprintf("| Scenario | %s |\n", run.ScenarioID))
	sb.WriteString(fmt.Sprintf("| Fill Mode | %s |\n", run.FillMode))
	sb.WriteString(fmt.Sprintf("| Range | %s |\n", formatRange(run.FromMs, run.ToMs)))
	cfg := run.Config
	sb.WriteString(fmt.Sprintf("| Fixed Size | %g |\n", cfg.FixedSize))
	sb.WriteString(fmt.Sprintf("| Signal Window | %d |\n", cfg.SignalWindow))
	sb.WriteString(fmt.Sprintf("| Day Start Hour | %d |\n", cfg.DayStartHour))
	sb.WriteString(fmt.Sprintf("| Price Tick | %g |\n", cfg.PriceTick))
	sb.WriteString(fmt.Sprintf("| BE1 / BE5 Points | %d / %d |\n", cfg.BE1Points, cfg.BE5Points))
	sb.WriteString(fmt.Sprintf("| Trailing | %t (step %d) |\n", cfg.EnableTrailing, cfg.TrailingStep))
	sb.WriteString(fmt.Sprintf("| Events / Orders | %d / %d |\n", run.EventCount, run.OrderCount))
	sb.WriteString("\n")

	// Aggregate
	sb.WriteString("## Results\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", agg.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", agg.Wins, agg.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", agg.WinRate))
	sb.WriteString(fmt.Sprintf("| Net PnL | %.4f |\n", agg.NetPnLTotal))
	sb.WriteString(fmt.Sprintf("| Mean / Median | %.4f / %.4f |\n", agg.NetPnLMean, agg.NetPnLMedian))
	sb.WriteString(fmt.Sprintf("| P10 / P90 | %.4f / %.4f |\n", agg.NetPnLP10, agg.NetPnLP90))
	sb.WriteString(fmt.Sprintf("| Min / Max | %.4f / %.4f |\n", agg.NetPnLMin, agg.NetPnLMax))
	sb.WriteString(fmt.Sprintf("| Stddev | %.4f |\n", agg.NetPnLStddev))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f |\n", agg.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", agg.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", agg.MaxConsecutiveLosses))
	sb.WriteString(fmt.Sprintf("| Avg Hold | %s |\n", time.Duration(agg.AvgHoldDurationMs)*time.Millisecond))
	sb.WriteString("\n")

	// Exits
	sb.WriteString("## Exits by Reason\n\n")
	if len(r.Exits) > 0 {
		sb.WriteString("| Reason | Count | Wins | Losses | Net PnL |\n")
		sb.WriteString("|--------|-------|------|--------|---------|\n")
		for _, e := range r.Exits {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f |\n",
				e.Reason, e.Count, e.WinCount, e.LossCount, e.NetPnL))
		}
	} else {
		sb.WriteString("No exits.\n")
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Entry | Side | Entry Price | Stop | Exit | Exit Price | Reason | Stage | Net PnL |\n")
		sb.WriteString("|-------|------|-------------|------|------|------------|--------|-------|---------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %g | %g | %s | %g | %s | %d | %.4f |\n",
				formatMs(t.EntrySignalTime), t.Side, t.EntryActualPrice, t.InitialStop,
				formatMs(t.ExitSignalTime), t.ExitActualPrice, t.ExitReason, t.BreakevenStage, t.NetPnL))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderSummaryMarkdown renders the summary across runs.
func RenderSummaryMarkdown(r *SummaryReport) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Summary\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", r.RunCount))

	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Strategy | Scenario | Symbol | Trades | WinRate | Net PnL | Mean | PF | MaxDD | MaxLoss |\n")
		sb.WriteString("|-----|----------|----------|--------|--------|---------|---------|------|----|-------|---------|\n")
		for _, m := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %d |\n",
				m.RunID, m.StrategyID, m.ScenarioID, m.Symbol, m.TotalTrades, m.WinRate,
				m.NetPnLTotal, m.NetPnLMean, m.ProfitFactor, m.MaxDrawdown, m.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Scenario Sensitivity
	sb.WriteString("## Scenario Sensitivity\n\n")
	if len(r.ScenarioSensitivity) > 0 {
		sb.WriteString("| Strategy | Symbol | Optimistic | Realistic | Pessimistic | Degraded | Degradation% |\n")
		sb.WriteString("|----------|--------|------------|-----------|-------------|----------|--------------|\n")
		for _, s := range r.ScenarioSensitivity {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.4f | %.2f |\n",
				s.StrategyID, s.Symbol,
				s.OptimisticMean, s.RealisticMean, s.PessimisticMean, s.DegradedMean, s.DegradationPct))
		}
	} else {
		sb.WriteString("No scenario sensitivity data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

func formatRange(from, to int64) string {
	if from == 0 && to == 0 {
		return "all"
	}
	return formatMs(from) + " .. " + formatMs(to)
}
