package metrics

import (
	"math"
	"sort"

	"holo-reversal-lab/internal/domain"
)

// Compute calculates aggregate metrics for a set of trades. Identity fields
// (run, strategy, scenario, symbol) are taken from the first trade.
func Compute(trades []*domain.TradeRecord) *domain.StrategyAggregate {
	agg := computeFromTrades(trades)
	if len(trades) > 0 {
		agg.RunID = trades[0].RunID
		agg.StrategyID = trades[0].StrategyID
		agg.ScenarioID = trades[0].ScenarioID
		agg.Symbol = trades[0].Symbol
	}
	return agg
}

// computeFromTrades calculates all metrics from a slice of trades.
// Trades are sorted by EntrySignalTime ASC, TradeID ASC before computing
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func computeFromTrades(trades []*domain.TradeRecord) *domain.StrategyAggregate {
	n := len(trades)
	if n == 0 {
		return &domain.StrategyAggregate{}
	}

	// Sort trades deterministically by EntrySignalTime ASC, TradeID ASC
	sortedTrades := make([]*domain.TradeRecord, n)
	copy(sortedTrades, trades)
	sort.Slice(sortedTrades, func(i, j int) bool {
		if sortedTrades[i].EntrySignalTime != sortedTrades[j].EntrySignalTime {
			return sortedTrades[i].EntrySignalTime < sortedTrades[j].EntrySignalTime
		}
		return sortedTrades[i].TradeID < sortedTrades[j].TradeID
	})

	agg := &domain.StrategyAggregate{TotalTrades: n}

	var holdTotal int64
	for _, t := range sortedTrades {
		if t.OutcomeClass == domain.OutcomeClassWin {
			agg.Wins++
		} else {
			agg.Losses++
		}
		holdTotal += t.HoldDurationMs

		switch t.ExitReason {
		case domain.ExitReasonInitialStop:
			agg.InitialStopExits++
		case domain.ExitReasonBreakevenStop:
			agg.BreakevenStopExits++
		case domain.ExitReasonTrailingStop:
			agg.TrailingStopExits++
		}
	}

	// Net pnl in chronological order for order-dependent calculations
	pnls := make([]float64, n)
	for i, t := range sortedTrades {
		pnls[i] = t.NetPnL
	}

	sortedPnLs := make([]float64, n)
	copy(sortedPnLs, pnls)
	sort.Float64s(sortedPnLs)

	mean := computeMean(pnls)

	agg.WinRate = computeWinRate(agg.Wins, n)
	agg.NetPnLTotal = computeSum(pnls)
	agg.NetPnLMean = mean
	agg.NetPnLMedian = computePercentile(sortedPnLs, 0.50)
	agg.NetPnLP10 = computePercentile(sortedPnLs, 0.10)
	agg.NetPnLP90 = computePercentile(sortedPnLs, 0.90)
	agg.NetPnLMin = sortedPnLs[0]
	agg.NetPnLMax = sortedPnLs[n-1]
	agg.NetPnLStddev = computeStddev(pnls, mean)
	agg.ProfitFactor = computeProfitFactor(pnls)
	agg.MaxDrawdown = computeMaxDrawdown(pnls)
	agg.MaxConsecutiveLosses = computeMaxConsecutiveLosses(sortedTrades)
	agg.AvgHoldDurationMs = holdTotal / int64(n)

	return agg
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeSum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return computeSum(values) / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeProfitFactor returns gross profit / gross loss.
// Returns 0 when there are no losing trades.
func computeProfitFactor(pnls []float64) float64 {
	grossProfit, grossLoss := 0.0, 0.0
	for _, p := range pnls {
		if p > 0 {
			grossProfit += p
		} else {
			grossLoss -= p
		}
	}
	if grossLoss == 0 {
		return 0
	}
	return grossProfit / grossLoss
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative pnl.
// max_drawdown = MAX(peak_cumulative - trough_cumulative)
// Values must be in chronological order.
func computeMaxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if drawdown := peak - cumulative; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds longest streak of net pnl <= 0.
// Trades must be in chronological order.
func computeMaxConsecutiveLosses(trades []*domain.TradeRecord) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range trades {
		if t.NetPnL <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
