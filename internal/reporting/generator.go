package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/metrics"
	"holo-reversal-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore         storage.RunStore
	tradeRecordStore storage.TradeRecordStore
	aggregateStore   storage.StrategyAggregateStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.RunStore,
	tradeStore storage.TradeRecordStore,
	aggStore storage.StrategyAggregateStore,
) *Generator {
	return &Generator{
		runStore:         runStore,
		tradeRecordStore: tradeStore,
		aggregateStore:   aggStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateRun builds the report of one run. The aggregate is recomputed
// from the trades when none was stored (runs without trades).
func (g *Generator) GenerateRun(ctx context.Context, runID string) (*RunReport, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	trades, err := g.tradeRecordStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	agg, err := g.aggregateStore.GetByRunID(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		agg = metrics.Compute(trades)
		agg.RunID = run.RunID
		agg.StrategyID = run.StrategyID
		agg.ScenarioID = run.ScenarioID
		agg.Symbol = run.Symbol
	} else if err != nil {
		return nil, err
	}

	return &RunReport{
		GeneratedAt: g.now(),
		Run:         run,
		Aggregate:   agg,
		Exits:       exitsByReason(trades),
		Trades:      trades,
	}, nil
}

// GenerateSummary builds a report over every stored aggregate.
func (g *Generator) GenerateSummary(ctx context.Context) (*SummaryReport, error) {
	aggs, err := g.aggregateStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]RunSummaryRow, len(aggs))
	for i, agg := range aggs {
		rows[i] = RunSummaryRow{
			RunID:                agg.RunID,
			StrategyID:           agg.StrategyID,
			ScenarioID:           agg.ScenarioID,
			Symbol:               agg.Symbol,
			TotalTrades:          agg.TotalTrades,
			WinRate:              agg.WinRate,
			NetPnLTotal:          agg.NetPnLTotal,
			NetPnLMean:           agg.NetPnLMean,
			ProfitFactor:         agg.ProfitFactor,
			MaxDrawdown:          agg.MaxDrawdown,
			MaxConsecutiveLosses: agg.MaxConsecutiveLosses,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StrategyID != rows[j].StrategyID {
			return rows[i].StrategyID < rows[j].StrategyID
		}
		if rows[i].ScenarioID != rows[j].ScenarioID {
			return rows[i].ScenarioID < rows[j].ScenarioID
		}
		return rows[i].RunID < rows[j].RunID
	})

	return &SummaryReport{
		GeneratedAt:         g.now(),
		RunCount:            len(rows),
		Runs:                rows,
		ScenarioSensitivity: scenarioSensitivity(aggs),
	}, nil
}

// exitsByReason groups trades by exit reason, sorted by reason.
func exitsByReason(trades []*domain.TradeRecord) []ExitReasonRow {
	byReason := make(map[string]*ExitReasonRow)
	for _, t := range trades {
		row := byReason[t.ExitReason]
		if row == nil {
			row = &ExitReasonRow{Reason: t.ExitReason}
			byReason[t.ExitReason] = row
		}
		row.Count++
		row.NetPnL += t.NetPnL
		if t.OutcomeClass == domain.OutcomeClassWin {
			row.WinCount++
		} else {
			row.LossCount++
		}
	}

	rows := make([]ExitReasonRow, 0, len(byReason))
	for _, row := range byReason {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Reason < rows[j].Reason })
	return rows
}

// scenarioSensitivity groups aggregates by (strategy_id, symbol). When a
// scenario has several runs the latest run ID wins.
func scenarioSensitivity(aggs []*domain.StrategyAggregate) []ScenarioSensitivityRow {
	type key struct {
		StrategyID string
		Symbol     string
	}
	groups := make(map[key]map[string]*domain.StrategyAggregate)

	for _, agg := range aggs {
		k := key{StrategyID: agg.StrategyID, Symbol: agg.Symbol}
		if groups[k] == nil {
			groups[k] = make(map[string]*domain.StrategyAggregate)
		}
		if prev := groups[k][agg.ScenarioID]; prev == nil || agg.RunID > prev.RunID {
			groups[k][agg.ScenarioID] = agg
		}
	}

	var rows []ScenarioSensitivityRow
	for k, scenarios := range groups {
		row := ScenarioSensitivityRow{
			StrategyID: k.StrategyID,
			Symbol:     k.Symbol,
		}

		if a := scenarios[domain.ScenarioOptimistic]; a != nil {
			row.OptimisticMean = a.NetPnLMean
		}
		if a := scenarios[domain.ScenarioRealistic]; a != nil {
			row.RealisticMean = a.NetPnLMean
		}
		if a := scenarios[domain.ScenarioPessimistic]; a != nil {
			row.PessimisticMean = a.NetPnLMean
		}
		if a := scenarios[domain.ScenarioDegraded]; a != nil {
			row.DegradedMean = a.NetPnLMean
		}

		if row.OptimisticMean != 0 {
			row.DegradationPct = (row.OptimisticMean - row.RealisticMean) / math.Abs(row.OptimisticMean) * 100
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StrategyID != rows[j].StrategyID {
			return rows[i].StrategyID < rows[j].StrategyID
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	return rows
}
