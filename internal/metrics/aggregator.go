package metrics

import (
	"context"
	"errors"
	"fmt"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// ErrNoTrades means the run has nothing to aggregate.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator turns the stored trades of a run into its StrategyAggregate.
type Aggregator struct {
	trades     storage.TradeRecordStore
	aggregates storage.StrategyAggregateStore
}

func NewAggregator(trades storage.TradeRecordStore, aggregates storage.StrategyAggregateStore) *Aggregator {
	return &Aggregator{trades: trades, aggregates: aggregates}
}

// ComputeAggregate reads the trades of runID and computes their aggregate
// without storing it.
func (a *Aggregator) ComputeAggregate(ctx context.Context, runID string) (*domain.StrategyAggregate, error) {
	trades, err := a.trades.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades of %s: %w", runID, err)
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	agg := Compute(trades)
	agg.RunID = runID
	return agg, nil
}

// ComputeAndStore stores the aggregate of runID. Aggregates are append-only:
// a run that already has one yields storage.ErrDuplicateKey before any trade
// is read.
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID string) (*domain.StrategyAggregate, error) {
	_, err := a.aggregates.GetByRunID(ctx, runID)
	switch {
	case err == nil:
		return nil, storage.ErrDuplicateKey
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("check aggregate of %s: %w", runID, err)
	}

	agg, err := a.ComputeAggregate(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := a.aggregates.Insert(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}
