package storage

import (
	"context"

	"holo-reversal-lab/internal/domain"
)

// BarStore provides access to price_bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceBar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceBar, error)
}

// TickStore provides access to price_ticks storage.
type TickStore interface {
	// InsertBulk adds multiple ticks. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, ticks []*domain.PriceTick) error

	// GetBySymbol retrieves all ticks for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceTick, error)

	// GetByTimeRange retrieves ticks for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceTick, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByRunID retrieves all trades of a run, ordered by entry_signal_time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error)

	// GetByStrategyScenario retrieves all trades for a strategy/scenario combination.
	GetByStrategyScenario(ctx context.Context, strategyID, scenarioID string) ([]*domain.TradeRecord, error)
}

// SnapshotStore provides access to strategy_snapshots storage.
type SnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (strategy_id, symbol, timestamp_ms) exists.
	Insert(ctx context.Context, s *domain.StrategySnapshot) error

	// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, strategyID, symbol string) (*domain.StrategySnapshot, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetAll retrieves all runs ordered by started_at ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestRun, error)
}

// StrategyAggregateStore provides access to strategy_aggregates storage.
type StrategyAggregateStore interface {
	// Insert adds a new aggregate. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, a *domain.StrategyAggregate) error

	// GetByRunID retrieves the aggregate of a run. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.StrategyAggregate, error)

	// GetByStrategy retrieves all aggregates for a strategy.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.StrategyAggregate, error)

	// GetAll retrieves all aggregates.
	GetAll(ctx context.Context) ([]*domain.StrategyAggregate, error)
}
