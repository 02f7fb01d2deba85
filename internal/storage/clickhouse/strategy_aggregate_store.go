package clickhouse

import (
	"context"
	"fmt"
	"time"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// StrategyAggregateStore implements storage.StrategyAggregateStore using ClickHouse.
type StrategyAggregateStore struct {
	conn *Conn
}

// NewStrategyAggregateStore creates a new StrategyAggregateStore.
func NewStrategyAggregateStore(conn *Conn) *StrategyAggregateStore {
	return &StrategyAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)

const aggregateColumns = `
	run_id, strategy_id, scenario_id, symbol,
	total_trades, wins, losses, win_rate,
	net_pnl_total, net_pnl_mean, net_pnl_median, net_pnl_p10, net_pnl_p90,
	net_pnl_min, net_pnl_max, net_pnl_stddev, profit_factor,
	max_drawdown, max_consecutive_losses,
	avg_hold_duration_ms, initial_stop_exits, breakeven_stop_exits, trailing_stop_exits`

// Insert adds a new aggregate. Returns ErrDuplicateKey if run_id exists.
func (s *StrategyAggregateStore) Insert(ctx context.Context, a *domain.StrategyAggregate) (err error) {
	if a.RunID == "" || a.StrategyID == "" || a.ScenarioID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("strategy_aggregates.insert", start, err) }(time.Now())

	// MergeTree keeps every row, so append-only semantics are checked here
	exists, err := s.exists(ctx, a.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO strategy_aggregates (`+aggregateColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	err = batch.Append(
		a.RunID, a.StrategyID, a.ScenarioID, a.Symbol,
		int32(a.TotalTrades), int32(a.Wins), int32(a.Losses), a.WinRate,
		a.NetPnLTotal, a.NetPnLMean, a.NetPnLMedian, a.NetPnLP10, a.NetPnLP90,
		a.NetPnLMin, a.NetPnLMax, a.NetPnLStddev, a.ProfitFactor,
		a.MaxDrawdown, int32(a.MaxConsecutiveLosses),
		a.AvgHoldDurationMs, int32(a.InitialStopExits), int32(a.BreakevenStopExits), int32(a.TrailingStopExits),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}
	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert strategy aggregate: %w", err)
	}
	return nil
}

// GetByRunID retrieves the aggregate of a run. Returns ErrNotFound if not exists.
func (s *StrategyAggregateStore) GetByRunID(ctx context.Context, runID string) (*domain.StrategyAggregate, error) {
	query := `SELECT ` + aggregateColumns + `
		FROM strategy_aggregates
		WHERE run_id = ?
		LIMIT 1`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query aggregate by run id: %w", err)
	}
	defer rows.Close()

	aggregates, err := scanStrategyAggregates(rows)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, storage.ErrNotFound
	}
	return aggregates[0], nil
}

// GetByStrategy retrieves all aggregates for a strategy.
func (s *StrategyAggregateStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.StrategyAggregate, error) {
	query := `SELECT ` + aggregateColumns + `
		FROM strategy_aggregates
		WHERE strategy_id = ?
		ORDER BY scenario_id ASC, run_id ASC`

	rows, err := s.conn.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query by strategy: %w", err)
	}
	defer rows.Close()

	return scanStrategyAggregates(rows)
}

// GetAll retrieves all aggregates.
func (s *StrategyAggregateStore) GetAll(ctx context.Context) ([]*domain.StrategyAggregate, error) {
	query := `SELECT ` + aggregateColumns + `
		FROM strategy_aggregates
		ORDER BY strategy_id ASC, scenario_id ASC, run_id ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all aggregates: %w", err)
	}
	defer rows.Close()

	return scanStrategyAggregates(rows)
}

func (s *StrategyAggregateStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM strategy_aggregates WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanStrategyAggregates scans multiple rows into a slice.
func scanStrategyAggregates(rows chRows) ([]*domain.StrategyAggregate, error) {
	var aggregates []*domain.StrategyAggregate

	for rows.Next() {
		var (
			a                                        domain.StrategyAggregate
			total, wins, losses, maxLosses           int32
			initialExits, breakevenExits, trailExits int32
		)
		err := rows.Scan(
			&a.RunID, &a.StrategyID, &a.ScenarioID, &a.Symbol,
			&total, &wins, &losses, &a.WinRate,
			&a.NetPnLTotal, &a.NetPnLMean, &a.NetPnLMedian, &a.NetPnLP10, &a.NetPnLP90,
			&a.NetPnLMin, &a.NetPnLMax, &a.NetPnLStddev, &a.ProfitFactor,
			&a.MaxDrawdown, &maxLosses,
			&a.AvgHoldDurationMs, &initialExits, &breakevenExits, &trailExits,
		)
		if err != nil {
			return nil, fmt.Errorf("scan strategy aggregate row: %w", err)
		}

		a.TotalTrades = int(total)
		a.Wins = int(wins)
		a.Losses = int(losses)
		a.MaxConsecutiveLosses = int(maxLosses)
		a.InitialStopExits = int(initialExits)
		a.BreakevenStopExits = int(breakevenExits)
		a.TrailingStopExits = int(trailExits)
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy aggregate rows: %w", err)
	}

	return aggregates, nil
}
