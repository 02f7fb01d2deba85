package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, run_id, symbol, strategy_id, scenario_id, side,
	entry_signal_time, entry_signal_price, entry_actual_time, entry_actual_price,
	volume, initial_stop,
	exit_signal_time, exit_signal_price, exit_actual_time, exit_actual_price,
	exit_reason, breakeven_stage,
	entry_cost, exit_cost, total_cost,
	gross_pnl, net_pnl, pnl_ticks, outcome_class,
	hold_duration_ms`

const insertTradeRecordQuery = `
	INSERT INTO trade_records (` + tradeRecordColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12,
		$13, $14, $15, $16,
		$17, $18,
		$19, $20, $21,
		$22, $23, $24, $25,
		$26
	)`

func tradeRecordArgs(t *domain.TradeRecord) []any {
	return []any{
		t.TradeID, t.RunID, t.Symbol, t.StrategyID, t.ScenarioID, string(t.Side),
		t.EntrySignalTime, t.EntrySignalPrice, t.EntryActualTime, t.EntryActualPrice,
		t.Volume, t.InitialStop,
		t.ExitSignalTime, t.ExitSignalPrice, t.ExitActualTime, t.ExitActualPrice,
		t.ExitReason, t.BreakevenStage,
		t.EntryCost, t.ExitCost, t.TotalCost,
		t.GrossPnL, t.NetPnL, t.PnLTicks, t.OutcomeClass,
		t.HoldDurationMs,
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) (err error) {
	defer func(start time.Time) { observe("trade_records.insert", start, err) }(time.Now())

	if _, err = s.pool.Exec(ctx, insertTradeRecordQuery, tradeRecordArgs(t)...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) (err error) {
	if len(trades) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("trade_records.insert_bulk", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if _, err = tx.Exec(ctx, insertTradeRecordQuery, tradeRecordArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade record in bulk: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE trade_id = $1`

	t, err := scanTradeRecord(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by entry_signal_time ASC.
func (s *TradeRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE run_id = $1
		ORDER BY entry_signal_time ASC, trade_id ASC`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, runID)
	observe("trade_records.get_by_run", start, err)
	if err != nil {
		return nil, fmt.Errorf("get trade records by run id: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByStrategyScenario retrieves all trades for a strategy/scenario combination.
func (s *TradeRecordStore) GetByStrategyScenario(ctx context.Context, strategyID, scenarioID string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE strategy_id = $1 AND scenario_id = $2
		ORDER BY entry_signal_time ASC, trade_id ASC`

	rows, err := s.pool.Query(ctx, query, strategyID, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by strategy/scenario: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t    domain.TradeRecord
		side string
	)

	err := row.Scan(
		&t.TradeID, &t.RunID, &t.Symbol, &t.StrategyID, &t.ScenarioID, &side,
		&t.EntrySignalTime, &t.EntrySignalPrice, &t.EntryActualTime, &t.EntryActualPrice,
		&t.Volume, &t.InitialStop,
		&t.ExitSignalTime, &t.ExitSignalPrice, &t.ExitActualTime, &t.ExitActualPrice,
		&t.ExitReason, &t.BreakevenStage,
		&t.EntryCost, &t.ExitCost, &t.TotalCost,
		&t.GrossPnL, &t.NetPnL, &t.PnLTicks, &t.OutcomeClass,
		&t.HoldDurationMs,
	)
	if err != nil {
		return nil, err
	}
	t.Side = domain.Direction(side)

	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
