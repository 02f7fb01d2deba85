package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
// The strategy config is stored as JSONB so parameter sets stay queryable.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, strategy_id, scenario_id, symbol, from_ms, to_ms,
	config, fill_mode, event_count, order_count, trade_count,
	started_at, completed_at`

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.BacktestRun) (err error) {
	defer func(start time.Time) { observe("backtest_runs.insert", start, err) }(time.Now())

	config, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("marshal run config: %w", err)
	}

	query := `INSERT INTO backtest_runs (` + runColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.StrategyID, r.ScenarioID, r.Symbol, r.FromMs, r.ToMs,
		config, r.FillMode, r.EventCount, r.OrderCount, r.TradeCount,
		r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run: %w", err)
	}
	return r, nil
}

// GetAll retrieves all runs ordered by started_at ASC.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.BacktestRun, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs ORDER BY started_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.BacktestRun, error) {
	var (
		r      domain.BacktestRun
		config []byte
	)
	err := row.Scan(
		&r.RunID, &r.StrategyID, &r.ScenarioID, &r.Symbol, &r.FromMs, &r.ToMs,
		&config, &r.FillMode, &r.EventCount, &r.OrderCount, &r.TradeCount,
		&r.StartedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(config, &r.Config); err != nil {
		return nil, fmt.Errorf("unmarshal run config: %w", err)
	}
	return &r, nil
}
