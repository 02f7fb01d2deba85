package postgres

import (
	"context"
	"fmt"
	"time"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a snapshot. Returns ErrDuplicateKey if (strategy_id, symbol, timestamp_ms) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.StrategySnapshot) (err error) {
	defer func(start time.Time) { observe("strategy_snapshots.insert", start, err) }(time.Now())

	query := `
		INSERT INTO strategy_snapshots (strategy_id, symbol, timestamp_ms, state)
		VALUES ($1, $2, $3, $4)
	`
	if _, err = s.pool.Exec(ctx, query, snap.StrategyID, snap.Symbol, snap.TimestampMs, snap.State); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert strategy snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot. Returns ErrNotFound if none exists.
func (s *SnapshotStore) GetLatest(ctx context.Context, strategyID, symbol string) (*domain.StrategySnapshot, error) {
	query := `
		SELECT strategy_id, symbol, timestamp_ms, state
		FROM strategy_snapshots
		WHERE strategy_id = $1 AND symbol = $2
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	var snap domain.StrategySnapshot
	err := s.pool.QueryRow(ctx, query, strategyID, symbol).
		Scan(&snap.StrategyID, &snap.Symbol, &snap.TimestampMs, &snap.State)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest strategy snapshot: %w", err)
	}
	return &snap, nil
}
