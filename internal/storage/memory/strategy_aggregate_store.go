package memory

import (
	"context"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// StrategyAggregateStore is an in-memory implementation of storage.StrategyAggregateStore.
// One aggregate is kept per run.
type StrategyAggregateStore struct {
	t *table[domain.StrategyAggregate]
}

// NewStrategyAggregateStore creates a new in-memory aggregate store.
func NewStrategyAggregateStore() *StrategyAggregateStore {
	return &StrategyAggregateStore{t: newTable(
		func(a *domain.StrategyAggregate) string { return a.RunID },
		func(a, b *domain.StrategyAggregate) bool { return a.RunID < b.RunID },
	)}
}

// Insert requires run, strategy and scenario IDs.
func (s *StrategyAggregateStore) Insert(_ context.Context, a *domain.StrategyAggregate) error {
	if a == nil || a.StrategyID == "" || a.ScenarioID == "" {
		return storage.ErrInvalidInput
	}
	return s.t.insert(a)
}

func (s *StrategyAggregateStore) GetByRunID(_ context.Context, runID string) (*domain.StrategyAggregate, error) {
	return s.t.get(runID)
}

func (s *StrategyAggregateStore) GetByStrategy(_ context.Context, strategyID string) ([]*domain.StrategyAggregate, error) {
	return s.t.where(func(a *domain.StrategyAggregate) bool { return a.StrategyID == strategyID }), nil
}

func (s *StrategyAggregateStore) GetAll(_ context.Context) ([]*domain.StrategyAggregate, error) {
	return s.t.where(all[domain.StrategyAggregate]), nil
}

var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)
