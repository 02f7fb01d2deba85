package memory

import (
	"context"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	t *table[domain.BacktestRun]
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{t: newTable(
		func(r *domain.BacktestRun) string { return r.RunID },
		func(a, b *domain.BacktestRun) bool {
			if a.StartedAt != b.StartedAt {
				return a.StartedAt < b.StartedAt
			}
			return a.RunID < b.RunID
		},
	)}
}

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.BacktestRun) error {
	return s.t.insert(r)
}

// GetByID returns ErrNotFound for an unknown run.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.BacktestRun, error) {
	return s.t.get(runID)
}

// GetAll returns every run by start time.
func (s *RunStore) GetAll(_ context.Context) ([]*domain.BacktestRun, error) {
	return s.t.where(all[domain.BacktestRun]), nil
}

var _ storage.RunStore = (*RunStore)(nil)
