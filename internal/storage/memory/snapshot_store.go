package memory

import (
	"context"
	"fmt"
	"sync"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.StrategySnapshot // keyed by (strategy_id, symbol)
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]*domain.StrategySnapshot),
	}
}

func snapshotKey(strategyID, symbol string) string {
	return fmt.Sprintf("%s|%s", strategyID, symbol)
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (strategy_id, symbol, timestamp_ms) exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.StrategySnapshot) error {
	if snap == nil || snap.StrategyID == "" || snap.Symbol == "" || len(snap.State) == 0 {
		return storage.ErrInvalidInput
	}

	key := snapshotKey(snap.StrategyID, snap.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data[key] {
		if existing.TimestampMs == snap.TimestampMs {
			return storage.ErrDuplicateKey
		}
	}

	s.data[key] = append(s.data[key], copySnapshot(snap))
	return nil
}

// GetLatest retrieves the snapshot with the highest timestamp. Returns ErrNotFound if none exists.
func (s *SnapshotStore) GetLatest(_ context.Context, strategyID, symbol string) (*domain.StrategySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.StrategySnapshot
	for _, snap := range s.data[snapshotKey(strategyID, symbol)] {
		if latest == nil || snap.TimestampMs > latest.TimestampMs {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	return copySnapshot(latest), nil
}

func copySnapshot(snap *domain.StrategySnapshot) *domain.StrategySnapshot {
	c := *snap
	c.State = append([]byte(nil), snap.State...)
	return &c
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
