package memory

import (
	"context"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	t *table[domain.TradeRecord]
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{t: newTable(
		func(r *domain.TradeRecord) string { return r.TradeID },
		func(a, b *domain.TradeRecord) bool {
			if a.EntrySignalTime != b.EntrySignalTime {
				return a.EntrySignalTime < b.EntrySignalTime
			}
			return a.TradeID < b.TradeID
		},
	)}
}

// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(_ context.Context, r *domain.TradeRecord) error {
	return s.t.insert(r)
}

// InsertBulk adds trades atomically. An empty batch is a no-op.
func (s *TradeRecordStore) InsertBulk(_ context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	return s.t.insert(trades...)
}

// GetByID returns ErrNotFound for an unknown trade.
func (s *TradeRecordStore) GetByID(_ context.Context, tradeID string) (*domain.TradeRecord, error) {
	return s.t.get(tradeID)
}

// GetByRunID returns the trades of a run by entry signal time.
func (s *TradeRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.TradeRecord, error) {
	return s.t.where(func(r *domain.TradeRecord) bool { return r.RunID == runID }), nil
}

// GetByStrategyScenario returns the trades of one strategy/scenario pair across runs.
func (s *TradeRecordStore) GetByStrategyScenario(_ context.Context, strategyID, scenarioID string) ([]*domain.TradeRecord, error) {
	return s.t.where(func(r *domain.TradeRecord) bool {
		return r.StrategyID == strategyID && r.ScenarioID == scenarioID
	}), nil
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)
