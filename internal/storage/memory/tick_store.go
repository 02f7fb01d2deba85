package memory

import (
	"context"
	"sort"
	"sync"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceTick // keyed by (symbol, timestamp_ms)
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{
		data: make(map[string]*domain.PriceTick),
	}
}

// InsertBulk adds multiple ticks. Fails entire batch on duplicate.
func (s *TickStore) InsertBulk(_ context.Context, ticks []*domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(ticks))

	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := seriesKey(t.Symbol, t.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, t := range ticks {
		s.data[seriesKey(t.Symbol, t.TimestampMs)] = copyTick(t)
	}

	return nil
}

// GetBySymbol retrieves all ticks for a symbol, ordered by timestamp ASC.
func (s *TickStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.PriceTick, error) {
	return s.filter(func(t *domain.PriceTick) bool {
		return t.Symbol == symbol
	}), nil
}

// GetByTimeRange retrieves ticks for a symbol within [start, end] (inclusive).
func (s *TickStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.PriceTick, error) {
	return s.filter(func(t *domain.PriceTick) bool {
		return t.Symbol == symbol && t.TimestampMs >= start && t.TimestampMs <= end
	}), nil
}

func (s *TickStore) filter(keep func(*domain.PriceTick) bool) []*domain.PriceTick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, t := range s.data {
		if keep(t) {
			result = append(result, copyTick(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}

// copyTick copies the tick including its quote pointers.
func copyTick(t *domain.PriceTick) *domain.PriceTick {
	c := *t
	if t.BidPrice != nil {
		bid := *t.BidPrice
		c.BidPrice = &bid
	}
	if t.AskPrice != nil {
		ask := *t.AskPrice
		c.AskPrice = &ask
	}
	return &c
}

var _ storage.TickStore = (*TickStore)(nil)
