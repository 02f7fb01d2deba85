package memory

import (
	"context"
	"errors"
	"testing"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

func TestTickStore_InsertAndRange(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	bid, ask := 100.0, 100.02
	ticks := []*domain.PriceTick{
		{Symbol: "IF2501", TimestampMs: 2000, BidPrice: &bid, AskPrice: &ask, LastPrice: 100.01},
		{Symbol: "IF2501", TimestampMs: 1000, LastPrice: 99.5},
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// caller mutation after insert must not leak into the store
	bid = 1

	got, err := store.GetByTimeRange(ctx, "IF2501", 0, 5000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(got))
	}
	if got[0].TimestampMs != 1000 {
		t.Errorf("Expected ticks ordered by timestamp, first is %d", got[0].TimestampMs)
	}
	if got[0].BidPrice != nil {
		t.Errorf("Expected nil bid to round-trip as nil")
	}
	if got[1].BidPrice == nil || *got[1].BidPrice != 100.0 {
		t.Errorf("Expected stored bid 100, got %v", got[1].BidPrice)
	}
}

func TestTickStore_DuplicateKey(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PriceTick{
		{Symbol: "IF2501", TimestampMs: 1000},
		{Symbol: "IF2501", TimestampMs: 1000},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
