package replay

import (
	"context"
	"errors"
	"testing"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage/memory"
)

// collectingEngine collects events for verification.
type collectingEngine struct {
	events []*Event
}

func (e *collectingEngine) OnEvent(_ context.Context, event *Event) error {
	e.events = append(e.events, event)
	return nil
}

// failingEngine fails on the n-th event.
type failingEngine struct {
	n     int
	count int
}

var errEngine = errors.New("engine failure")

func (e *failingEngine) OnEvent(_ context.Context, _ *Event) error {
	e.count++
	if e.count == e.n {
		return errEngine
	}
	return nil
}

func seedStores(t *testing.T) (*memory.BarStore, *memory.TickStore) {
	t.Helper()
	ctx := context.Background()
	barStore := memory.NewBarStore()
	tickStore := memory.NewTickStore()

	bars := []*domain.PriceBar{
		{Symbol: "IF2501", TimestampMs: 120000, Open: 2},
		{Symbol: "IF2501", TimestampMs: 0, Open: 1},
		{Symbol: "IF2501", TimestampMs: 60000, Open: 1.5},
	}
	if err := barStore.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk bars failed: %v", err)
	}

	ticks := []*domain.PriceTick{
		{Symbol: "IF2501", TimestampMs: 60000, LastPrice: 1.6},
		{Symbol: "IF2501", TimestampMs: 30000, LastPrice: 1.2},
		{Symbol: "IC2501", TimestampMs: 30000, LastPrice: 7},
	}
	if err := tickStore.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk ticks failed: %v", err)
	}

	return barStore, tickStore
}

func TestRunner_OrdersEventsDeterministically(t *testing.T) {
	barStore, tickStore := seedStores(t)
	runner := NewRunner(barStore, tickStore)
	engine := &collectingEngine{}

	n, err := runner.RunAll(context.Background(), "IF2501", engine)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("Expected 5 events, got %d", n)
	}

	want := []struct {
		ts  int64
		typ EventType
	}{
		{0, EventTypeBar},
		{30000, EventTypeTick},
		{60000, EventTypeBar},
		{60000, EventTypeTick},
		{120000, EventTypeBar},
	}
	for i, w := range want {
		got := engine.events[i]
		if got.TimestampMs != w.ts || got.Type != w.typ {
			t.Errorf("event %d: got (%d, %s), want (%d, %s)", i, got.TimestampMs, got.Type, w.ts, w.typ)
		}
	}
}

func TestRunner_RunTimeRange(t *testing.T) {
	barStore, tickStore := seedStores(t)
	runner := NewRunner(barStore, tickStore)
	engine := &collectingEngine{}

	n, err := runner.Run(context.Background(), "IF2501", 30000, 60000, engine)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 events in [30000, 60000], got %d", n)
	}
}

func TestRunner_BarOnly(t *testing.T) {
	barStore, _ := seedStores(t)
	runner := NewRunner(barStore, nil)
	engine := &collectingEngine{}

	n, err := runner.RunAll(context.Background(), "IF2501", engine)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 bar events, got %d", n)
	}
}

func TestRunEvents_StopsOnEngineError(t *testing.T) {
	barStore, tickStore := seedStores(t)
	runner := NewRunner(barStore, tickStore)
	engine := &failingEngine{n: 2}

	n, err := runner.RunAll(context.Background(), "IF2501", engine)
	if !errors.Is(err, errEngine) {
		t.Fatalf("Expected engine error, got %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 delivered event before failure, got %d", n)
	}
}

func TestRunEvents_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := MergeEvents([]*domain.PriceBar{{Symbol: "X", TimestampMs: 1}}, nil)
	n, err := RunEvents(ctx, events, &collectingEngine{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no events delivered, got %d", n)
	}
}

func TestValidateOrdering(t *testing.T) {
	bar := &domain.PriceBar{Symbol: "X", TimestampMs: 1000}
	tick := &domain.PriceTick{Symbol: "X", TimestampMs: 1000}

	if err := ValidateOrdering([]*Event{BarEvent(bar), TickEvent(tick)}); err != nil {
		t.Errorf("Expected bar-then-tick to be valid, got %v", err)
	}

	err := ValidateOrdering([]*Event{TickEvent(tick), BarEvent(bar)})
	if !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering for tick-then-bar, got %v", err)
	}

	late := &domain.PriceBar{Symbol: "X", TimestampMs: 500}
	err = ValidateOrdering([]*Event{BarEvent(bar), BarEvent(late)})
	if !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering for decreasing timestamps, got %v", err)
	}

	err = ValidateOrdering([]*Event{{Type: EventTypeBar}})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Expected ErrInvalidEvent, got %v", err)
	}
}

func TestSortEvents_Stable(t *testing.T) {
	a := &domain.PriceTick{Symbol: "X", TimestampMs: 1000, LastPrice: 1}
	b := &domain.PriceTick{Symbol: "X", TimestampMs: 1000, LastPrice: 2}
	events := MergeEvents(nil, []*domain.PriceTick{a, b})

	if events[0].Tick != a || events[1].Tick != b {
		t.Errorf("Expected equal-key ticks to keep input order")
	}
}
