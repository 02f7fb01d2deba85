package replay

import (
	"context"

	"holo-reversal-lab/internal/storage"
)

// Runner loads events from storage and replays them in deterministic order.
type Runner struct {
	barStore  storage.BarStore
	tickStore storage.TickStore
}

// NewRunner creates a new replay runner. tickStore may be nil for bar-only replays.
func NewRunner(barStore storage.BarStore, tickStore storage.TickStore) *Runner {
	return &Runner{
		barStore:  barStore,
		tickStore: tickStore,
	}
}

// Run loads events for a symbol within [from, to] and replays them through the engine.
// Returns the number of events delivered.
func (r *Runner) Run(ctx context.Context, symbol string, from, to int64, engine ReplayEngine) (int, error) {
	events, err := r.Load(ctx, symbol, from, to)
	if err != nil {
		return 0, err
	}
	return RunEvents(ctx, events, engine)
}

// RunAll loads all events for a symbol and replays them through the engine.
func (r *Runner) RunAll(ctx context.Context, symbol string, engine ReplayEngine) (int, error) {
	events, err := r.LoadAll(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return RunEvents(ctx, events, engine)
}

// LoadAll returns the merged, sorted event stream of all stored data for a symbol.
func (r *Runner) LoadAll(ctx context.Context, symbol string) ([]*Event, error) {
	bars, err := r.barStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if r.tickStore == nil {
		return MergeEvents(bars, nil), nil
	}

	ticks, err := r.tickStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return MergeEvents(bars, ticks), nil
}

// Load returns the merged, sorted event stream for a symbol within [from, to].
func (r *Runner) Load(ctx context.Context, symbol string, from, to int64) ([]*Event, error) {
	bars, err := r.barStore.GetByTimeRange(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if r.tickStore == nil {
		return MergeEvents(bars, nil), nil
	}

	ticks, err := r.tickStore.GetByTimeRange(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	return MergeEvents(bars, ticks), nil
}

// RunEvents replays an already ordered stream through the engine.
// Stops at the first engine error or when ctx is cancelled.
func RunEvents(ctx context.Context, events []*Event, engine ReplayEngine) (int, error) {
	if err := ValidateOrdering(events); err != nil {
		return 0, err
	}

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := engine.OnEvent(ctx, event); err != nil {
			return i, err
		}
	}

	return len(events), nil
}
