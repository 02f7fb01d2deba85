package replay

import (
	"context"

	"holo-reversal-lab/internal/domain"
)

// EventType represents the type of event.
type EventType string

// Event type constants.
const (
	EventTypeBar  EventType = "bar"
	EventTypeTick EventType = "tick"
)

// Event represents a unified market event for replay (bar or tick).
// Only one of Bar or Tick will be set based on Type.
type Event struct {
	Type        EventType
	Symbol      string
	TimestampMs int64
	Bar         *domain.PriceBar
	Tick        *domain.PriceTick
}

// BarEvent wraps a bar.
func BarEvent(b *domain.PriceBar) *Event {
	return &Event{Type: EventTypeBar, Symbol: b.Symbol, TimestampMs: b.TimestampMs, Bar: b}
}

// TickEvent wraps a tick.
func TickEvent(t *domain.PriceTick) *Event {
	return &Event{Type: EventTypeTick, Symbol: t.Symbol, TimestampMs: t.TimestampMs, Tick: t}
}

// ReplayEngine processes events in deterministic order.
type ReplayEngine interface {
	// OnEvent is called for each event in order.
	// Events are guaranteed to be ordered by (timestamp, type).
	OnEvent(ctx context.Context, event *Event) error
}
