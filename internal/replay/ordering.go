package replay

import (
	"fmt"
	"sort"

	"holo-reversal-lab/internal/domain"
)

// SortEvents orders events by (timestamp ASC, type ASC).
// The sort is stable, so events with an equal key keep their input order.
func SortEvents(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareEvents(events[i], events[j]) < 0
	})
}

// MergeEvents combines bars and ticks into a sorted event stream.
// At equal timestamps a bar is delivered before a tick.
func MergeEvents(bars []*domain.PriceBar, ticks []*domain.PriceTick) []*Event {
	events := make([]*Event, 0, len(bars)+len(ticks))

	for _, b := range bars {
		events = append(events, BarEvent(b))
	}
	for _, t := range ticks {
		events = append(events, TickEvent(t))
	}

	SortEvents(events)
	return events
}

// ValidateOrdering checks that events are sorted and well formed.
// Returns ErrInvalidOrdering with the offending index on the first violation.
func ValidateOrdering(events []*Event) error {
	for i, e := range events {
		if err := validateEvent(e); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if i > 0 && compareEvents(events[i-1], e) > 0 {
			return fmt.Errorf("%w: event %d at %d follows %d", ErrInvalidOrdering, i, e.TimestampMs, events[i-1].TimestampMs)
		}
	}
	return nil
}

func validateEvent(e *Event) error {
	if e == nil {
		return ErrInvalidEvent
	}
	switch e.Type {
	case EventTypeBar:
		if e.Bar == nil {
			return ErrInvalidEvent
		}
	case EventTypeTick:
		if e.Tick == nil {
			return ErrInvalidEvent
		}
	default:
		return ErrInvalidEvent
	}
	return nil
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, type ASC)
// EventType order: "bar" < "tick" (alphabetically)
func compareEvents(a, b *Event) int {
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.Type != b.Type {
		if a.Type < b.Type {
			return -1
		}
		return 1
	}
	return 0
}
