package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/replay"
)

const testSymbol = "IF2501"

func ts(t *testing.T, s string) int64 {
	t.Helper()
	tm, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return tm.UnixMilli()
}

func bar(t *testing.T, at string, open, high, low, close float64) *domain.PriceBar {
	t.Helper()
	return &domain.PriceBar{
		Symbol:      testSymbol,
		TimestampMs: ts(t, at),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      100,
	}
}

func tick(t *testing.T, at string, bid, ask float64) *domain.PriceTick {
	t.Helper()
	return &domain.PriceTick{
		Symbol:      testSymbol,
		TimestampMs: ts(t, at),
		BidPrice:    &bid,
		AskPrice:    &ask,
		LastPrice:   bid,
	}
}

// shortRoundTrip returns a session where the strategy shorts at 105 with a
// stop at 110, trails the stop to 104.94 and is covered there.
func shortRoundTrip(t *testing.T) ([]*domain.PriceBar, []*domain.PriceTick) {
	bars := []*domain.PriceBar{
		bar(t, "2025-01-01 10:00", 100, 112, 95, 101),
		bar(t, "2025-01-02 09:00", 105, 110, 104, 104.5),
		bar(t, "2025-01-02 09:15", 107, 108, 106.5, 104.5),
	}
	ticks := []*domain.PriceTick{
		tick(t, "2025-01-02 09:16", 106, 106.02),
		tick(t, "2025-01-02 09:17", 104, 104.02),
		tick(t, "2025-01-02 09:18", 104.92, 104.94),
		tick(t, "2025-01-02 09:19", 104.87, 104.89),
		tick(t, "2025-01-02 09:20", 104.93, 104.95),
		tick(t, "2025-01-02 09:21", 104.96, 104.98),
	}
	return bars, ticks
}

func shortRoundTripEvents(t *testing.T) []*replay.Event {
	bars, ticks := shortRoundTrip(t)
	return replay.MergeEvents(bars, ticks)
}
