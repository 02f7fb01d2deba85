package feed

import (
	"holo-reversal-lab/internal/domain"
)

const minuteMs = 60_000

// BarGenerator aggregates ticks into one-minute bars keyed on the last price.
// A bar is emitted when the first tick of a later minute arrives.
// Volume counts the ticks in the bar since ticks carry no traded size.
type BarGenerator struct {
	symbol  string
	current *domain.PriceBar
}

// NewBarGenerator creates a generator for one symbol.
func NewBarGenerator(symbol string) *BarGenerator {
	return &BarGenerator{symbol: symbol}
}

// Update folds a tick into the current bar and returns the previous bar when
// the tick starts a new minute. Ticks for other symbols and ticks older than
// the current minute are ignored.
func (g *BarGenerator) Update(t *domain.PriceTick) *domain.PriceBar {
	if t.Symbol != g.symbol {
		return nil
	}
	minute := t.TimestampMs - floorMod(t.TimestampMs, minuteMs)
	price := t.LastPrice

	if g.current != nil && minute < g.current.TimestampMs {
		return nil
	}

	if g.current != nil && minute == g.current.TimestampMs {
		g.current.High = max(g.current.High, price)
		g.current.Low = min(g.current.Low, price)
		g.current.Close = price
		g.current.Volume++
		return nil
	}

	finished := g.current
	g.current = &domain.PriceBar{
		Symbol:      g.symbol,
		TimestampMs: minute,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
		Volume:      1,
	}
	return finished
}

// Flush returns the bar in progress and resets the generator.
func (g *BarGenerator) Flush() *domain.PriceBar {
	b := g.current
	g.current = nil
	return b
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
