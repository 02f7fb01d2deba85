// Package feed provides market data sources: synthetic bars, CSV files,
// tick-to-bar aggregation and a websocket client for live streams.
package feed

import (
	"context"
	"math"
	"time"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/replay"
)

// SyntheticConfig describes a deterministic sine-wave bar series.
type SyntheticConfig struct {
	Symbol     string
	Start      time.Time
	End        time.Time // exclusive
	Step       time.Duration
	StartPrice float64
}

// DefaultSyntheticConfig returns two days of one-minute bars starting 2025-01-01 UTC at 100.
func DefaultSyntheticConfig() SyntheticConfig {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return SyntheticConfig{
		Symbol:     "TEST",
		Start:      start,
		End:        start.Add(48 * time.Hour),
		Step:       time.Minute,
		StartPrice: 100,
	}
}

// GenerateBars builds the series. Each bar opens at
// price + sin(elapsed/1h)*0.8, spans +/-0.4 around the open and closes at
// open + sin(elapsed/30m)*0.2. The close becomes the next bar's price.
func GenerateBars(cfg SyntheticConfig) []*domain.PriceBar {
	step := cfg.Step
	if step <= 0 {
		step = time.Minute
	}

	var bars []*domain.PriceBar
	price := cfg.StartPrice
	for current := cfg.Start; current.Before(cfg.End); current = current.Add(step) {
		elapsed := current.Sub(cfg.Start).Seconds()
		base := price + math.Sin(elapsed/3600)*0.8
		closePrice := base + math.Sin(elapsed/1800)*0.2

		bars = append(bars, &domain.PriceBar{
			Symbol:      cfg.Symbol,
			TimestampMs: current.UnixMilli(),
			Open:        base,
			High:        base + 0.4,
			Low:         base - 0.4,
			Close:       closePrice,
			Volume:      100,
		})
		price = closePrice
	}
	return bars
}

// Stream emits events on the returned channel, waiting pace between events
// (zero means as fast as the consumer reads). The channel is closed when all
// events are sent or ctx is done.
func Stream(ctx context.Context, events []*replay.Event, pace time.Duration) <-chan *replay.Event {
	ch := make(chan *replay.Event)
	go func() {
		defer close(ch)

		var ticker *time.Ticker
		if pace > 0 {
			ticker = time.NewTicker(pace)
			defer ticker.Stop()
		}

		for _, e := range events {
			if ticker != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
			select {
			case <-ctx.Done():
				return
			case ch <- e:
			}
		}
	}()
	return ch
}
