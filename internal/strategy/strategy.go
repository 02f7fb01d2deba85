// Package strategy implements the intraday breakout-retest reversal strategy.
//
// A HoloReversal instance is a single-threaded state machine. The host delivers
// bars, ticks and fills one at a time in timestamp order; the strategy answers
// by submitting orders through an OrderGateway. It never blocks and owns no
// goroutines.
package strategy

import "holo-reversal-lab/internal/domain"

// Strategy consumes market events and fill notifications.
type Strategy interface {
	// OnBar processes a completed bar.
	OnBar(bar *domain.PriceBar)

	// OnTick processes a top-of-book update.
	OnTick(tick *domain.PriceTick)

	// OnTrade processes a fill for an order previously submitted by the strategy.
	OnTrade(fill *domain.Fill)

	// ID returns strategy identifier (includes parameters).
	ID() string
}

// OrderGateway accepts orders from the strategy.
// Each method returns the order ID, or "" when the order was rejected.
// Submission is fire-and-forget: position changes arrive later via OnTrade.
type OrderGateway interface {
	// Buy opens a long position.
	Buy(req domain.OrderRequest) string

	// Sell closes a long position.
	Sell(req domain.OrderRequest) string

	// Short opens a short position.
	Short(req domain.OrderRequest) string

	// Cover closes a short position.
	Cover(req domain.OrderRequest) string
}
