package domain

// PriceBar is a single OHLCV bar. TimestampMs marks the start of the bar.
type PriceBar struct {
	Symbol      string
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// PriceTick is a top-of-book update.
// BidPrice and AskPrice are nil when the venue did not send them.
type PriceTick struct {
	Symbol      string
	TimestampMs int64
	BidPrice    *float64
	AskPrice    *float64
	LastPrice   float64
}

// EffectiveBid returns the best bid, falling back to the last trade price
// when the bid is missing or zero.
func (t *PriceTick) EffectiveBid() float64 {
	if t.BidPrice != nil && *t.BidPrice != 0 {
		return *t.BidPrice
	}
	return t.LastPrice
}

// EffectiveAsk returns the best ask, falling back to the last trade price
// when the ask is missing or zero.
func (t *PriceTick) EffectiveAsk() float64 {
	if t.AskPrice != nil && *t.AskPrice != 0 {
		return *t.AskPrice
	}
	return t.LastPrice
}
