package strategy

import (
	"math"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
)

// evaluateExit promotes the stop through the breakeven stages, trails it when
// enabled, and closes the position once the stop is touched.
func (s *HoloReversal) evaluateExit() {
	switch {
	case s.state.Pos > 0:
		s.evaluateLongExit()
	case s.state.Pos < 0:
		s.evaluateShortExit()
	}
}

func (s *HoloReversal) evaluateLongExit() {
	st := &s.state
	if st.Bid == nil || st.EntryPrice == nil || st.StopLossPrice == nil {
		return
	}
	bid, entry, tick := *st.Bid, *st.EntryPrice, s.cfg.PriceTick

	ticks := profitTicks(entry, bid, tick)
	if ticks >= s.cfg.BE1Points && st.BreakevenStage < 1 {
		st.StopLossPrice = floatPtr(offsetPrice(entry, 1, tick))
		st.BreakevenStage = 1
	}
	if ticks >= s.cfg.BE5Points && st.BreakevenStage < 2 {
		st.StopLossPrice = floatPtr(offsetPrice(entry, 5, tick))
		st.BreakevenStage = 2
	}
	if s.cfg.EnableTrailing && ticks >= s.cfg.BE5Points {
		candidate := offsetPrice(bid, -s.cfg.TrailingStep, tick)
		if candidate > *st.StopLossPrice {
			st.StopLossPrice = floatPtr(candidate)
			st.Trailing = true
		}
	}

	if bid <= *st.StopLossPrice {
		s.closePosition(s.gateway.Sell, "sell")
	}
}

func (s *HoloReversal) evaluateShortExit() {
	st := &s.state
	if st.Ask == nil || st.EntryPrice == nil || st.StopLossPrice == nil {
		return
	}
	ask, entry, tick := *st.Ask, *st.EntryPrice, s.cfg.PriceTick

	ticks := profitTicks(ask, entry, tick)
	if ticks >= s.cfg.BE1Points && st.BreakevenStage < 1 {
		st.StopLossPrice = floatPtr(offsetPrice(entry, -1, tick))
		st.BreakevenStage = 1
	}
	if ticks >= s.cfg.BE5Points && st.BreakevenStage < 2 {
		st.StopLossPrice = floatPtr(offsetPrice(entry, -5, tick))
		st.BreakevenStage = 2
	}
	if s.cfg.EnableTrailing && ticks >= s.cfg.BE5Points {
		candidate := offsetPrice(ask, s.cfg.TrailingStep, tick)
		if candidate < *st.StopLossPrice {
			st.StopLossPrice = floatPtr(candidate)
			st.Trailing = true
		}
	}

	if ask >= *st.StopLossPrice {
		s.closePosition(s.gateway.Cover, "cover")
	}
}

// closePosition submits the closing order at the stop price. The stop itself
// is left in place; entry price and stage are cleared.
func (s *HoloReversal) closePosition(send func(domain.OrderRequest) string, action string) {
	st := &s.state
	stop := *st.StopLossPrice
	reason := s.exitReason()

	orderID := s.submit(send, stop, math.Abs(st.Pos), reason)

	fields := logrus.Fields{
		"price":    stop,
		"volume":   math.Abs(st.Pos),
		"reason":   reason,
		"order_id": orderID,
	}
	if orderID == "" {
		s.logger.WithFields(fields).Warn(action + " rejected")
	} else {
		s.logger.WithFields(fields).Info(action)
	}

	st.EntryPrice = nil
	st.BreakevenStage = 0
	st.Trailing = false
}

// exitReason classifies the stop that is about to be hit.
func (s *HoloReversal) exitReason() string {
	switch {
	case s.state.Trailing:
		return domain.ExitReasonTrailingStop
	case s.state.BreakevenStage > 0:
		return domain.ExitReasonBreakevenStop
	default:
		return domain.ExitReasonInitialStop
	}
}
