package strategy

import (
	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
)

// evaluateEntry arms and triggers the short and long setups.
// Both sides are evaluated on every event, short first.
func (s *HoloReversal) evaluateEntry() {
	st := &s.state
	if st.Pos != 0 {
		return
	}
	if st.PrevDailyHigh == nil || st.PrevDailyLow == nil || st.Bid == nil || st.Ask == nil {
		return
	}

	bid, ask := *st.Bid, *st.Ask
	prevHigh, prevLow := *st.PrevDailyHigh, *st.PrevDailyLow
	if !within(bid, prevLow, prevHigh) || !within(ask, prevLow, prevHigh) {
		return
	}

	if st.HourOpenHigh != nil {
		ho := *st.HourOpenHigh
		if bid > ho {
			st.ShortReady = true
		}
		if st.ShortReady && bid <= ho && s.inShortZone() {
			s.enterShort(ho)
			st.ShortReady = false
		}
	}

	if st.HourOpenLow != nil {
		lo := *st.HourOpenLow
		if ask < lo {
			st.LongReady = true
		}
		if st.LongReady && ask >= lo && s.inLongZone() {
			s.enterLong(lo)
			st.LongReady = false
		}
	}
}

// inShortZone reports ho <= lastSignalOpen <= dailyHigh.
func (s *HoloReversal) inShortZone() bool {
	st := &s.state
	if st.LastSignalOpen == nil || st.HourOpenHigh == nil || st.DailyHigh == nil {
		return false
	}
	return within(*st.LastSignalOpen, *st.HourOpenHigh, *st.DailyHigh)
}

// inLongZone reports dailyLow <= lastSignalOpen <= lo.
func (s *HoloReversal) inLongZone() bool {
	st := &s.state
	if st.LastSignalOpen == nil || st.HourOpenLow == nil || st.DailyLow == nil {
		return false
	}
	return within(*st.LastSignalOpen, *st.DailyLow, *st.HourOpenLow)
}

// enterShort submits the order first, then records a provisional entry price
// and the initial stop at the daily high.
func (s *HoloReversal) enterShort(price float64) {
	orderID := s.submit(s.gateway.Short, price, s.cfg.FixedSize, domain.OrderReasonEntryShort)

	st := &s.state
	if st.DailyHigh != nil {
		st.StopLossPrice = floatPtr(*st.DailyHigh)
	}
	st.EntryPrice = floatPtr(price)
	st.BreakevenStage = 0
	st.Trailing = false

	s.logEntry("short", orderID, price)
}

// enterLong mirrors enterShort with the stop at the daily low.
func (s *HoloReversal) enterLong(price float64) {
	orderID := s.submit(s.gateway.Buy, price, s.cfg.FixedSize, domain.OrderReasonEntryLong)

	st := &s.state
	if st.DailyLow != nil {
		st.StopLossPrice = floatPtr(*st.DailyLow)
	}
	st.EntryPrice = floatPtr(price)
	st.BreakevenStage = 0
	st.Trailing = false

	s.logEntry("buy", orderID, price)
}

func (s *HoloReversal) logEntry(action, orderID string, price float64) {
	fields := logrus.Fields{
		"price":    price,
		"volume":   s.cfg.FixedSize,
		"order_id": orderID,
	}
	if s.state.StopLossPrice != nil {
		fields["stop"] = *s.state.StopLossPrice
	}
	if orderID == "" {
		s.logger.WithFields(fields).Warn(action + " rejected")
		return
	}
	s.logger.WithFields(fields).Info(action)
}
