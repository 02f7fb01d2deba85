package strategy

import (
	"time"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
)

const tradingDayLayout = "2006-01-02"

// tradingDay returns the trading day t belongs to. With a positive
// DayStartHour, times before that hour count toward the previous date.
func (s *HoloReversal) tradingDay(t time.Time) string {
	if s.cfg.DayStartHour > 0 && t.Hour() < s.cfg.DayStartHour {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format(tradingDayLayout)
}

// updateSession tracks the daily range and promotes it to the previous-day
// range on rollover.
func (s *HoloReversal) updateSession(bar *domain.PriceBar, t time.Time) {
	st := &s.state

	day := s.tradingDay(t)
	if day != st.TradingDay {
		s.rollover(bar, day)
	}

	if st.DailyHigh == nil || bar.High > *st.DailyHigh {
		st.DailyHigh = floatPtr(bar.High)
	}
	if st.DailyLow == nil || bar.Low < *st.DailyLow {
		st.DailyLow = floatPtr(bar.Low)
	}
}

func (s *HoloReversal) rollover(bar *domain.PriceBar, day string) {
	st := &s.state

	if st.DailyHigh != nil && st.DailyLow != nil {
		st.PrevDailyHigh = floatPtr(*st.DailyHigh)
		st.PrevDailyLow = floatPtr(*st.DailyLow)
	}
	st.TradingDay = day
	st.HourOpenHigh = nil
	st.HourOpenLow = nil
	st.DailyHigh = floatPtr(bar.High)
	st.DailyLow = floatPtr(bar.Low)
	st.ShortReady = false
	st.LongReady = false

	if st.Pos != 0 && s.cfg.CarryPositionAcrossRollover {
		s.logger.WithField("trading_day", day).Info("rollover with open position, keeping stop")
		return
	}
	if st.Pos != 0 {
		s.logger.WithFields(logrus.Fields{
			"trading_day": day,
			"pos":         st.Pos,
		}).Warn("rollover with open position, stop cleared")
	}
	st.EntryPrice = nil
	st.StopLossPrice = nil
	st.BreakevenStage = 0
	st.Trailing = false
}
