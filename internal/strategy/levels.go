package strategy

import (
	"time"

	"holo-reversal-lab/internal/domain"
)

// updateLevels widens ho/lo with the open of every top-of-hour bar.
func (s *HoloReversal) updateLevels(bar *domain.PriceBar, t time.Time) {
	if t.Minute() != 0 {
		return
	}
	st := &s.state
	if st.HourOpenHigh == nil || bar.Open > *st.HourOpenHigh {
		st.HourOpenHigh = floatPtr(bar.Open)
	}
	if st.HourOpenLow == nil || bar.Open < *st.HourOpenLow {
		st.HourOpenLow = floatPtr(bar.Open)
	}
}

// updateSignalOpen samples the bar open every SignalWindow minutes.
func (s *HoloReversal) updateSignalOpen(bar *domain.PriceBar, t time.Time) {
	if s.cfg.SignalWindow <= 1 || t.Minute()%s.cfg.SignalWindow == 0 {
		s.state.LastSignalOpen = floatPtr(bar.Open)
	}
}
