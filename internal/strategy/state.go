package strategy

import (
	"encoding/json"
	"fmt"
)

// State is the complete mutable state of a HoloReversal instance.
// Nil pointers mean "not yet known". The JSON form is used for snapshots.
type State struct {
	// Session
	TradingDay    string   `json:"trading_day,omitempty"`
	DailyHigh     *float64 `json:"daily_high"`
	DailyLow      *float64 `json:"daily_low"`
	PrevDailyHigh *float64 `json:"prev_daily_high"`
	PrevDailyLow  *float64 `json:"prev_daily_low"`

	// Top-of-hour open extremes (ho/lo)
	HourOpenHigh *float64 `json:"ho"`
	HourOpenLow  *float64 `json:"lo"`

	// Signal sampler
	LastSignalOpen *float64 `json:"last_signal_open"`

	// Entry arming
	ShortReady bool `json:"short_ready"`
	LongReady  bool `json:"long_ready"`

	// Position
	Pos            float64  `json:"pos"`
	EntryPrice     *float64 `json:"entry_price"`
	StopLossPrice  *float64 `json:"stop_loss_price"`
	BreakevenStage int      `json:"breakeven_stage"`
	Trailing       bool     `json:"trailing"`

	// Quotes
	Bid      *float64 `json:"bid"`
	Ask      *float64 `json:"ask"`
	TickSeen bool     `json:"tick_seen"`

	LastEventMs int64 `json:"last_event_ms"`
}

// Clone returns a deep copy of the state.
func (st State) Clone() State {
	c := st
	c.DailyHigh = cloneFloat(st.DailyHigh)
	c.DailyLow = cloneFloat(st.DailyLow)
	c.PrevDailyHigh = cloneFloat(st.PrevDailyHigh)
	c.PrevDailyLow = cloneFloat(st.PrevDailyLow)
	c.HourOpenHigh = cloneFloat(st.HourOpenHigh)
	c.HourOpenLow = cloneFloat(st.HourOpenLow)
	c.LastSignalOpen = cloneFloat(st.LastSignalOpen)
	c.EntryPrice = cloneFloat(st.EntryPrice)
	c.StopLossPrice = cloneFloat(st.StopLossPrice)
	c.Bid = cloneFloat(st.Bid)
	c.Ask = cloneFloat(st.Ask)
	return c
}

// MarshalState encodes a state snapshot.
func MarshalState(st State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal strategy state: %w", err)
	}
	return data, nil
}

// UnmarshalState decodes a state snapshot produced by MarshalState.
func UnmarshalState(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("unmarshal strategy state: %w", err)
	}
	return st, nil
}
