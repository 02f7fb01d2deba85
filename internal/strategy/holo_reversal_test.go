package strategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/domain"
)

// seedShortSetup leaves the strategy with prev range [95,112], ho=lo=105,
// dailyHigh=110 and lastSignalOpen=107.
func seedShortSetup(t *testing.T, s *HoloReversal) {
	t.Helper()
	s.OnBar(makeBar(t, "2025-01-01 10:00", 100, 112, 95, 101))
	s.OnBar(makeBar(t, "2025-01-02 09:00", 105, 110, 104, 104.5))
	s.OnBar(makeBar(t, "2025-01-02 09:15", 107, 108, 106.5, 104.5))
}

func TestHoloReversal_ShortEntryScenario(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	seedShortSetup(t, s)

	st := s.State()
	require.NotNil(t, st.PrevDailyHigh)
	assert.Equal(t, 112.0, *st.PrevDailyHigh)
	assert.Equal(t, 95.0, *st.PrevDailyLow)
	assert.Equal(t, 105.0, *st.HourOpenHigh)
	assert.Equal(t, 110.0, *st.DailyHigh)
	assert.Equal(t, 107.0, *st.LastSignalOpen)
	assert.False(t, st.ShortReady)

	s.OnTick(makeTick(t, "2025-01-02 09:16", 106, 106.02))
	assert.True(t, s.State().ShortReady, "bid above ho arms the short side")
	assert.Empty(t, gw.orders)

	s.OnTick(makeTick(t, "2025-01-02 09:17", 104, 104.02))

	require.Len(t, gw.orders, 1)
	order := gw.orders[0]
	assert.Equal(t, domain.DirectionShort, order.Direction)
	assert.Equal(t, domain.OffsetOpen, order.Offset)
	assert.Equal(t, 105.0, order.Price)
	assert.Equal(t, 1.0, order.Volume)
	assert.Equal(t, domain.OrderReasonEntryShort, order.Reason)
	assert.Equal(t, ts(t, "2025-01-02 09:17"), order.TimestampMs)

	st = s.State()
	assert.Equal(t, 110.0, *st.StopLossPrice)
	assert.Equal(t, 105.0, *st.EntryPrice)
	assert.Equal(t, 0, st.BreakevenStage)
	assert.False(t, st.ShortReady)
}

func TestHoloReversal_NoEntryWithoutPreviousDay(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())

	s.OnBar(makeBar(t, "2025-01-02 09:00", 105, 110, 104, 106))
	s.OnBar(makeBar(t, "2025-01-02 09:15", 107, 108, 106.5, 107.5))
	s.OnTick(makeTick(t, "2025-01-02 09:16", 106, 106.02))
	s.OnTick(makeTick(t, "2025-01-02 09:17", 104, 104.02))
	s.OnTick(makeTick(t, "2025-01-02 09:18", 103, 103.02))
	s.OnTick(makeTick(t, "2025-01-02 09:19", 106, 106.02))

	assert.Empty(t, gw.orders)
	assert.Nil(t, s.State().PrevDailyHigh)
	assert.False(t, s.State().ShortReady, "gate blocks arming too")
}

func TestHoloReversal_GateRequiresBothQuotesInRange(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	seedShortSetup(t, s)

	// ask above prevDailyHigh keeps the gate closed
	s.OnTick(makeTick(t, "2025-01-02 09:16", 106, 112.5))
	assert.False(t, s.State().ShortReady)

	s.OnTick(makeTick(t, "2025-01-02 09:17", 106, 106.02))
	assert.True(t, s.State().ShortReady)

	s.OnTick(makeTick(t, "2025-01-02 09:18", 94.9, 104.02))
	assert.Empty(t, gw.orders, "bid below prevDailyLow blocks the trigger")
}

func TestHoloReversal_GateBoundariesInclusive(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	seedShortSetup(t, s)

	// bid and ask exactly on prevDailyHigh
	s.OnTick(makeTick(t, "2025-01-02 09:16", 112, 112))
	assert.True(t, s.State().ShortReady)

	// bid exactly on ho triggers
	s.OnTick(makeTick(t, "2025-01-02 09:17", 105, 105.02))
	require.Len(t, gw.orders, 1)
	assert.Equal(t, 105.0, gw.orders[0].Price)
}

func TestHoloReversal_SignalBetweenLevelsWaits(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	s.OnBar(makeBar(t, "2025-01-01 10:00", 100, 112, 95, 101))
	s.OnBar(makeBar(t, "2025-01-02 09:00", 104, 107, 103.5, 105))
	s.OnBar(makeBar(t, "2025-01-02 10:00", 106, 107, 105.5, 106.5))
	s.OnBar(makeBar(t, "2025-01-02 10:15", 105, 106.8, 104.8, 106.5))

	st := s.State()
	assert.Equal(t, 106.0, *st.HourOpenHigh)
	assert.Equal(t, 104.0, *st.HourOpenLow)
	assert.Equal(t, 105.0, *st.LastSignalOpen)

	s.OnTick(makeTick(t, "2025-01-02 10:16", 107, 107.02))
	s.OnTick(makeTick(t, "2025-01-02 10:17", 105.5, 105.52))

	// signal open sits between lo and ho: neither zone matches
	assert.Empty(t, gw.orders)
	assert.True(t, s.State().ShortReady, "still armed after a failed trigger")
	assert.False(t, s.State().LongReady)

	// the next sample lands in [ho, dailyHigh] and the bar itself triggers
	s.OnBar(makeBar(t, "2025-01-02 10:30", 106.3, 106.4, 105.4, 105.5))
	require.Len(t, gw.orders, 1)
	assert.Equal(t, 106.0, gw.orders[0].Price)
	assert.Equal(t, 107.0, *s.State().StopLossPrice)
}

func TestHoloReversal_LongEntryScenario(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	s.OnBar(makeBar(t, "2025-01-01 10:00", 100, 112, 95, 101))
	s.OnBar(makeBar(t, "2025-01-02 09:00", 100, 101, 96, 100.5))
	s.OnBar(makeBar(t, "2025-01-02 09:15", 98, 100.6, 97, 100.5))

	s.OnTick(makeTick(t, "2025-01-02 09:16", 99.48, 99.5))
	assert.True(t, s.State().LongReady)

	s.OnTick(makeTick(t, "2025-01-02 09:17", 100.1, 100.12))

	require.Len(t, gw.orders, 1)
	order := gw.orders[0]
	assert.Equal(t, domain.DirectionLong, order.Direction)
	assert.Equal(t, domain.OffsetOpen, order.Offset)
	assert.Equal(t, 100.0, order.Price)
	assert.Equal(t, domain.OrderReasonEntryLong, order.Reason)

	st := s.State()
	assert.Equal(t, 96.0, *st.StopLossPrice)
	assert.Equal(t, 100.0, *st.EntryPrice)
	assert.False(t, st.LongReady)
}

func TestHoloReversal_AtMostOnePosition(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	seedShortSetup(t, s)

	s.OnTick(makeTick(t, "2025-01-02 09:16", 106, 106.02))
	s.OnTick(makeTick(t, "2025-01-02 09:17", 104, 104.02))
	require.Len(t, gw.orders, 1)
	s.OnTrade(fillFor(gw.orders[0], -1))

	// re-arm and retest while short: no new entry
	s.OnTick(makeTick(t, "2025-01-02 09:18", 106, 106.02))
	s.OnTick(makeTick(t, "2025-01-02 09:19", 104.5, 104.52))
	assert.Len(t, gw.orders, 1)
	assert.False(t, s.State().ShortReady, "entry evaluator is skipped while in a position")
}

func TestHoloReversal_ShortBreakevenAndStopOut(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.EnableTrailing = false
	s, gw := newTestStrategy(t, cfg)
	s.Restore(State{
		Pos:           -1,
		EntryPrice:    floatPtr(105),
		StopLossPrice: floatPtr(110),
	})

	s.OnTick(makeTick(t, "2025-01-02 10:00", 104.92, 104.94))
	st := s.State()
	assert.Equal(t, 104.99, *st.StopLossPrice)
	assert.Equal(t, 1, st.BreakevenStage)

	s.OnTick(makeTick(t, "2025-01-02 10:01", 104.87, 104.89))
	st = s.State()
	assert.Equal(t, 104.95, *st.StopLossPrice)
	assert.Equal(t, 2, st.BreakevenStage)
	assert.Empty(t, gw.orders)

	s.OnTick(makeTick(t, "2025-01-02 10:02", 104.93, 104.95))
	require.Len(t, gw.orders, 1)
	order := gw.orders[0]
	assert.Equal(t, domain.DirectionLong, order.Direction)
	assert.Equal(t, domain.OffsetClose, order.Offset)
	assert.Equal(t, 104.95, order.Price)
	assert.Equal(t, 1.0, order.Volume)
	assert.Equal(t, domain.ExitReasonBreakevenStop, order.Reason)

	st = s.State()
	assert.Nil(t, st.EntryPrice)
	assert.Equal(t, 0, st.BreakevenStage)
	require.NotNil(t, st.StopLossPrice, "stop survives the exit")
	assert.Equal(t, 104.95, *st.StopLossPrice)
}

func TestHoloReversal_ShortTrailingTightensStop(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	s, gw := newTestStrategy(t, cfg)
	s.Restore(State{
		Pos:           -1,
		EntryPrice:    floatPtr(105),
		StopLossPrice: floatPtr(110),
	})

	s.OnTick(makeTick(t, "2025-01-02 10:00", 104.92, 104.94))
	assert.Equal(t, 104.99, *s.State().StopLossPrice)

	// 11 ticks in profit: stage 2 moves the stop to 104.95, then the trailing
	// candidate 104.89 + 5 ticks = 104.94 is strictly lower and is adopted.
	s.OnTick(makeTick(t, "2025-01-02 10:01", 104.87, 104.89))
	st := s.State()
	assert.Equal(t, 104.94, *st.StopLossPrice)
	assert.Equal(t, 2, st.BreakevenStage)
	assert.True(t, st.Trailing)

	s.OnTick(makeTick(t, "2025-01-02 10:02", 104.8, 104.82))
	assert.Equal(t, 104.87, *s.State().StopLossPrice)

	// a pullback never loosens the stop
	s.OnTick(makeTick(t, "2025-01-02 10:03", 104.84, 104.86))
	assert.Equal(t, 104.87, *s.State().StopLossPrice)
	assert.Empty(t, gw.orders)

	s.OnTick(makeTick(t, "2025-01-02 10:04", 104.86, 104.88))
	require.Len(t, gw.orders, 1)
	assert.Equal(t, 104.87, gw.orders[0].Price)
	assert.Equal(t, domain.ExitReasonTrailingStop, gw.orders[0].Reason)
}

func TestHoloReversal_LongInitialStop(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	s.Restore(State{
		Pos:           1,
		EntryPrice:    floatPtr(100),
		StopLossPrice: floatPtr(96),
	})

	s.OnTick(makeTick(t, "2025-01-02 10:00", 99, 99.02))
	assert.Empty(t, gw.orders)

	s.OnTick(makeTick(t, "2025-01-02 10:01", 95.9, 95.92))
	require.Len(t, gw.orders, 1)
	order := gw.orders[0]
	assert.Equal(t, domain.DirectionShort, order.Direction)
	assert.Equal(t, domain.OffsetClose, order.Offset)
	assert.Equal(t, 96.0, order.Price)
	assert.Equal(t, domain.ExitReasonInitialStop, order.Reason)
}

func TestHoloReversal_LongBreakevenStages(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.EnableTrailing = false
	s, _ := newTestStrategy(t, cfg)
	s.Restore(State{
		Pos:           1,
		EntryPrice:    floatPtr(100),
		StopLossPrice: floatPtr(96),
	})

	s.OnTick(makeTick(t, "2025-01-02 10:00", 100.05, 100.07))
	assert.Equal(t, 100.01, *s.State().StopLossPrice)
	assert.Equal(t, 1, s.State().BreakevenStage)

	// jumping straight past both thresholds lands on stage 2
	s.Restore(State{
		Pos:           1,
		EntryPrice:    floatPtr(100),
		StopLossPrice: floatPtr(96),
	})
	s.OnTick(makeTick(t, "2025-01-02 10:01", 100.2, 100.22))
	assert.Equal(t, 100.05, *s.State().StopLossPrice)
	assert.Equal(t, 2, s.State().BreakevenStage)
}

func TestHoloReversal_FirstFillPriceDoesNotOverrideProvisional(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	seedShortSetup(t, s)
	s.OnTick(makeTick(t, "2025-01-02 09:16", 106, 106.02))
	s.OnTick(makeTick(t, "2025-01-02 09:17", 104, 104.02))
	require.Len(t, gw.orders, 1)

	fill := fillFor(gw.orders[0], -1)
	fill.Price = 104.97
	s.OnTrade(fill)

	st := s.State()
	assert.Equal(t, -1.0, st.Pos)
	assert.Equal(t, 105.0, *st.EntryPrice)
}

func TestHoloReversal_FillSetsEntryPriceWhenUnset(t *testing.T) {
	s, _ := newTestStrategy(t, domain.DefaultStrategyConfig())
	s.Restore(State{BreakevenStage: 2})

	s.OnTrade(&domain.Fill{Price: 101.5, NetPosition: 1})

	st := s.State()
	require.NotNil(t, st.EntryPrice)
	assert.Equal(t, 101.5, *st.EntryPrice)
	assert.Equal(t, 0, st.BreakevenStage)
}

func TestHoloReversal_RejectedOrderIsLogged(t *testing.T) {
	s, gw := newTestStrategy(t, domain.DefaultStrategyConfig())
	gw.reject = true
	seedShortSetup(t, s)
	s.OnTick(makeTick(t, "2025-01-02 09:16", 106, 106.02))
	s.OnTick(makeTick(t, "2025-01-02 09:17", 104, 104.02))

	assert.Empty(t, gw.orders)
	assert.Equal(t, 0.0, s.State().Pos)
}

func TestHoloReversal_BarOnlyQuotesFollowClose(t *testing.T) {
	s, _ := newTestStrategy(t, domain.DefaultStrategyConfig())

	s.OnBar(makeBar(t, "2025-01-01 10:00", 100, 101, 99, 100.5))
	assert.Equal(t, 100.5, *s.State().Bid)
	s.OnBar(makeBar(t, "2025-01-01 10:01", 100.5, 102, 100, 101.7))
	assert.Equal(t, 101.7, *s.State().Bid)
	assert.Equal(t, 101.7, *s.State().Ask)

	s.OnTick(makeTick(t, "2025-01-01 10:01", 101.6, 101.62))
	s.OnBar(makeBar(t, "2025-01-01 10:02", 101.7, 103, 101, 102.9))
	assert.Equal(t, 101.6, *s.State().Bid, "bars stop overriding quotes once ticks flow")
	assert.Equal(t, 101.62, *s.State().Ask)
}

func TestHoloReversal_TickWithoutBidAskUsesLastPrice(t *testing.T) {
	s, _ := newTestStrategy(t, domain.DefaultStrategyConfig())
	zero := 0.0
	s.OnTick(&domain.PriceTick{TimestampMs: ts(t, "2025-01-01 10:00"), BidPrice: &zero, LastPrice: 99.5})

	st := s.State()
	assert.Equal(t, 99.5, *st.Bid)
	assert.Equal(t, 99.5, *st.Ask)
	assert.True(t, st.TickSeen)
}

func TestHoloReversal_LongStopMonotonic(t *testing.T) {
	s, _ := newTestStrategy(t, domain.DefaultStrategyConfig())
	s.Restore(State{
		Pos:           1,
		EntryPrice:    floatPtr(100),
		StopLossPrice: floatPtr(90),
	})

	rng := rand.New(rand.NewSource(7))
	price := 100.0
	prevStop := 90.0
	prevStage := 0
	for i := 0; i < 500; i++ {
		price += float64(rng.Intn(7)-2) * 0.01
		s.OnTick(&domain.PriceTick{TimestampMs: int64(i), LastPrice: price})

		st := s.State()
		if st.EntryPrice == nil {
			break
		}
		assert.GreaterOrEqual(t, *st.StopLossPrice, prevStop)
		assert.GreaterOrEqual(t, st.BreakevenStage, prevStage)
		prevStop = *st.StopLossPrice
		prevStage = st.BreakevenStage
	}
	assert.Greater(t, prevStop, 90.0)
}

func TestHoloReversal_ShortStopMonotonic(t *testing.T) {
	s, _ := newTestStrategy(t, domain.DefaultStrategyConfig())
	s.Restore(State{
		Pos:           -1,
		EntryPrice:    floatPtr(100),
		StopLossPrice: floatPtr(110),
	})

	rng := rand.New(rand.NewSource(11))
	price := 100.0
	prevStop := 110.0
	prevStage := 0
	for i := 0; i < 500; i++ {
		price -= float64(rng.Intn(7)-2) * 0.01
		s.OnTick(&domain.PriceTick{TimestampMs: int64(i), LastPrice: price})

		st := s.State()
		if st.EntryPrice == nil {
			break
		}
		assert.LessOrEqual(t, *st.StopLossPrice, prevStop)
		assert.GreaterOrEqual(t, st.BreakevenStage, prevStage)
		prevStop = *st.StopLossPrice
		prevStage = st.BreakevenStage
	}
	assert.Less(t, prevStop, 110.0)
}

func TestHoloReversal_ID(t *testing.T) {
	s, _ := newTestStrategy(t, domain.DefaultStrategyConfig())
	assert.Equal(t, "HOLO_REVERSAL_w15_d0_be5_10_trail5", s.ID())

	cfg := domain.DefaultStrategyConfig()
	cfg.EnableTrailing = false
	assert.Equal(t, "HOLO_REVERSAL_w15_d0_be5_10_notrail", StrategyID(cfg))
}
