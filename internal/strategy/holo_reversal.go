package strategy

import (
	"time"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/logging"
)

// HoloReversal trades the retest of the top-of-hour open extremes inside the
// previous day's range. Every bar runs session, level and signal updates and
// then the entry and exit evaluators; every tick runs the evaluators only.
type HoloReversal struct {
	symbol  string
	cfg     domain.StrategyConfig
	loc     *time.Location
	gateway OrderGateway
	logger  logrus.FieldLogger
	id      string

	state State
}

func newHoloReversal(symbol string, cfg domain.StrategyConfig, loc *time.Location, gateway OrderGateway, logger logrus.FieldLogger) *HoloReversal {
	logger = logging.OrDiscard(logger)
	id := StrategyID(cfg)
	return &HoloReversal{
		symbol:  symbol,
		cfg:     cfg,
		loc:     loc,
		gateway: gateway,
		logger:  logger.WithFields(logrus.Fields{"strategy": id, "symbol": symbol}),
		id:      id,
	}
}

// ID returns the strategy identifier including parameters.
func (s *HoloReversal) ID() string {
	return s.id
}

// Symbol returns the instrument this instance trades.
func (s *HoloReversal) Symbol() string {
	return s.symbol
}

// Config returns the parameters the strategy was built with.
func (s *HoloReversal) Config() domain.StrategyConfig {
	return s.cfg
}

// OnBar updates session, levels, signal open and fallback quotes, then
// evaluates entry and exit.
func (s *HoloReversal) OnBar(bar *domain.PriceBar) {
	s.state.LastEventMs = bar.TimestampMs
	t := time.UnixMilli(bar.TimestampMs).In(s.loc)

	s.updateSession(bar, t)
	s.updateLevels(bar, t)
	s.updateSignalOpen(bar, t)
	s.fallbackQuotes(bar)

	s.evaluateEntry()
	s.evaluateExit()
}

// OnTick records the current bid/ask and evaluates entry and exit.
func (s *HoloReversal) OnTick(tick *domain.PriceTick) {
	s.state.LastEventMs = tick.TimestampMs
	s.state.Bid = floatPtr(tick.EffectiveBid())
	s.state.Ask = floatPtr(tick.EffectiveAsk())
	s.state.TickSeen = true

	s.evaluateEntry()
	s.evaluateExit()
}

// OnTrade applies a fill. The net position is taken from the fill; the entry
// price is only set if no provisional price was recorded at submission.
func (s *HoloReversal) OnTrade(fill *domain.Fill) {
	s.state.Pos = fill.NetPosition
	if s.state.Pos != 0 && s.state.EntryPrice == nil {
		s.state.EntryPrice = floatPtr(fill.Price)
		s.state.BreakevenStage = 0
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":  fill.OrderID,
		"direction": fill.Direction,
		"offset":    fill.Offset,
		"price":     fill.Price,
		"pos":       fill.NetPosition,
	}).Debug("fill")
}

// State returns a deep copy of the current state.
func (s *HoloReversal) State() State {
	return s.state.Clone()
}

// Restore replaces the current state with st.
func (s *HoloReversal) Restore(st State) {
	s.state = st.Clone()
}

// fallbackQuotes uses the bar close as bid and ask until a tick arrives.
func (s *HoloReversal) fallbackQuotes(bar *domain.PriceBar) {
	if s.state.TickSeen {
		return
	}
	s.state.Bid = floatPtr(bar.Close)
	s.state.Ask = floatPtr(bar.Close)
}

func (s *HoloReversal) submit(send func(domain.OrderRequest) string, price, volume float64, reason string) string {
	return send(domain.OrderRequest{
		Symbol:      s.symbol,
		Price:       price,
		Volume:      volume,
		TimestampMs: s.state.LastEventMs,
		Reason:      reason,
	})
}

var _ Strategy = (*HoloReversal)(nil)
