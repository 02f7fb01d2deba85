package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/metrics"
	"holo-reversal-lab/internal/observability"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/storage"
	"holo-reversal-lab/internal/strategy"
)

// Strategy is the strategy surface driven by the engine.
type Strategy interface {
	strategy.Strategy
	State() strategy.State
}

// Results holds backtest output.
type Results struct {
	RunID      string
	StrategyID string
	ScenarioID string
	Symbol     string

	EventCount    int
	BarCount      int
	TickCount     int
	SkippedEvents int // events for other symbols
	SnapshotCount int

	Orders        []domain.OrderRequest
	Fills         []domain.Fill
	Trades        []*domain.TradeRecord
	RejectedCount int
	PendingOrders int

	OpenPosition float64
	FinalState   strategy.State
	Aggregate    *domain.StrategyAggregate
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	RunID     string
	Symbol    string
	Scenario  domain.ScenarioConfig
	PriceTick float64

	// SnapshotStore receives a state snapshot every SnapshotEvery events.
	SnapshotStore storage.SnapshotStore
	SnapshotEvery int

	Logger logrus.FieldLogger
}

// Engine orchestrates strategy execution during backtest.
// Implements replay.ReplayEngine.
type Engine struct {
	strategy Strategy
	gateway  *execution.PaperGateway
	opts     EngineOptions
	ledger   *tradeLedger
	logger   logrus.FieldLogger
	results  *Results
}

// NewEngine creates a new backtest engine. The strategy must submit its
// orders to gateway.
func NewEngine(strat Strategy, gateway *execution.PaperGateway, opts EngineOptions) *Engine {
	return &Engine{
		strategy: strat,
		gateway:  gateway,
		opts:     opts,
		ledger:   newTradeLedger(opts.RunID, opts.Symbol, strat.ID(), opts.Scenario, opts.PriceTick),
		logger:   logging.OrDiscard(opts.Logger).WithField("run_id", opts.RunID),
		results: &Results{
			RunID:      opts.RunID,
			StrategyID: strat.ID(),
			ScenarioID: opts.Scenario.ScenarioID,
			Symbol:     opts.Symbol,
		},
	}
}

// OnEvent processes an event through the strategy.
// Implements replay.ReplayEngine.
func (e *Engine) OnEvent(ctx context.Context, event *replay.Event) error {
	if event.Symbol != e.opts.Symbol {
		e.results.SkippedEvents++
		return nil
	}

	// Orders from the previous event fill before this one is seen.
	if e.gateway.Mode() == execution.FillNextEvent {
		if err := e.deliverFills(event.TimestampMs); err != nil {
			return err
		}
	}

	switch event.Type {
	case replay.EventTypeBar:
		e.strategy.OnBar(event.Bar)
		e.results.BarCount++
	case replay.EventTypeTick:
		e.strategy.OnTick(event.Tick)
		e.results.TickCount++
	default:
		return fmt.Errorf("%w: %q", replay.ErrInvalidEvent, event.Type)
	}
	e.results.EventCount++

	if e.gateway.Mode() == execution.FillImmediate {
		if err := e.deliverFills(event.TimestampMs); err != nil {
			return err
		}
	}

	if e.opts.SnapshotStore != nil && e.opts.SnapshotEvery > 0 && e.results.EventCount%e.opts.SnapshotEvery == 0 {
		return e.snapshot(ctx, event.TimestampMs)
	}
	return nil
}

func (e *Engine) deliverFills(nowMs int64) error {
	for _, fill := range e.gateway.Drain(nowMs) {
		f := fill
		e.strategy.OnTrade(&f)
		e.results.Fills = append(e.results.Fills, f)

		order, ok := e.gateway.Order(f.OrderID)
		if !ok {
			return fmt.Errorf("fill for unknown order %s", f.OrderID)
		}

		trade, err := e.ledger.onFill(f, order, e.strategy.State().StopLossPrice)
		if errors.Is(err, ErrUnmatchedClose) {
			e.logger.WithField("order_id", f.OrderID).Warn("closing fill without open leg")
			continue
		}
		if err != nil {
			return err
		}
		if trade != nil {
			e.logger.WithFields(logrus.Fields{
				"trade_id": trade.TradeID,
				"side":     trade.Side,
				"reason":   trade.ExitReason,
				"net_pnl":  trade.NetPnL,
			}).Debug("trade closed")
		}
	}
	return nil
}

func (e *Engine) snapshot(ctx context.Context, tsMs int64) error {
	data, err := strategy.MarshalState(e.strategy.State())
	if err != nil {
		return err
	}

	err = e.opts.SnapshotStore.Insert(ctx, &domain.StrategySnapshot{
		StrategyID:  e.strategy.ID(),
		Symbol:      e.opts.Symbol,
		TimestampMs: tsMs,
		State:       data,
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		// bar and tick sharing a timestamp
		return nil
	}
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	e.results.SnapshotCount++
	observability.RecordSnapshotSaved()
	return nil
}

// Resume replaces the strategy with one restored from a snapshot of the
// current one. Pending orders, fills and open trades carry over. The new
// strategy must submit to the same gateway.
func (e *Engine) Resume(strat Strategy) {
	e.strategy = strat
}

// Trades returns the round trips closed so far.
func (e *Engine) Trades() []*domain.TradeRecord {
	return e.ledger.trades
}

// EventCount returns the number of events processed so far.
func (e *Engine) EventCount() int {
	return e.results.EventCount
}

// FillCount returns the number of fills delivered so far.
func (e *Engine) FillCount() int {
	return len(e.results.Fills)
}

// State returns the current strategy state.
func (e *Engine) State() strategy.State {
	return e.strategy.State()
}

// Results returns the backtest results.
func (e *Engine) Results() *Results {
	r := e.results
	r.Orders = e.gateway.Orders()
	r.RejectedCount = e.gateway.RejectedCount()
	r.PendingOrders = e.gateway.PendingCount()
	r.Trades = e.ledger.trades
	r.OpenPosition = e.gateway.Position(e.opts.Symbol)
	r.FinalState = e.strategy.State()

	r.Aggregate = metrics.Compute(r.Trades)
	r.Aggregate.RunID = r.RunID
	r.Aggregate.StrategyID = r.StrategyID
	r.Aggregate.ScenarioID = r.ScenarioID
	r.Aggregate.Symbol = r.Symbol
	return r
}

// Ensure Engine implements replay.ReplayEngine
var _ replay.ReplayEngine = (*Engine)(nil)
