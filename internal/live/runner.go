// Package live drives the strategy from a streaming market data feed
// against the paper gateway and persists what it sees.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/backtest"
	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/feed"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/observability"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/storage"
	"holo-reversal-lab/internal/strategy"
)

// Status is a point-in-time view of a running strategy.
type Status struct {
	RunID        string         `json:"run_id"`
	Symbol       string         `json:"symbol"`
	StrategyID   string         `json:"strategy_id"`
	Running      bool           `json:"running"`
	StartedAt    time.Time      `json:"started_at"`
	RestoredFrom int64          `json:"restored_from_ms,omitempty"`
	Events       int            `json:"events"`
	StaleEvents  int            `json:"stale_events"`
	LastEventMs  int64          `json:"last_event_ms"`
	Orders       int            `json:"orders"`
	Trades       int            `json:"trades"`
	Position     float64        `json:"position"`
	RealizedNet  float64        `json:"realized_net_pnl"`
	State        strategy.State `json:"state"`
	LastError    string         `json:"last_error,omitempty"`
}

// RunnerOptions contains configuration for creating a Runner.
// Stores are optional.
type RunnerOptions struct {
	RunID    string
	Symbol   string
	Strategy domain.StrategyConfig
	Scenario domain.ScenarioConfig
	FillMode execution.FillMode

	// BarsFromTicks builds one-minute bars from ticks for feeds that only
	// stream quotes.
	BarsFromTicks bool
	SnapshotEvery int

	BarStore      storage.BarStore
	TickStore     storage.TickStore
	TradeStore    storage.TradeRecordStore
	SnapshotStore storage.SnapshotStore

	Logger logrus.FieldLogger
}

// Runner consumes feed events sequentially on one goroutine. Status may be
// read concurrently.
type Runner struct {
	opts     RunnerOptions
	gateway  *execution.PaperGateway
	strategy *strategy.HoloReversal
	engine   *backtest.Engine
	bars     *feed.BarGenerator
	logger   logrus.FieldLogger

	// counts already reported to metrics and stores
	orders   int
	rejected int
	fills    int
	trades   int
	realized float64

	mu     sync.RWMutex
	status Status
}

// NewRunner builds the strategy and restores the latest snapshot for
// (strategy, symbol) when a snapshot store is configured.
func NewRunner(ctx context.Context, opts RunnerOptions) (*Runner, error) {
	if opts.Symbol == "" {
		return nil, backtest.ErrMissingSymbol
	}
	if opts.RunID == "" {
		opts.RunID = fmt.Sprintf("live-%s-%d", opts.Symbol, time.Now().UnixMilli())
	}
	if opts.Scenario.ScenarioID == "" {
		opts.Scenario = domain.ScenarioConfigOptimistic
	}
	mode, err := execution.ParseFillMode(string(opts.FillMode))
	if err != nil {
		return nil, err
	}

	logger := logging.OrDiscard(opts.Logger).WithFields(logrus.Fields{
		"component": "live",
		"run_id":    opts.RunID,
	})

	gateway := execution.NewPaperGateway(execution.PaperOptions{FillMode: mode})
	strat, err := strategy.FromConfig(opts.Symbol, opts.Strategy, gateway, logger)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		opts:     opts,
		gateway:  gateway,
		strategy: strat,
		logger:   logger,
		status: Status{
			RunID:      opts.RunID,
			Symbol:     opts.Symbol,
			StrategyID: strat.ID(),
		},
	}
	if opts.BarsFromTicks {
		r.bars = feed.NewBarGenerator(opts.Symbol)
	}

	if err := r.restore(ctx); err != nil {
		return nil, err
	}

	r.engine = backtest.NewEngine(strat, gateway, backtest.EngineOptions{
		RunID:         opts.RunID,
		Symbol:        opts.Symbol,
		Scenario:      opts.Scenario,
		PriceTick:     opts.Strategy.PriceTick,
		SnapshotStore: opts.SnapshotStore,
		SnapshotEvery: opts.SnapshotEvery,
		Logger:        logger,
	})
	r.updateStatus()

	return r, nil
}

func (r *Runner) restore(ctx context.Context) error {
	if r.opts.SnapshotStore == nil {
		return nil
	}

	snap, err := r.opts.SnapshotStore.GetLatest(ctx, r.strategy.ID(), r.opts.Symbol)
	if errors.Is(err, storage.ErrNotFound) {
		r.logger.Info("no snapshot, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	st, err := strategy.UnmarshalState(snap.State)
	if err != nil {
		return err
	}
	r.strategy.Restore(st)
	r.gateway.SetPosition(r.opts.Symbol, st.Pos)
	r.status.RestoredFrom = snap.TimestampMs

	r.logger.WithFields(logrus.Fields{
		"snapshot_ms": snap.TimestampMs,
		"pos":         st.Pos,
		"trading_day": st.TradingDay,
	}).Info("restored snapshot")
	return nil
}

// Run processes events until the channel is closed or ctx is cancelled.
// Event handling errors are logged and do not stop the runner; storage
// errors on snapshots do.
func (r *Runner) Run(ctx context.Context, events <-chan *replay.Event) error {
	r.mu.Lock()
	r.status.Running = true
	r.status.StartedAt = time.Now()
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.status.Running = false
		r.mu.Unlock()
	}()

	r.logger.WithField("symbol", r.opts.Symbol).Info("live runner started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if r.bars != nil {
					if b := r.bars.Flush(); b != nil {
						if err := r.process(ctx, replay.BarEvent(b)); err != nil {
							return err
						}
					}
				}
				r.logger.Info("feed closed")
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// Handle processes a single feed event.
func (r *Runner) Handle(ctx context.Context, ev *replay.Event) error {
	if ev == nil || ev.Symbol != r.opts.Symbol {
		return nil
	}

	// Events older than the restored or last processed one are replays
	// from a reconnect.
	if ev.TimestampMs < r.strategy.State().LastEventMs {
		r.mu.Lock()
		r.status.StaleEvents++
		r.mu.Unlock()
		return nil
	}

	if r.bars != nil && ev.Type == replay.EventTypeTick {
		if b := r.bars.Update(ev.Tick); b != nil {
			if err := r.process(ctx, replay.BarEvent(b)); err != nil {
				return err
			}
		}
	}

	return r.process(ctx, ev)
}

func (r *Runner) process(ctx context.Context, ev *replay.Event) error {
	r.persistEvent(ctx, ev)

	if err := r.engine.OnEvent(ctx, ev); err != nil {
		if errors.Is(err, replay.ErrInvalidEvent) {
			r.recordError(err)
			return nil
		}
		return err
	}
	observability.RecordEvent(string(ev.Type), ev.TimestampMs)

	r.recordExecution(ctx)
	r.updateStatus()
	return nil
}

// persistEvent appends market data. Failures are logged; the strategy keeps
// running on the in-memory stream.
func (r *Runner) persistEvent(ctx context.Context, ev *replay.Event) {
	var err error
	switch ev.Type {
	case replay.EventTypeBar:
		if r.opts.BarStore == nil {
			return
		}
		err = r.opts.BarStore.InsertBulk(ctx, []*domain.PriceBar{ev.Bar})
	case replay.EventTypeTick:
		if r.opts.TickStore == nil {
			return
		}
		err = r.opts.TickStore.InsertBulk(ctx, []*domain.PriceTick{ev.Tick})
	default:
		return
	}

	switch {
	case err == nil:
		observability.RecordEventsStored(string(ev.Type), 1)
	case errors.Is(err, storage.ErrDuplicateKey):
	default:
		r.recordError(fmt.Errorf("store %s: %w", ev.Type, err))
	}
}

// recordExecution reports orders, fills and trades produced since the last call.
func (r *Runner) recordExecution(ctx context.Context) {
	orders := r.gateway.Orders()
	for _, o := range orders[r.orders:] {
		observability.RecordOrder(o.Reason, true)
	}
	r.orders = len(orders)

	for rejected := r.gateway.RejectedCount(); r.rejected < rejected; r.rejected++ {
		observability.RecordOrder("", false)
	}

	for fills := r.engine.FillCount(); r.fills < fills; r.fills++ {
		observability.RecordFill()
	}

	trades := r.engine.Trades()
	for _, t := range trades[r.trades:] {
		observability.RecordTrade(t.ExitReason, t.OutcomeClass, t.NetPnL)
		r.realized += t.NetPnL
		if r.opts.TradeStore != nil {
			if err := r.opts.TradeStore.Insert(ctx, t); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				r.recordError(fmt.Errorf("store trade: %w", err))
			}
		}
		r.logger.WithFields(logrus.Fields{
			"trade_id": t.TradeID,
			"side":     t.Side,
			"reason":   t.ExitReason,
			"net_pnl":  t.NetPnL,
		}).Info("trade closed")
	}
	r.trades = len(trades)

	st := r.engine.State()
	observability.UpdatePosition(r.opts.Symbol, st.Pos, st.StopLossPrice, st.BreakevenStage)
}

func (r *Runner) recordError(err error) {
	r.logger.WithError(err).Warn("live event error")
	observability.RecordFeedError("process")

	r.mu.Lock()
	r.status.LastError = err.Error()
	r.mu.Unlock()
}

func (r *Runner) updateStatus() {
	st := r.strategy.State()
	events := 0
	if r.engine != nil {
		st = r.engine.State()
		events = r.engine.EventCount()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = st
	r.status.LastEventMs = st.LastEventMs
	r.status.Orders = r.orders
	r.status.Trades = r.trades
	r.status.Position = r.gateway.Position(r.opts.Symbol)
	r.status.RealizedNet = r.realized
	r.status.Events = events
}

// Status returns a copy of the current status.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	s.State = r.status.State.Clone()
	return s
}
