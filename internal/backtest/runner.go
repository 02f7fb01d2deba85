package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/observability"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/storage"
	"holo-reversal-lab/internal/strategy"
)

// Runner errors
var (
	ErrMissingSymbol = errors.New("symbol is required")
	ErrNoEvents      = errors.New("no market events in range")
)

// RunConfig describes one backtest.
type RunConfig struct {
	RunID    string // generated when empty
	Symbol   string
	From     int64 // inclusive, ms; From == To == 0 replays everything
	To       int64 // inclusive, ms
	Strategy domain.StrategyConfig
	Scenario domain.ScenarioConfig
	FillMode execution.FillMode

	// SnapshotEvery saves a strategy snapshot every N events (0 = never).
	SnapshotEvery int
}

// RunnerOptions contains configuration for creating a Runner.
// All stores except the replay runner are optional.
type RunnerOptions struct {
	ReplayRunner     *replay.Runner
	TradeRecordStore storage.TradeRecordStore
	RunStore         storage.RunStore
	AggregateStore   storage.StrategyAggregateStore
	SnapshotStore    storage.SnapshotStore
	Logger           logrus.FieldLogger
}

// Runner executes backtests and persists their output.
type Runner struct {
	replayRunner     *replay.Runner
	tradeRecordStore storage.TradeRecordStore
	runStore         storage.RunStore
	aggregateStore   storage.StrategyAggregateStore
	snapshotStore    storage.SnapshotStore
	logger           logrus.FieldLogger
	now              func() time.Time
}

// NewRunner creates a new backtest runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		replayRunner:     opts.ReplayRunner,
		tradeRecordStore: opts.TradeRecordStore,
		runStore:         opts.RunStore,
		aggregateStore:   opts.AggregateStore,
		snapshotStore:    opts.SnapshotStore,
		logger:           logging.OrDiscard(opts.Logger),
		now:              time.Now,
	}
}

// Run loads events for rc.Symbol from storage and executes the backtest.
func (r *Runner) Run(ctx context.Context, rc RunConfig) (*Results, error) {
	if rc.Symbol == "" {
		return nil, ErrMissingSymbol
	}
	if r.replayRunner == nil {
		return nil, errors.New("replay runner is required")
	}

	var (
		events []*replay.Event
		err    error
	)
	if rc.From == 0 && rc.To == 0 {
		events, err = r.replayRunner.LoadAll(ctx, rc.Symbol)
	} else {
		events, err = r.replayRunner.Load(ctx, rc.Symbol, rc.From, rc.To)
	}
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	return r.RunEvents(ctx, rc, events)
}

// RunEvents executes the backtest over an in-memory event stream.
// Steps:
//  1. Build paper gateway and strategy
//  2. Replay events through the engine
//  3. Persist trades, aggregate and run record when stores are configured
func (r *Runner) RunEvents(ctx context.Context, rc RunConfig, events []*replay.Event) (*Results, error) {
	if rc.Symbol == "" {
		return nil, ErrMissingSymbol
	}
	if rc.RunID == "" {
		rc.RunID = uuid.NewString()
	}
	if rc.Scenario.ScenarioID == "" {
		rc.Scenario = domain.ScenarioConfigOptimistic
	}
	mode, err := execution.ParseFillMode(string(rc.FillMode))
	if err != nil {
		return nil, err
	}
	rc.FillMode = mode

	started := r.now()
	logger := r.logger.WithFields(logrus.Fields{
		"run_id":   rc.RunID,
		"symbol":   rc.Symbol,
		"scenario": rc.Scenario.ScenarioID,
	})

	// 1. Build paper gateway and strategy
	gateway := execution.NewPaperGateway(execution.PaperOptions{FillMode: mode})
	strat, err := strategy.FromConfig(rc.Symbol, rc.Strategy, gateway, logger)
	if err != nil {
		return nil, err
	}

	engine := NewEngine(strat, gateway, EngineOptions{
		RunID:         rc.RunID,
		Symbol:        rc.Symbol,
		Scenario:      rc.Scenario,
		PriceTick:     rc.Strategy.PriceTick,
		SnapshotStore: r.snapshotStore,
		SnapshotEvery: rc.SnapshotEvery,
		Logger:        logger,
	})

	// 2. Replay events through the engine
	if _, err := replay.RunEvents(ctx, events, engine); err != nil {
		observability.RecordBacktestRun(rc.Scenario.ScenarioID, "error", r.now().Sub(started).Seconds())
		return nil, err
	}
	results := engine.Results()

	// 3. Persist
	if err := r.persist(ctx, rc, results, started); err != nil {
		observability.RecordBacktestRun(rc.Scenario.ScenarioID, "error", r.now().Sub(started).Seconds())
		return nil, err
	}

	observability.RecordBacktestRun(rc.Scenario.ScenarioID, "ok", r.now().Sub(started).Seconds())
	logger.WithFields(logrus.Fields{
		"events": results.EventCount,
		"orders": len(results.Orders),
		"trades": len(results.Trades),
		"net":    results.Aggregate.NetPnLTotal,
	}).Info("backtest complete")

	return results, nil
}

func (r *Runner) persist(ctx context.Context, rc RunConfig, results *Results, started time.Time) error {
	if r.tradeRecordStore != nil && len(results.Trades) > 0 {
		if err := r.tradeRecordStore.InsertBulk(ctx, results.Trades); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
	}

	if r.aggregateStore != nil && results.Aggregate.TotalTrades > 0 {
		if err := r.aggregateStore.Insert(ctx, results.Aggregate); err != nil {
			return fmt.Errorf("store aggregate: %w", err)
		}
	}

	if r.runStore != nil {
		run := &domain.BacktestRun{
			RunID:       rc.RunID,
			StrategyID:  results.StrategyID,
			ScenarioID:  rc.Scenario.ScenarioID,
			Symbol:      rc.Symbol,
			FromMs:      rc.From,
			ToMs:        rc.To,
			Config:      rc.Strategy,
			FillMode:    string(rc.FillMode),
			EventCount:  results.EventCount,
			OrderCount:  len(results.Orders),
			TradeCount:  len(results.Trades),
			StartedAt:   started.UnixMilli(),
			CompletedAt: r.now().UnixMilli(),
		}
		if err := r.runStore.Insert(ctx, run); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
	}

	return nil
}
