package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/backtest"
	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/strategy"
)

// ErrInvalidSplit is returned when the split index is outside the stream.
var ErrInvalidSplit = errors.New("split index out of range")

// OrderDivergence is a mismatch at one position of the order sequences.
// A nil side means that sequence ended early.
type OrderDivergence struct {
	Index         int
	Uninterrupted *domain.OrderRequest
	Resumed       *domain.OrderRequest
}

// CheckpointResult reports one snapshot/restore comparison.
type CheckpointResult struct {
	Split       int
	Orders      int // orders of the uninterrupted run
	Divergences []OrderDivergence
	StateMatch  bool // final states are identical
}

// Match reports whether the resumed run reproduced the uninterrupted one.
func (r *CheckpointResult) Match() bool {
	return len(r.Divergences) == 0 && r.StateMatch
}

// CheckpointVerifier checks that serializing the strategy state to JSON and
// restoring it into a fresh instance does not change behavior.
type CheckpointVerifier struct {
	symbol   string
	config   domain.StrategyConfig
	fillMode execution.FillMode
	logger   logrus.FieldLogger
}

// NewCheckpointVerifier creates a verifier for one symbol and parameter set.
func NewCheckpointVerifier(symbol string, cfg domain.StrategyConfig, mode execution.FillMode, logger logrus.FieldLogger) *CheckpointVerifier {
	return &CheckpointVerifier{
		symbol:   symbol,
		config:   cfg,
		fillMode: mode,
		logger:   logging.OrDiscard(logger),
	}
}

// Verify runs events uninterrupted, then again with a snapshot taken after
// events[:split] and restored into a new strategy, and compares the orders.
func (v *CheckpointVerifier) Verify(ctx context.Context, events []*replay.Event, split int) (*CheckpointResult, error) {
	if split < 0 || split > len(events) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidSplit, split, len(events))
	}

	baseline, _, baseStrat, err := v.newEngine()
	if err != nil {
		return nil, err
	}
	if _, err := replay.RunEvents(ctx, events, baseline); err != nil {
		return nil, fmt.Errorf("uninterrupted run: %w", err)
	}

	resumed, gateway, resumedStrat, err := v.newEngine()
	if err != nil {
		return nil, err
	}
	if _, err := replay.RunEvents(ctx, events[:split], resumed); err != nil {
		return nil, fmt.Errorf("run before split: %w", err)
	}

	data, err := strategy.MarshalState(resumedStrat.State())
	if err != nil {
		return nil, err
	}
	st, err := strategy.UnmarshalState(data)
	if err != nil {
		return nil, err
	}
	restored, err := strategy.FromConfig(v.symbol, v.config, gateway, v.logger)
	if err != nil {
		return nil, err
	}
	restored.Restore(st)
	resumed.Resume(restored)

	if _, err := replay.RunEvents(ctx, events[split:], resumed); err != nil {
		return nil, fmt.Errorf("run after split: %w", err)
	}

	want := baseline.Results().Orders
	got := resumed.Results().Orders

	baseState, err := strategy.MarshalState(baseStrat.State())
	if err != nil {
		return nil, err
	}
	endState, err := strategy.MarshalState(restored.State())
	if err != nil {
		return nil, err
	}

	result := &CheckpointResult{
		Split:       split,
		Orders:      len(want),
		Divergences: compareOrders(want, got),
		StateMatch:  string(baseState) == string(endState),
	}
	if !result.Match() {
		v.logger.WithFields(logrus.Fields{
			"split":       split,
			"divergences": len(result.Divergences),
			"state_match": result.StateMatch,
		}).Warn("checkpoint divergence")
	}
	return result, nil
}

// VerifyEvery runs Verify at every step-th split point, including 0 and len(events).
func (v *CheckpointVerifier) VerifyEvery(ctx context.Context, events []*replay.Event, step int) ([]*CheckpointResult, error) {
	if step <= 0 {
		step = 1
	}
	var results []*CheckpointResult
	for split := 0; split <= len(events); split += step {
		r, err := v.Verify(ctx, events, split)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if len(events)%step != 0 {
		r, err := v.Verify(ctx, events, len(events))
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (v *CheckpointVerifier) newEngine() (*backtest.Engine, *execution.PaperGateway, *strategy.HoloReversal, error) {
	gateway := execution.NewPaperGateway(execution.PaperOptions{FillMode: v.fillMode})
	strat, err := strategy.FromConfig(v.symbol, v.config, gateway, v.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	engine := backtest.NewEngine(strat, gateway, backtest.EngineOptions{
		RunID:     "checkpoint",
		Symbol:    v.symbol,
		Scenario:  domain.ScenarioConfigOptimistic,
		PriceTick: v.config.PriceTick,
		Logger:    v.logger,
	})
	return engine, gateway, strat, nil
}

// compareOrders ignores order IDs, which are random per gateway.
func compareOrders(want, got []domain.OrderRequest) []OrderDivergence {
	var out []OrderDivergence
	n := max(len(want), len(got))
	for i := 0; i < n; i++ {
		var w, g *domain.OrderRequest
		if i < len(want) {
			w = &want[i]
		}
		if i < len(got) {
			g = &got[i]
		}
		if w != nil && g != nil && sameOrder(*w, *g) {
			continue
		}
		out = append(out, OrderDivergence{Index: i, Uninterrupted: w, Resumed: g})
	}
	return out
}

func sameOrder(a, b domain.OrderRequest) bool {
	a.OrderID, b.OrderID = "", ""
	return a == b
}
