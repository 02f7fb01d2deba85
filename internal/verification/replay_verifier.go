package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/backtest"
	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/logging"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/storage"
)

var (
	// ErrTradeNotFound is returned when trade ID doesn't exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrRunNotFound is returned when run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrUnknownScenario is returned when a stored run names a scenario
	// that is neither predefined nor configured.
	ErrUnknownScenario = errors.New("unknown scenario")
)

// ReplayVerifier implements Verifier by re-running stored backtests from
// stored market data.
type ReplayVerifier struct {
	tradeStore   storage.TradeRecordStore
	runStore     storage.RunStore
	replayRunner *replay.Runner

	// scenarioConfigs overrides the predefined scenarios by ID.
	scenarioConfigs map[string]domain.ScenarioConfig
	logger          logrus.FieldLogger
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	TradeStore      storage.TradeRecordStore
	RunStore        storage.RunStore
	ReplayRunner    *replay.Runner
	ScenarioConfigs map[string]domain.ScenarioConfig
	Logger          logrus.FieldLogger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		tradeStore:      opts.TradeStore,
		runStore:        opts.RunStore,
		replayRunner:    opts.ReplayRunner,
		scenarioConfigs: opts.ScenarioConfigs,
		logger:          logging.OrDiscard(opts.Logger),
	}
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifyTrade verifies a single trade by replaying its run.
func (v *ReplayVerifier) VerifyTrade(ctx context.Context, tradeID string) (*VerificationResult, error) {
	stored, err := v.tradeStore.GetByID(ctx, tradeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	replayed, err := v.replayRun(ctx, stored.RunID)
	if err != nil {
		return nil, err
	}

	return compareOne(stored, replayed[stored.TradeID]), nil
}

// VerifyRun replays a stored run and compares all of its trades.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	stored, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	replayed, err := v.replayRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:       runID,
		TotalTrades: len(stored),
		Results:     make([]VerificationResult, 0, len(stored)),
	}

	seen := make(map[string]struct{}, len(stored))
	for _, trade := range stored {
		seen[trade.TradeID] = struct{}{}
		result := compareOne(trade, replayed[trade.TradeID])
		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}

	for id := range replayed {
		if _, ok := seen[id]; !ok {
			report.ExtraTrades = append(report.ExtraTrades, id)
		}
	}
	sort.Strings(report.ExtraTrades)

	v.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"trades":    report.TotalTrades,
		"matched":   report.MatchedTrades,
		"divergent": report.DivergentTrades,
		"extra":     len(report.ExtraTrades),
	}).Info("run verified")

	return report, nil
}

// replayRun re-executes a stored run without persisting anything and returns
// its trades keyed by trade ID.
func (v *ReplayVerifier) replayRun(ctx context.Context, runID string) (map[string]*domain.TradeRecord, error) {
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	scenario, ok := v.scenarioConfigs[run.ScenarioID]
	if !ok {
		scenario, ok = domain.ScenarioByID(run.ScenarioID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, run.ScenarioID)
	}

	runner := backtest.NewRunner(backtest.RunnerOptions{
		ReplayRunner: v.replayRunner,
		Logger:       v.logger,
	})
	results, err := runner.Run(ctx, backtest.RunConfig{
		RunID:    run.RunID,
		Symbol:   run.Symbol,
		From:     run.FromMs,
		To:       run.ToMs,
		Strategy: run.Config,
		Scenario: scenario,
		FillMode: execution.FillMode(run.FillMode),
	})
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", runID, err)
	}

	byID := make(map[string]*domain.TradeRecord, len(results.Trades))
	for _, t := range results.Trades {
		byID[t.TradeID] = t
	}
	return byID, nil
}

func compareOne(stored, replayed *domain.TradeRecord) *VerificationResult {
	result := &VerificationResult{
		TradeID:      stored.TradeID,
		StoredNetPnL: stored.NetPnL,
	}
	if replayed == nil {
		result.Divergences = []FieldDivergence{{Field: "TradeID", Expected: stored.TradeID, Actual: nil}}
		return result
	}

	result.Divergences = CompareTradeRecords(stored, replayed)
	result.Match = len(result.Divergences) == 0
	result.ReplayedNetPnL = replayed.NetPnL
	return result
}
