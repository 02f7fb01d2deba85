package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/backtest"
	"holo-reversal-lab/internal/config"
	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/reporting"
	"holo-reversal-lab/internal/verification"
)

func backtestCmd() *cobra.Command {
	var (
		data          dataFlags
		runID         string
		scenarioID    string
		fillMode      string
		allScenarios  bool
		verifyAfter   bool
		tradesCSVPath string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay stored or file market data through the strategy",
		Long: "Replays bars and ticks through the strategy on a paper gateway and stores\n" +
			"trades, aggregate and run record. With --bars/--ticks/--synthetic the data\n" +
			"is loaded into the bar and tick stores first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := requireSymbol(cfg); err != nil {
				return err
			}
			if scenarioID != "" {
				cfg.Backtest.Scenario = scenarioID
			}
			if fillMode != "" {
				cfg.Backtest.FillMode = fillMode
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if data.set() {
				if err := ingestFiles(ctx, st, &data, cfg.Symbol, logger); err != nil {
					return err
				}
			}

			scenarios, err := backtestScenarios(cfg, allScenarios)
			if err != nil {
				return err
			}
			mode, err := execution.ParseFillMode(cfg.Backtest.FillMode)
			if err != nil {
				return err
			}
			from, to, err := cfg.Range()
			if err != nil {
				return err
			}

			runner := backtest.NewRunner(backtest.RunnerOptions{
				ReplayRunner:     st.replayRunner(),
				TradeRecordStore: st.trades,
				RunStore:         st.runs,
				AggregateStore:   st.aggregates,
				SnapshotStore:    st.snapshots,
				Logger:           logger,
			})

			var all []*backtest.Results
			for _, sc := range scenarios {
				id := runID
				if id != "" && len(scenarios) > 1 {
					id = runID + "-" + sc.ScenarioID
				}

				results, err := runner.Run(ctx, backtest.RunConfig{
					RunID:         id,
					Symbol:        cfg.Symbol,
					From:          from,
					To:            to,
					Strategy:      cfg.Strategy,
					Scenario:      sc,
					FillMode:      mode,
					SnapshotEvery: cfg.Backtest.SnapshotEvery,
				})
				if err != nil {
					if errors.Is(err, backtest.ErrNoEvents) {
						return fmt.Errorf("%w for %s: ingest data first or pass --bars/--synthetic", err, cfg.Symbol)
					}
					return fmt.Errorf("backtest %s: %w", sc.ScenarioID, err)
				}
				all = append(all, results)

				if verifyAfter {
					if err := verifyStoredRun(ctx, cfg, st, results.RunID, logger); err != nil {
						return err
					}
				}
			}

			if tradesCSVPath != "" {
				if err := writeTradesCSV(tradesCSVPath, all); err != nil {
					return err
				}
			}

			if outputJSON {
				return printJSON(all)
			}
			for _, r := range all {
				printResults(r)
			}
			if len(all) > 1 {
				summary, err := reporting.NewGenerator(st.runs, st.trades, st.aggregates).GenerateSummary(ctx)
				if err != nil {
					return err
				}
				fmt.Println()
				fmt.Print(reporting.RenderSummaryMarkdown(summary))
			}
			return nil
		},
	}

	data.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "Run ID (generated when empty)")
	cmd.Flags().StringVar(&scenarioID, "scenario", "", "Scenario: optimistic, realistic, pessimistic, degraded or a configured ID")
	cmd.Flags().StringVar(&fillMode, "fill-mode", "", "Paper fill timing: immediate or next_event")
	cmd.Flags().BoolVar(&allScenarios, "all-scenarios", false, "Run every predefined and configured scenario")
	cmd.Flags().BoolVar(&verifyAfter, "verify", false, "Replay each stored run and compare its trades")
	cmd.Flags().StringVar(&tradesCSVPath, "trades-csv", "", "Write closed trades to a CSV file")

	return cmd
}

// backtestScenarios returns the selected scenario, or all of them.
func backtestScenarios(cfg *config.Config, all bool) ([]domain.ScenarioConfig, error) {
	if !all {
		sc, err := cfg.Scenario()
		if err != nil {
			return nil, err
		}
		return []domain.ScenarioConfig{sc}, nil
	}

	ids := []string{
		domain.ScenarioOptimistic,
		domain.ScenarioRealistic,
		domain.ScenarioPessimistic,
		domain.ScenarioDegraded,
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, sc := range cfg.Backtest.Scenarios {
		if !seen[sc.ScenarioID] {
			ids = append(ids, sc.ScenarioID)
			seen[sc.ScenarioID] = true
		}
	}

	out := make([]domain.ScenarioConfig, 0, len(ids))
	for _, id := range ids {
		sc, err := cfg.ScenarioByID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// verifyStoredRun replays a run and fails on any divergence.
func verifyStoredRun(ctx context.Context, cfg *config.Config, st *stores, runID string, logger logrus.FieldLogger) error {
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		TradeStore:      st.trades,
		RunStore:        st.runs,
		ReplayRunner:    st.replayRunner(),
		ScenarioConfigs: cfg.ScenarioConfigs(),
		Logger:          logger,
	})
	report, err := v.VerifyRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("verify %s: %w", runID, err)
	}
	if !report.OK() {
		printVerification(report)
		return fmt.Errorf("run %s: %d divergent trades", runID, report.DivergentTrades)
	}
	return nil
}

func writeTradesCSV(path string, results []*backtest.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var trades []*domain.TradeRecord
	for _, r := range results {
		trades = append(trades, r.Trades...)
	}
	if err := reporting.WriteTradesCSV(f, trades); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// printResults outputs a human-readable run summary.
func printResults(r *backtest.Results) {
	agg := r.Aggregate

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Symbol:             %s\n", r.Symbol)
	fmt.Printf("Strategy:           %s\n", r.StrategyID)
	fmt.Printf("Scenario:           %s\n", r.ScenarioID)
	fmt.Println()

	fmt.Println("Replay:")
	fmt.Printf("  Events:           %d (%d bars, %d ticks, %d skipped)\n", r.EventCount, r.BarCount, r.TickCount, r.SkippedEvents)
	fmt.Printf("  Orders:           %d (%d rejected, %d pending)\n", len(r.Orders), r.RejectedCount, r.PendingOrders)
	fmt.Printf("  Fills:            %d\n", len(r.Fills))
	fmt.Printf("  Snapshots:        %d\n", r.SnapshotCount)
	fmt.Printf("  Open Position:    %g\n", r.OpenPosition)
	fmt.Println()

	fmt.Println("Result:")
	fmt.Printf("  Trades:           %d (%d wins, %d losses)\n", agg.TotalTrades, agg.Wins, agg.Losses)
	fmt.Printf("  Win Rate:         %.2f%%\n", agg.WinRate*100)
	fmt.Printf("  Net PnL:          %.4f\n", agg.NetPnLTotal)
	fmt.Printf("  Mean / Median:    %.4f / %.4f\n", agg.NetPnLMean, agg.NetPnLMedian)
	fmt.Printf("  Profit Factor:    %.2f\n", agg.ProfitFactor)
	fmt.Printf("  Max Drawdown:     %.4f\n", agg.MaxDrawdown)
	fmt.Printf("  Max Loss Streak:  %d\n", agg.MaxConsecutiveLosses)
	fmt.Printf("  Avg Hold:         %v\n", time.Duration(agg.AvgHoldDurationMs)*time.Millisecond)

	if len(r.Trades) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Trades:")
	for _, t := range r.Trades {
		fmt.Printf("  %s %-5s %s @ %.4f -> %s @ %.4f  %-16s net %.4f\n",
			shortID(t.TradeID), t.Side,
			time.UnixMilli(t.EntryActualTime).UTC().Format("2006-01-02 15:04"), t.EntryActualPrice,
			time.UnixMilli(t.ExitActualTime).UTC().Format("15:04"), t.ExitActualPrice,
			t.ExitReason, t.NetPnL)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
