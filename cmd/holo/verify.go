package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/verification"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that stored results and snapshots reproduce on replay",
	}

	cmd.AddCommand(verifyRunCmd())
	cmd.AddCommand(verifyTradeCmd())
	cmd.AddCommand(verifyCheckpointCmd())
	return cmd
}

func verifyRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <run-id>",
		Short: "Replay a stored run and compare every trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
				TradeStore:      st.trades,
				RunStore:        st.runs,
				ReplayRunner:    st.replayRunner(),
				ScenarioConfigs: cfg.ScenarioConfigs(),
				Logger:          logger,
			})

			report, err := v.VerifyRun(ctx, args[0])
			if err != nil {
				return err
			}

			if outputJSON {
				if err := printJSON(report); err != nil {
					return err
				}
			} else {
				printVerification(report)
			}
			if !report.OK() {
				return fmt.Errorf("run %s did not reproduce", report.RunID)
			}
			return nil
		},
	}
}

func verifyTradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Replay the run of one stored trade and compare it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
				TradeStore:      st.trades,
				RunStore:        st.runs,
				ReplayRunner:    st.replayRunner(),
				ScenarioConfigs: cfg.ScenarioConfigs(),
				Logger:          logger,
			})

			result, err := v.VerifyTrade(ctx, args[0])
			if err != nil {
				return err
			}

			if outputJSON {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				printTradeVerification(result)
			}
			if !result.Match {
				return fmt.Errorf("trade %s did not reproduce", result.TradeID)
			}
			return nil
		},
	}
}

func verifyCheckpointCmd() *cobra.Command {
	var (
		data     dataFlags
		step     int
		fillMode string
	)

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Snapshot and restore the strategy at split points and compare the orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := requireSymbol(cfg); err != nil {
				return err
			}
			if fillMode == "" {
				fillMode = cfg.Backtest.FillMode
			}
			mode, err := execution.ParseFillMode(fillMode)
			if err != nil {
				return err
			}
			from, to, err := cfg.Range()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			var events []*replay.Event
			if data.set() {
				events, err = data.events(cfg.Symbol, from, to)
			} else {
				st, openErr := openStores(ctx, cfg, logger)
				if openErr != nil {
					return openErr
				}
				defer st.Close()
				if from == 0 && to == 0 {
					events, err = st.replayRunner().LoadAll(ctx, cfg.Symbol)
				} else {
					events, err = st.replayRunner().Load(ctx, cfg.Symbol, from, to)
				}
			}
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return errors.New("no market events to verify")
			}

			v := verification.NewCheckpointVerifier(cfg.Symbol, cfg.Strategy, mode, logger)
			results, err := v.VerifyEvery(ctx, events, step)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.Match() {
					failed++
				}
			}

			if outputJSON {
				if err := printJSON(results); err != nil {
					return err
				}
			} else {
				fmt.Printf("Checkpoints: %d over %d events, %d diverged\n", len(results), len(events), failed)
				for _, r := range results {
					if r.Match() {
						continue
					}
					fmt.Printf("  split %d: %d order divergences, state match %v\n", r.Split, len(r.Divergences), r.StateMatch)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d checkpoints diverged", failed)
			}
			return nil
		},
	}

	data.register(cmd)
	cmd.Flags().IntVar(&step, "step", 1, "Verify every n-th split point")
	cmd.Flags().StringVar(&fillMode, "fill-mode", "", "Paper fill timing: immediate or next_event")
	return cmd
}

func printJSON(v interface{}) error {
	return encodeJSON(os.Stdout, v)
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVerification outputs a human-readable run verification report.
func printVerification(r *verification.VerificationReport) {
	fmt.Println()
	fmt.Println("=== Verification ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Stored Trades:      %d\n", r.TotalTrades)
	fmt.Printf("Matched:            %d\n", r.MatchedTrades)
	fmt.Printf("Divergent:          %d\n", r.DivergentTrades)
	fmt.Printf("Extra:              %d\n", len(r.ExtraTrades))

	for _, res := range r.Results {
		if res.Match {
			continue
		}
		printTradeVerification(&res)
	}
	for _, id := range r.ExtraTrades {
		fmt.Printf("  extra trade %s\n", id)
	}
}

func printTradeVerification(r *verification.VerificationResult) {
	if r.Match {
		fmt.Printf("  trade %s: match (net %.4f)\n", r.TradeID, r.StoredNetPnL)
		return
	}
	fmt.Printf("  trade %s: %d divergences\n", r.TradeID, len(r.Divergences))
	for _, d := range r.Divergences {
		fmt.Printf("    %-18s stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
	}
}
