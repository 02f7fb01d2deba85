package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/metrics"
	"holo-reversal-lab/internal/reporting"
	"holo-reversal-lab/internal/storage"
)

// Report formats.
const (
	formatMarkdown = "markdown"
	formatCSV      = "csv"
	formatJSON     = "json"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render run and summary reports from stored results",
	}

	cmd.AddCommand(reportRunCmd())
	cmd.AddCommand(reportSummaryCmd())
	cmd.AddCommand(reportAggregateCmd())
	return cmd
}

func reportRunCmd() *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Report one run: parameters, results, exits and trades",
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

			report, err := reporting.NewGenerator(st.runs, st.trades, st.aggregates).GenerateRun(ctx, args[0])
			if err != nil {
				return err
			}

			return writeOutput(outPath, func(w io.Writer) error {
				switch format {
				case formatMarkdown:
					_, err := io.WriteString(w, reporting.RenderRunMarkdown(report))
					return err
				case formatCSV:
					return reporting.WriteTradesCSV(w, report.Trades)
				default:
					return encodeJSON(w, report)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatMarkdown, "Output format: markdown, csv (trades) or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func reportSummaryCmd() *cobra.Command {
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Report every stored run with scenario sensitivity",
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

			summary, err := reporting.NewGenerator(st.runs, st.trades, st.aggregates).GenerateSummary(ctx)
			if err != nil {
				return err
			}

			return writeOutput(outPath, func(w io.Writer) error {
				switch format {
				case formatMarkdown:
					_, err := io.WriteString(w, reporting.RenderSummaryMarkdown(summary))
					return err
				case formatCSV:
					return reporting.WriteSummaryCSV(w, summary.Runs)
				default:
					return encodeJSON(w, summary)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatMarkdown, "Output format: markdown, csv or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	return cmd
}

// reportAggregateCmd stores aggregates for runs that have trades but no
// aggregate yet, such as live sessions.
func reportAggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <run-id>...",
		Short: "Compute and store the aggregate of runs or live sessions",
		Args:  cobra.MinimumNArgs(1),
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

			agg := metrics.NewAggregator(st.trades, st.aggregates)
			for _, runID := range args {
				a, err := agg.ComputeAndStore(ctx, runID)
				switch {
				case errors.Is(err, storage.ErrDuplicateKey):
					logger.WithField("run_id", runID).Info("aggregate already stored")
					continue
				case errors.Is(err, metrics.ErrNoTrades):
					logger.WithField("run_id", runID).Warn("no trades to aggregate")
					continue
				case err != nil:
					return fmt.Errorf("aggregate %s: %w", runID, err)
				}
				logger.WithFields(logrus.Fields{
					"run_id": runID,
					"trades": a.TotalTrades,
					"net":    a.NetPnLTotal,
				}).Info("aggregate stored")
			}
			return nil
		},
	}
}

// writeOutput runs write against the file at path, or stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
