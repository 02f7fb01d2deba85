package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/observability"
	"holo-reversal-lab/internal/storage"
)

func ingestCmd() *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load bars and ticks from CSV files or a synthetic series into storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := requireSymbol(cfg); err != nil {
				return err
			}
			if !data.set() {
				return errors.New("one of --bars, --ticks or --synthetic is required")
			}
			if cfg.Storage.UseMemory {
				logger.Warn("in-memory storage: ingested data is dropped on exit")
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			return ingestFiles(ctx, st, &data, cfg.Symbol, logger)
		},
	}

	data.register(cmd)
	return cmd
}

// ingestFiles loads the requested data and writes it to the bar and tick stores.
func ingestFiles(ctx context.Context, st *stores, data *dataFlags, sym string, logger logrus.FieldLogger) error {
	bars, ticks, err := data.load(sym)
	if err != nil {
		return err
	}

	if len(bars) > 0 {
		if err := st.bars.InsertBulk(ctx, bars); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("store bars: %w (data already ingested?)", err)
			}
			return fmt.Errorf("store bars: %w", err)
		}
		observability.RecordEventsStored("bar", len(bars))
	}
	if len(ticks) > 0 {
		if err := st.ticks.InsertBulk(ctx, ticks); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("store ticks: %w (data already ingested?)", err)
			}
			return fmt.Errorf("store ticks: %w", err)
		}
		observability.RecordEventsStored("tick", len(ticks))
	}

	logger.WithFields(logrus.Fields{
		"symbol": sym,
		"bars":   len(bars),
		"ticks":  len(ticks),
	}).Info("market data ingested")
	return nil
}
