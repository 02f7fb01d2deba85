package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/storage/migrations"
	pgstore "holo-reversal-lab/internal/storage/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres and ClickHouse migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.UseMemory {
				return errors.New("migrate needs --postgres-dsn and --clickhouse-dsn")
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
			logger.WithField("applied", applied).Info("postgres migrations done")

			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
			if err != nil {
				return fmt.Errorf("clickhouse migrations: %w", err)
			}
			defer conn.Close()
			logger.Info("clickhouse migrations done")

			return nil
		},
	}
}
