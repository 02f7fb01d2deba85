package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/config"
	"holo-reversal-lab/internal/replay"
	"holo-reversal-lab/internal/storage"
	chstore "holo-reversal-lab/internal/storage/clickhouse"
	"holo-reversal-lab/internal/storage/memory"
	pgstore "holo-reversal-lab/internal/storage/postgres"
)

// stores groups the store implementations selected by the config.
type stores struct {
	bars       storage.BarStore
	ticks      storage.TickStore
	trades     storage.TradeRecordStore
	runs       storage.RunStore
	snapshots  storage.SnapshotStore
	aggregates storage.StrategyAggregateStore

	closers []func()
}

// openStores returns memory stores, or Postgres (runs, trades, snapshots) and
// ClickHouse (bars, ticks, aggregates) stores when DSNs are configured.
func openStores(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*stores, error) {
	if cfg.Storage.UseMemory {
		logger.Debug("using in-memory storage")
		return &stores{
			bars:       memory.NewBarStore(),
			ticks:      memory.NewTickStore(),
			trades:     memory.NewTradeRecordStore(),
			runs:       memory.NewRunStore(),
			snapshots:  memory.NewSnapshotStore(),
			aggregates: memory.NewStrategyAggregateStore(),
		}, nil
	}

	pool, err := pgstore.NewPoolWithOptions(ctx, cfg.Storage.PostgresDSN, pgstore.PoolOptions{
		MaxConns:        cfg.Storage.MaxConns,
		MaxConnLifetime: cfg.Storage.ConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	logger.Debug("connected to postgres and clickhouse")

	return &stores{
		bars:       chstore.NewBarStore(conn),
		ticks:      chstore.NewTickStore(conn),
		trades:     pgstore.NewTradeRecordStore(pool),
		runs:       pgstore.NewRunStore(pool),
		snapshots:  pgstore.NewSnapshotStore(pool),
		aggregates: chstore.NewStrategyAggregateStore(conn),
		closers: []func(){
			pool.Close,
			func() { _ = conn.Close() },
		},
	}, nil
}

// replayRunner reads events back from the bar and tick stores.
func (s *stores) replayRunner() *replay.Runner {
	return replay.NewRunner(s.bars, s.ticks)
}

// Close releases database connections.
func (s *stores) Close() {
	for _, c := range s.closers {
		c()
	}
}
