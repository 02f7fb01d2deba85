package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

func TestRunStore_ConfigRoundTrip(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewRunStore(pool)

	cfg := domain.DefaultStrategyConfig()
	cfg.Timezone = "Asia/Shanghai"
	cfg.CarryPositionAcrossRollover = true

	run := &domain.BacktestRun{
		RunID:       "run-1",
		StrategyID:  "HOLO_REVERSAL_W15",
		ScenarioID:  domain.ScenarioOptimistic,
		Symbol:      "IF2501",
		FromMs:      1_000,
		ToMs:        2_000,
		Config:      cfg,
		FillMode:    "next_event",
		EventCount:  9,
		OrderCount:  2,
		TradeCount:  1,
		StartedAt:   10,
		CompletedAt: 20,
	}
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	assert.ErrorIs(t, store.Insert(ctx, run), storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetAllOrdered(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewRunStore(pool)

	for _, r := range []struct {
		id      string
		started int64
	}{{"late", 300}, {"early", 100}, {"mid", 200}} {
		require.NoError(t, store.Insert(ctx, &domain.BacktestRun{
			RunID:     r.id,
			Config:    domain.DefaultStrategyConfig(),
			StartedAt: r.started,
		}))
	}

	runs, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "early", runs[0].RunID)
	assert.Equal(t, "mid", runs[1].RunID)
	assert.Equal(t, "late", runs[2].RunID)
}
