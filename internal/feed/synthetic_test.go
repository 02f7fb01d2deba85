package feed

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/replay"
)

func TestGenerateBars_DefaultSeries(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	bars := GenerateBars(cfg)

	require.Len(t, bars, 48*60)

	first := bars[0]
	assert.Equal(t, cfg.Start.UnixMilli(), first.TimestampMs)
	assert.Equal(t, 100.0, first.Open)
	assert.InDelta(t, 100.4, first.High, 1e-9)
	assert.InDelta(t, 99.6, first.Low, 1e-9)
	assert.Equal(t, 100.0, first.Close)
	assert.Equal(t, 100.0, first.Volume)

	second := bars[1]
	wantOpen := 100 + math.Sin(60.0/3600)*0.8
	assert.InDelta(t, wantOpen, second.Open, 1e-12)
	assert.InDelta(t, wantOpen+math.Sin(60.0/1800)*0.2, second.Close, 1e-12)
	assert.Equal(t, int64(60_000), second.TimestampMs-first.TimestampMs)

	for _, b := range bars {
		assert.InDelta(t, 0.8, b.High-b.Low, 1e-9)
	}
}

func TestGenerateBars_Deterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.End = cfg.Start.Add(time.Hour)
	assert.Equal(t, GenerateBars(cfg), GenerateBars(cfg))
}

func TestStream_ClosesAfterAllEvents(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.End = cfg.Start.Add(5 * time.Minute)

	var events []*replay.Event
	for _, b := range GenerateBars(cfg) {
		events = append(events, replay.BarEvent(b))
	}

	var got int
	for range Stream(context.Background(), events, 0) {
		got++
	}
	assert.Equal(t, 5, got)
}

func TestStream_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := []*replay.Event{{Type: replay.EventTypeBar}, {Type: replay.EventTypeBar}}

	ch := Stream(ctx, events, time.Hour)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
}
