package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBarsCSV(t *testing.T) {
	input := `timestamp,open,high,low,close,volume
2025-01-02T09:00:00Z,105,106,104,105.5,10
1735808460000,105.5,105.8,105.1,105.2,
`
	bars, err := LoadBarsCSV(strings.NewReader(input), "IF2501")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	want := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, bars[0].TimestampMs)
	assert.Equal(t, "IF2501", bars[0].Symbol)
	assert.Equal(t, 106.0, bars[0].High)
	assert.Equal(t, 10.0, bars[0].Volume)

	assert.Equal(t, want+60_000, bars[1].TimestampMs)
	assert.Equal(t, 0.0, bars[1].Volume)
}

func TestLoadBarsCSV_SymbolColumnAndOrder(t *testing.T) {
	input := `Symbol,Close,Low,High,Open,Timestamp
IC2501,5.5,5,6,5.2,2025-01-02T09:00:00+08:00
`
	bars, err := LoadBarsCSV(strings.NewReader(input), "IF2501")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "IC2501", bars[0].Symbol)
	assert.Equal(t, 5.2, bars[0].Open)
	assert.Equal(t, time.Date(2025, 1, 2, 1, 0, 0, 0, time.UTC).UnixMilli(), bars[0].TimestampMs)
}

func TestLoadBarsCSV_Errors(t *testing.T) {
	_, err := LoadBarsCSV(strings.NewReader("timestamp,open,high,low\n"), "X")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = LoadBarsCSV(strings.NewReader("timestamp,open,high,low,close\nyesterday,1,2,0,1\n"), "X")
	assert.ErrorIs(t, err, ErrBadRecord)

	_, err = LoadBarsCSV(strings.NewReader("timestamp,open,high,low,close\n0,1,1,2,1\n"), "X")
	assert.ErrorIs(t, err, ErrBadRecord, "high below low")

	_, err = LoadBarsCSV(strings.NewReader(""), "X")
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestLoadTicksCSV_OptionalQuotes(t *testing.T) {
	input := `timestamp,bid,ask,last
2025-01-02T09:16:00Z,106,106.02,106.01
2025-01-02T09:17:00Z,,,104.01
`
	ticks, err := LoadTicksCSV(strings.NewReader(input), "IF2501")
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	require.NotNil(t, ticks[0].BidPrice)
	assert.Equal(t, 106.0, *ticks[0].BidPrice)
	assert.Equal(t, 106.02, *ticks[0].AskPrice)

	assert.Nil(t, ticks[1].BidPrice)
	assert.Nil(t, ticks[1].AskPrice)
	assert.Equal(t, 104.01, ticks[1].EffectiveBid())

	_, err = LoadTicksCSV(strings.NewReader("timestamp,bid\n"), "X")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
