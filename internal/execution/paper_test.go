package execution

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/domain"
)

func order(price, volume float64) domain.OrderRequest {
	return domain.OrderRequest{Symbol: "IF2501", Price: price, Volume: volume, TimestampMs: 1000}
}

func TestPaperGateway_FillsInSubmissionOrder(t *testing.T) {
	gw := NewPaperGateway(PaperOptions{})

	shortID := gw.Short(order(105, 1))
	coverID := gw.Cover(order(104.95, 1))
	require.NotEmpty(t, shortID)
	require.NotEmpty(t, coverID)
	_, err := uuid.Parse(shortID)
	assert.NoError(t, err, "default ids are uuids")

	assert.Equal(t, 2, gw.PendingCount())

	fills := gw.Drain(2000)
	require.Len(t, fills, 2)

	assert.Equal(t, shortID, fills[0].OrderID)
	assert.Equal(t, domain.DirectionShort, fills[0].Direction)
	assert.Equal(t, domain.OffsetOpen, fills[0].Offset)
	assert.Equal(t, 105.0, fills[0].Price)
	assert.Equal(t, -1.0, fills[0].NetPosition)
	assert.Equal(t, int64(2000), fills[0].TimestampMs)

	assert.Equal(t, coverID, fills[1].OrderID)
	assert.Equal(t, domain.DirectionLong, fills[1].Direction)
	assert.Equal(t, domain.OffsetClose, fills[1].Offset)
	assert.Equal(t, 0.0, fills[1].NetPosition)

	assert.Equal(t, 0, gw.PendingCount())
	assert.Nil(t, gw.Drain(3000))

	req, ok := gw.Order(coverID)
	require.True(t, ok)
	assert.Equal(t, 104.95, req.Price)
	_, ok = gw.Order("missing")
	assert.False(t, ok)
}

func TestPaperGateway_LongRoundTrip(t *testing.T) {
	gw := NewPaperGateway(PaperOptions{})

	gw.Buy(order(100, 2))
	fills := gw.Drain(1)
	require.Len(t, fills, 1)
	assert.Equal(t, 2.0, fills[0].NetPosition)
	assert.Equal(t, 2.0, gw.Position("IF2501"))

	gw.Sell(order(100.05, 2))
	fills = gw.Drain(2)
	require.Len(t, fills, 1)
	assert.Equal(t, 0.0, fills[0].NetPosition)
	assert.Equal(t, domain.DirectionShort, fills[0].Direction)
	assert.Equal(t, domain.OffsetClose, fills[0].Offset)
}

func TestPaperGateway_Reject(t *testing.T) {
	gw := NewPaperGateway(PaperOptions{
		Reject: func(req domain.OrderRequest) bool { return req.Offset == domain.OffsetOpen },
	})

	assert.Empty(t, gw.Short(order(105, 1)))
	assert.Empty(t, gw.Buy(order(105, 0)), "zero volume is rejected")
	assert.NotEmpty(t, gw.Cover(order(105, 1)))

	assert.Equal(t, 2, gw.RejectedCount())
	assert.Len(t, gw.Orders(), 1)
}

func TestPaperGateway_CustomIDs(t *testing.T) {
	n := 0
	gw := NewPaperGateway(PaperOptions{NewID: func() string {
		n++
		return "paper-" + string(rune('0'+n))
	}})

	assert.Equal(t, "paper-1", gw.Buy(order(1, 1)))
	assert.Equal(t, "paper-2", gw.Sell(order(1, 1)))
}

func TestParseFillMode(t *testing.T) {
	mode, err := ParseFillMode("")
	require.NoError(t, err)
	assert.Equal(t, FillImmediate, mode)

	mode, err = ParseFillMode("next_event")
	require.NoError(t, err)
	assert.Equal(t, FillNextEvent, mode)

	_, err = ParseFillMode("eventually")
	assert.ErrorIs(t, err, ErrInvalidFillMode)
}

func TestPaperGateway_SetPosition(t *testing.T) {
	gw := NewPaperGateway(PaperOptions{})
	gw.SetPosition("IF2501", -1)

	gw.Cover(order(104.95, 1))
	fills := gw.Drain(1)
	require.Len(t, fills, 1)
	assert.Equal(t, 0.0, fills[0].NetPosition)
}
