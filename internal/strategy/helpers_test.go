package strategy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"holo-reversal-lab/internal/domain"
)

// recordingGateway records submitted orders without producing fills.
type recordingGateway struct {
	orders []domain.OrderRequest
	reject bool
}

func (g *recordingGateway) record(dir domain.Direction, off domain.Offset, req domain.OrderRequest) string {
	if g.reject {
		return ""
	}
	req.Direction = dir
	req.Offset = off
	req.OrderID = fmt.Sprintf("o%d", len(g.orders)+1)
	g.orders = append(g.orders, req)
	return req.OrderID
}

func (g *recordingGateway) Buy(req domain.OrderRequest) string {
	return g.record(domain.DirectionLong, domain.OffsetOpen, req)
}

func (g *recordingGateway) Sell(req domain.OrderRequest) string {
	return g.record(domain.DirectionShort, domain.OffsetClose, req)
}

func (g *recordingGateway) Short(req domain.OrderRequest) string {
	return g.record(domain.DirectionShort, domain.OffsetOpen, req)
}

func (g *recordingGateway) Cover(req domain.OrderRequest) string {
	return g.record(domain.DirectionLong, domain.OffsetClose, req)
}

// ts parses "2006-01-02 15:04" as UTC milliseconds.
func ts(t *testing.T, s string) int64 {
	t.Helper()
	tm, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return tm.UnixMilli()
}

func makeBar(t *testing.T, at string, open, high, low, close float64) *domain.PriceBar {
	t.Helper()
	return &domain.PriceBar{
		Symbol:      "TEST",
		TimestampMs: ts(t, at),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      100,
	}
}

func makeTick(t *testing.T, at string, bid, ask float64) *domain.PriceTick {
	t.Helper()
	return &domain.PriceTick{
		Symbol:      "TEST",
		TimestampMs: ts(t, at),
		BidPrice:    &bid,
		AskPrice:    &ask,
		LastPrice:   bid,
	}
}

func newTestStrategy(t *testing.T, cfg domain.StrategyConfig) (*HoloReversal, *recordingGateway) {
	t.Helper()
	gw := &recordingGateway{}
	s, err := FromConfig("TEST", cfg, gw, nil)
	require.NoError(t, err)
	return s, gw
}

func fillFor(req domain.OrderRequest, netPos float64) *domain.Fill {
	return &domain.Fill{
		OrderID:     req.OrderID,
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		Offset:      req.Offset,
		Price:       req.Price,
		Volume:      req.Volume,
		TimestampMs: req.TimestampMs,
		NetPosition: netPos,
	}
}
