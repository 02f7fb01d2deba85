// Package execution provides order gateways that turn strategy order requests
// into fills.
package execution

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/strategy"
)

// FillMode controls when submitted orders are filled.
type FillMode string

// Fill modes.
const (
	// FillImmediate fills orders after the event that produced them.
	FillImmediate FillMode = "immediate"
	// FillNextEvent fills orders before the next market event is processed.
	FillNextEvent FillMode = "next_event"
)

// ErrInvalidFillMode is returned for an unknown fill mode.
var ErrInvalidFillMode = errors.New("invalid fill mode")

// ParseFillMode validates a fill mode name. Empty selects FillImmediate.
func ParseFillMode(s string) (FillMode, error) {
	switch FillMode(s) {
	case "", FillImmediate:
		return FillImmediate, nil
	case FillNextEvent:
		return FillNextEvent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFillMode, s)
	}
}

// PaperOptions configures a PaperGateway.
type PaperOptions struct {
	FillMode FillMode
	// Reject, when set, rejects every request it returns true for.
	Reject func(domain.OrderRequest) bool
	// NewID generates order IDs. Defaults to random UUIDs.
	NewID func() string
}

// PaperGateway fills every accepted order in full at its limit price.
// It is safe for concurrent use.
type PaperGateway struct {
	mu        sync.Mutex
	mode      FillMode
	reject    func(domain.OrderRequest) bool
	newID     func() string
	positions map[string]float64
	pending   []domain.OrderRequest
	orders    []domain.OrderRequest
	byID      map[string]int
	rejected  int
}

// NewPaperGateway creates a paper gateway.
func NewPaperGateway(opts PaperOptions) *PaperGateway {
	mode := opts.FillMode
	if mode == "" {
		mode = FillImmediate
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &PaperGateway{
		mode:      mode,
		reject:    opts.Reject,
		newID:     newID,
		positions: make(map[string]float64),
		byID:      make(map[string]int),
	}
}

// Mode returns the configured fill mode.
func (g *PaperGateway) Mode() FillMode {
	return g.mode
}

// Buy opens or adds to a long position.
func (g *PaperGateway) Buy(req domain.OrderRequest) string {
	return g.submit(domain.DirectionLong, domain.OffsetOpen, req)
}

// Sell closes a long position.
func (g *PaperGateway) Sell(req domain.OrderRequest) string {
	return g.submit(domain.DirectionShort, domain.OffsetClose, req)
}

// Short opens or adds to a short position.
func (g *PaperGateway) Short(req domain.OrderRequest) string {
	return g.submit(domain.DirectionShort, domain.OffsetOpen, req)
}

// Cover closes a short position.
func (g *PaperGateway) Cover(req domain.OrderRequest) string {
	return g.submit(domain.DirectionLong, domain.OffsetClose, req)
}

func (g *PaperGateway) submit(dir domain.Direction, off domain.Offset, req domain.OrderRequest) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	req.Direction = dir
	req.Offset = off

	if req.Volume <= 0 || req.Symbol == "" || (g.reject != nil && g.reject(req)) {
		g.rejected++
		return ""
	}

	req.OrderID = g.newID()
	g.byID[req.OrderID] = len(g.orders)
	g.orders = append(g.orders, req)
	g.pending = append(g.pending, req)
	return req.OrderID
}

// Drain fills all pending orders in submission order and returns the fills.
// Fills are stamped with nowMs.
func (g *PaperGateway) Drain(nowMs int64) []domain.Fill {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.pending) == 0 {
		return nil
	}

	fills := make([]domain.Fill, 0, len(g.pending))
	for _, req := range g.pending {
		delta := req.Volume
		if req.Direction == domain.DirectionShort {
			delta = -delta
		}
		g.positions[req.Symbol] += delta

		fills = append(fills, domain.Fill{
			OrderID:     req.OrderID,
			Symbol:      req.Symbol,
			Direction:   req.Direction,
			Offset:      req.Offset,
			Price:       req.Price,
			Volume:      req.Volume,
			TimestampMs: nowMs,
			NetPosition: g.positions[req.Symbol],
		})
	}
	g.pending = g.pending[:0]

	return fills
}

// Position returns the filled net position for symbol.
func (g *PaperGateway) Position(symbol string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions[symbol]
}

// SetPosition sets the net position for symbol, used when resuming a
// strategy whose snapshot holds an open position.
func (g *PaperGateway) SetPosition(symbol string, pos float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[symbol] = pos
}

// Orders returns a copy of all accepted orders in submission order.
func (g *PaperGateway) Orders() []domain.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.OrderRequest(nil), g.orders...)
}

// Order returns an accepted order by ID.
func (g *PaperGateway) Order(orderID string) (domain.OrderRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.byID[orderID]
	if !ok {
		return domain.OrderRequest{}, false
	}
	return g.orders[i], true
}

// PendingCount returns the number of accepted orders not yet filled.
func (g *PaperGateway) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// RejectedCount returns the number of rejected requests.
func (g *PaperGateway) RejectedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rejected
}

var _ strategy.OrderGateway = (*PaperGateway)(nil)
