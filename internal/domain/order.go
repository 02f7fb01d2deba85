package domain

// Direction is the side of an order or position.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Offset tells whether an order opens or closes a position.
type Offset string

// Offset constants.
const (
	OffsetOpen  Offset = "OPEN"
	OffsetClose Offset = "CLOSE"
)

// Order reason codes for entries. Closing orders use the exit reason codes.
const (
	OrderReasonEntryShort = "ENTRY_SHORT"
	OrderReasonEntryLong  = "ENTRY_LONG"
)

// OrderRequest is an order submitted by a strategy.
// Direction and Offset are filled in by the gateway method that receives it.
type OrderRequest struct {
	OrderID     string
	Symbol      string
	Direction   Direction
	Offset      Offset
	Price       float64
	Volume      float64
	TimestampMs int64
	Reason      string
}

// Fill is an execution report for a previously submitted order.
// NetPosition is the signed position for the symbol after this fill.
type Fill struct {
	OrderID     string
	Symbol      string
	Direction   Direction
	Offset      Offset
	Price       float64
	Volume      float64
	TimestampMs int64
	NetPosition float64
}
