package domain

// TradeRecord is one completed round trip: an opening fill paired with the
// closing fill that flattened it.
type TradeRecord struct {
	TradeID    string // deterministic hash
	RunID      string // backtest run or live session
	Symbol     string
	StrategyID string // strategy identifier (includes parameters)
	ScenarioID string // execution scenario
	Side       Direction

	// Entry
	EntrySignalTime  int64   // order submission timestamp (ms)
	EntrySignalPrice float64 // order price (ho for shorts, lo for longs)
	EntryActualTime  int64   // after delay applied (ms)
	EntryActualPrice float64 // after slippage applied
	Volume           float64
	InitialStop      float64 // daily extreme at entry

	// Exit
	ExitSignalTime  int64   // closing order timestamp (ms)
	ExitSignalPrice float64 // stop price at exit
	ExitActualTime  int64   // after delay applied (ms)
	ExitActualPrice float64 // after slippage applied
	ExitReason      string  // reason code
	BreakevenStage  int     // stage reached before the exit

	// Costs
	EntryCost float64 // commission on entry notional
	ExitCost  float64 // commission on exit notional
	TotalCost float64

	// Outcome
	GrossPnL     float64 // before costs, in quote currency
	NetPnL       float64 // after costs
	PnLTicks     int64   // gross move in price ticks
	OutcomeClass string  // "WIN" | "LOSS"

	// Metadata
	HoldDurationMs int64
}

// Exit reason codes
const (
	ExitReasonInitialStop   = "INITIAL_STOP"
	ExitReasonBreakevenStop = "BREAKEVEN_STOP"
	ExitReasonTrailingStop  = "TRAILING_STOP"
)

// Outcome class constants
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)
