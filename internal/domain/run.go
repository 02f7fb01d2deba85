package domain

// BacktestRun describes one execution of the strategy over a data range.
type BacktestRun struct {
	RunID       string
	StrategyID  string
	ScenarioID  string
	Symbol      string
	FromMs      int64
	ToMs        int64
	Config      StrategyConfig
	FillMode    string // paper fill timing, "immediate" | "next_event"
	EventCount  int
	OrderCount  int
	TradeCount  int
	StartedAt   int64 // wall clock (ms)
	CompletedAt int64 // wall clock (ms)
}

// StrategySnapshot is a serialized strategy state captured at TimestampMs.
type StrategySnapshot struct {
	StrategyID  string
	Symbol      string
	TimestampMs int64
	State       []byte // JSON-encoded strategy state
}
