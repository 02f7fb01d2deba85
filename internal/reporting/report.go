package reporting

import (
	"time"

	"holo-reversal-lab/internal/domain"
)

// RunReport describes a single backtest run.
type RunReport struct {
	GeneratedAt time.Time
	Run         *domain.BacktestRun
	Aggregate   *domain.StrategyAggregate
	Exits       []ExitReasonRow
	Trades      []*domain.TradeRecord // ordered by entry signal time
}

// ExitReasonRow counts exits for one reason code.
type ExitReasonRow struct {
	Reason    string
	Count     int
	NetPnL    float64
	WinCount  int
	LossCount int
}

// SummaryReport compares all stored runs.
type SummaryReport struct {
	GeneratedAt time.Time
	RunCount    int

	// Runs sorted by (strategy_id, scenario_id, run_id)
	Runs []RunSummaryRow

	// ScenarioSensitivity compares the mean net pnl of a strategy across scenarios.
	ScenarioSensitivity []ScenarioSensitivityRow
}

// RunSummaryRow is one line of the summary table.
type RunSummaryRow struct {
	RunID                string
	StrategyID           string
	ScenarioID           string
	Symbol               string
	TotalTrades          int
	WinRate              float64
	NetPnLTotal          float64
	NetPnLMean           float64
	ProfitFactor         float64
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}

// ScenarioSensitivityRow compares scenarios for one strategy and symbol.
// A missing scenario leaves its column at zero.
type ScenarioSensitivityRow struct {
	StrategyID      string
	Symbol          string
	OptimisticMean  float64
	RealisticMean   float64
	PessimisticMean float64
	DegradedMean    float64
	DegradationPct  float64 // (optimistic - realistic) / |optimistic| * 100, 0 if optimistic == 0
}
