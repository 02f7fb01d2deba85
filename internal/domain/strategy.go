package domain

// StrategyAggregate represents aggregate metrics for one backtest run.
// Corresponds to the strategy_aggregates table.
type StrategyAggregate struct {
	RunID      string // backtest run
	StrategyID string // strategy identifier
	ScenarioID string // execution scenario
	Symbol     string

	// Counts
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64 // wins / total_trades

	// Net PnL distribution
	NetPnLTotal  float64
	NetPnLMean   float64
	NetPnLMedian float64
	NetPnLP10    float64 // 10th percentile
	NetPnLP90    float64 // 90th percentile
	NetPnLMin    float64
	NetPnLMax    float64
	NetPnLStddev float64
	ProfitFactor float64 // gross wins / gross losses, 0 when there are no losses

	// Drawdown
	MaxDrawdown          float64 // worst peak-to-trough on cumulative net pnl
	MaxConsecutiveLosses int

	// Exits
	AvgHoldDurationMs  int64
	InitialStopExits   int
	BreakevenStopExits int
	TrailingStopExits  int
}

// StrategyConfig holds the tunable parameters of the breakout-retest strategy.
type StrategyConfig struct {
	FixedSize      float64 `json:"fixed_size" yaml:"fixed_size"`           // order volume for entries
	SignalWindow   int     `json:"signal_window" yaml:"signal_window"`     // minutes between signal-open samples, <= 1 samples every bar
	DayStartHour   int     `json:"day_start_hour" yaml:"day_start_hour"`   // hour at which a new trading day begins, 0 = midnight
	PriceTick      float64 `json:"price_tick" yaml:"price_tick"`           // minimum price increment
	BE1Points      int     `json:"be1_points" yaml:"be1_points"`           // profit in ticks that moves the stop to entry +/- 1 tick
	BE5Points      int     `json:"be5_points" yaml:"be5_points"`           // profit in ticks that moves the stop to entry +/- 5 ticks
	EnableTrailing bool    `json:"enable_trailing" yaml:"enable_trailing"` // follow the price once BE5Points is reached
	TrailingStep   int     `json:"trailing_step" yaml:"trailing_step"`     // trailing distance in ticks

	// CarryPositionAcrossRollover keeps entry price, stop and stage of an open
	// position when the trading day rolls over. When false the bookkeeping is
	// cleared and the position is left without a stop.
	CarryPositionAcrossRollover bool `json:"carry_position_across_rollover" yaml:"carry_position_across_rollover"`

	// Timezone is the IANA zone used to derive trading days and minutes.
	// Empty means UTC.
	Timezone string `json:"timezone" yaml:"timezone"`
}

// DefaultStrategyConfig returns the stock parameter set.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		FixedSize:      1,
		SignalWindow:   15,
		DayStartHour:   0,
		PriceTick:      0.01,
		BE1Points:      5,
		BE5Points:      10,
		EnableTrailing: true,
		TrailingStep:   5,
	}
}
