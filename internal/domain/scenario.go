package domain

// ScenarioConfig represents execution scenario parameters applied to paper fills.
type ScenarioConfig struct {
	ScenarioID     string  `json:"scenario_id" yaml:"scenario_id"`         // "optimistic" | "realistic" | "pessimistic" | "degraded"
	DelayMs        int64   `json:"delay_ms" yaml:"delay_ms"`               // execution delay in milliseconds
	SlippageTicks  int     `json:"slippage_ticks" yaml:"slippage_ticks"`   // adverse slippage in price ticks, per side
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"` // fraction of notional charged per side
}

// Scenario ID constants
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioRealistic   = "realistic"
	ScenarioPessimistic = "pessimistic"
	ScenarioDegraded    = "degraded"
)

// Predefined scenario configurations.
// Optimistic matches a frictionless backtest: no delay, slippage or commission.
var (
	ScenarioConfigOptimistic = ScenarioConfig{
		ScenarioID:     ScenarioOptimistic,
		DelayMs:        0,
		SlippageTicks:  0,
		CommissionRate: 0,
	}

	ScenarioConfigRealistic = ScenarioConfig{
		ScenarioID:     ScenarioRealistic,
		DelayMs:        250,
		SlippageTicks:  1,
		CommissionRate: 0.0002,
	}

	ScenarioConfigPessimistic = ScenarioConfig{
		ScenarioID:     ScenarioPessimistic,
		DelayMs:        1000,
		SlippageTicks:  3,
		CommissionRate: 0.0005,
	}

	ScenarioConfigDegraded = ScenarioConfig{
		ScenarioID:     ScenarioDegraded,
		DelayMs:        5000,
		SlippageTicks:  10,
		CommissionRate: 0.001,
	}
)

// ScenarioByID returns the predefined scenario with the given ID.
func ScenarioByID(id string) (ScenarioConfig, bool) {
	switch id {
	case ScenarioOptimistic:
		return ScenarioConfigOptimistic, true
	case ScenarioRealistic:
		return ScenarioConfigRealistic, true
	case ScenarioPessimistic:
		return ScenarioConfigPessimistic, true
	case ScenarioDegraded:
		return ScenarioConfigDegraded, true
	default:
		return ScenarioConfig{}, false
	}
}
