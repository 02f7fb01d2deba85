package reporting

import (
	"encoding/csv"
	"io"
	"strconv"

	"holo-reversal-lab/internal/domain"
)

var tradeCSVHeader = []string{
	"trade_id", "run_id", "symbol", "strategy_id", "scenario_id", "side",
	"entry_signal_time", "entry_signal_price", "entry_actual_time", "entry_actual_price",
	"volume", "initial_stop",
	"exit_signal_time", "exit_signal_price", "exit_actual_time", "exit_actual_price",
	"exit_reason", "breakeven_stage",
	"entry_cost", "exit_cost", "total_cost",
	"gross_pnl", "net_pnl", "pnl_ticks", "outcome_class", "hold_duration_ms",
}

// WriteTradesCSV writes one row per trade. Floats use the shortest
// representation that round-trips.
func WriteTradesCSV(w io.Writer, trades []*domain.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeCSVHeader); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			t.TradeID, t.RunID, t.Symbol, t.StrategyID, t.ScenarioID, string(t.Side),
			itoa(t.EntrySignalTime), ftoa(t.EntrySignalPrice), itoa(t.EntryActualTime), ftoa(t.EntryActualPrice),
			ftoa(t.Volume), ftoa(t.InitialStop),
			itoa(t.ExitSignalTime), ftoa(t.ExitSignalPrice), itoa(t.ExitActualTime), ftoa(t.ExitActualPrice),
			t.ExitReason, strconv.Itoa(t.BreakevenStage),
			ftoa(t.EntryCost), ftoa(t.ExitCost), ftoa(t.TotalCost),
			ftoa(t.GrossPnL), ftoa(t.NetPnL), itoa(t.PnLTicks), t.OutcomeClass, itoa(t.HoldDurationMs),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the run summary table.
func WriteSummaryCSV(w io.Writer, rows []RunSummaryRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"run_id", "strategy_id", "scenario_id", "symbol", "total_trades", "win_rate",
		"net_pnl_total", "net_pnl_mean", "profit_factor", "max_drawdown", "max_consecutive_losses",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		if err := cw.Write([]string{
			r.RunID, r.StrategyID, r.ScenarioID, r.Symbol, strconv.Itoa(r.TotalTrades), ftoa(r.WinRate),
			ftoa(r.NetPnLTotal), ftoa(r.NetPnLMean), ftoa(r.ProfitFactor), ftoa(r.MaxDrawdown),
			strconv.Itoa(r.MaxConsecutiveLosses),
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
