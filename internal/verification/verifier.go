// Package verification checks that backtests are reproducible: stored trades
// must match a fresh replay, and a strategy restored from a snapshot must
// continue exactly as the uninterrupted instance would.
package verification

import (
	"context"
	"math"

	"holo-reversal-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single trade.
type VerificationResult struct {
	TradeID        string            // verified trade ID
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredNetPnL   float64
	ReplayedNetPnL float64
}

// VerificationReport contains results for a run.
type VerificationReport struct {
	RunID           string
	TotalTrades     int                  // stored trades verified
	MatchedTrades   int                  // trades that matched
	DivergentTrades int                  // trades with divergences, including missing ones
	ExtraTrades     []string             // replayed trade IDs with no stored counterpart
	Results         []VerificationResult // individual results, in stored order
}

// OK reports whether the replay reproduced every stored trade and nothing else.
func (r *VerificationReport) OK() bool {
	return r.DivergentTrades == 0 && len(r.ExtraTrades) == 0
}

// Verifier interface for trade replay verification.
type Verifier interface {
	// VerifyTrade replays the run a trade belongs to and compares that trade.
	VerifyTrade(ctx context.Context, tradeID string) (*VerificationResult, error)

	// VerifyRun replays a stored run and compares all of its trades.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// CompareTradeRecords compares two trade records and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareTradeRecords(stored, replayed *domain.TradeRecord) []FieldDivergence {
	var c comparison

	// identity
	c.exact("TradeID", stored.TradeID, replayed.TradeID)
	c.exact("RunID", stored.RunID, replayed.RunID)
	c.exact("Symbol", stored.Symbol, replayed.Symbol)
	c.exact("StrategyID", stored.StrategyID, replayed.StrategyID)
	c.exact("ScenarioID", stored.ScenarioID, replayed.ScenarioID)
	c.exact("Side", stored.Side, replayed.Side)

	// entry
	c.exact("EntrySignalTime", stored.EntrySignalTime, replayed.EntrySignalTime)
	c.float("EntrySignalPrice", stored.EntrySignalPrice, replayed.EntrySignalPrice)
	c.exact("EntryActualTime", stored.EntryActualTime, replayed.EntryActualTime)
	c.float("EntryActualPrice", stored.EntryActualPrice, replayed.EntryActualPrice)
	c.float("Volume", stored.Volume, replayed.Volume)
	c.float("InitialStop", stored.InitialStop, replayed.InitialStop)

	// exit
	c.exact("ExitSignalTime", stored.ExitSignalTime, replayed.ExitSignalTime)
	c.float("ExitSignalPrice", stored.ExitSignalPrice, replayed.ExitSignalPrice)
	c.exact("ExitActualTime", stored.ExitActualTime, replayed.ExitActualTime)
	c.float("ExitActualPrice", stored.ExitActualPrice, replayed.ExitActualPrice)
	c.exact("ExitReason", stored.ExitReason, replayed.ExitReason)
	c.exact("BreakevenStage", stored.BreakevenStage, replayed.BreakevenStage)

	// costs and outcome
	c.float("EntryCost", stored.EntryCost, replayed.EntryCost)
	c.float("ExitCost", stored.ExitCost, replayed.ExitCost)
	c.float("TotalCost", stored.TotalCost, replayed.TotalCost)
	c.float("GrossPnL", stored.GrossPnL, replayed.GrossPnL)
	c.float("NetPnL", stored.NetPnL, replayed.NetPnL)
	c.exact("PnLTicks", stored.PnLTicks, replayed.PnLTicks)
	c.exact("OutcomeClass", stored.OutcomeClass, replayed.OutcomeClass)
	c.exact("HoldDurationMs", stored.HoldDurationMs, replayed.HoldDurationMs)

	return c.divergences
}

type comparison struct {
	divergences []FieldDivergence
}

func (c *comparison) exact(field string, expected, actual interface{}) {
	if expected != actual {
		c.divergences = append(c.divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
}

func (c *comparison) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		c.divergences = append(c.divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
