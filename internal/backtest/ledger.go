package backtest

import (
	"errors"

	"github.com/shopspring/decimal"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/idhash"
)

// Ledger errors
var (
	// ErrUnmatchedClose is returned for a closing fill without an open leg,
	// e.g. a position carried in from a restored snapshot.
	ErrUnmatchedClose = errors.New("closing fill without open position")
)

// openLeg is the opening side of a round trip.
type openLeg struct {
	order       domain.OrderRequest
	fill        domain.Fill
	initialStop float64
}

// tradeLedger pairs opening and closing fills into trade records and applies
// the execution scenario.
type tradeLedger struct {
	runID      string
	symbol     string
	strategyID string
	scenario   domain.ScenarioConfig
	priceTick  decimal.Decimal

	open   *openLeg
	trades []*domain.TradeRecord
}

func newTradeLedger(runID, symbol, strategyID string, scenario domain.ScenarioConfig, priceTick float64) *tradeLedger {
	return &tradeLedger{
		runID:      runID,
		symbol:     symbol,
		strategyID: strategyID,
		scenario:   scenario,
		priceTick:  decimal.NewFromFloat(priceTick),
	}
}

// onFill records a fill. It returns the completed trade when the fill closes
// the open leg, nil otherwise.
func (l *tradeLedger) onFill(fill domain.Fill, order domain.OrderRequest, stop *float64) (*domain.TradeRecord, error) {
	if fill.Offset == domain.OffsetOpen {
		leg := &openLeg{order: order, fill: fill}
		if stop != nil {
			leg.initialStop = *stop
		}
		l.open = leg
		return nil, nil
	}

	if l.open == nil {
		return nil, ErrUnmatchedClose
	}

	trade := l.buildTrade(l.open, order, fill)
	l.open = nil
	l.trades = append(l.trades, trade)
	return trade, nil
}

func (l *tradeLedger) buildTrade(open *openLeg, closeOrder domain.OrderRequest, closeFill domain.Fill) *domain.TradeRecord {
	side := open.fill.Direction
	volume := decimal.NewFromFloat(open.fill.Volume)
	rate := decimal.NewFromFloat(l.scenario.CommissionRate)

	entryActual := l.slipped(open.fill.Price, open.fill.Direction)
	exitActual := l.slipped(closeFill.Price, closeFill.Direction)

	move := exitActual.Sub(entryActual)
	if side == domain.DirectionShort {
		move = move.Neg()
	}

	gross := move.Mul(volume)
	entryCost := entryActual.Mul(volume).Mul(rate)
	exitCost := exitActual.Mul(volume).Mul(rate)
	totalCost := entryCost.Add(exitCost)
	net := gross.Sub(totalCost)

	var pnlTicks int64
	if !l.priceTick.IsZero() {
		pnlTicks = move.Div(l.priceTick).RoundBank(0).IntPart()
	}

	outcome := domain.OutcomeClassLoss
	if net.IsPositive() {
		outcome = domain.OutcomeClassWin
	}

	entryActualTime := open.fill.TimestampMs + l.scenario.DelayMs
	exitActualTime := closeFill.TimestampMs + l.scenario.DelayMs

	return &domain.TradeRecord{
		TradeID:    idhash.ComputeTradeID(idhash.TradeKey{
			RunID:           l.runID,
			Symbol:          l.symbol,
			StrategyID:      l.strategyID,
			Side:            side,
			EntrySignalTime: open.order.TimestampMs,
		}),
		RunID:      l.runID,
		Symbol:     l.symbol,
		StrategyID: l.strategyID,
		ScenarioID: l.scenario.ScenarioID,
		Side:       side,

		EntrySignalTime:  open.order.TimestampMs,
		EntrySignalPrice: open.order.Price,
		EntryActualTime:  entryActualTime,
		EntryActualPrice: entryActual.InexactFloat64(),
		Volume:           open.fill.Volume,
		InitialStop:      open.initialStop,

		ExitSignalTime:  closeOrder.TimestampMs,
		ExitSignalPrice: closeOrder.Price,
		ExitActualTime:  exitActualTime,
		ExitActualPrice: exitActual.InexactFloat64(),
		ExitReason:      closeOrder.Reason,
		BreakevenStage:  l.exitStage(closeOrder.Reason, side, open.order.Price, closeOrder.Price),

		EntryCost: entryCost.InexactFloat64(),
		ExitCost:  exitCost.InexactFloat64(),
		TotalCost: totalCost.InexactFloat64(),

		GrossPnL:     gross.InexactFloat64(),
		NetPnL:       net.InexactFloat64(),
		PnLTicks:     pnlTicks,
		OutcomeClass: outcome,

		HoldDurationMs: exitActualTime - entryActualTime,
	}
}

// slipped applies adverse slippage: buys fill higher, sells fill lower.
func (l *tradeLedger) slipped(price float64, dir domain.Direction) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	slip := l.priceTick.Mul(decimal.NewFromInt(int64(l.scenario.SlippageTicks)))
	if dir == domain.DirectionShort {
		return p.Sub(slip)
	}
	return p.Add(slip)
}

// exitStage reconstructs the breakeven stage from the exit reason and the
// distance between entry and stop: stage 1 locks one tick, stage 2 five.
func (l *tradeLedger) exitStage(reason string, side domain.Direction, entry, stop float64) int {
	switch reason {
	case domain.ExitReasonTrailingStop:
		return 2
	case domain.ExitReasonBreakevenStop:
		if l.priceTick.IsZero() {
			return 1
		}
		locked := decimal.NewFromFloat(stop).Sub(decimal.NewFromFloat(entry))
		if side == domain.DirectionShort {
			locked = locked.Neg()
		}
		if locked.Div(l.priceTick).RoundBank(0).IntPart() <= 1 {
			return 1
		}
		return 2
	default:
		return 0
	}
}
