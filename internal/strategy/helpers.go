package strategy

import "github.com/shopspring/decimal"

// profitTicks returns (to - from) / tick rounded to the nearest whole tick,
// half to even. Prices go through decimal so that 105 - 104.94 is exactly 6 ticks.
func profitTicks(from, to, tick float64) int {
	diff := decimal.NewFromFloat(to).Sub(decimal.NewFromFloat(from))
	return int(diff.Div(decimal.NewFromFloat(tick)).RoundBank(0).IntPart())
}

// offsetPrice returns price + ticks*tick.
func offsetPrice(price float64, ticks int, tick float64) float64 {
	step := decimal.NewFromFloat(tick).Mul(decimal.NewFromInt(int64(ticks)))
	return decimal.NewFromFloat(price).Add(step).InexactFloat64()
}

// within reports lo <= v <= hi.
func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func floatPtr(v float64) *float64 {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
