package backtest

import "github.com/trendlab/trendlab/cost"

// ledger holds the single-threaded cash/position bookkeeping for one run.
// A single run is never touched by more than one goroutine,
// so no mutex guards these fields.
type ledger struct {
	cash      float64
	heldUnits float64 // signed: positive = long, negative = short
	cost      cost.Model
}

func newLedger(startingEquity float64, costModel cost.Model) *ledger {
	return &ledger{cash: startingEquity, cost: costModel}
}

func signOfUnits(u float64) int {
	switch {
	case u > 0:
		return 1
	case u < 0:
		return -1
	default:
		return 0
	}
}

// executeFill realizes a signed quantity change at rawPrice: qty > 0 is a
// buy (adds to the long side or closes a short), qty < 0 is a sell. Slippage
// and fee are applied in that order, then cash and position update.
func (l *ledger) executeFill(barIdx int, ts int64, qty, rawPrice float64) Fill {
	isBuy := qty > 0
	side := Sell
	if isBuy {
		side = Buy
	}
	fillPrice := l.cost.ApplySlippage(rawPrice, isBuy)
	fee := l.cost.Fee(qty, fillPrice)

	l.cash -= qty * fillPrice
	l.cash -= fee
	l.heldUnits += qty

	return Fill{
		BarIndex:  barIdx,
		TS:        ts,
		Side:      side,
		Qty:       qty,
		RawPrice:  rawPrice,
		FillPrice: fillPrice,
		Fee:       fee,
	}
}

func (l *ledger) equityAt(closePrice float64) float64 {
	return l.cash + l.heldUnits*closePrice
}
