package backtest

import (
	"math"

	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/cost"
	"github.com/trendlab/trendlab/errs"
	"github.com/trendlab/trendlab/signal"
	"github.com/trendlab/trendlab/sizing"
)

// Config parameterizes one run of the simulation kernel.
type Config struct {
	StartingEquity float64
	Cost           cost.Model
	FillModel      cost.FillModel
	Sizer          sizing.Policy
	Pyramid        *sizing.Pyramided // nil disables pyramiding
}

// Result is the complete output of one run: the per-bar equity series, every
// Fill that occurred, and the closed Trades they produced.
type Result struct {
	Equity []EquityPoint
	Fills  []Fill
	Trades []Trade
	// NonFinite carries forward the signal.Column's non-fatal flag: set
	// when the strategy observed a NaN bar value anywhere outside its
	// warmup window, so a run over bad data is never silently
	// indistinguishable from a clean one.
	NonFinite bool
}

// leg is one side of a scheduled transition: a signed quantity to realize at
// a future (or immediate) fill price, tagged with the indicator state at the
// bar the decision was made on.
type leg struct {
	isEntry bool
	direction int // sign of the resulting position contribution
	atrAtDecision float64
	rawQty float64 // only set for the "close" leg (exact negative of held units)
}

type pending struct {
	execAt int
	legs   []leg
}

type openTrade struct {
	entryBarIndex int
	direction     int
	qtySum        float64 // total |qty| accumulated across entry fills
	notionalSum   float64 // sum of |qty|*fillPrice, for the VWAP entry price
	feesSum       float64
}

// Run walks series in order, producing Fills/Trades/EquityPoints under cfg.
// It returns a BacktestError if equity ever becomes non-finite mid-run.
// cfg and its Cost/FillModel/Sizer are validated eagerly before any
// simulation starts; nonFinite is the strategy's own non-fatal flag
// (signal.Column.NonFinite) and is copied verbatim onto the Result.
func Run(series *bar.Series, targets []signal.Target, atr []float64, cfg Config, nonFinite bool) (*Result, error) {
	n := series.Len()
	if len(targets) != n {
		return nil, errs.New(errs.InvalidInput, "target series length must match bar series length")
	}
	if err := cfg.Cost.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "invalid cost model")
	}
	if err := cfg.FillModel.Validate(); err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "invalid fill model")
	}
	if cfg.Sizer != nil {
		if err := cfg.Sizer.Validate(); err != nil {
			return nil, errs.Wrap(errs.InvalidConfig, err, "invalid sizer")
		}
	}
	if cfg.Pyramid != nil {
		if err := cfg.Pyramid.Validate(); err != nil {
			return nil, errs.Wrap(errs.InvalidConfig, err, "invalid pyramid policy")
		}
	}

	l := newLedger(cfg.StartingEquity, cfg.Cost)
	res := &Result{
		Equity:    make([]EquityPoint, n),
		Fills:     make([]Fill, 0, 16),
		Trades:    make([]Trade, 0, 8),
		NonFinite: nonFinite,
	}

	var pend *pending
	var open *openTrade
	lastAddPrice := 0.0

	execute := func(t int, price float64, lg leg) {
		var qty float64
		if !lg.isEntry {
			qty = lg.rawQty
		} else {
			atrVal := math.NaN()
			if atr != nil {
				atrVal = lg.atrAtDecision
			}
			equityNow := l.equityAt(price)
			var units float64
			heldAbs := math.Abs(l.heldUnits)
			if cfg.Pyramid != nil && open != nil && open.direction == lg.direction {
				units = cfg.Pyramid.Units(equityNow, price, atrVal, int(heldAbs), lastAddPrice)
			} else {
				units = cfg.Sizer.Units(equityNow, price, atrVal, int(heldAbs), lastAddPrice)
			}
			if units <= 0 {
				return
			}
			qty = units * float64(lg.direction)
		}

		f := l.executeFill(t, series.TS[t], qty, price)
		res.Fills = append(res.Fills, f)

		if !lg.isEntry {
			// full close: finalize the open trade.
			if open != nil {
				avgEntry := open.notionalSum / open.qtySum
				grossPnL := (f.FillPrice - avgEntry) * float64(open.direction) * open.qtySum
				fees := open.feesSum + f.Fee
				res.Trades = append(res.Trades, Trade{
					EntryBarIndex: open.entryBarIndex,
					ExitBarIndex:  t,
					Direction:     open.direction,
					Qty:           open.qtySum,
					EntryPrice:    avgEntry,
					ExitPrice:     f.FillPrice,
					GrossPnL:      grossPnL,
					Fees:          fees,
					NetPnL:        grossPnL - fees,
					BarsHeld:      t - open.entryBarIndex,
				})
				open = nil
			}
			return
		}

		// entry or add
		absQty := math.Abs(qty)
		if open == nil {
			open = &openTrade{entryBarIndex: t, direction: lg.direction}
		}
		open.qtySum += absQty
		open.notionalSum += absQty * f.FillPrice
		open.feesSum += f.Fee
		lastAddPrice = f.FillPrice
	}

	executeLegs := func(t int, price float64, legs []leg) {
		for _, lg := range legs {
			execute(t, price, lg)
		}
	}

	for t := 0; t < n; t++ {
		if pend != nil && pend.execAt == t {
			executeLegs(t, series.Open[t], pend.legs)
			pend = nil
		}

		targetSign := int(targets[t])
		heldSign := signOfUnits(l.heldUnits)
		atrHere := math.NaN()
		if atr != nil {
			atrHere = atr[t]
		}

		var newLegs []leg
		switch {
		case targetSign != heldSign:
			if heldSign != 0 {
				newLegs = append(newLegs, leg{isEntry: false, rawQty: -l.heldUnits})
			}
			if targetSign != 0 {
				newLegs = append(newLegs, leg{isEntry: true, direction: targetSign, atrAtDecision: atrHere})
			}
		case heldSign != 0 && cfg.Pyramid != nil:
			if cfg.Pyramid.ShouldAdd(heldSign, series.Close[t], atrHere, lastAddPrice, math.Abs(l.heldUnits)) {
				newLegs = append(newLegs, leg{isEntry: true, direction: heldSign, atrAtDecision: atrHere})
			}
		}

		if len(newLegs) > 0 {
			if cfg.FillModel == cost.SignalCloseFillSameClose {
				executeLegs(t, series.Close[t], newLegs)
			} else if t+1 < n {
				pend = &pending{execAt: t + 1, legs: newLegs}
			}
			// else: last bar, the deferred intent is discarded.
		}

		eq := l.equityAt(series.Close[t])
		if math.IsNaN(eq) || math.IsInf(eq, 0) {
			return nil, errs.Newf(errs.BacktestError, "equity became non-finite at bar %d", t)
		}
		res.Equity[t] = EquityPoint{
			Cash:        l.cash,
			PositionQty: l.heldUnits,
			MarkPrice:   series.Close[t],
			Equity:      eq,
		}
	}

	peak := cfg.StartingEquity
	for t := range res.Equity {
		if res.Equity[t].Equity > peak {
			peak = res.Equity[t].Equity
		}
		res.Equity[t].Drawdown = res.Equity[t].Equity/peak - 1
	}

	return res, nil
}
