// Package sizing converts a tri-state target position into a unit count
// through the family of position-sizing policies the backtest kernel
// consults.
package sizing

import (
	"math"

	"github.com/trendlab/trendlab/errs"
)

// Policy converts a fill price and the ATR value observed at the bar the
// entry decision was made on (NaN if the strategy has no ATR) into a
// non-negative unit count for one
// leg of a position. Pyramided policies also receive the number of units
// already held and the price at which the last unit was added.
type Policy interface {
	// Units returns the number of units to add for one entry/add event.
	// Returning 0 suppresses the fill entirely.
	Units(equity, fillPrice, atr float64, heldUnits int, lastAddPrice float64) float64
	// Validate rejects a structurally nonsensical policy eagerly, before any
	// run starts.
	Validate() error
}

// FixedUnits always sizes to a constant unit count, independent of equity
// or volatility.
type FixedUnits float64

func (u FixedUnits) Units(equity, fillPrice, atr float64, heldUnits int, lastAddPrice float64) float64 {
	return float64(u)
}

func (u FixedUnits) Validate() error {
	if u <= 0 {
		return errs.New(errs.InvalidConfig, "FixedUnits must be positive")
	}
	return nil
}

// FixedNotional sizes to a constant notional value of the instrument,
// converting to units at the fill price.
type FixedNotional float64

func (n FixedNotional) Units(equity, fillPrice, atr float64, heldUnits int, lastAddPrice float64) float64 {
	if fillPrice <= 0 {
		return 0
	}
	return math.Floor(float64(n) / fillPrice)
}

func (n FixedNotional) Validate() error {
	if n <= 0 {
		return errs.New(errs.InvalidConfig, "FixedNotional must be positive")
	}
	return nil
}

// VolatilityTargeted sizes by a risk budget: units =
// floor((equity*RiskPct) / (ATR*fillPrice)). During the ATR's warmup
// (signaled by a NaN atr), Units returns 0 and the caller must suppress the
// fill entirely.
type VolatilityTargeted struct {
	RiskPct   float64
	ATRPeriod int
}

func (v VolatilityTargeted) Units(equity, fillPrice, atr float64, heldUnits int, lastAddPrice float64) float64 {
	if math.IsNaN(atr) || atr <= 0 || fillPrice <= 0 {
		return 0
	}
	riskAmt := equity * v.RiskPct
	return math.Floor(riskAmt / (atr * fillPrice))
}

func (v VolatilityTargeted) Validate() error {
	if v.RiskPct <= 0 {
		return errs.New(errs.InvalidConfig, "RiskPct must be positive")
	}
	if v.ATRPeriod <= 0 {
		return errs.New(errs.InvalidConfig, "ATRPeriod must be positive")
	}
	return nil
}

// Pyramided wraps a base Policy and adds StepATRMultiple*ATR favorable-move
// increments up to MaxUnits total units. Each add event re-consults the
// base policy for the increment size; the caller is responsible for
// flattening all accumulated units atomically at a single fill price on
// exit.
type Pyramided struct {
	Base            Policy
	MaxUnits        float64
	StepATRMultiple float64
}

// ShouldAdd reports whether price has moved StepATRMultiple*atr favorably
// from lastAddPrice since the last add, in the given direction (+1 long,
// -1 short), and whether heldUnits is still below MaxUnits.
func (p Pyramided) ShouldAdd(direction int, price, atr, lastAddPrice float64, heldUnits float64) bool {
	if heldUnits >= p.MaxUnits || math.IsNaN(atr) || atr <= 0 {
		return false
	}
	move := p.StepATRMultiple * atr
	if direction > 0 {
		return price >= lastAddPrice+move
	}
	return price <= lastAddPrice-move
}

func (p Pyramided) Units(equity, fillPrice, atr float64, heldUnits int, lastAddPrice float64) float64 {
	base := p.Base.Units(equity, fillPrice, atr, heldUnits, lastAddPrice)
	remaining := p.MaxUnits - float64(heldUnits)
	if remaining <= 0 {
		return 0
	}
	if base > remaining {
		return remaining
	}
	return base
}

func (p Pyramided) Validate() error {
	if p.Base == nil {
		return errs.New(errs.InvalidConfig, "Pyramided.Base must not be nil")
	}
	if err := p.Base.Validate(); err != nil {
		return errs.Wrap(errs.InvalidConfig, err, "invalid Pyramided.Base")
	}
	if p.MaxUnits <= 0 {
		return errs.New(errs.InvalidConfig, "MaxUnits must be positive")
	}
	if p.StepATRMultiple <= 0 {
		return errs.New(errs.InvalidConfig, "StepATRMultiple must be positive")
	}
	return nil
}
