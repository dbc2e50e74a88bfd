// Package cost defines the fee/slippage cost model and fill-timing policy
// applied to every fill.
package cost

import "github.com/trendlab/trendlab/errs"

// Model is the fee/slippage configuration applied to every Fill.
type Model struct {
	FeeBps      float64 // fee in basis points per side
	SlippageBps float64 // slippage in basis points, applied adversely
}

// Validate rejects a structurally nonsensical cost model.
func (m Model) Validate() error {
	if m.FeeBps < 0 {
		return errs.New(errs.InvalidConfig, "FeeBps cannot be negative")
	}
	if m.SlippageBps < 0 {
		return errs.New(errs.InvalidConfig, "SlippageBps cannot be negative")
	}
	return nil
}

// FillModel is the enumerated fill-timing policy.
type FillModel int

const (
	// SignalCloseFillNextOpen: a signal emitted at the close of bar T fills
	// at the open of bar T+1 (default). The last bar of a series never
	// produces a deferred fill.
	SignalCloseFillNextOpen FillModel = iota
	// SignalCloseFillSameClose: fills at the close of bar T, for parity
	// with venues that admit market-on-close orders.
	SignalCloseFillSameClose
)

func (f FillModel) String() string {
	switch f {
	case SignalCloseFillNextOpen:
		return "signal_close_fill_next_open"
	case SignalCloseFillSameClose:
		return "signal_close_fill_same_close"
	default:
		return "unknown"
	}
}

// Validate rejects a FillModel value outside the closed enum.
func (f FillModel) Validate() error {
	switch f {
	case SignalCloseFillNextOpen, SignalCloseFillSameClose:
		return nil
	default:
		return errs.Newf(errs.InvalidConfig, "unknown fill model %d", int(f))
	}
}

// ApplySlippage adversely adjusts a raw price: buys pay up, sells pay down,
// symmetrically for shorts (a short-entry is a sell, a short-exit is a buy).
func (m Model) ApplySlippage(rawPrice float64, isBuy bool) float64 {
	adj := m.SlippageBps / 10000.0
	if isBuy {
		return rawPrice * (1 + adj)
	}
	return rawPrice * (1 - adj)
}

// Fee computes the fee amount charged against cash for a fill of the given
// signed quantity at the given (already slippage-adjusted) fill price.
func (m Model) Fee(qty, fillPrice float64) float64 {
	notional := qty * fillPrice
	if notional < 0 {
		notional = -notional
	}
	return notional * m.FeeBps / 10000.0
}
