package signal

import "math"

// shiftForward produces out[T] = src[T-by], NaN (or zero) for T < by. It is
// the "prior bar channel" primitive: indicator values computed eagerly over
// the whole series become causal inputs to a signal only after shifting by
// one bar, so that the value consulted at T never includes bar T itself.
func shiftForward(src []float64, by int) []float64 {
	out := make([]float64, len(src))
	for i := range out {
		if i < by {
			out[i] = math.NaN()
			continue
		}
		out[i] = src[i-by]
	}
	return out
}

// DonchianTurtle implements the classic Turtle system: a wider entry
// channel, a tighter exit channel, both consulted one bar back so the
// breakout bar itself is never part of its own trigger window. The
// position is a state machine: once long, it holds until the exit lower
// channel is broken; the short mirror is symmetric and is clipped away by
// Mode masking downstream for LongOnly/ShortOnly callers. A NaN close at or
// after warmup holds the prior position and is reported via nonFinite as
// a non-fatal condition; NaN channel values before warmup has elapsed are
// the expected, benign warmup case and are not flagged.
func DonchianTurtle(close []float64, entryUpper, entryLower, exitUpper, exitLower []float64, warmup int) (raw []Target, nonFinite bool) {
	n := len(close)
	eu := shiftForward(entryUpper, 1)
	el := shiftForward(entryLower, 1)
	xu := shiftForward(exitUpper, 1)
	xl := shiftForward(exitLower, 1)

	raw = make([]Target, n)
	held := Flat
	for t := 0; t < n; t++ {
		if t >= warmup && math.IsNaN(close[t]) {
			nonFinite = true
			raw[t] = held
			continue
		}
		switch held {
		case Flat:
			switch {
			case !math.IsNaN(eu[t]) && close[t] > eu[t]:
				held = Long
			case !math.IsNaN(el[t]) && close[t] < el[t]:
				held = Short
			}
		case Long:
			if !math.IsNaN(xl[t]) && close[t] < xl[t] {
				held = Flat
			}
		case Short:
			if !math.IsNaN(xu[t]) && close[t] > xu[t] {
				held = Flat
			}
		}
		raw[t] = held
	}
	return raw, nonFinite
}

// MACrossover fires on a strict crossing of a fast average through a slow
// average: equality on either side of the transition is "no cross",
// so a run of equal values never flips position. The
// resulting target is already stateful (it holds between crosses) and
// supports direct reversal; LongOnly/ShortOnly masking is applied by Build.
// A NaN input at or after warmup holds the prior position and is reported
// via nonFinite; NaN values during warmup (the averages' own undefined
// prefix) are expected and not flagged.
func MACrossover(fast, slow []float64, warmup int) (raw []Target, nonFinite bool) {
	n := len(fast)
	raw = make([]Target, n)
	held := Flat
	for t := 1; t < n; t++ {
		if math.IsNaN(fast[t-1]) || math.IsNaN(slow[t-1]) || math.IsNaN(fast[t]) || math.IsNaN(slow[t]) {
			if t > warmup || (t == warmup && (math.IsNaN(fast[t]) || math.IsNaN(slow[t]))) {
				nonFinite = true
			}
			raw[t] = held
			continue
		}
		bull := fast[t-1] <= slow[t-1] && fast[t] > slow[t]
		bear := fast[t-1] >= slow[t-1] && fast[t] < slow[t]
		switch {
		case bull:
			held = Long
		case bear:
			held = Short
		}
		raw[t] = held
	}
	return raw, nonFinite
}

// TSMOM is time-series momentum: a stateless per-bar function of the sign
// of close[T]-close[T-n] — long when the close is above the close n bars
// back, short when below, flat on an exact tie. A NaN
// close anywhere in the comparison holds the previous bar's target and is
// reported via nonFinite rather than silently resolving to Flat.
func TSMOM(close []float64, n int) (raw []Target, nonFinite bool) {
	raw = make([]Target, len(close))
	for t := n; t < len(close); t++ {
		if math.IsNaN(close[t]) || math.IsNaN(close[t-n]) {
			nonFinite = true
			if t > n {
				raw[t] = raw[t-1]
			}
			continue
		}
		switch {
		case close[t] > close[t-n]:
			raw[t] = Long
		case close[t] < close[t-n]:
			raw[t] = Short
		default:
			raw[t] = Flat
		}
	}
	return raw, nonFinite
}

// ParabolicSARStrategy holds a long position for as long as the SAR trend
// flag is up and a short position for as long as it is down; the flip bar
// itself is both the exit of the old side and the entry of the new one. sar
// is consulted only to detect a non-finite value; a NaN sar value holds the
// previous position and is reported via nonFinite, except on the
// indicator's own warmup bar (trend 0), which is the expected, benign case.
func ParabolicSARStrategy(sar []float64, trend []int) (raw []Target, nonFinite bool) {
	raw = make([]Target, len(trend))
	held := Flat
	for t, tr := range trend {
		if t < len(sar) && math.IsNaN(sar[t]) {
			if tr != 0 {
				nonFinite = true
			}
			raw[t] = held
			continue
		}
		switch {
		case tr > 0:
			held = Long
		case tr < 0:
			held = Short
		default:
			held = Flat
		}
		raw[t] = held
	}
	return raw, nonFinite
}

// EnsembleMethod selects how component strategy targets are combined.
type EnsembleMethod int

const (
	Majority EnsembleMethod = iota
	WeightedByHorizon
	UnanimousEntry
)

// EnsembleAggregate combines already-built component targets (each already
// masked/warmup-forced by its own Build call) into one composite raw
// target. Majority takes the sign of the simple vote sum, breaking exact
// ties to Flat. WeightedByHorizon sums weight*target per component and
// takes the sign of the result. UnanimousEntry requires every component to
// agree on a non-flat direction to enter, and exits the moment any
// component drops to flat or disagrees. componentNonFinite carries each
// component's own nonFinite flag (from its Column.NonFinite); the
// aggregate's nonFinite is the OR of all of them, since a bad bar in any
// one component taints the composite decision for that bar.
func EnsembleAggregate(components [][]Target, method EnsembleMethod, weights []float64, componentNonFinite []bool) (raw []Target, nonFinite bool) {
	if len(components) == 0 {
		return nil, false
	}
	for _, v := range componentNonFinite {
		if v {
			nonFinite = true
			break
		}
	}
	n := len(components[0])
	raw = make([]Target, n)
	for t := 0; t < n; t++ {
		switch method {
		case WeightedByHorizon:
			var sum float64
			for i, c := range components {
				w := 1.0
				if i < len(weights) {
					w = weights[i]
				}
				sum += w * float64(c[t])
			}
			raw[t] = signOf(sum)
		case UnanimousEntry:
			first := components[0][t]
			unanimous := first != Flat
			for _, c := range components {
				if c[t] != first {
					unanimous = false
					break
				}
			}
			if unanimous {
				raw[t] = first
			} else {
				raw[t] = Flat
			}
		default: // Majority
			var sum int
			for _, c := range components {
				sum += int(c[t])
			}
			switch {
			case sum > 0:
				raw[t] = Long
			case sum < 0:
				raw[t] = Short
			default:
				raw[t] = Flat
			}
		}
	}
	return raw, nonFinite
}

func signOf(v float64) Target {
	switch {
	case v > 0:
		return Long
	case v < 0:
		return Short
	default:
		return Flat
	}
}

// OpeningRangeVariant selects how an opening-range breakout position is
// closed out.
type OpeningRangeVariant int

const (
	// CloseAtPeriodEnd flattens the position on the last bar of the period
	// regardless of price action.
	CloseAtPeriodEnd OpeningRangeVariant = iota
	// OppositeBreak holds the position until price breaks the opposite side
	// of the locked range, carrying across period boundaries if it never
	// does.
	OppositeBreak
)

// OpeningRangeBreakout enters long on the first close above the locked
// range high and short on the first close below the locked range low. The
// range is undefined (NaN) until openBars have elapsed in a period, during
// which no entry can fire. A NaN close once the range is locked holds the
// previous position and is reported via nonFinite.
func OpeningRangeBreakout(close, rangeHigh, rangeLow []float64, periodEnd []bool, variant OpeningRangeVariant) (raw []Target, nonFinite bool) {
	n := len(close)
	raw = make([]Target, n)
	held := Flat
	for t := 0; t < n; t++ {
		rh, rl := rangeHigh[t], rangeLow[t]
		rangeLocked := !math.IsNaN(rh) && !math.IsNaN(rl)
		if rangeLocked && math.IsNaN(close[t]) {
			nonFinite = true
			if variant == CloseAtPeriodEnd && t < len(periodEnd) && periodEnd[t] {
				held = Flat
			}
			raw[t] = held
			continue
		}
		if rangeLocked {
			switch held {
			case Flat:
				switch {
				case close[t] > rh:
					held = Long
				case close[t] < rl:
					held = Short
				}
			case Long:
				if variant == OppositeBreak && close[t] < rl {
					held = Short
				}
			case Short:
				if variant == OppositeBreak && close[t] > rh {
					held = Long
				}
			}
		}
		if variant == CloseAtPeriodEnd && t < len(periodEnd) && periodEnd[t] {
			held = Flat
		}
		raw[t] = held
	}
	return raw, nonFinite
}
