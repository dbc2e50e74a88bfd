package indicator

import "math"

// ParabolicSAR computes Wilder's Parabolic SAR using the start/step/max
// acceleration-factor recurrence. The initial
// trend direction is the sign of (close[1]-close[0]); bar 0 has no prior
// bar to compare against and is reported as NaN/flat (warmup=1). Trend is
// -1 (down) or +1 (up) for every bar from index 1 onward.
func ParabolicSAR(high, low, close []float64, start, step, max float64) (sar []float64, trend []int, warmup int) {
	nb := len(close)
	sar = fillNaN(nb)
	trend = make([]int, nb)
	if nb < 2 {
		return sar, trend, nb
	}

	dir := 1
	if close[1] < close[0] {
		dir = -1
	}

	var cur, ep, af float64
	if dir > 0 {
		cur = low[0]
		ep = high[1]
	} else {
		cur = high[0]
		ep = low[1]
	}
	af = start

	sar[1] = cur
	trend[1] = dir

	for t := 2; t < nb; t++ {
		next := cur + af*(ep-cur)
		if dir > 0 {
			next = math.Min(next, math.Min(low[t-1], low[t-2]))
			if high[t] > ep {
				ep = high[t]
				af = math.Min(af+step, max)
			}
			if low[t] < next {
				dir = -1
				next = ep
				ep = low[t]
				af = start
			}
		} else {
			next = math.Max(next, math.Max(high[t-1], high[t-2]))
			if low[t] < ep {
				ep = low[t]
				af = math.Min(af+step, max)
			}
			if high[t] > next {
				dir = 1
				next = ep
				ep = high[t]
				af = start
			}
		}
		cur = next
		sar[t] = cur
		trend[t] = dir
	}
	return sar, trend, 1
}
