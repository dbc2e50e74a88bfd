package indicator

import "time"

// PeriodStarts marks, for each bar, whether it begins a new calendar period
// under the given granularity ("weekly" or "monthly"). It is a thin,
// causal helper over the bar timestamps used to drive OpeningRangeByPeriod;
// it never looks at values beyond the timestamp of the bar itself.
func PeriodStarts(ts []int64, granularity string) []bool {
	out := make([]bool, len(ts))
	var prevYear, prevWeek, prevMonth int
	for i, s := range ts {
		t := time.Unix(s, 0).UTC()
		switch granularity {
		case "weekly":
			y, w := t.ISOWeek()
			if i == 0 || y != prevYear || w != prevWeek {
				out[i] = true
			}
			prevYear, prevWeek = y, w
		case "monthly":
			y, m := t.Year(), int(t.Month())
			if i == 0 || y != prevYear || m != prevMonth {
				out[i] = true
			}
			prevYear, prevMonth = y, m
		default:
			out[i] = i == 0
		}
	}
	return out
}

// OpeningRangeByPeriod computes, for each bar, the locked opening-range
// high/low of its calendar period: the range over the first openBars bars
// of the period, frozen for the remainder of the period once those bars
// have elapsed. Bars before the lock completes report NaN (the range for
// that period is not yet knowable using only indices <= T). periodStart
// must mark period boundaries (see PeriodStarts); periodEnd reports true on
// the last bar observed before the next period begins (approximated as the
// bar immediately preceding the next periodStart, or never for the final,
// still-open period).
func OpeningRangeByPeriod(high, low []float64, periodStart []bool, openBars int) (rangeHigh, rangeLow []float64, periodEnd []bool) {
	nb := len(high)
	rangeHigh = fillNaN(nb)
	rangeLow = fillNaN(nb)
	periodEnd = make([]bool, nb)
	if openBars <= 0 {
		return rangeHigh, rangeLow, periodEnd
	}

	periodStartIdx := 0
	curHigh, curLow := high[0], low[0]
	for i := 0; i < nb; i++ {
		if i > 0 && periodStart[i] {
			periodEnd[i-1] = true
			periodStartIdx = i
			curHigh, curLow = high[i], low[i]
		} else if i > periodStartIdx && i-periodStartIdx < openBars {
			if high[i] > curHigh {
				curHigh = high[i]
			}
			if low[i] < curLow {
				curLow = low[i]
			}
		}
		elapsed := i - periodStartIdx + 1
		if elapsed >= openBars {
			rangeHigh[i] = curHigh
			rangeLow[i] = curLow
		}
	}
	return rangeHigh, rangeLow, periodEnd
}

// RollingOpeningRange treats the "rolling-k" variant of the
// opening-range family as a continuously trailing k-bar window: the range
// at T is the high/low over the k bars strictly before T, so the breakout
// bar is never part of its own range (a close can never exceed its own
// bar's high). Reuses the same monotonic-deque primitive as Donchian,
// shifted one bar forward.
func RollingOpeningRange(high, low []float64, k int) (rangeHigh, rangeLow []float64, warmup int) {
	upper, lower, w := Donchian(high, low, k)
	nb := len(high)
	rangeHigh = fillNaN(nb)
	rangeLow = fillNaN(nb)
	for i := 1; i < nb; i++ {
		rangeHigh[i] = upper[i-1]
		rangeLow[i] = lower[i-1]
	}
	return rangeHigh, rangeLow, w + 1
}
