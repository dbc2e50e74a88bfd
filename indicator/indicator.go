// Package indicator implements the causal, vectorized indicator kernel:
// pure (columns, params) -> column transforms over a bar
// series. Every function here reads only indices <= T when producing the
// value at T (the no-lookahead invariant); callers that need a value at T
// using only bars strictly before T (the "prior-bar channel" convention
// used by Donchian/Turtle) shift the returned column
// themselves rather than this package computing a different definition.
//
// Values before an indicator's warmup window are reported as math.NaN();
// every function also returns the warmup length (the number of leading
// bars for which the value is undefined) so callers can mask signals to
// "hold" uniformly.
package indicator

import "math"

// fillNaN returns a float64 slice of length n filled with NaN, used as the
// starting point for every indicator column before the defined region is
// written in.
func fillNaN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes the simple moving average of close over a window of n bars.
// SMA(n)[T] = mean(close[T-n+1..T]); undefined for T < n-1.
func SMA(close []float64, n int) (values []float64, warmup int) {
	nb := len(close)
	out := fillNaN(nb)
	if n <= 0 || n > nb {
		return out, nb
	}
	sum := 0.0
	for i := 0; i < nb; i++ {
		sum += close[i]
		if i >= n {
			sum -= close[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out, n - 1
}

// EMA computes the exponential moving average of close over n bars, seeded
// by SMA(n) at T = n-1, with alpha = 2/(n+1).
func EMA(close []float64, n int) (values []float64, warmup int) {
	nb := len(close)
	out := fillNaN(nb)
	if n <= 0 || n > nb {
		return out, nb
	}
	sma, _ := SMA(close, n)
	alpha := 2.0 / (float64(n) + 1.0)
	out[n-1] = sma[n-1]
	for i := n; i < nb; i++ {
		out[i] = alpha*close[i] + (1-alpha)*out[i-1]
	}
	return out, n - 1
}

// RollingMax returns, for each index T, the maximum of vals[T-n+1..T].
// Undefined (NaN) for T < n-1. Used directly by Donchian's upper channel
// and by the "true range rolling max" family (Darvas boxes, 52-week
// proximity).
func RollingMax(vals []float64, n int) (values []float64, warmup int) {
	return rollingExtreme(vals, n, func(a, b float64) bool { return a > b })
}

// RollingMin returns, for each index T, the minimum of vals[T-n+1..T].
func RollingMin(vals []float64, n int) (values []float64, warmup int) {
	return rollingExtreme(vals, n, func(a, b float64) bool { return a < b })
}

// rollingExtreme implements a monotonic-deque sliding window extreme in
// O(len(vals)) time; better keeps the better of (a, b) under the caller's
// ordering (> for max, < for min).
func rollingExtreme(vals []float64, n int, better func(a, b float64) bool) (values []float64, warmup int) {
	nb := len(vals)
	out := fillNaN(nb)
	if n <= 0 || n > nb {
		return out, nb
	}
	// deque of indices, values kept in monotonic order under `better`
	deque := make([]int, 0, nb)
	for i := 0; i < nb; i++ {
		for len(deque) > 0 && !better(vals[deque[len(deque)-1]], vals[i]) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if deque[0] <= i-n {
			deque = deque[1:]
		}
		if i >= n-1 {
			out[i] = vals[deque[0]]
		}
	}
	return out, n - 1
}

// Donchian computes the n-bar Donchian channel: upper[T] = max(high[T-n+1..T]),
// lower[T] = min(low[T-n+1..T]).
func Donchian(high, low []float64, n int) (upper, lower []float64, warmup int) {
	upper, w1 := RollingMax(high, n)
	lower, w2 := RollingMin(low, n)
	if w2 > w1 {
		w1 = w2
	}
	return upper, lower, w1
}

// trueRange computes the true-range column: TR[T] = max(high-low,
// |high-close[T-1]|, |low-close[T-1]|) for T >= 1; TR[0] = high[0]-low[0]
// (no prior close to compare against).
func trueRange(high, low, close []float64) []float64 {
	nb := len(close)
	tr := make([]float64, nb)
	if nb == 0 {
		return tr
	}
	tr[0] = high[0] - low[0]
	for i := 1; i < nb; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// wilderSmooth applies Wilder's recursive smoothing to src with effective
// length n, seeded by the simple average of the first n values:
// smoothed[n-1] = mean(src[0..n-1]); smoothed[T] = smoothed[T-1] +
// (src[T]-smoothed[T-1])/n for T >= n.
func wilderSmooth(src []float64, n int) (values []float64, warmup int) {
	nb := len(src)
	out := fillNaN(nb)
	if n <= 0 || n > nb {
		return out, nb
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += src[i]
	}
	out[n-1] = sum / float64(n)
	for i := n; i < nb; i++ {
		out[i] = out[i-1] + (src[i]-out[i-1])/float64(n)
	}
	return out, n - 1
}

// ATRWilder computes the Average True Range with Wilder smoothing:
// ATR[T] = ATR[T-1] + (TR[T]-ATR[T-1])/n, seeded by the mean of the first
// n true-range values.
func ATRWilder(high, low, close []float64, n int) (values []float64, warmup int) {
	tr := trueRange(high, low, close)
	return wilderSmooth(tr, n)
}

// HeikinAshi computes Heikin-Ashi candles: HA_close = mean(O,H,L,C);
// HA_open = 0.5*(HA_open[T-1]+HA_close[T-1]) (an EMA-of-previous-candle
// with alpha=0.5), seeded at T=0 by the average of open and close;
// HA_high/HA_low extend the HA body to the real bar's extremes.
func HeikinAshi(open, high, low, close []float64) (haOpen, haHigh, haLow, haClose []float64) {
	nb := len(close)
	haOpen = make([]float64, nb)
	haHigh = make([]float64, nb)
	haLow = make([]float64, nb)
	haClose = make([]float64, nb)
	for i := 0; i < nb; i++ {
		haClose[i] = (open[i] + high[i] + low[i] + close[i]) / 4.0
		if i == 0 {
			haOpen[i] = (open[i] + close[i]) / 2.0
		} else {
			haOpen[i] = 0.5 * (haOpen[i-1] + haClose[i-1])
		}
		haHigh[i] = math.Max(high[i], math.Max(haOpen[i], haClose[i]))
		haLow[i] = math.Min(low[i], math.Min(haOpen[i], haClose[i]))
	}
	return
}
