package bar

// Synthetic builds a Series from parallel close/open/high/low/volume
// slices, starting at baseTS and advancing one day (86400s) per bar. It
// exists to let the indicator, signal, backtest, and sweep test suites
// construct literal scenario bars tersely instead of repeating builder
// boilerplate in every test file.
func Synthetic(symbol, timeframe string, baseTS int64, opens, highs, lows, closes, volumes []float64) (*Series, error) {
	n := len(closes)
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = Bar{
			TS:        baseTS + int64(i)*86400,
			Open:      pick(opens, i, closes[i]),
			High:      pick(highs, i, closes[i]),
			Low:       pick(lows, i, closes[i]),
			Close:     closes[i],
			Volume:    pick(volumes, i, 0),
			Symbol:    symbol,
			Timeframe: timeframe,
		}
	}
	return New(bars)
}

func pick(col []float64, i int, fallback float64) float64 {
	if col == nil {
		return fallback
	}
	return col[i]
}

// ConstantSeries builds an n-bar series where every OHLC value equals
// price and volume is 0 — used by the "single bar move, no trade"
// scenario tests.
func ConstantSeries(symbol, timeframe string, baseTS int64, n int, price float64) (*Series, error) {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return Synthetic(symbol, timeframe, baseTS, nil, nil, nil, closes, nil)
}
