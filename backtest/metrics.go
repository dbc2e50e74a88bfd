package backtest

import "math"

// Metrics are the run-level performance statistics of a backtest, all
// derived from the equity series and trade list with a fixed summation
// order (plain left-to-right index iteration) so that results are
// reproducible regardless of how many workers computed them concurrently.
type Metrics struct {
	TotalReturn  float64
	CAGR         float64
	Volatility   float64
	Sharpe       float64
	Sortino      float64
	MaxDrawdown  float64
	Calmar       float64
	WinRate      float64
	ProfitFactor float64 // +Inf when there are no losers and at least one winner
	Turnover     float64
}

const barsPerYear = 252.0

// dailyReturns computes simple returns between consecutive equity points in
// index order.
func dailyReturns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = equity[i].Equity/prev - 1
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

func downsideStdev(xs []float64) float64 {
	var negatives []float64
	for _, x := range xs {
		if x < 0 {
			negatives = append(negatives, x)
		}
	}
	return stdev(negatives)
}

// Compute derives Metrics from a completed Result.
func Compute(res *Result) Metrics {
	n := len(res.Equity)
	var m Metrics
	if n == 0 {
		return m
	}

	start := res.Equity[0].Equity
	end := res.Equity[n-1].Equity
	if start != 0 {
		m.TotalReturn = end/start - 1
	}

	if start != 0 && 1+m.TotalReturn >= 0 {
		m.CAGR = math.Pow(1+m.TotalReturn, barsPerYear/float64(n)) - 1
	}

	rets := dailyReturns(res.Equity)
	sd := stdev(rets)
	m.Volatility = sd * math.Sqrt(barsPerYear)
	if sd != 0 {
		m.Sharpe = mean(rets) * math.Sqrt(barsPerYear) / sd
	}
	dsd := downsideStdev(rets)
	if dsd != 0 {
		m.Sortino = mean(rets) / (dsd * math.Sqrt(barsPerYear))
	}

	minDD := 0.0
	for _, e := range res.Equity {
		if e.Drawdown < minDD {
			minDD = e.Drawdown
		}
	}
	m.MaxDrawdown = minDD
	if minDD != 0 {
		m.Calmar = m.CAGR / math.Abs(minDD)
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, tr := range res.Trades {
		if tr.NetPnL >= 0 {
			wins++
			winSum += tr.NetPnL
		} else {
			losses++
			lossSum += -tr.NetPnL
		}
	}
	total := wins + losses
	if total > 0 {
		m.WinRate = float64(wins) / float64(total)
	}
	if lossSum == 0 {
		if winSum > 0 {
			m.ProfitFactor = math.Inf(1)
		}
	} else {
		m.ProfitFactor = winSum / lossSum
	}

	var turnoverNotional float64
	for _, f := range res.Fills {
		turnoverNotional += math.Abs(f.Qty * f.FillPrice)
	}
	if start != 0 {
		m.Turnover = turnoverNotional * (barsPerYear / float64(n)) / start
	}

	return m
}
