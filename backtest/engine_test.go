package backtest

import (
	"math"
	"testing"

	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/cost"
	"github.com/trendlab/trendlab/signal"
	"github.com/trendlab/trendlab/sizing"
)

func constSeries(n int, price float64) *bar.Series {
	bars := make([]bar.Bar, n)
	for i := range bars {
		bars[i] = bar.Bar{
			TS: int64(i) * 86400, Open: price, High: price, Low: price, Close: price,
			Volume: 1, Symbol: "TEST", Timeframe: "1d",
		}
	}
	s, err := bar.New(bars)
	if err != nil {
		panic(err)
	}
	return s
}

func flatTargets(n int) []signal.Target {
	return make([]signal.Target, n)
}

func TestConstantPriceProducesNoTrades(t *testing.T) {
	s := constSeries(20, 100)
	targets := flatTargets(20)
	cfg := Config{StartingEquity: 10000, Sizer: sizing.FixedUnits(1)}
	res, err := Run(s, targets, nil, cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Fills) != 0 || len(res.Trades) != 0 {
		t.Fatalf("expected no fills/trades, got %d fills, %d trades", len(res.Fills), len(res.Trades))
	}
	for i, e := range res.Equity {
		if e.Equity != 10000 {
			t.Fatalf("equity[%d] = %v, want 10000", i, e.Equity)
		}
	}
}

func TestNextOpenFillTimingAndAccountingIdentity(t *testing.T) {
	bars := []bar.Bar{
		{TS: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 86400, Open: 105, High: 106, Low: 104, Close: 105, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 172800, Open: 106, High: 107, Low: 105, Close: 106, Volume: 1, Symbol: "X", Timeframe: "1d"},
	}
	s, err := bar.New(bars)
	if err != nil {
		t.Fatal(err)
	}
	targets := []signal.Target{signal.Long, signal.Long, signal.Long}
	cfg := Config{StartingEquity: 10000, Sizer: sizing.FixedUnits(1)}
	res, err := Run(s, targets, nil, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fills) != 1 {
		t.Fatalf("expected exactly 1 fill (next-bar open), got %d", len(res.Fills))
	}
	if res.Fills[0].BarIndex != 1 {
		t.Fatalf("fill should execute at bar 1 (next open), got bar %d", res.Fills[0].BarIndex)
	}
	if res.Fills[0].FillPrice != 105 {
		t.Fatalf("fill price should be open of bar 1 (105), got %v", res.Fills[0].FillPrice)
	}
	for i, e := range res.Equity {
		want := e.Cash + e.PositionQty*s.Close[i]
		if math.Abs(e.Equity-want) > 1e-9 {
			t.Fatalf("accounting identity violated at bar %d: equity=%v, cash+pos*close=%v", i, e.Equity, want)
		}
	}
}

func TestFeeReducesNetPnLByExactlyTwiceFee(t *testing.T) {
	bars := []bar.Bar{
		{TS: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 86400, Open: 100, High: 111, Low: 99, Close: 110, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 172800, Open: 110, High: 111, Low: 109, Close: 110, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 259200, Open: 110, High: 111, Low: 109, Close: 110, Volume: 1, Symbol: "X", Timeframe: "1d"},
	}
	s, err := bar.New(bars)
	if err != nil {
		t.Fatal(err)
	}
	targets := []signal.Target{signal.Long, signal.Long, signal.Flat, signal.Flat}
	noFee := Config{StartingEquity: 10000, Sizer: sizing.FixedUnits(1)}
	withFee := Config{StartingEquity: 10000, Sizer: sizing.FixedUnits(1), Cost: cost.Model{FeeBps: 10}}

	r1, err := Run(s, targets, nil, noFee, false)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Run(s, targets, nil, withFee, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(r1.Trades) != 1 || len(r2.Trades) != 1 {
		t.Fatalf("expected exactly one closed trade in each run")
	}
	diff := r1.Trades[0].NetPnL - r2.Trades[0].NetPnL
	want := r2.Trades[0].Fees
	if math.Abs(diff-want) > 1e-6 {
		t.Fatalf("fee impact mismatch: diff=%v, total fees=%v", diff, want)
	}
}

func TestSlippageWorsensBothSides(t *testing.T) {
	bars := []bar.Bar{
		{TS: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 86400, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 172800, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 259200, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
	}
	s, err := bar.New(bars)
	if err != nil {
		t.Fatal(err)
	}
	targets := []signal.Target{signal.Long, signal.Long, signal.Flat, signal.Flat}
	cfg := Config{StartingEquity: 10000, Sizer: sizing.FixedUnits(1), Cost: cost.Model{SlippageBps: 100}}
	res, err := Run(s, targets, nil, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Fills) != 2 {
		t.Fatalf("expected entry + exit fill, got %d", len(res.Fills))
	}
	if res.Fills[0].FillPrice <= res.Fills[0].RawPrice {
		t.Fatalf("buy fill should be worsened upward by slippage")
	}
	if res.Fills[1].FillPrice >= res.Fills[1].RawPrice {
		t.Fatalf("sell fill should be worsened downward by slippage")
	}
}

func TestShortRoundTrip(t *testing.T) {
	bars := []bar.Bar{
		{TS: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 86400, Open: 100, High: 101, Low: 89, Close: 90, Volume: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 172800, Open: 90, High: 91, Low: 89, Close: 90, Volume: 1, Symbol: "X", Timeframe: "1d"},
	}
	s, err := bar.New(bars)
	if err != nil {
		t.Fatal(err)
	}
	targets := []signal.Target{signal.Short, signal.Short, signal.Flat}
	cfg := Config{StartingEquity: 10000, Sizer: sizing.FixedUnits(1), FillModel: cost.SignalCloseFillSameClose}
	res, err := Run(s, targets, nil, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 closed short trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if tr.Direction != -1 {
		t.Fatalf("expected short direction, got %d", tr.Direction)
	}
	if tr.GrossPnL <= 0 {
		t.Fatalf("price fell while short, expected positive gross pnl, got %v", tr.GrossPnL)
	}
}

func TestRunRejectsMismatchedLengths(t *testing.T) {
	s := constSeries(5, 100)
	_, err := Run(s, flatTargets(3), nil, Config{StartingEquity: 1000, Sizer: sizing.FixedUnits(1)}, false)
	if err == nil {
		t.Fatalf("expected error on mismatched target/bar lengths")
	}
}

func TestComputeProfitFactorSentinelWithNoLosers(t *testing.T) {
	res := &Result{
		Equity: []EquityPoint{{Equity: 1000}, {Equity: 1100}},
		Trades: []Trade{{NetPnL: 50}, {NetPnL: 25}},
	}
	m := Compute(res)
	if !math.IsInf(m.ProfitFactor, 1) {
		t.Fatalf("expected +Inf profit factor with no losers, got %v", m.ProfitFactor)
	}
}

func TestComputeWinRateWithNoTrades(t *testing.T) {
	res := &Result{Equity: []EquityPoint{{Equity: 1000}, {Equity: 1000}}}
	m := Compute(res)
	if m.WinRate != 0 {
		t.Fatalf("expected 0 win rate with no trades, got %v", m.WinRate)
	}
	if m.ProfitFactor != 0 {
		t.Fatalf("expected 0 profit factor with no trades, got %v", m.ProfitFactor)
	}
}
