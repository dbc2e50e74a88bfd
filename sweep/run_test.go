package sweep

import (
	"context"
	"testing"

	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/manifest"
	"github.com/trendlab/trendlab/signal"
	"github.com/trendlab/trendlab/sizing"
)

func trendingSeries(n int, symbol string) *bar.Series {
	bars := make([]bar.Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		// a gentle, noise-free uptrend: the breakout, momentum, and SAR
		// families go long on it; an MA crossover never fires, since the
		// fast average is above the slow one from the first bar both exist.
		price += 1.0
		bars[i] = bar.Bar{
			TS: int64(i) * 86400, Open: price - 0.5, High: price + 0.5, Low: price - 1,
			Close: price, Volume: 10, Symbol: symbol, Timeframe: "1d",
		}
	}
	s, err := bar.New(bars)
	if err != nil {
		panic(err)
	}
	return s
}

func TestBuildRunFuncComposesFullPipeline(t *testing.T) {
	// 20 falling bars, then 40 rising ones: the 3-bar average crosses above
	// the 8-bar average once the rise takes hold.
	bars := make([]bar.Bar, 60)
	price := 130.0
	for i := range bars {
		if i < 20 {
			price -= 1.0
		} else {
			price += 1.0
		}
		bars[i] = bar.Bar{
			TS: int64(i) * 86400, Open: price, High: price + 0.5, Low: price - 0.5,
			Close: price, Volume: 10, Symbol: "TEST", Timeframe: "1d",
		}
	}
	s, err := bar.New(bars)
	if err != nil {
		t.Fatal(err)
	}
	spec := RunSpec{
		Series:         s,
		Mode:           signal.LongOnly,
		Sizer:          sizing.FixedUnits(1),
		StartingEquity: 10000,
	}
	o := NewOrchestrator(2, 16)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })

	req := RunRequest{
		Symbol:       "TEST",
		StrategyName: "ma_crossover",
		Params:       map[string]float64{"fast": 3, "slow": 8},
		ConfigID:     ConfigID("ma_crossover", map[string]float64{"fast": 3, "slow": 8}),
	}

	outcomes, err := o.Run(context.Background(), []RunRequest{req}, runFn)
	if err != nil {
		t.Fatalf("unexpected sweep-level error: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil {
		t.Fatalf("unexpected run error: %v", outcomes[0].Err)
	}
	out, ok := outcomes[0].Result.(*RunOutput)
	if !ok {
		t.Fatalf("expected *RunOutput, got %T", outcomes[0].Result)
	}
	if len(out.Result.Trades) == 0 && len(out.Result.Fills) == 0 {
		t.Fatalf("a fall-then-rise series with a fast/slow MA crossover should have produced at least one fill")
	}
	if out.ConfigResult.ConfigID != req.ConfigID || out.ConfigResult.Symbol != "TEST" {
		t.Fatalf("ConfigResult should carry the request's identity, got %+v", out.ConfigResult)
	}
	want := manifest.Fingerprint(s)
	if out.BarFingerprint != want {
		t.Fatalf("BarFingerprint mismatch: got %x, want %x", out.BarFingerprint, want)
	}
}

func TestBuildRunFuncDonchianTurtleAndTSMOM(t *testing.T) {
	s := trendingSeries(60, "TEST")
	spec := RunSpec{
		Series:         s,
		Mode:           signal.LongShort,
		Sizer:          sizing.FixedUnits(1),
		StartingEquity: 10000,
	}
	o := NewOrchestrator(2, 16)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })

	reqs := []RunRequest{
		{Symbol: "TEST", StrategyName: "donchian_turtle", Params: map[string]float64{"entry": 10, "exit": 5}, ConfigID: "c1"},
		{Symbol: "TEST", StrategyName: "tsmom", Params: map[string]float64{"n": 10}, ConfigID: "c2"},
	}
	outcomes, err := o.Run(context.Background(), reqs, runFn)
	if err != nil {
		t.Fatalf("unexpected sweep-level error: %v", err)
	}
	for i, oc := range outcomes {
		if oc.Err != nil {
			t.Fatalf("outcome %d failed: %v", i, oc.Err)
		}
		if _, ok := oc.Result.(*RunOutput); !ok {
			t.Fatalf("outcome %d: expected *RunOutput, got %T", i, oc.Result)
		}
	}
}

func TestBuildRunFuncRejectsUnknownStrategy(t *testing.T) {
	s := trendingSeries(30, "TEST")
	spec := RunSpec{Series: s, Sizer: sizing.FixedUnits(1), StartingEquity: 10000}
	o := NewOrchestrator(1, 4)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })

	_, err := runFn(context.Background(), RunRequest{Symbol: "TEST", StrategyName: "nonexistent", ConfigID: "c1"})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized strategy name")
	}
}

func TestBuildRunFuncRejectsInvalidSpec(t *testing.T) {
	o := NewOrchestrator(1, 4)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) {
		return RunSpec{}, nil // no Series, no Sizer: must fail Validate
	})
	_, err := runFn(context.Background(), RunRequest{Symbol: "TEST", StrategyName: "tsmom", ConfigID: "c1"})
	if err == nil {
		t.Fatalf("expected a validation error for an empty RunSpec")
	}
}

// TestCoalesceFingerprintDeduplicatesConcurrentRequests exercises
// Orchestrator.CoalesceFingerprint via several sweep requests that share one
// bar series, run concurrently through the full composed pipeline.
func TestCoalesceFingerprintDeduplicatesConcurrentRequests(t *testing.T) {
	s := trendingSeries(60, "SHARED")
	spec := RunSpec{
		Series:         s,
		Mode:           signal.LongOnly,
		Sizer:          sizing.FixedUnits(1),
		StartingEquity: 10000,
	}
	o := NewOrchestrator(4, 32)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })

	reqs := make([]RunRequest, 0, 8)
	for i := 0; i < 8; i++ {
		reqs = append(reqs, RunRequest{
			Symbol:       "SHARED",
			StrategyName: "tsmom",
			Params:       map[string]float64{"n": float64(5 + i)},
			ConfigID:     ConfigID("tsmom", map[string]float64{"n": float64(5 + i)}),
		})
	}

	outcomes, err := o.Run(context.Background(), reqs, runFn)
	if err != nil {
		t.Fatalf("unexpected sweep-level error: %v", err)
	}
	want := manifest.Fingerprint(s)
	for i, oc := range outcomes {
		if oc.Err != nil {
			t.Fatalf("outcome %d failed: %v", i, oc.Err)
		}
		out := oc.Result.(*RunOutput)
		if out.BarFingerprint != want {
			t.Fatalf("outcome %d: fingerprint mismatch, got %x want %x", i, out.BarFingerprint, want)
		}
	}
}
