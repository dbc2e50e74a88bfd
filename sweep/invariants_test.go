package sweep

import (
	"context"
	"testing"

	"github.com/trendlab/trendlab/signal"
	"github.com/trendlab/trendlab/sizing"
)

// TestSweepDeterministicAcrossWorkerCounts runs the same request set at
// several concurrency levels and requires bit-identical equity fingerprints
// and rank order every time.
func TestSweepDeterministicAcrossWorkerCounts(t *testing.T) {
	s := trendingSeries(80, "DET")
	spec := RunSpec{
		Series:         s,
		Mode:           signal.LongOnly,
		Sizer:          sizing.FixedUnits(1),
		StartingEquity: 10000,
	}

	var reqs []RunRequest
	for fast := 3; fast <= 6; fast++ {
		for slow := 10; slow <= 16; slow += 3 {
			params := map[string]float64{"fast": float64(fast), "slow": float64(slow)}
			reqs = append(reqs, RunRequest{
				Symbol:       "DET",
				StrategyName: "ma_crossover",
				Params:       params,
				ConfigID:     ConfigID("ma_crossover", params),
			})
		}
	}

	sweepOnce := func(workers int) ([]ConfigResult, map[string]uint64) {
		o := NewOrchestrator(workers, 64)
		runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })
		outcomes, err := o.Run(context.Background(), reqs, runFn)
		if err != nil {
			t.Fatalf("workers=%d: unexpected sweep-level error: %v", workers, err)
		}
		var results []ConfigResult
		fingerprints := map[string]uint64{}
		for i, oc := range outcomes {
			if oc.Err != nil {
				t.Fatalf("workers=%d: outcome %d failed: %v", workers, i, oc.Err)
			}
			out := oc.Result.(*RunOutput)
			results = append(results, out.ConfigResult)
			fingerprints[out.ConfigResult.ConfigID] = out.EquityFingerprint
		}
		return RankBySymbol(results), fingerprints
	}

	baseRank, baseFPs := sweepOnce(1)
	for _, workers := range []int{2, 4, 8} {
		rank, fps := sweepOnce(workers)
		if len(rank) != len(baseRank) {
			t.Fatalf("workers=%d: rank length %d != %d", workers, len(rank), len(baseRank))
		}
		for i := range rank {
			if rank[i].ConfigID != baseRank[i].ConfigID || rank[i].Primary != baseRank[i].Primary {
				t.Fatalf("workers=%d: rank position %d differs: %+v vs %+v", workers, i, rank[i], baseRank[i])
			}
		}
		for id, fp := range fps {
			if fp != baseFPs[id] {
				t.Fatalf("workers=%d: equity fingerprint for %s differs across runs", workers, id)
			}
		}
	}
}

// TestNoLookaheadPrefixInvariance reruns a strategy on a truncated prefix of
// the bars and requires every equity value in the common prefix to match the
// full run exactly: nothing at index <= T may depend on bars beyond T.
func TestNoLookaheadPrefixInvariance(t *testing.T) {
	full := trendingSeries(80, "PFX")
	cut := 50
	truncated := full.Slice(0, cut)

	params := map[string]float64{"entry": 10, "exit": 5}
	run := func(series *RunSpec) *RunOutput {
		o := NewOrchestrator(1, 4)
		runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return *series, nil })
		res, err := runFn(context.Background(), RunRequest{
			Symbol: "PFX", StrategyName: "donchian_turtle", Params: params, ConfigID: "pfx",
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return res.(*RunOutput)
	}

	fullSpec := RunSpec{Series: full, Mode: signal.LongOnly, Sizer: sizing.FixedUnits(1), StartingEquity: 10000}
	cutSpec := fullSpec
	cutSpec.Series = truncated

	fullOut := run(&fullSpec)
	cutOut := run(&cutSpec)

	// The truncated run's final bar cannot execute a deferred fill the full
	// run executes at bar `cut`, but every bar strictly before the cut must
	// be bit-identical.
	for tIdx := 0; tIdx < cut; tIdx++ {
		a := fullOut.Result.Equity[tIdx]
		b := cutOut.Result.Equity[tIdx]
		if a.Equity != b.Equity || a.Cash != b.Cash || a.PositionQty != b.PositionQty {
			t.Fatalf("bar %d changed when future bars were removed: full=%+v truncated=%+v", tIdx, a, b)
		}
	}
}

// TestBuildRunFuncRemainingFamilies smoke-tests the parabolic SAR, ensemble,
// and opening-range families through the composed pipeline.
func TestBuildRunFuncRemainingFamilies(t *testing.T) {
	s := trendingSeries(120, "FAM")
	spec := RunSpec{
		Series:         s,
		Mode:           signal.LongShort,
		Sizer:          sizing.FixedUnits(1),
		StartingEquity: 10000,
	}
	o := NewOrchestrator(2, 32)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })

	reqs := []RunRequest{
		{Symbol: "FAM", StrategyName: "parabolic_sar", Params: map[string]float64{"start": 0.02, "step": 0.02, "max": 0.2}, ConfigID: "f1"},
		{Symbol: "FAM", StrategyName: "ensemble_donchian", Params: map[string]float64{"h1": 5, "h2": 10, "h3": 20, "method": 2}, ConfigID: "f2"},
		{Symbol: "FAM", StrategyName: "opening_range_breakout", Params: map[string]float64{"open_bars": 3, "period": 0, "variant": 0}, ConfigID: "f3"},
		{Symbol: "FAM", StrategyName: "opening_range_breakout", Params: map[string]float64{"open_bars": 5, "period": 2}, ConfigID: "f4"},
	}
	outcomes, err := o.Run(context.Background(), reqs, runFn)
	if err != nil {
		t.Fatalf("unexpected sweep-level error: %v", err)
	}
	for i, oc := range outcomes {
		if oc.Err != nil {
			t.Fatalf("outcome %d (%s) failed: %v", i, oc.Request.StrategyName, oc.Err)
		}
		out, ok := oc.Result.(*RunOutput)
		if !ok {
			t.Fatalf("outcome %d: expected *RunOutput, got %T", i, oc.Result)
		}
		if len(out.Result.Equity) != s.Len() {
			t.Fatalf("outcome %d: equity series has %d points, want %d", i, len(out.Result.Equity), s.Len())
		}
	}

	// a persistent uptrend must put the SAR strategy into a position at some
	// point.
	sarOut := outcomes[0].Result.(*RunOutput)
	if len(sarOut.Result.Fills) == 0 {
		t.Fatalf("parabolic SAR produced no fills on a 120-bar uptrend")
	}
}

// TestRunOutputCarriesManifest pins the manifest fields BuildRunFunc stamps
// on every output: a run must be reproducible from manifest + bars alone.
func TestRunOutputCarriesManifest(t *testing.T) {
	s := trendingSeries(60, "MAN")
	spec := RunSpec{
		Series:         s,
		Mode:           signal.LongOnly,
		Sizer:          sizing.FixedUnits(1),
		StartingEquity: 10000,
	}
	o := NewOrchestrator(1, 4)
	runFn := BuildRunFunc(o, func(req RunRequest) (RunSpec, error) { return spec, nil })

	params := map[string]float64{"fast": 3, "slow": 8}
	res, err := runFn(context.Background(), RunRequest{
		Symbol: "MAN", StrategyName: "ma_crossover", Params: params,
		ConfigID: ConfigID("ma_crossover", params),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	out := res.(*RunOutput)

	m := out.Manifest
	if err := m.Validate(); err != nil {
		t.Fatalf("manifest should validate: %v", err)
	}
	if m.StrategyID != "ma_crossover" || m.Symbol != "MAN" || m.Timeframe != "1d" {
		t.Fatalf("manifest identity fields wrong: %+v", m)
	}
	if m.StartTS != s.TS[0] || m.EndTS != s.TS[s.Len()-1] {
		t.Fatalf("manifest date range wrong: %+v", m)
	}
	if m.BarFingerprint != out.BarFingerprint {
		t.Fatalf("manifest fingerprint should match the output's")
	}
	if out.EquityFingerprint == 0 {
		t.Fatalf("equity fingerprint should be set")
	}
}
