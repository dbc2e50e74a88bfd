package sweep

import (
	"math"

	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/errs"
)

// Fold is one sequential in-sample/out-of-sample split: the configuration
// is (re-)fit conceptually on [TrainFrom, TrainTo) and evaluated on
// [TestFrom, TestTo). Folds use an expanding training window, so fold i+1's
// training region strictly contains fold i's.
type Fold struct {
	TrainFrom, TrainTo int
	TestFrom, TestTo   int
}

// SplitFolds partitions n bars into k sequential folds: the series is cut
// into k+1 equal blocks, fold i trains on blocks [0..i] and tests on block
// i+1 (the last fold's test region absorbs the remainder). Each block must
// hold at least two bars or the split is rejected.
func SplitFolds(n, k int) ([]Fold, error) {
	if k < 1 {
		return nil, errs.New(errs.InvalidConfig, "walk-forward fold count must be positive")
	}
	block := n / (k + 1)
	if block < 2 {
		return nil, errs.Newf(errs.InvalidConfig, "%d bars cannot support %d walk-forward folds", n, k)
	}
	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		trainTo := (i + 1) * block
		testTo := trainTo + block
		if i == k-1 {
			testTo = n
		}
		folds[i] = Fold{TrainFrom: 0, TrainTo: trainTo, TestFrom: trainTo, TestTo: testTo}
	}
	return folds, nil
}

// RunWalkForward evaluates one configuration across k sequential folds,
// calling eval on each fold's out-of-sample slice and collecting the OOS
// Sharpe it reports. A fold whose evaluation fails aborts the whole
// walk-forward pass for this config (the config's WFV fields are then
// simply absent from its reporting; sibling configs are unaffected).
func RunWalkForward(series *bar.Series, k int, eval func(oos *bar.Series) (float64, error)) ([]WalkForwardFold, error) {
	folds, err := SplitFolds(series.Len(), k)
	if err != nil {
		return nil, err
	}
	out := make([]WalkForwardFold, len(folds))
	for i, f := range folds {
		sharpe, err := eval(series.Slice(f.TestFrom, f.TestTo))
		if err != nil {
			return nil, err
		}
		out[i] = WalkForwardFold{OOSSharpe: sharpe}
	}
	return out, nil
}

// WalkForwardFold is one out-of-sample fold's evaluation of a configuration.
type WalkForwardFold struct {
	OOSSharpe float64
}

// WalkForwardResult is the reported walk-forward validation summary for one
// configuration.
type WalkForwardResult struct {
	ConfigID         string
	MeanOOSSharpe    float64
	StdevOOSSharpe   float64
	PctProfitable    float64
	PValue           float64 // one-sided, H0: mean OOS Sharpe <= 0
	FDRAdjustedPValue float64
}

// EvaluateWalkForward summarizes a set of folds for one configuration,
// computing a one-sided p-value for mean OOS Sharpe > 0 via a normal
// approximation on the fold mean (folds are assumed i.i.d. for this test).
func EvaluateWalkForward(configID string, folds []WalkForwardFold) WalkForwardResult {
	n := len(folds)
	if n == 0 {
		return WalkForwardResult{ConfigID: configID}
	}
	var sum float64
	var profitable int
	for _, f := range folds {
		sum += f.OOSSharpe
		if f.OOSSharpe > 0 {
			profitable++
		}
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, f := range folds {
		d := f.OOSSharpe - mean
		sumSq += d * d
	}
	var sd float64
	if n > 1 {
		sd = math.Sqrt(sumSq / float64(n-1))
	}

	p := 1.0
	if sd > 0 {
		z := mean / (sd / math.Sqrt(float64(n)))
		p = 1 - standardNormalCDF(z)
	} else if mean > 0 {
		p = 0
	}

	return WalkForwardResult{
		ConfigID:      configID,
		MeanOOSSharpe: mean,
		StdevOOSSharpe: sd,
		PctProfitable: float64(profitable) / float64(n),
		PValue:        p,
	}
}

// standardNormalCDF approximates the standard normal CDF via the error
// function identity Phi(z) = 0.5*(1+erf(z/sqrt(2))).
func standardNormalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// BenjaminiHochberg applies the Benjamini-Hochberg false-discovery-rate
// adjustment to a batch of p-values (order of results matches the order of
// pValues; results are not re-sorted). Standard library only: no statistics
// package exists in the pack to adopt for this step.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	adjusted := make([]float64, m)
	if m == 0 {
		return adjusted
	}

	type ranked struct {
		idx int
		p   float64
	}
	rs := make([]ranked, m)
	for i, p := range pValues {
		rs[i] = ranked{idx: i, p: p}
	}
	// sort ascending by p-value
	for i := 1; i < m; i++ {
		for j := i; j > 0 && rs[j].p < rs[j-1].p; j-- {
			rs[j-1], rs[j] = rs[j], rs[j-1]
		}
	}

	minSoFar := 1.0
	for rank := m; rank >= 1; rank-- {
		r := rs[rank-1]
		val := r.p * float64(m) / float64(rank)
		if val < minSoFar {
			minSoFar = val
		}
		if minSoFar > 1 {
			minSoFar = 1
		}
		adjusted[r.idx] = minSoFar
	}
	return adjusted
}
