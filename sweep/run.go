package sweep

import (
	"context"

	"github.com/trendlab/trendlab/backtest"
	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/cost"
	"github.com/trendlab/trendlab/errs"
	"github.com/trendlab/trendlab/indicator"
	"github.com/trendlab/trendlab/manifest"
	"github.com/trendlab/trendlab/signal"
	"github.com/trendlab/trendlab/sizing"
)

// RunSpec is everything a RunRequest needs beyond its (symbol, strategy,
// params, config_id) identity to actually execute: the bar series and the
// execution/cost/sizing configuration a caller's spec-resolving closure
// supplies to BuildRunFunc.
type RunSpec struct {
	Series         *bar.Series
	Mode           signal.Mode
	Cost           cost.Model
	FillModel      cost.FillModel
	Sizer          sizing.Policy
	Pyramid        *sizing.Pyramided
	StartingEquity float64
}

// Validate rejects a structurally nonsensical RunSpec eagerly, composing the
// sub-type Validates.
func (r RunSpec) Validate() error {
	if r.Series == nil || r.Series.Len() == 0 {
		return errs.New(errs.InvalidConfig, "RunSpec.Series must be a non-empty bar series")
	}
	if err := r.Cost.Validate(); err != nil {
		return errs.Wrap(errs.InvalidConfig, err, "invalid cost model")
	}
	if err := r.FillModel.Validate(); err != nil {
		return errs.Wrap(errs.InvalidConfig, err, "invalid fill model")
	}
	if r.Sizer == nil {
		return errs.New(errs.InvalidConfig, "RunSpec.Sizer must not be nil")
	}
	if err := r.Sizer.Validate(); err != nil {
		return errs.Wrap(errs.InvalidConfig, err, "invalid sizer")
	}
	if r.Pyramid != nil {
		if err := r.Pyramid.Validate(); err != nil {
			return errs.Wrap(errs.InvalidConfig, err, "invalid pyramid policy")
		}
	}
	if r.StartingEquity <= 0 {
		return errs.New(errs.InvalidConfig, "RunSpec.StartingEquity must be positive")
	}
	return nil
}

// RunOutput is the composed result of one sweep unit of work: the rankable
// ConfigResult alongside the full backtest.Result/Metrics and the bar
// series' content fingerprint, for callers that want to persist a
// manifest.RunManifest alongside the ranking.
type RunOutput struct {
	ConfigResult      ConfigResult
	Result            *backtest.Result
	Metrics           backtest.Metrics
	BarFingerprint    uint64
	EquityFingerprint uint64
	Manifest          manifest.RunManifest
}

// BuildRunFunc wires the indicator suite, the matching signal family
// function, and the backtest kernel into one concrete RunFunc, dispatching
// on RunRequest.StrategyName. specs resolves a RunRequest to the bar series
// and execution configuration it should run against; it is called once per
// request and may, for example, look the series up from a shared cache
// keyed by symbol. The bar series' fingerprint is computed through
// o.CoalesceFingerprint so that sibling requests against the same
// (symbol, timeframe) series never redo the hash concurrently.
func BuildRunFunc(o *Orchestrator, specs func(RunRequest) (RunSpec, error)) RunFunc {
	return func(ctx context.Context, req RunRequest) (any, error) {
		rs, err := specs(req)
		if err != nil {
			return nil, err
		}
		if err := rs.Validate(); err != nil {
			return nil, err
		}

		fp, err := o.CoalesceFingerprint(rs.Series.Symbol+"|"+rs.Series.Timeframe, func() (uint64, error) {
			return manifest.Fingerprint(rs.Series), nil
		})
		if err != nil {
			return nil, errs.Wrap(errs.Internal, err, "bar series fingerprint computation failed")
		}

		col, atr, err := buildSignal(req, rs)
		if err != nil {
			return nil, err
		}

		cfg := backtest.Config{
			StartingEquity: rs.StartingEquity,
			Cost:           rs.Cost,
			FillModel:      rs.FillModel,
			Sizer:          rs.Sizer,
			Pyramid:        rs.Pyramid,
		}
		res, err := backtest.Run(rs.Series, col.Target, atr, cfg, col.NonFinite)
		if err != nil {
			return nil, err
		}
		metrics := backtest.Compute(res)

		cr := ConfigResult{
			ConfigID: req.ConfigID,
			Symbol:   req.Symbol,
			Primary:  metrics.Sharpe,
			Metrics: map[string]float64{
				"sharpe":       metrics.Sharpe,
				"cagr":         metrics.CAGR,
				"max_drawdown": metrics.MaxDrawdown,
			},
		}

		equityValues := make([]float64, len(res.Equity))
		for i, e := range res.Equity {
			equityValues[i] = e.Equity
		}
		m := manifest.RunManifest{
			StrategyID:      req.StrategyName,
			StrategyVersion: StrategyVersion,
			Parameters:      req.Params,
			FillModel:       rs.FillModel,
			Cost:            rs.Cost,
			Symbol:          rs.Series.Symbol,
			Timeframe:       rs.Series.Timeframe,
			StartTS:         rs.Series.TS[0],
			EndTS:           rs.Series.TS[rs.Series.Len()-1],
			BarFingerprint:  fp,
			CodeVersion:     StrategyVersion,
		}

		return &RunOutput{
			ConfigResult:      cr,
			Result:            res,
			Metrics:           metrics,
			BarFingerprint:    fp,
			EquityFingerprint: manifest.EquityFingerprint(equityValues),
			Manifest:          m,
		}, nil
	}
}

// StrategyVersion tags every manifest this build produces. Bumped whenever a
// kernel change alters any strategy's output for identical inputs.
const StrategyVersion = "1.0.0"

// buildSignal resolves req.StrategyName to its signal.Family variant and
// dispatches to the indicator suite and family function it names, returning
// the built Column and the ATR series the sizer should consult (nil if the
// strategy has none).
func buildSignal(req RunRequest, rs RunSpec) (signal.Column, []float64, error) {
	fam, err := signal.ParseFamily(req.StrategyName)
	if err != nil {
		return signal.Column{}, nil, err
	}
	s := rs.Series
	switch fam {
	case signal.FamilyDonchian:
		entryN := intParam(req.Params, "entry", 20)
		exitN := intParam(req.Params, "exit", 10)
		atrN := intParam(req.Params, "atr", 14)
		suite := indicator.NewSuite(s.Open, s.High, s.Low, s.Close, indicator.SuiteParams{
			DonchianEntryN: entryN,
			DonchianExitN:  exitN,
			ATRN:           atrN,
		})
		warmup := suite.DonchianEntryWarmup
		if suite.DonchianExitWarmup > warmup {
			warmup = suite.DonchianExitWarmup
		}
		raw, nonFinite := signal.DonchianTurtle(s.Close, suite.DonchianUpperEntry, suite.DonchianLowerEntry,
			suite.DonchianUpperExit, suite.DonchianLowerExit, warmup)
		col := signal.Build(raw, warmup, rs.Mode)
		col.NonFinite = nonFinite
		return col, suite.ATR, nil

	case signal.FamilyMACrossover:
		fastN := intParam(req.Params, "fast", 10)
		slowN := intParam(req.Params, "slow", 30)
		atrN := intParam(req.Params, "atr", 14)
		suite := indicator.NewSuite(s.Open, s.High, s.Low, s.Close, indicator.SuiteParams{
			SMAFastN: fastN,
			SMASlowN: slowN,
			ATRN:     atrN,
		})
		warmup := suite.SMASlowWarmup
		if suite.SMAFastWarmup > warmup {
			warmup = suite.SMAFastWarmup
		}
		raw, nonFinite := signal.MACrossover(suite.SMAFast, suite.SMASlow, warmup)
		col := signal.Build(raw, warmup, rs.Mode)
		col.NonFinite = nonFinite
		return col, suite.ATR, nil

	case signal.FamilyTSMOM:
		n := intParam(req.Params, "n", 20)
		atrN := intParam(req.Params, "atr", 14)
		suite := indicator.NewSuite(s.Open, s.High, s.Low, s.Close, indicator.SuiteParams{ATRN: atrN})
		raw, nonFinite := signal.TSMOM(s.Close, n)
		col := signal.Build(raw, n, rs.Mode)
		col.NonFinite = nonFinite
		return col, suite.ATR, nil

	case signal.FamilyParabolicSAR:
		start := floatParam(req.Params, "start", 0.02)
		step := floatParam(req.Params, "step", 0.02)
		maxAF := floatParam(req.Params, "max", 0.2)
		atrN := intParam(req.Params, "atr", 14)
		suite := indicator.NewSuite(s.Open, s.High, s.Low, s.Close, indicator.SuiteParams{
			ATRN:     atrN,
			WithSAR:  true,
			SARStart: start,
			SARStep:  step,
			SARMax:   maxAF,
		})
		raw, nonFinite := signal.ParabolicSARStrategy(suite.SAR, suite.SARTrend)
		col := signal.Build(raw, suite.SARWarmup, rs.Mode)
		col.NonFinite = nonFinite
		return col, suite.ATR, nil

	case signal.FamilyEnsemble:
		horizons := []int{
			intParam(req.Params, "h1", 10),
			intParam(req.Params, "h2", 20),
			intParam(req.Params, "h3", 55),
		}
		method := signal.EnsembleMethod(intParam(req.Params, "method", int(signal.UnanimousEntry)))
		atrN := intParam(req.Params, "atr", 14)

		suite := indicator.NewSuite(s.Open, s.High, s.Low, s.Close, indicator.SuiteParams{ATRN: atrN})
		warmup := 0
		components := make([][]signal.Target, len(horizons))
		componentNF := make([]bool, len(horizons))
		weights := make([]float64, len(horizons))
		for i, h := range horizons {
			upper, lower, w := indicator.Donchian(s.High, s.Low, h)
			if w > warmup {
				warmup = w
			}
			components[i], componentNF[i] = signal.DonchianTurtle(s.Close, upper, lower, upper, lower, w)
			weights[i] = float64(h)
		}
		raw, nonFinite := signal.EnsembleAggregate(components, method, weights, componentNF)
		col := signal.Build(raw, warmup, rs.Mode)
		col.NonFinite = nonFinite
		return col, suite.ATR, nil

	case signal.FamilyOpeningRangeBreakout:
		openBars := intParam(req.Params, "open_bars", 5)
		atrN := intParam(req.Params, "atr", 14)
		granularity := granularityParam(req.Params)
		variant := signal.OpeningRangeVariant(intParam(req.Params, "variant", int(signal.CloseAtPeriodEnd)))

		suite := indicator.NewSuite(s.Open, s.High, s.Low, s.Close, indicator.SuiteParams{ATRN: atrN})
		var rangeHigh, rangeLow []float64
		var periodEnd []bool
		if granularity == "rolling" {
			rangeHigh, rangeLow, _ = indicator.RollingOpeningRange(s.High, s.Low, openBars)
			periodEnd = make([]bool, s.Len())
			// a rolling range has no period boundary to flatten on.
			variant = signal.OppositeBreak
		} else {
			starts := indicator.PeriodStarts(s.TS, granularity)
			rangeHigh, rangeLow, periodEnd = indicator.OpeningRangeByPeriod(s.High, s.Low, starts, openBars)
		}
		raw, nonFinite := signal.OpeningRangeBreakout(s.Close, rangeHigh, rangeLow, periodEnd, variant)
		col := signal.Build(raw, openBars, rs.Mode)
		col.NonFinite = nonFinite
		return col, suite.ATR, nil

	default:
		return signal.Column{}, nil, errs.Newf(errs.Internal, "family %v has no signal builder", fam)
	}
}

// intParam reads a named float64 param as an int, falling back to def when
// the key is absent (allowing a grid to omit rarely-varied parameters).
func intParam(params map[string]float64, key string, def int) int {
	if v, ok := params[key]; ok {
		return int(v)
	}
	return def
}

func floatParam(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// granularityParam maps the numeric "period" grid axis to the calendar
// granularity the opening-range indicator understands: 0 weekly, 1 monthly,
// 2 rolling-k.
func granularityParam(params map[string]float64) string {
	switch intParam(params, "period", 0) {
	case 1:
		return "monthly"
	case 2:
		return "rolling"
	default:
		return "weekly"
	}
}
