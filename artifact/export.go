package artifact

import (
	"fmt"
	"math"
	"time"

	"github.com/trendlab/trendlab/backtest"
	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/cost"
	"github.com/trendlab/trendlab/errs"
	"github.com/trendlab/trendlab/indicator"
	"github.com/trendlab/trendlab/signal"
)

// ExportInput is everything Export needs to reconstruct a single run's
// strategy as a self-describing document: the configuration that produced
// it plus the run's own signal column and equity series for the parity
// vector.
type ExportInput struct {
	StrategyName    string
	StrategyVersion string
	Params          map[string]float64
	Series          *bar.Series
	FillModel       cost.FillModel
	Cost            cost.Model
	Column          signal.Column
	Result          *backtest.Result
}

// familyView is the per-family bridge between a strategy's parameters and
// the DSL: its indicator definitions, its rule expressions, and a per-bar
// evaluator producing the indicator values and rule booleans the parity
// vector records.
type familyView struct {
	defs   []IndicatorDef
	rules  Rules
	perBar func(t int) (map[string]float64, map[string]bool)
}

// Export produces the StrategyArtifact for one run. Only strategy families
// whose every indicator and rule has a DSL representation can be exported;
// anything else fails with UnrepresentableIndicator naming the offender
// rather than silently falling back.
func Export(in ExportInput) (*StrategyArtifact, error) {
	n := in.Series.Len()
	if len(in.Column.Target) != n || in.Result == nil || len(in.Result.Equity) != n {
		return nil, errs.New(errs.InvalidInput, "export requires a signal column and equity series matching the bar series length")
	}

	fam, err := signal.ParseFamily(in.StrategyName)
	if err != nil {
		return nil, errs.Newf(errs.UnrepresentableIndicator, "strategy %q is outside the closed family set and has no DSL representation", in.StrategyName)
	}
	view, err := buildFamilyView(fam, in)
	if err != nil {
		return nil, err
	}
	for _, def := range view.defs {
		if err := RequireRepresentable(def.Name); err != nil {
			return nil, err
		}
	}

	from, to, err := parityWindow(in.Column.Target, in.Column.Warmup, n)
	if err != nil {
		return nil, err
	}

	rows := make([]ParityRow, 0, to-from)
	for t := from; t < to; t++ {
		inds, evals := view.perBar(t)
		rows = append(rows, ParityRow{
			TS:         isoTS(in.Series.TS[t]),
			Open:       in.Series.Open[t],
			High:       in.Series.High[t],
			Low:        in.Series.Low[t],
			Close:      in.Series.Close[t],
			Volume:     in.Series.Volume[t],
			Indicators: inds,
			Signals:    evals,
			Position:   int(in.Column.Target[t]),
			Cash:       in.Result.Equity[t].Cash,
			Equity:     in.Result.Equity[t].Equity,
		})
	}

	a := &StrategyArtifact{
		SchemaVersion:   SchemaVersion,
		StrategyID:      in.StrategyName,
		StrategyVersion: in.StrategyVersion,
		Timeframe:       in.Series.Timeframe,
		Timezone:        "UTC",
		FillModel:       in.FillModel.String(),
		Costs:           Costs{FeeBps: in.Cost.FeeBps, SlippageBps: in.Cost.SlippageBps},
		Indicators:      view.defs,
		Rules:           view.rules,
		Parameters:      in.Params,
		ParityVector: ParityVector{
			Window: [2]string{rows[0].TS, rows[len(rows)-1].TS},
			Rows:   rows,
		},
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// isoTS renders a Unix-seconds timestamp as ISO-8601 UTC.
func isoTS(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// parityWindow picks a contiguous window of at least minParityVectorLength
// bars containing the first entry (target leaves 0) and the exit that
// follows it (target returns to 0, or reverses through it). The window never
// starts before the column's warmup, so no indicator's undefined warmup
// prefix falls inside it.
func parityWindow(targets []signal.Target, warmup, n int) (from, to int, err error) {
	entry, exit := -1, -1
	prev := signal.Flat
	for t, tgt := range targets {
		if entry < 0 && prev == signal.Flat && tgt != signal.Flat {
			entry = t
		} else if entry >= 0 && tgt != prev {
			exit = t
			break
		}
		prev = tgt
	}
	if entry < 0 || exit < 0 {
		return 0, 0, errs.New(errs.InvalidConfig, "run produced no entry/exit pair to build a parity vector from")
	}

	from = entry - 3
	if from < warmup {
		from = warmup
	}
	to = exit + 2
	if to < from+minParityVectorLength {
		to = from + minParityVectorLength
	}
	if to > n {
		to = n
	}
	if to-from < minParityVectorLength {
		from = to - minParityVectorLength
		if from < warmup {
			return 0, 0, errs.Newf(errs.InvalidConfig, "series has only %d bars after a %d-bar warmup, parity vector needs %d", n-warmup, warmup, minParityVectorLength)
		}
	}
	return from, to, nil
}

func buildFamilyView(fam signal.Family, in ExportInput) (*familyView, error) {
	s := in.Series
	switch fam {
	case signal.FamilyDonchian:
		entryN := intParam(in.Params, "entry", 20)
		exitN := intParam(in.Params, "exit", 10)
		entryUpper, entryLower, _ := indicator.Donchian(s.High, s.Low, entryN)
		exitUpper, exitLower, _ := indicator.Donchian(s.High, s.Low, exitN)
		return &familyView{
			defs: []IndicatorDef{
				{Name: "donchian", Params: map[string]float64{"window": float64(entryN)}, Source: "high,low"},
				{Name: "donchian", Params: map[string]float64{"window": float64(exitN)}, Source: "high,low"},
			},
			rules: Rules{
				LongEntry:  "close > entry_upper[1]",
				LongExit:   "close < exit_lower[1]",
				ShortEntry: "close < entry_lower[1]",
				ShortExit:  "close > exit_upper[1]",
			},
			perBar: func(t int) (map[string]float64, map[string]bool) {
				inds := map[string]float64{
					"entry_upper": at(entryUpper, t),
					"entry_lower": at(entryLower, t),
					"exit_upper":  at(exitUpper, t),
					"exit_lower":  at(exitLower, t),
				}
				c := s.Close[t]
				evals := map[string]bool{
					"long_entry":  finiteGT(c, prior(entryUpper, t)),
					"long_exit":   finiteLT(c, prior(exitLower, t)),
					"short_entry": finiteLT(c, prior(entryLower, t)),
					"short_exit":  finiteGT(c, prior(exitUpper, t)),
				}
				return inds, evals
			},
		}, nil

	case signal.FamilyMACrossover:
		fastN := intParam(in.Params, "fast", 10)
		slowN := intParam(in.Params, "slow", 30)
		fast, _ := indicator.SMA(s.Close, fastN)
		slow, _ := indicator.SMA(s.Close, slowN)
		return &familyView{
			defs: []IndicatorDef{
				{Name: "sma", Params: map[string]float64{"window": float64(fastN)}, Source: "close"},
				{Name: "sma", Params: map[string]float64{"window": float64(slowN)}, Source: "close"},
			},
			rules: Rules{
				LongEntry:  "cross_above(sma_fast, sma_slow)",
				LongExit:   "cross_below(sma_fast, sma_slow)",
				ShortEntry: "cross_below(sma_fast, sma_slow)",
				ShortExit:  "cross_above(sma_fast, sma_slow)",
			},
			perBar: func(t int) (map[string]float64, map[string]bool) {
				inds := map[string]float64{
					"sma_fast": at(fast, t),
					"sma_slow": at(slow, t),
				}
				bull := crossAbove(fast, slow, t)
				bear := crossBelow(fast, slow, t)
				evals := map[string]bool{
					"long_entry":  bull,
					"long_exit":   bear,
					"short_entry": bear,
					"short_exit":  bull,
				}
				return inds, evals
			},
		}, nil

	case signal.FamilyTSMOM:
		n := intParam(in.Params, "n", 20)
		return &familyView{
			// TSMOM needs no derived indicator columns: its rules reference
			// the close column and its own n-bar-prior value directly.
			defs: nil,
			rules: Rules{
				LongEntry:  lagExpr(">", n),
				LongExit:   lagExpr("<=", n),
				ShortEntry: lagExpr("<", n),
				ShortExit:  lagExpr(">=", n),
			},
			perBar: func(t int) (map[string]float64, map[string]bool) {
				lag := math.NaN()
				if t >= n {
					lag = s.Close[t-n]
				}
				inds := map[string]float64{"close_lag": lag}
				c := s.Close[t]
				evals := map[string]bool{
					"long_entry":  finiteGT(c, lag),
					"long_exit":   !finiteGT(c, lag) && !math.IsNaN(lag),
					"short_entry": finiteLT(c, lag),
					"short_exit":  !finiteLT(c, lag) && !math.IsNaN(lag),
				}
				return inds, evals
			},
		}, nil

	case signal.FamilyParabolicSAR:
		start := floatParam(in.Params, "start", 0.02)
		step := floatParam(in.Params, "step", 0.02)
		maxAF := floatParam(in.Params, "max", 0.2)
		sar, trend, _ := indicator.ParabolicSAR(s.High, s.Low, s.Close, start, step, maxAF)
		flipUp := func(t int) bool { return trend[t] > 0 && (t == 0 || trend[t-1] <= 0) }
		flipDown := func(t int) bool { return trend[t] < 0 && (t == 0 || trend[t-1] >= 0) }
		return &familyView{
			defs: []IndicatorDef{
				{Name: "parabolic_sar", Params: map[string]float64{"start": start, "step": step, "max": maxAF}, Source: "high,low"},
			},
			rules: Rules{
				LongEntry:  "cross_above(close, sar)",
				LongExit:   "cross_below(close, sar)",
				ShortEntry: "cross_below(close, sar)",
				ShortExit:  "cross_above(close, sar)",
			},
			perBar: func(t int) (map[string]float64, map[string]bool) {
				inds := map[string]float64{
					"sar":       at(sar, t),
					"sar_trend": float64(trend[t]),
				}
				evals := map[string]bool{
					"long_entry":  flipUp(t),
					"long_exit":   flipDown(t),
					"short_entry": flipDown(t),
					"short_exit":  flipUp(t),
				}
				return inds, evals
			},
		}, nil

	case signal.FamilyEnsemble:
		method := signal.EnsembleMethod(intParam(in.Params, "method", int(signal.UnanimousEntry)))
		if method == signal.WeightedByHorizon {
			return nil, errs.New(errs.UnrepresentableIndicator, "weighted ensemble aggregation has no boolean rule form in the DSL")
		}
		horizons := []int{
			intParam(in.Params, "h1", 10),
			intParam(in.Params, "h2", 20),
			intParam(in.Params, "h3", 55),
		}
		defs := make([]IndicatorDef, len(horizons))
		uppers := make([][]float64, len(horizons))
		lowers := make([][]float64, len(horizons))
		upBreaks := make([]string, len(horizons))
		downBreaks := make([]string, len(horizons))
		for i, h := range horizons {
			uppers[i], lowers[i], _ = indicator.Donchian(s.High, s.Low, h)
			defs[i] = IndicatorDef{Name: "donchian", Params: map[string]float64{"window": float64(h)}, Source: "high,low"}
			upBreaks[i] = fmt.Sprintf("close > upper_%d[1]", h)
			downBreaks[i] = fmt.Sprintf("close < lower_%d[1]", h)
		}
		combine := allOf
		if method == signal.Majority {
			combine = majorityOf
		}
		countUp := func(t int) int {
			c := 0
			for i := range horizons {
				if finiteGT(s.Close[t], prior(uppers[i], t)) {
					c++
				}
			}
			return c
		}
		countDown := func(t int) int {
			c := 0
			for i := range horizons {
				if finiteLT(s.Close[t], prior(lowers[i], t)) {
					c++
				}
			}
			return c
		}
		need := len(horizons)
		if method == signal.Majority {
			need = len(horizons)/2 + 1
		}
		return &familyView{
			defs: defs,
			rules: Rules{
				LongEntry:  combine(upBreaks),
				LongExit:   anyOf(downBreaks),
				ShortEntry: combine(downBreaks),
				ShortExit:  anyOf(upBreaks),
			},
			perBar: func(t int) (map[string]float64, map[string]bool) {
				inds := map[string]float64{}
				for i, h := range horizons {
					inds[fmt.Sprintf("upper_%d", h)] = at(uppers[i], t)
					inds[fmt.Sprintf("lower_%d", h)] = at(lowers[i], t)
				}
				evals := map[string]bool{
					"long_entry":  countUp(t) >= need,
					"long_exit":   countDown(t) >= 1,
					"short_entry": countDown(t) >= need,
					"short_exit":  countUp(t) >= 1,
				}
				return inds, evals
			},
		}, nil

	case signal.FamilyOpeningRangeBreakout:
		variant := signal.OpeningRangeVariant(intParam(in.Params, "variant", int(signal.CloseAtPeriodEnd)))
		openBars := intParam(in.Params, "open_bars", 5)
		period := intParam(in.Params, "period", 0)
		var rangeHigh, rangeLow []float64
		switch period {
		case 2: // rolling-k has no period boundary; its exit is always the opposite break
			rangeHigh, rangeLow, _ = indicator.RollingOpeningRange(s.High, s.Low, openBars)
			variant = signal.OppositeBreak
		case 1:
			starts := indicator.PeriodStarts(s.TS, "monthly")
			rangeHigh, rangeLow, _ = indicator.OpeningRangeByPeriod(s.High, s.Low, starts, openBars)
		default:
			starts := indicator.PeriodStarts(s.TS, "weekly")
			rangeHigh, rangeLow, _ = indicator.OpeningRangeByPeriod(s.High, s.Low, starts, openBars)
		}
		if variant == signal.CloseAtPeriodEnd {
			return nil, errs.New(errs.UnrepresentableIndicator, "close-at-period-end exits have no operator in the DSL; export the opposite-break variant instead")
		}
		return &familyView{
			defs: []IndicatorDef{
				{Name: "opening_range", Params: map[string]float64{"open_bars": float64(openBars), "period": float64(period)}, Source: "high,low"},
			},
			rules: Rules{
				LongEntry:  "close > range_high",
				LongExit:   "close < range_low",
				ShortEntry: "close < range_low",
				ShortExit:  "close > range_high",
			},
			perBar: func(t int) (map[string]float64, map[string]bool) {
				inds := map[string]float64{
					"range_high": at(rangeHigh, t),
					"range_low":  at(rangeLow, t),
				}
				c := s.Close[t]
				evals := map[string]bool{
					"long_entry":  finiteGT(c, at(rangeHigh, t)),
					"long_exit":   finiteLT(c, at(rangeLow, t)),
					"short_entry": finiteLT(c, at(rangeLow, t)),
					"short_exit":  finiteGT(c, at(rangeHigh, t)),
				}
				return inds, evals
			},
		}, nil

	default:
		return nil, errs.Newf(errs.UnrepresentableIndicator, "strategy %q has no DSL representation for its indicators", in.StrategyName)
	}
}

func lagExpr(op string, n int) string {
	return fmt.Sprintf("close %s close[%d]", op, n)
}

// allOf joins break expressions into a unanimous-entry rule.
func allOf(exprs []string) string {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out += " and " + e
	}
	return out
}

// anyOf joins break expressions into an any-disagreement exit rule.
func anyOf(exprs []string) string {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out += " or " + e
	}
	return out
}

// majorityOf expands a strict-majority vote over three expressions into
// pairwise conjunctions, the only form the DSL's operator set admits.
func majorityOf(exprs []string) string {
	if len(exprs) != 3 {
		return allOf(exprs)
	}
	a, b, c := exprs[0], exprs[1], exprs[2]
	return fmt.Sprintf("(%s and %s) or (%s and %s) or (%s and %s)", a, b, a, c, b, c)
}

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

func at(col []float64, t int) float64 {
	if t < 0 || t >= len(col) {
		return math.NaN()
	}
	return col[t]
}

// prior reads a column one bar back, the DSL's "name[1]" reference.
func prior(col []float64, t int) float64 {
	return at(col, t-1)
}

func finiteGT(a, b float64) bool {
	return !math.IsNaN(a) && !math.IsNaN(b) && a > b
}

func finiteLT(a, b float64) bool {
	return !math.IsNaN(a) && !math.IsNaN(b) && a < b
}

// crossAbove is true only on the bar of transition: prior fast <= prior
// slow and current fast > current slow, equality resolving as no-cross on
// both sides.
func crossAbove(fast, slow []float64, t int) bool {
	pf, ps := prior(fast, t), prior(slow, t)
	cf, cs := at(fast, t), at(slow, t)
	if math.IsNaN(pf) || math.IsNaN(ps) || math.IsNaN(cf) || math.IsNaN(cs) {
		return false
	}
	return pf <= ps && cf > cs
}

func crossBelow(fast, slow []float64, t int) bool {
	pf, ps := prior(fast, t), prior(slow, t)
	cf, cs := at(fast, t), at(slow, t)
	if math.IsNaN(pf) || math.IsNaN(ps) || math.IsNaN(cf) || math.IsNaN(cs) {
		return false
	}
	return pf >= ps && cf < cs
}
