package leaderboard

import (
	"context"
	"math/rand"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/trendlab/trendlab/errs"
	"github.com/trendlab/trendlab/logging"
	"github.com/trendlab/trendlab/sweep"
)

// IterationEvent reports one completed YOLO iteration and the leaderboards
// as of its last admission.
type IterationEvent struct {
	Iteration int
	Explored  int // configs evaluated this iteration
	Admitted  int // entries admitted across both boards
	Snapshot  Snapshot
}

// YOLO drives the randomized neighborhood search: each
// iteration perturbs the current best configs by one grid step in a
// RandomizationPct fraction of their parameters, evaluates the perturbed
// configs across every symbol, and feeds the results back into the Store.
// Iterations continue until the context is cancelled.
type YOLO struct {
	Store        *Store
	Orchestrator *sweep.Orchestrator
	Run          sweep.RunFunc

	StrategyName string
	Symbols      []string
	// Space supplies the grid axes a perturbation steps along. Values per
	// parameter must be in ascending order.
	Space sweep.ParamSpace
	// Seeds are the configs iteration 1 starts from when the session
	// cross-symbol board is still empty.
	Seeds []map[string]float64
	// RandomizationPct is the fraction of each config's parameters perturbed
	// per iteration, clamped to [0.05, 0.50].
	RandomizationPct float64

	Log logging.Logger
	// Iterations receives one event per completed iteration, non-blocking.
	Iterations chan IterationEvent
}

const (
	minRandomizationPct = 0.05
	maxRandomizationPct = 0.50
)

func (y *YOLO) validate() error {
	if y.Store == nil || y.Orchestrator == nil || y.Run == nil {
		return errs.New(errs.InvalidConfig, "YOLO requires a Store, an Orchestrator, and a RunFunc")
	}
	if y.StrategyName == "" {
		return errs.New(errs.InvalidConfig, "YOLO.StrategyName must not be empty")
	}
	if len(y.Symbols) == 0 {
		return errs.New(errs.InvalidConfig, "YOLO.Symbols must not be empty")
	}
	if len(y.Space) == 0 {
		return errs.New(errs.InvalidConfig, "YOLO.Space must declare at least one parameter axis")
	}
	if len(y.Seeds) == 0 {
		return errs.New(errs.InvalidConfig, "YOLO.Seeds must supply at least one starting config")
	}
	return nil
}

func (y *YOLO) pct() float64 {
	p := y.RandomizationPct
	if p < minRandomizationPct {
		p = minRandomizationPct
	}
	if p > maxRandomizationPct {
		p = maxRandomizationPct
	}
	return p
}

// Perturb moves a pct fraction of params (at least one) by one grid step up
// or down along its axis in space, clamping at the ends. The random source
// is seeded from the config id and the iteration number, so the same config
// explored at the same iteration always yields the same neighbor regardless
// of worker scheduling.
func Perturb(params map[string]float64, space sweep.ParamSpace, pct float64, configID string, iteration int) map[string]float64 {
	seed := int64(xxhash.Sum64String(configID + "|" + strconv.Itoa(iteration)))
	rng := rand.New(rand.NewSource(seed))

	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}
	sortNames(names)

	out := make(map[string]float64, len(params))
	for k, v := range params {
		out[k] = v
	}

	count := int(float64(len(names))*pct + 0.5)
	if count < 1 {
		count = 1
	}
	rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	for _, name := range names[:count] {
		axis := space[name]
		if len(axis) < 2 {
			continue
		}
		idx := nearestIndex(axis, out[name])
		if rng.Intn(2) == 0 {
			idx--
		} else {
			idx++
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(axis) {
			idx = len(axis) - 1
		}
		out[name] = axis[idx]
	}
	return out
}

func nearestIndex(axis []float64, v float64) int {
	best := 0
	bestDist := axis[0] - v
	if bestDist < 0 {
		bestDist = -bestDist
	}
	for i := 1; i < len(axis); i++ {
		d := axis[i] - v
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func sortNames(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Iterate runs YOLO iterations until ctx is cancelled. Cancellation is the
// normal way to stop and returns nil; the leaderboards accumulated so far
// remain valid.
func (y *YOLO) Iterate(ctx context.Context, nowUnix func() int64) error {
	if err := y.validate(); err != nil {
		return err
	}
	var log logging.Logger = logging.Noop{}
	if y.Log != nil {
		log = y.Log
	}
	log = log.With(logging.Strategy(y.StrategyName))
	pct := y.pct()

	for iteration := 1; ; iteration++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		bases := y.baseConfigs()
		requests := make([]sweep.RunRequest, 0, len(bases)*len(y.Symbols))
		for _, base := range bases {
			baseID := sweep.ConfigID(y.StrategyName, base)
			neighbor := Perturb(base, y.Space, pct, baseID, iteration)
			id := sweep.ConfigID(y.StrategyName, neighbor)
			for _, symbol := range y.Symbols {
				requests = append(requests, sweep.RunRequest{
					Symbol:       symbol,
					StrategyName: y.StrategyName,
					Params:       neighbor,
					ConfigID:     id,
				})
			}
		}

		outcomes, err := y.Orchestrator.Run(ctx, requests, y.Run)
		if err != nil {
			return err
		}

		admitted := y.admit(outcomes, iteration, nowUnix())
		log.Info("yolo iteration complete",
			logging.Iteration(iteration),
			logging.Count("explored", len(requests)),
			logging.Count("admitted", admitted))
		y.emit(IterationEvent{
			Iteration: iteration,
			Explored:  len(requests),
			Admitted:  admitted,
			Snapshot:  y.Store.Snapshot(),
		})

		if ctx.Err() != nil {
			return nil
		}
	}
}

// baseConfigs returns the parameter tuples this iteration perturbs: the
// session cross-symbol leaders when any exist, the seeds otherwise.
func (y *YOLO) baseConfigs() []map[string]float64 {
	best := y.Store.BestCross(len(y.Seeds))
	if len(best) == 0 {
		return y.Seeds
	}
	out := make([]map[string]float64, 0, len(best))
	for _, e := range best {
		if len(e.Params) > 0 {
			out = append(out, e.Params)
		}
	}
	if len(out) == 0 {
		return y.Seeds
	}
	return out
}

// admit walks outcomes in request order (deterministic regardless of which
// worker finished first), admits per-symbol entries, then aggregates across
// symbols and admits cross-symbol entries.
func (y *YOLO) admit(outcomes []sweep.Outcome, iteration int, nowUnix int64) int {
	var admitted int
	perConfig := map[string][]sweep.ConfigResult{}
	params := map[string]map[string]float64{}

	for _, oc := range outcomes {
		if oc.Err != nil || oc.Result == nil {
			continue
		}
		out, ok := oc.Result.(*sweep.RunOutput)
		if !ok {
			continue
		}
		cr := out.ConfigResult
		perConfig[cr.ConfigID] = append(perConfig[cr.ConfigID], cr)
		params[cr.ConfigID] = oc.Request.Params

		if y.Store.AdmitSymbol(Entry{
			StrategyType: y.StrategyName,
			ConfigID:     cr.ConfigID,
			Symbol:       cr.Symbol,
			Params:       oc.Request.Params,
			Metrics:      cr.Metrics,
			Primary:      cr.Primary,
			Iteration:    iteration,
		}, nowUnix) {
			admitted++
		}
	}

	for _, agg := range sweep.Aggregate(perConfig) {
		if y.Store.AdmitCross(Entry{
			StrategyType: y.StrategyName,
			ConfigID:     agg.ConfigID,
			Params:       params[agg.ConfigID],
			Metrics: map[string]float64{
				"avg_sharpe":     agg.AvgSharpe,
				"min_sharpe":     agg.MinSharpe,
				"geo_mean_cagr":  agg.GeoMeanCAGR,
				"hit_rate":       agg.HitRate,
				"worst_drawdown": agg.WorstDrawdown,
			},
			Primary:   agg.AvgSharpe,
			Iteration: iteration,
		}, nowUnix) {
			admitted++
		}
	}
	return admitted
}

func (y *YOLO) emit(ev IterationEvent) {
	if y.Iterations == nil {
		return
	}
	select {
	case y.Iterations <- ev:
	default:
	}
}
