package sweep

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trendlab/trendlab/errs"
	"github.com/trendlab/trendlab/telemetry"
)

// RunRequest is one (symbol, strategy, config) unit of work.
type RunRequest struct {
	Symbol       string
	StrategyName string
	Params       map[string]float64
	ConfigID     string
}

// RunFunc executes one RunRequest to completion. Implementations must be
// single-threaded internally; the orchestrator supplies the
// parallelism by calling RunFunc concurrently across requests.
type RunFunc func(ctx context.Context, req RunRequest) (any, error)

// EventKind is the lifecycle stage reported for one run.
type EventKind int

const (
	Started EventKind = iota
	Progress
	Completed
	Failed
	Cancelled
)

// Event is one lifecycle notification for one RunRequest. Events for a
// single run arrive in started -> progress* -> (completed|failed|cancelled)
// order; across runs no ordering is guaranteed.
type Event struct {
	Kind    EventKind
	Request RunRequest
	Err     error
}

// Outcome is the result of one completed (or failed) RunRequest.
type Outcome struct {
	Request RunRequest
	Result  any
	Err     error
}

// Orchestrator schedules RunRequests across a bounded pool of workers and
// publishes lifecycle events on a bounded, non-blocking channel.
type Orchestrator struct {
	Concurrency int
	Events      chan Event

	fingerprints singleflight.Group
}

// NewOrchestrator builds an Orchestrator with the given worker concurrency
// and event channel buffer depth.
func NewOrchestrator(concurrency, eventBuffer int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		Concurrency: concurrency,
		Events:      make(chan Event, eventBuffer),
	}
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.Events <- ev:
	default:
		// channel full: drop the event rather than stall a worker.
	}
}

// Run executes every request, at most Concurrency at a time, returning one
// Outcome per request (order matches requests, not completion order). A
// per-run error is recorded in its Outcome and does not abort siblings; the
// whole Run call only returns an error if fn itself signals an Internal
// error, which escalates. A request that has not started by the time ctx is
// cancelled gets an Outcome with a Cancelled error instead.
func (o *Orchestrator) Run(ctx context.Context, requests []RunRequest, fn RunFunc) ([]Outcome, error) {
	outcomes := make([]Outcome, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)

	telemetry.QueueDepth.Set(float64(len(requests)))

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			defer telemetry.QueueDepth.Dec()

			select {
			case <-gctx.Done():
				telemetry.RunsCancelled.WithLabelValues(req.StrategyName).Inc()
				o.emit(Event{Kind: Cancelled, Request: req})
				outcomes[i] = Outcome{Request: req, Err: errs.New(errs.Cancelled, "sweep cancelled before run started")}
				return nil
			default:
			}

			o.emit(Event{Kind: Started, Request: req})
			telemetry.RunsStarted.WithLabelValues(req.StrategyName).Inc()

			telemetry.WorkersActive.Inc()
			result, err := fn(gctx, req)
			telemetry.WorkersActive.Dec()
			if err != nil {
				var ce *errs.CoreError
				if as, ok := err.(*errs.CoreError); ok {
					ce = as
				}
				if ce != nil && ce.Code == errs.Internal {
					telemetry.RunsFailed.WithLabelValues(req.StrategyName, string(ce.Code)).Inc()
					return err // escalates: fails the whole sweep
				}
				code := "Internal"
				if ce != nil {
					code = string(ce.Code)
				}
				telemetry.RunsFailed.WithLabelValues(req.StrategyName, code).Inc()
				o.emit(Event{Kind: Failed, Request: req, Err: err})
				outcomes[i] = Outcome{Request: req, Err: err}
				return nil
			}

			telemetry.RunsCompleted.WithLabelValues(req.StrategyName).Inc()
			o.emit(Event{Kind: Completed, Request: req})
			outcomes[i] = Outcome{Request: req, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// CoalesceFingerprint collapses concurrent duplicate fingerprint
// computations for the same key into a single underlying call.
func (o *Orchestrator) CoalesceFingerprint(key string, compute func() (uint64, error)) (uint64, error) {
	v, err, _ := o.fingerprints.Do(key, func() (any, error) {
		return compute()
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}
