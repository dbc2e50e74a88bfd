// Package telemetry registers the Prometheus counters and gauges the sweep
// orchestrator and leaderboard use to report progress.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RunsStarted counts runs handed to a worker, labeled by strategy_type.
	RunsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendlab_runs_started_total",
			Help: "Total number of backtest runs started, by strategy type.",
		},
		[]string{"strategy"},
	)

	// RunsCompleted counts runs that finished and were ranked.
	RunsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendlab_runs_completed_total",
			Help: "Total number of backtest runs completed successfully, by strategy type.",
		},
		[]string{"strategy"},
	)

	// RunsFailed counts runs that errored, labeled by error code.
	RunsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendlab_runs_failed_total",
			Help: "Total number of backtest runs that failed, by error code.",
		},
		[]string{"strategy", "code"},
	)

	// RunsCancelled counts runs that observed cooperative cancellation.
	RunsCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendlab_runs_cancelled_total",
			Help: "Total number of backtest runs cancelled before completion, by strategy type.",
		},
		[]string{"strategy"},
	)

	// QueueDepth reports the number of configurations still queued in a sweep.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendlab_sweep_queue_depth",
			Help: "Number of pending (symbol, strategy, config) runs in the active sweep.",
		},
	)

	// WorkersActive reports how many worker goroutines currently hold a run.
	WorkersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendlab_sweep_workers_active",
			Help: "Number of sweep workers currently executing a run.",
		},
	)

	// LeaderboardAdmissions counts successful leaderboard insertions, by scope.
	LeaderboardAdmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendlab_leaderboard_admissions_total",
			Help: "Total number of leaderboard admission events, by scope (session|all_time).",
		},
		[]string{"scope"},
	)

	// LeaderboardEvictions counts entries evicted to make room for a better one.
	LeaderboardEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendlab_leaderboard_evictions_total",
			Help: "Total number of leaderboard entries evicted, by scope.",
		},
		[]string{"scope"},
	)

	// LeaderboardSize reports the current entry count, by scope.
	LeaderboardSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendlab_leaderboard_size",
			Help: "Current number of entries held in the leaderboard, by scope.",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsStarted,
		RunsCompleted,
		RunsFailed,
		RunsCancelled,
		QueueDepth,
		WorkersActive,
		LeaderboardAdmissions,
		LeaderboardEvictions,
		LeaderboardSize,
	)
}
