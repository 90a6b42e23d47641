package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Rollout metrics
	RolloutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_rollouts_total",
			Help: "Total number of rollouts by outcome",
		},
		[]string{"outcome"},
	)

	RolloutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cutover_rollout_duration_seconds",
			Help:    "End-to-end rollout duration in seconds",
			Buckets: prometheus.ExponentialBuckets(15, 2, 8),
		},
	)

	StateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_state_transitions_total",
			Help: "Total number of rollout state transitions by state",
		},
		[]string{"state"},
	)

	// Health metrics
	HealthWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cutover_health_wait_duration_seconds",
			Help:    "Time spent waiting for a new generation to become healthy",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		},
	)

	HealthTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cutover_health_timeouts_total",
			Help: "Total number of rollouts that timed out waiting for health",
		},
	)

	// Traffic metrics
	DetachFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cutover_detach_failures_total",
			Help: "Total number of stale units that could not be confirmed detached",
		},
	)

	// Cleanup metrics
	RollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cutover_rollbacks_total",
			Help: "Total number of rollbacks",
		},
	)

	StaleDeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_stale_deletions_total",
			Help: "Total number of stale resources deleted by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RolloutsTotal)
	prometheus.MustRegister(RolloutDuration)
	prometheus.MustRegister(StateTransitionsTotal)
	prometheus.MustRegister(HealthWaitDuration)
	prometheus.MustRegister(HealthTimeoutsTotal)
	prometheus.MustRegister(DetachFailuresTotal)
	prometheus.MustRegister(RollbacksTotal)
	prometheus.MustRegister(StaleDeletionsTotal)
}
