/*
Package metrics provides Prometheus metrics for rollout observability.

The metrics package defines and registers every rollout metric using the
Prometheus client library, providing visibility into rollout outcomes, health
wait times, traffic migration problems, and cleanup activity. Because a
rollout runs inside a short-lived CLI rather than a long-running server,
metrics are delivered to a Prometheus push gateway at the end of a run
instead of being exposed on a scrape endpoint.

# Architecture

	┌──────────────────── METRICS SYSTEM ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐            │
	│  │          Prometheus Registry               │            │
	│  │  - Global DefaultRegistry                  │            │
	│  │  - MustRegister at package init            │            │
	│  │  - Automatic Go runtime metrics            │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │           Metric Categories                │            │
	│  │                                            │            │
	│  │  Rollout: outcomes, duration, transitions  │            │
	│  │  Health: wait duration, timeouts           │            │
	│  │  Traffic: detach confirmation failures     │            │
	│  │  Cleanup: rollbacks, stale deletions       │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │          Push Gateway Delivery             │            │
	│  │  - Push() once per rollout run             │            │
	│  │  - Job: cutover                            │            │
	│  │  - Grouped by service                      │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │         Prometheus Server                  │            │
	│  │  - Scrapes the push gateway                │            │
	│  │  - Stores time series data                 │            │
	│  │  - Provides PromQL query interface         │            │
	│  └────────────────────────────────────────────┘            │
	└────────────────────────────────────────────────────────────┘

# Metrics Catalog

Rollout Metrics:

cutover_rollouts_total{outcome}:
  - Type: Counter
  - Description: Rollouts by outcome (succeeded/failed)
  - Example: cutover_rollouts_total{outcome="succeeded"} 12

cutover_rollout_duration_seconds:
  - Type: Histogram
  - Description: End-to-end rollout duration
  - Buckets: 15s to ~32min, doubling

cutover_state_transitions_total{state}:
  - Type: Counter
  - Description: Entries into each rollout state
  - Example: cutover_state_transitions_total{state="rolling_back"} 1

Health Metrics:

cutover_health_wait_duration_seconds:
  - Type: Histogram
  - Description: Time from unit creation to confirmed health
  - Buckets: 5s to ~10min, doubling

cutover_health_timeouts_total:
  - Type: Counter
  - Description: Rollouts abandoned because health never converged

Traffic Metrics:

cutover_detach_failures_total:
  - Type: Counter
  - Description: Stale units whose removal from the backend set could
    not be confirmed within the attempt budget

Cleanup Metrics:

cutover_rollbacks_total:
  - Type: Counter
  - Description: Rollbacks performed

cutover_stale_deletions_total{kind}:
  - Type: Counter
  - Description: Stale resources deleted by kind (unit/template)

# Usage

Updating Counter Metrics:

	import "github.com/loadwise/cutover/pkg/metrics"

	metrics.RolloutsTotal.WithLabelValues("succeeded").Inc()
	metrics.StaleDeletionsTotal.WithLabelValues("unit").Inc()

Recording Histogram Observations:

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... wait for health ...
	timer.ObserveDuration(metrics.HealthWaitDuration)

Pushing at the End of a Run:

	if cfg.PushGateway != "" {
		err := metrics.Push(ctx, cfg.PushGateway, map[string]string{
			"service": cfg.Service,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to push metrics")
		}
	}

# Integration Points

This package integrates with:

  - pkg/orchestrator: Records outcomes, durations, and transitions
  - pkg/traffic: Records detach confirmation failures
  - pkg/gc: Records stale deletions
  - cmd/cutover: Pushes the registry after each rollout

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - No runtime registration needed

Label Discipline:
  - outcome, state and kind are bounded enums
  - Generations never become labels: each rollout would mint a new
    time series, so generation lives in the push grouping and in logs

Timer Pattern:
  - Create timer at operation start
  - Call ObserveDuration when the operation finishes
  - Supports both simple and vector histograms

Push Grouping:
  - Push() groups by service so the gateway keeps the latest rollout's
    metrics per service rather than accumulating one group per run

# Monitoring

Prometheus Queries (PromQL):

Rollout health:
  - Failure ratio: rate(cutover_rollouts_total{outcome="failed"}[1d])
    / rate(cutover_rollouts_total[1d])
  - p95 duration: histogram_quantile(0.95, cutover_rollout_duration_seconds_bucket)
  - Health timeout rate: rate(cutover_health_timeouts_total[1d])

Cleanup debt:
  - Unconfirmed detaches: rate(cutover_detach_failures_total[1d])
  - Stale deletions: sum by (kind) (rate(cutover_stale_deletions_total[1d]))

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - Push gateway: https://github.com/prometheus/pushgateway
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
