package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends every registered metric to a Prometheus push gateway. The
// rollout command calls this once at the end of a run, since a short-lived
// CLI has no endpoint for a scraper to find.
//
// Groupings become push gateway grouping labels, so successive rollouts of
// the same service replace each other's metrics instead of piling up.
func Push(ctx context.Context, gateway string, groupings map[string]string) error {
	pusher := push.New(gateway, "cutover").Gatherer(prometheus.DefaultGatherer)
	for name, value := range groupings {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gateway, err)
	}
	return nil
}
