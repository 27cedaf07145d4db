package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for ETL runs.
const PushJob = "collision_etl"

// Push sends every metric in g to the Pushgateway at url, replacing the
// previous push for the job. A run-once batch job has no scrape endpoint, so
// this is how its metrics reach Prometheus.
func Push(ctx context.Context, url string, g prometheus.Gatherer) error {
	if err := push.New(url, PushJob).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
