package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for one ETL run.
type Metrics struct {
	RowsRead    *prometheus.CounterVec // labels: dataset
	RowsKept    *prometheus.CounterVec // labels: dataset
	RowsDropped *prometheus.CounterVec // labels: dataset, reason

	StageDuration    *prometheus.HistogramVec // labels: stage={extract,transform,analyze,load}
	ArtifactsWritten *prometheus.CounterVec   // labels: kind
	SinkErrors       *prometheus.CounterVec   // labels: sink
	LastRunSuccess   prometheus.Gauge

	// Zip backfill metrics.
	BackfillLookups    *prometheus.CounterVec // labels: resolver, outcome={resolved,miss,error}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsKept,
		m.RowsDropped,
		m.StageDuration,
		m.ArtifactsWritten,
		m.SinkErrors,
		m.LastRunSuccess,
		m.BackfillLookups,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "rows_read_total",
			Help:      "Rows read from each input dataset.",
		}, []string{"dataset"}),
		RowsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "rows_kept_total",
			Help:      "Rows surviving cleaning, per dataset.",
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "rows_dropped_total",
			Help:      "Rows excluded during cleaning, per dataset and reason.",
		}, []string{"dataset", "reason"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "collision_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "artifacts_written_total",
			Help:      "Output artifacts written, by kind.",
		}, []string{"kind"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "sink_errors_total",
			Help:      "Report sinks that failed to load a report.",
		}, []string{"sink"}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "collision_etl",
			Name:      "last_run_success",
			Help:      "1 when the last run completed without errors, 0 otherwise.",
		}),
		BackfillLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "zip_backfill_lookups_total",
			Help:      "Zip backfill lookups by resolver and outcome.",
		}, []string{"resolver", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collision_etl",
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "collision_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
