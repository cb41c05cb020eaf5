package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "complaint_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion,
// aggregation, and the query surface.
type Metrics struct {
	RecordsFetched  prometheus.Counter
	RecordsInserted prometheus.Counter
	RecordsSkipped  prometheus.Counter
	RecordFailures  prometheus.Counter
	PublishErrors   prometheus.Counter

	// ETL run lifecycle.
	EtlRuns        *prometheus.CounterVec // labels: status={completed,failed}
	EtlRunDuration prometheus.Histogram
	Watermark      prometheus.Gauge

	// Aggregation metrics.
	AggregateUnits    *prometheus.CounterVec   // labels: stage={daily,summary,chaos}, outcome={succeeded,failed}
	AggregateDuration *prometheus.HistogramVec // labels: stage

	// Cache metrics.
	ResolverCache *prometheus.CounterVec // labels: result={hit,miss}
	QueryCache    *prometheus.CounterVec // labels: result={hit,miss,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsFetched,
		m.RecordsInserted,
		m.RecordsSkipped,
		m.RecordFailures,
		m.PublishErrors,
		m.EtlRuns,
		m.EtlRunDuration,
		m.Watermark,
		m.AggregateUnits,
		m.AggregateDuration,
		m.ResolverCache,
		m.QueryCache,
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
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Total 311 records fetched from the upstream dataset.",
		}),
		RecordsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_inserted_total",
			Help:      "Total complaints newly inserted.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total records skipped because the complaint already existed.",
		}),
		RecordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      "Total records that could not be transformed or stored.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed attempts to publish classified complaints.",
		}),
		EtlRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "etl_runs_total",
			Help:      "ETL runs by terminal status.",
		}, []string{"status"}),
		EtlRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "etl_run_duration_seconds",
			Help:      "Duration of a complete incremental ETL run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		Watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Unix time of the newest complaint ingested by the last completed run.",
		}),
		AggregateUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_units_total",
			Help:      "Aggregation units (dates, neighborhoods) by stage and outcome.",
		}, []string{"stage", "outcome"}),
		AggregateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_duration_seconds",
			Help:      "Duration of each aggregation stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		ResolverCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_cache_total",
			Help:      "Neighborhood resolver cache lookups by result.",
		}, []string{"result"}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Query response cache lookups by result.",
		}, []string{"result"}),
	}
}
