// Package metrics exposes Prometheus instrumentation for the
// aggregation pipeline.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels stamped on every series.
type Config struct {
	ServiceName string
	Environment string
}

type AggregationMetrics struct {
	runsTotal        *prometheus.CounterVec
	entitiesTotal    *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	snapshotBacklog  prometheus.Gauge
	retentionDeleted prometheus.Counter
	recomputeDates   *prometheus.CounterVec
}

var (
	aggregationMetricsOnce sync.Once
	aggregationMetrics     *AggregationMetrics
)

func Aggregation() *AggregationMetrics {
	return AggregationWithConfig(Config{})
}

func AggregationWithConfig(cfg Config) *AggregationMetrics {
	aggregationMetricsOnce.Do(func() {
		aggregationMetrics = newAggregationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return aggregationMetrics
}

func ResetAggregationMetricsForTest() {
	aggregationMetricsOnce = sync.Once{}
	aggregationMetrics = nil
}

func newAggregationMetrics(registerer prometheus.Registerer, cfg Config) *AggregationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "hallofshame"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "hallofshame_aggregation_runs_total",
			Help:        "Aggregation runs by terminal status.",
			ConstLabels: constLabels,
		},
		[]string{"status"}, // success | partial | failed | skipped
	)

	entitiesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "hallofshame_aggregation_entities_total",
			Help:        "Entities processed by aggregation runs.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "result"}, // kind: ride | park; result: success | skipped | failed
	)

	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "hallofshame_aggregation_run_duration_seconds",
			Help: "Wall time of a full aggregation run.",
			Buckets: []float64{
				1, 5, 15, 30, 60, 120, 300, 900,
			},
			ConstLabels: constLabels,
		},
		[]string{"period_type"},
	)

	snapshotBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "hallofshame_snapshot_rows_total",
			Help:        "Raw snapshot rows currently retained.",
			ConstLabels: constLabels,
		},
	)

	retentionDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "hallofshame_snapshot_retention_deleted_total",
			Help:        "Snapshot rows purged by the retention worker.",
			ConstLabels: constLabels,
		},
	)

	recomputeDates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "hallofshame_recompute_dates_total",
			Help:        "Dates visited by recompute jobs.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | partial | failed | skipped | dry_run
	)

	registerer.MustRegister(
		runsTotal,
		entitiesTotal,
		runDuration,
		snapshotBacklog,
		retentionDeleted,
		recomputeDates,
	)

	return &AggregationMetrics{
		runsTotal:        runsTotal,
		entitiesTotal:    entitiesTotal,
		runDuration:      runDuration,
		snapshotBacklog:  snapshotBacklog,
		retentionDeleted: retentionDeleted,
		recomputeDates:   recomputeDates,
	}
}

func (m *AggregationMetrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

func (m *AggregationMetrics) IncEntity(kind, result string) {
	if m == nil {
		return
	}
	m.entitiesTotal.WithLabelValues(kind, result).Inc()
}

func (m *AggregationMetrics) ObserveRunDuration(periodType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(periodType).Observe(elapsed.Seconds())
}

func (m *AggregationMetrics) SetSnapshotRows(value int64) {
	if m == nil {
		return
	}
	m.snapshotBacklog.Set(float64(value))
}

func (m *AggregationMetrics) AddRetentionDeleted(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.retentionDeleted.Add(float64(count))
}

func (m *AggregationMetrics) IncRecomputeDate(result string) {
	if m == nil {
		return
	}
	m.recomputeDates.WithLabelValues(result).Inc()
}
