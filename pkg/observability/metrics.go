// Package observability holds grainstate's Prometheus metrics and
// OpenTelemetry tracing wiring: a thin ambient layer pkg/actor, pkg/saga
// and pkg/batch emit into, not a metrics/tracing backend itself.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the registry grainstate's own metrics register
	// against; callers embedding grainstate in a larger service can pass
	// their own registerer to NewMetrics instead.
	DefaultRegistry = prometheus.NewRegistry()

	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "grainstate"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds every grainstate Prometheus collector.
type Metrics struct {
	FireTotal        *prometheus.CounterVec
	FireDuration     *prometheus.HistogramVec
	ActiveEntities   prometheus.Gauge
	SnapshotsTotal   prometheus.Counter

	SagaStepsTotal    *prometheus.CounterVec
	SagaStepDuration  *prometheus.HistogramVec
	SagaRunsTotal     *prometheus.CounterVec

	BatchItemsTotal    *prometheus.CounterVec
	BatchDuration      *prometheus.HistogramVec

	TimerFiresTotal *prometheus.CounterVec
}

// GetMetrics returns the process-wide Metrics instance, built against
// DefaultRegisterer on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics registers a fresh Metrics collection against registerer (nil
// falls back to DefaultRegisterer). Exported so hosts embedding grainstate
// in a larger service can register into their own registry instead of
// grainstate's package-level default.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		FireTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "grainstate_fire_total",
				Help: "Total number of actor Fire calls by result",
			},
			[]string{"result"},
		),
		FireDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grainstate_fire_duration_seconds",
				Help:    "actor.Adapter.Fire call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		ActiveEntities: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "grainstate_active_entities",
				Help: "Number of currently activated entities",
			},
		),
		SnapshotsTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "grainstate_snapshots_total",
				Help: "Total number of snapshots written",
			},
		),
		SagaStepsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "grainstate_saga_steps_total",
				Help: "Total number of saga step executions by status",
			},
			[]string{"status"},
		),
		SagaStepDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grainstate_saga_step_duration_seconds",
				Help:    "Saga step execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		SagaRunsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "grainstate_saga_runs_total",
				Help: "Total number of saga runs by outcome",
			},
			[]string{"status"},
		),
		BatchItemsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "grainstate_batch_items_total",
				Help: "Total number of batch items by outcome",
			},
			[]string{"outcome"},
		),
		BatchDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grainstate_batch_duration_seconds",
				Help:    "Batch dispatch wall-clock duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stop_on_first_failure"},
		),
		TimerFiresTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "grainstate_timer_fires_total",
				Help: "Total number of timer/reminder fires by kind",
			},
			[]string{"kind"},
		),
	}
}

// RecordFire records one actor.Adapter.Fire call's outcome and latency.
func (m *Metrics) RecordFire(result string, d time.Duration) {
	m.FireTotal.WithLabelValues(result).Inc()
	m.FireDuration.WithLabelValues(result).Observe(d.Seconds())
}

// RecordSagaStep records one saga step's terminal status and duration.
func (m *Metrics) RecordSagaStep(step, status string, d time.Duration) {
	m.SagaStepsTotal.WithLabelValues(status).Inc()
	m.SagaStepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// RecordSagaRun records one saga run's terminal outcome.
func (m *Metrics) RecordSagaRun(status string) {
	m.SagaRunsTotal.WithLabelValues(status).Inc()
}

// RecordBatch records one batch dispatch's wall-clock duration.
func (m *Metrics) RecordBatch(stopOnFirstFailure bool, d time.Duration) {
	m.BatchDuration.WithLabelValues(boolLabel(stopOnFirstFailure)).Observe(d.Seconds())
}

// RecordBatchItem records one batch item's outcome.
func (m *Metrics) RecordBatchItem(outcome string) {
	m.BatchItemsTotal.WithLabelValues(outcome).Inc()
}

// RecordTimerFire records one timer/reminder fire by kind ("timer" or
// "reminder").
func (m *Metrics) RecordTimerFire(kind string) {
	m.TimerFiresTotal.WithLabelValues(kind).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
