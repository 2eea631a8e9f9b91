package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/reactboard/internal/domain"
)

// SyncMetrics holds Prometheus metrics for the reaction event pipeline.
// It satisfies both app.SyncRecorder and app.DispatchRecorder.
type SyncMetrics struct {
	EventsReceived *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	Outcomes       *prometheus.CounterVec
	Failures       *prometheus.CounterVec
	Duration       prometheus.Histogram
}

// NewSyncMetrics creates and registers pipeline metrics on the given registry.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of reaction events received, by source.",
		}, []string{"source"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of reaction events dropped before processing, by reason.",
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of reaction snapshots waiting for a worker.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_outcomes_total",
			Help:      "Total number of handled snapshots, by outcome.",
		}, []string{"outcome"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_failures_total",
			Help:      "Total number of failed snapshots, by failure kind.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of snapshot handling in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	reg.MustRegister(m.EventsReceived, m.EventsDropped, m.QueueDepth, m.Outcomes, m.Failures, m.Duration)
	return m
}

func (m *SyncMetrics) ObserveReceived(source string) {
	m.EventsReceived.WithLabelValues(source).Inc()
}

func (m *SyncMetrics) ObserveEnqueued(queueDepth int) {
	m.QueueDepth.Set(float64(queueDepth))
}

func (m *SyncMetrics) ObserveDropped(reason string) {
	m.EventsDropped.WithLabelValues(reason).Inc()
}

func (m *SyncMetrics) ObserveOutcome(outcome domain.Outcome, duration time.Duration) {
	m.Outcomes.WithLabelValues(outcome.String()).Inc()
	m.Duration.Observe(duration.Seconds())
}

func (m *SyncMetrics) ObserveFailure(kind string, duration time.Duration) {
	m.Failures.WithLabelValues(kind).Inc()
	m.Duration.Observe(duration.Seconds())
}
