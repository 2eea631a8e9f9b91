package metrics

import "github.com/prometheus/client_golang/prometheus"

// PublisherMetrics holds Prometheus metrics for calls to the Discord API.
type PublisherMetrics struct {
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// NewPublisherMetrics creates and registers publisher metrics on the given registry.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	m := &PublisherMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "calls_total",
			Help:      "Total number of Discord API calls, by operation and result.",
		}, []string{"op", "result"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "call_duration_seconds",
			Help:      "Duration of Discord API calls in seconds, by operation.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
	}

	reg.MustRegister(m.Calls, m.CallDuration)
	return m
}

// ObserveCall records one API call. Safe on a nil receiver.
func (m *PublisherMetrics) ObserveCall(op, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(op, result).Inc()
	m.CallDuration.WithLabelValues(op).Observe(seconds)
}
