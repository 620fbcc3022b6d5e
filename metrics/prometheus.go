package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// prometheusMetrics is the Prometheus-backed Metrics implementation.
type prometheusMetrics struct {
	sent        *prometheus.CounterVec
	received    *prometheus.CounterVec
	callLatency *prometheus.HistogramVec
	callErrors  *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	authResult  *prometheus.CounterVec
}

// NewPrometheus builds a Prometheus-backed Metrics. Returns nil if
// InitRegistry was never called, so callers can unconditionally pass the
// result to adbus.WithMetrics.
func NewPrometheus() Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &prometheusMetrics{
		sent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "adbus_messages_sent_total",
			Help: "Total number of D-Bus messages sent, by message type.",
		}, []string{"type"}),
		received: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "adbus_messages_received_total",
			Help: "Total number of D-Bus messages received, by message type.",
		}, []string{"type"}),
		callLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adbus_call_duration_milliseconds",
			Help:    "Duration of blocking method calls, by member.",
			Buckets: []float64{0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"member"}),
		callErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "adbus_call_errors_total",
			Help: "Total number of method calls that returned an error reply.",
		}, []string{"member"}),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "adbus_dispatch_queue_depth",
			Help: "Number of messages buffered awaiting dispatch.",
		}),
		authResult: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "adbus_auth_mechanism_total",
			Help: "SASL mechanism attempts, by mechanism and outcome.",
		}, []string{"mechanism", "result"}),
	}
}

func (m *prometheusMetrics) MessageSent(msgType string, bodyBytes int) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(msgType).Inc()
}

func (m *prometheusMetrics) MessageReceived(msgType string, bodyBytes int) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(msgType).Inc()
}

func (m *prometheusMetrics) CallCompleted(member string, d time.Duration, isError bool) {
	if m == nil {
		return
	}
	m.callLatency.WithLabelValues(member).Observe(float64(d.Microseconds()) / 1000.0)
	if isError {
		m.callErrors.WithLabelValues(member).Inc()
	}
}

func (m *prometheusMetrics) DispatchQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *prometheusMetrics) AuthMechanismResult(mechanism string, ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.authResult.WithLabelValues(mechanism, result).Inc()
}
