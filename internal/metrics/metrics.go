package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpDuration *prometheus.HistogramVec
	erpCalls     *prometheus.CounterVec
	sagaOutcomes *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "erp_gateway",
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		erpCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp_gateway",
			Name:      "erp_calls_total",
			Help:      "Outbound ERP calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		sagaOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp_gateway",
			Name:      "invoice_saga_total",
			Help:      "Invoice saga results by final status.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{m.httpDuration, m.erpCalls, m.sagaOutcomes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveHTTP records an inbound request
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// ERPCall records an outbound ERP call; outcome is "ok" or an error kind
func (m *Metrics) ERPCall(op, outcome string) {
	if m == nil {
		return
	}
	m.erpCalls.WithLabelValues(op, outcome).Inc()
}

// SagaOutcome records the terminal status of one invoice saga
func (m *Metrics) SagaOutcome(status string) {
	if m == nil {
		return
	}
	m.sagaOutcomes.WithLabelValues(status).Inc()
}
