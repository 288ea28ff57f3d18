// Package metrics provides Prometheus metrics for the UDP responder and requester.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "udpecho"
)

// Component labels.
const (
	ComponentResponder = "responder"
	ComponentRequester = "requester"
)

// Drop reasons for requests the responder did not answer.
const (
	DropRateLimited = "rate_limited"
	DropSimulated   = "simulated"
	DropTransform   = "transform_failed"
)

// Metrics contains all Prometheus metrics for both components.
type Metrics struct {
	// Responder metrics
	RequestsReceived  prometheus.Counter
	RepliesSent       prometheus.Counter
	RequestsDropped   *prometheus.CounterVec
	RequestsTruncated prometheus.Counter

	// Shared wire metrics
	DecodeReplacements *prometheus.CounterVec
	BytesSent          *prometheus.CounterVec
	BytesReceived      *prometheus.CounterVec

	// Requester metrics
	Outcomes   *prometheus.CounterVec
	RequestRTT prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the metrics instance registered with the default registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_received_total",
			Help:      "Total request datagrams received by the responder",
		}),
		RepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_sent_total",
			Help:      "Total reply datagrams sent by the responder",
		}),
		RequestsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_dropped_total",
			Help:      "Requests the responder received but did not answer, by reason",
		}, []string{"reason"}),
		RequestsTruncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_truncated_total",
			Help:      "Requests cut to the responder's receive bound",
		}),

		DecodeReplacements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_replacements_total",
			Help:      "Undecodable bytes replaced by placeholders, by component",
		}, []string{"component"}),
		BytesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total payload bytes sent, by component",
		}, []string{"component"}),
		BytesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total payload bytes received, by component",
		}, []string{"component"}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requester_outcomes_total",
			Help:      "Requester exchanges by outcome (replied, timed_out)",
		}, []string{"outcome"}),
		RequestRTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "requester_rtt_seconds",
			Help:      "Histogram of request to reply round-trip time",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
}

// RecordRequest records a request datagram received by the responder.
func (m *Metrics) RecordRequest(bytes int, truncated bool) {
	m.RequestsReceived.Inc()
	m.BytesReceived.WithLabelValues(ComponentResponder).Add(float64(bytes))
	if truncated {
		m.RequestsTruncated.Inc()
	}
}

// RecordReply records a reply datagram sent by the responder.
func (m *Metrics) RecordReply(bytes int) {
	m.RepliesSent.Inc()
	m.BytesSent.WithLabelValues(ComponentResponder).Add(float64(bytes))
}

// RecordDrop records a request that was not answered.
func (m *Metrics) RecordDrop(reason string) {
	m.RequestsDropped.WithLabelValues(reason).Inc()
}

// RecordReplacements records placeholder substitutions made while decoding.
func (m *Metrics) RecordReplacements(component string, count int) {
	if count > 0 {
		m.DecodeReplacements.WithLabelValues(component).Add(float64(count))
	}
}

// RecordSent records a request datagram sent by the requester.
func (m *Metrics) RecordSent(bytes int) {
	m.BytesSent.WithLabelValues(ComponentRequester).Add(float64(bytes))
}

// RecordReplied records a reply received by the requester.
func (m *Metrics) RecordReplied(bytes int, rttSeconds float64) {
	m.Outcomes.WithLabelValues("replied").Inc()
	m.BytesReceived.WithLabelValues(ComponentRequester).Add(float64(bytes))
	m.RequestRTT.Observe(rttSeconds)
}

// RecordTimeout records a request that got no reply in time.
func (m *Metrics) RecordTimeout() {
	m.Outcomes.WithLabelValues("timed_out").Inc()
}
