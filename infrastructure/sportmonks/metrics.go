package sportmonks

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values
const (
	outcomeOK        = "ok"
	outcomeHTTPError = "http_error"
	outcomeTransport = "transport_error"
	outcomeDecode    = "decode_error"
	outcomeNotFound  = "not_found"
)

type clientMetrics struct {
	requests  *prometheus.CounterVec
	latency   prometheus.Histogram
	coalesced prometheus.Counter
}

// newClientMetrics registers the provider instruments on reg. A nil
// registerer keeps the instruments unregistered, which tests rely on.
func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "betledger",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Match-facts provider requests by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "betledger",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Match-facts provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "betledger",
			Subsystem: "provider",
			Name:      "coalesced_total",
			Help:      "Fetches answered by an identical request already in flight.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency, m.coalesced)
	}
	return m
}
