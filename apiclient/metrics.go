package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	RemoteRequestsCounter    = "remote_entities_requests_total"
	RemoteRequestDuration    = "remote_entities_request_duration_seconds"
	CacheLookupsCounter      = "remote_entities_cache_lookups_total"
	ClientLabel              = "client"
	RequestTypeLabel         = "request_type"
	OutcomeLabel             = "outcome"
	OutcomeSuccess           = "success"
	OutcomeTransportFailure  = "transport_failure"
	OutcomeCacheHit          = "hit"
	OutcomeCacheMiss         = "miss"
	OutcomeCacheLookupFailed = "error"
)

// Metrics counts remote requests and cache lookups. A nil *Metrics records
// nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lookups  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not
// nil. Collectors already registered under the same name are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: RemoteRequestsCounter,
				Help: "The total number of requests sent to the remote API",
			},
			[]string{ClientLabel, RequestTypeLabel, OutcomeLabel},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    RemoteRequestDuration,
				Help:    "A histogram of latencies for remote API requests.",
				Buckets: []float64{0.0625, 0.125, .25, .5, 1, 5, 10, 20, 40},
			},
			[]string{ClientLabel, RequestTypeLabel},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: CacheLookupsCounter,
				Help: "The total number of cache lookups by outcome",
			},
			[]string{ClientLabel, RequestTypeLabel, OutcomeLabel},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.lookups, err = register(reg, m.lookups); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observeRequest(kind Kind, rt RequestType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(kind), string(rt), outcome).Inc()
	m.duration.WithLabelValues(string(kind), string(rt)).Observe(elapsed.Seconds())
}

func (m *Metrics) observeLookup(kind Kind, rt RequestType, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(string(kind), string(rt), outcome).Inc()
}
