package dashboard

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dashboard API collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcam_meraki",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Dashboard API requests by operation and HTTP status.",
		}, []string{"operation", "code"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcam_meraki",
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Dashboard API calls retried after a rate-limit response.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netcam_meraki",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Dashboard API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netcam_meraki",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "API access cache lookups by result (hit, miss, shared).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.retries, m.duration, m.cacheLookups)
	}
	return m
}

func (m *Metrics) observeRequest(op string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveRetry counts one rate-limit retry of op.
func (m *Metrics) ObserveRetry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

// ObserveCache counts one cache lookup. result is "hit", "miss" or "shared".
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
