package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the verification aggregator.
type Metrics struct {
	ProviderCalls     *prometheus.CounterVec
	ProviderFailures  *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
	CreditCacheHits   prometheus.Counter
	CreditCacheMisses prometheus.Counter
	FallbacksServed   prometheus.Counter
}

// New creates and registers all verification metrics.
func New() *Metrics {
	return &Metrics{
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "texlink_provider_calls_total",
			Help: "Outbound verification provider calls, labeled by provider",
		}, []string{"provider"}),
		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "texlink_provider_failures_total",
			Help: "Provider calls that failed, labeled by provider and category",
		}, []string{"provider", "category"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "texlink_provider_latency_seconds",
			Help:    "Latency of outbound provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		CreditCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "texlink_credit_cache_hits_total",
			Help: "Credit analyses served from cache",
		}),
		CreditCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "texlink_credit_cache_misses_total",
			Help: "Credit analyses that required an upstream call",
		}),
		FallbacksServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "texlink_credit_fallbacks_total",
			Help: "Synthetic credit results served after provider exhaustion",
		}),
	}
}

// ObserveCall records one provider call with its outcome and latency.
func (m *Metrics) ObserveCall(provider string, start time.Time, category string) {
	m.ProviderCalls.WithLabelValues(provider).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if category != "" {
		m.ProviderFailures.WithLabelValues(provider, category).Inc()
	}
}
