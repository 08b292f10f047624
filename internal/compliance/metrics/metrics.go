package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the compliance engine.
type Metrics struct {
	Analyses      *prometheus.CounterVec
	ManualReviews *prometheus.CounterVec
	OverallScore  prometheus.Histogram
}

// New creates and registers all compliance metrics.
func New() *Metrics {
	return &Metrics{
		Analyses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "texlink_compliance_analyses_total",
			Help: "Compliance analyses run, labeled by risk level and recommended action",
		}, []string{"risk_level", "action"}),
		ManualReviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "texlink_compliance_manual_reviews_total",
			Help: "Manual review decisions recorded, labeled by decision",
		}, []string{"decision"}),
		OverallScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "texlink_compliance_overall_score",
			Help:    "Distribution of overall compliance scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
}

// ObserveAnalysis records one completed analysis.
func (m *Metrics) ObserveAnalysis(riskLevel, action string, overall int) {
	m.Analyses.WithLabelValues(riskLevel, action).Inc()
	m.OverallScore.Observe(float64(overall))
}

// ObserveReview records one manual review decision.
func (m *Metrics) ObserveReview(decision string) {
	m.ManualReviews.WithLabelValues(decision).Inc()
}
