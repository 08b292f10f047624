package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the credential lifecycle.
type Metrics struct {
	CredentialsCreated prometheus.Counter
	Transitions        *prometheus.CounterVec
	TransitionsDenied  prometheus.Counter
}

// New creates and registers all credential metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "texlink_credentials_created_total",
			Help: "Total number of supplier credentials created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "texlink_credential_transitions_total",
			Help: "Status transitions executed, labeled by target status",
		}, []string{"to_status"}),
		TransitionsDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "texlink_credential_transitions_denied_total",
			Help: "Transitions refused by the transition table",
		}),
	}
}

// IncrementCreated increments the created counter by 1.
func (m *Metrics) IncrementCreated() {
	m.CredentialsCreated.Inc()
}

// ObserveTransition records a successful transition to the given status.
func (m *Metrics) ObserveTransition(toStatus string) {
	m.Transitions.WithLabelValues(toStatus).Inc()
}

// IncrementDenied records a transition refused by the table.
func (m *Metrics) IncrementDenied() {
	m.TransitionsDenied.Inc()
}
