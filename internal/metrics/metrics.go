// Package metrics exposes Prometheus counters for authentication, tenant
// resolution and subscription decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockflow"

// Metrics holds the collectors registered by the service.
type Metrics struct {
	registry *prometheus.Registry

	TokenValidations     *prometheus.CounterVec
	TenantResolutions    *prometheus.CounterVec
	SubscriptionDecision *prometheus.CounterVec
	TrialCheckFailures   prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		TokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validations_total",
			Help:      "Bearer token validations by result.",
		}, []string{"result"}),
		TenantResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_resolutions_total",
			Help:      "Tenant resolutions by winning source.",
		}, []string{"source"}),
		SubscriptionDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_decisions_total",
			Help:      "Subscription guard decisions by check and outcome.",
		}, []string{"check", "outcome"}),
		TrialCheckFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_check_failures_total",
			Help:      "Trial checks that failed and let the request through.",
		}),
	}

	reg.MustRegister(
		m.TokenValidations,
		m.TenantResolutions,
		m.SubscriptionDecision,
		m.TrialCheckFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveToken records a token validation result ("valid" or a failure reason).
func (m *Metrics) ObserveToken(result string) {
	if m == nil {
		return
	}
	m.TokenValidations.WithLabelValues(result).Inc()
}

// ObserveResolution records which source produced the tenant.
func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.TenantResolutions.WithLabelValues(source).Inc()
}

// ObserveDecision records a subscription guard decision.
func (m *Metrics) ObserveDecision(check, outcome string) {
	if m == nil {
		return
	}
	m.SubscriptionDecision.WithLabelValues(check, outcome).Inc()
}

// ObserveTrialFailure records a trial check that failed open.
func (m *Metrics) ObserveTrialFailure() {
	if m == nil {
		return
	}
	m.TrialCheckFailures.Inc()
}
