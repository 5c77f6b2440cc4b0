// Package metrics holds the Prometheus collectors GameLog exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeIssued   = "issued"
)

// Metrics groups the application counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	authEvents      *prometheus.CounterVec
	lifecycleTokens *prometheus.CounterVec
	mailSends       *prometheus.CounterVec
}

// New registers the GameLog collectors plus the Go and process collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		authEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamelog_auth_events_total",
			Help: "Authentication events by kind and outcome.",
		}, []string{"event", "outcome"}),
		lifecycleTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamelog_lifecycle_tokens_total",
			Help: "Verification and reset token issuance and consumption.",
		}, []string{"kind", "outcome"}),
		mailSends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamelog_mail_send_total",
			Help: "Outbound mail attempts by template and outcome.",
		}, []string{"template", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AuthEvent counts a signup, login, logout, or deletion attempt.
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// LifecycleToken counts a verification or reset token operation.
func (m *Metrics) LifecycleToken(kind, outcome string) {
	if m == nil {
		return
	}
	m.lifecycleTokens.WithLabelValues(kind, outcome).Inc()
}

// MailSent counts one delivery attempt for template.
func (m *Metrics) MailSent(template string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.mailSends.WithLabelValues(template, outcome).Inc()
}
