// Package metrics exposes the application-level prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics holds the domain counters. A nil *Metrics is usable: every method
// no-ops, so services can take it as an optional dependency.
type Metrics struct {
	reservations   *prometheus.CounterVec
	quotaExhausted *prometheus.CounterVec
	awards         *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaurocks_usage_units_reserved_total",
			Help: "Usage units successfully reserved, by meter.",
		}, []string{"meter"}),
		quotaExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaurocks_usage_quota_exhausted_total",
			Help: "Reservations rejected because the hard limit was reached, by meter.",
		}, []string{"meter"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaurocks_awards_total",
			Help: "Award ledger outcomes by result (applied, duplicate).",
		}, []string{"result"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beaurocks_payment_webhooks_total",
			Help: "Payment webhook deliveries by outcome (accepted, rejected, duplicate).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.reservations, m.quotaExhausted, m.awards, m.webhooks)
	return m
}

func (m *Metrics) CountReservation(meter string, units int64) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(meter).Add(float64(units))
}

func (m *Metrics) CountQuotaExhausted(meter string) {
	if m == nil {
		return
	}
	m.quotaExhausted.WithLabelValues(meter).Inc()
}

func (m *Metrics) CountAward(result string) {
	if m == nil {
		return
	}
	m.awards.WithLabelValues(result).Inc()
}

func (m *Metrics) CountWebhook(outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(outcome).Inc()
}

func provide() (*Metrics, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return New(reg), reg
}

// Module provides the prometheus registry and instruments.
var Module = fx.Module("metrics",
	fx.Provide(provide),
)
