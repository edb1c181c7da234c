package infra

import (
	"context"
	"time"

	"notes-gateway/dispatch/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics expõe chamadas, backoffs e desfechos de item no Prometheus.
// Implementa domain.CallObserver e domain.StatsStore.
type Metrics struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	backoffs     *prometheus.CounterVec
	backoffSecs  *prometheus.CounterVec
	items        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_provider_calls_total",
				Help: "Provider invocations by outcome (ok or error kind).",
			},
			[]string{"provider", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notes_provider_call_duration_seconds",
				Help:    "Provider invocation latency.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"provider"},
		),
		backoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_provider_backoffs_total",
				Help: "Backoff sleeps after a rate-limit signal.",
			},
			[]string{"provider"},
		),
		backoffSecs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_provider_backoff_seconds_total",
				Help: "Time spent sleeping in backoff.",
			},
			[]string{"provider"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notes_items_total",
				Help: "Processed items by provider and result.",
			},
			[]string{"provider", "result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.callDuration, m.backoffs, m.backoffSecs, m.items)
	}
	return m
}

func (m *Metrics) ObserveCall(provider string, kind domain.ErrorKind, took time.Duration) {
	outcome := "ok"
	if kind != domain.KindNone {
		outcome = string(kind)
	}
	m.calls.WithLabelValues(provider, outcome).Inc()
	m.callDuration.WithLabelValues(provider).Observe(took.Seconds())
}

func (m *Metrics) ObserveBackoff(provider string, wait time.Duration) {
	m.backoffs.WithLabelValues(provider).Inc()
	m.backoffSecs.WithLabelValues(provider).Add(wait.Seconds())
}

// Record conta o desfecho do item. Itens sem provedor (fallback, skip) usam "none".
func (m *Metrics) Record(_ context.Context, ev domain.StatsEvent) error {
	provider := ev.Provider
	if provider == "" {
		provider = "none"
	}
	m.items.WithLabelValues(provider, outcomeField(ev)).Inc()
	return nil
}
