package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and embedders never collide
// with the global one.
type Metrics struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	ticks           prometheus.Counter
	effects         *prometheus.CounterVec
	completions     *prometheus.CounterVec
	cancellations   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	classifications *prometheus.CounterVec
}

// NewMetrics registers the collectors. Process and Go runtime collectors
// are included when withRuntime is true.
func NewMetrics(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awaken_phase_transitions_total",
			Help: "Phase entries by stage and phase.",
		}, []string{"stage", "phase"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "awaken_ritual_ticks_total",
			Help: "Countdown ticks fired.",
		}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awaken_reveal_marks_total",
			Help: "Reveal timeline marks reached, by mark.",
		}, []string{"mark"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awaken_completions_total",
			Help: "Completion signals by stage.",
		}, []string{"stage"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awaken_cancellations_total",
			Help: "Sessions torn down before completing, by stage.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "awaken_stage_duration_seconds",
			Help:    "Logical time from begin to completion, by stage.",
			Buckets: []float64{1, 2, 5, 10, 12, 15, 30},
		}, []string{"stage"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awaken_classifications_total",
			Help: "Classification results by archetype and whether the fallback was used.",
		}, []string{"archetype", "fallback"}),
	}

	m.registry.MustRegister(
		m.transitions, m.ticks, m.effects, m.completions,
		m.cancellations, m.stageDuration, m.classifications,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry exposes the registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveClassification counts one classification result.
func (m *Metrics) ObserveClassification(r classify.Result) {
	m.classifications.WithLabelValues(string(r.Archetype), strconv.FormatBool(r.Fallback)).Inc()
}

// Hooks records lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseEnter: func(_ context.Context, e *domain.PhaseEvent) {
			m.transitions.WithLabelValues(string(e.Stage), e.Phase).Inc()
		},
		OnTick: func(context.Context, *domain.PhaseEvent) {
			m.ticks.Inc()
		},
		OnEffect: func(_ context.Context, e *domain.PhaseEvent) {
			m.effects.WithLabelValues(e.Effect).Inc()
		},
		OnComplete: func(_ context.Context, e *domain.PhaseEvent) {
			m.completions.WithLabelValues(string(e.Stage)).Inc()
			m.stageDuration.WithLabelValues(string(e.Stage)).Observe(e.Offset.Seconds())
		},
		OnCancel: func(_ context.Context, e *domain.PhaseEvent) {
			m.cancellations.WithLabelValues(string(e.Stage)).Inc()
		},
	}
}
