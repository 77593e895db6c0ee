package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors fed by agent lifecycle hooks.
type Metrics struct {
	registry *prometheus.Registry

	ticks      *prometheus.CounterVec
	tickCost   *prometheus.HistogramVec
	tickErrors *prometheus.CounterVec
	goalEnters *prometheus.CounterVec
	goalCloses *prometheus.CounterVec
	exhausted  *prometheus.CounterVec
	verdicts   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "ticks_total",
			Help:      "Total number of agent ticks",
		}, []string{"agent"}),
		tickCost: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbor",
			Name:      "tick_cost",
			Help:      "Budget charged per tick",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"goal"}),
		tickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "tick_errors_total",
			Help:      "Ticks whose action or refresh failed",
		}, []string{"goal"}),
		goalEnters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "goal_enters_total",
			Help:      "Goals that became current",
		}, []string{"goal"}),
		goalCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "goal_closes_total",
			Help:      "Goal-tree nodes closed, by outcome",
		}, []string{"combinator", "status"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "budget_exhausted_total",
			Help:      "Nodes that failed because their budget ran out",
		}, []string{"goal"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "verdicts_total",
			Help:      "Test oracle verdicts",
		}, []string{"goal", "kind"}),
	}
	m.registry.MustRegister(m.ticks, m.tickCost, m.tickErrors, m.goalEnters, m.goalCloses, m.exhausted, m.verdicts)
	return m
}

// Registry exposes the registry, e.g. for promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGoalEnter: func(_ context.Context, e *domain.GoalEvent) {
			m.goalEnters.WithLabelValues(e.Name).Inc()
		},
		OnGoalClose: func(_ context.Context, e *domain.GoalEvent) {
			m.goalCloses.WithLabelValues(e.Combinator, string(e.Status)).Inc()
		},
		OnBudgetExhausted: func(_ context.Context, e *domain.GoalEvent) {
			m.exhausted.WithLabelValues(e.Name).Inc()
		},
		OnTick: func(_ context.Context, e *domain.TickEvent) {
			m.ticks.WithLabelValues(e.AgentID).Inc()
			m.tickCost.WithLabelValues(e.Goal).Observe(e.Cost)
			if e.IsError {
				m.tickErrors.WithLabelValues(e.Goal).Inc()
			}
		},
		OnVerdict: func(_ context.Context, e *domain.VerdictEvent) {
			m.verdicts.WithLabelValues(e.Goal, string(e.Verdict.Kind)).Inc()
		},
	}
}
