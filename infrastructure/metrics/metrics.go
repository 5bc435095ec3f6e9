// Package metrics exposes Prometheus instrumentation for the swing
// detector and reference layer, mounted by presentation/http at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LegsCreatedTotal counts legs seeded into the active set, by direction.
	LegsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingref_legs_created_total",
		Help: "Total legs seeded into the active set.",
	}, []string{"direction"})

	// LegsPrunedTotal counts legs leaving the active set, by prune reason.
	LegsPrunedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingref_legs_pruned_total",
		Help: "Total legs removed from the active set.",
	}, []string{"reason"})

	// LevelCrossingsTotal counts fib-level crossings detected for tracked legs.
	LevelCrossingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingref_level_crossings_total",
		Help: "Total fib level crossings detected for tracked legs.",
	}, []string{"direction"})

	// AdvanceDuration observes wall time spent in one Session.Advance call.
	AdvanceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swingref_advance_duration_seconds",
		Help:    "Time spent advancing a session by one batch of bars.",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveLegsGauge tracks the current active-leg count per session, set
	// after each Advance call.
	ActiveLegsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swingref_active_legs",
		Help: "Current active leg count for a session.",
	}, []string{"handle"})
)
