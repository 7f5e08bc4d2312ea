package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receptionist_turns_resolved_total",
			Help: "Total number of turns resolved, by response provenance",
		},
		[]string{"provenance"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "receptionist_turn_duration_seconds",
			Help: "Duration of turn resolution in seconds",
		},
		[]string{"provenance"},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receptionist_intents_classified_total",
			Help: "Total number of intent classifications, by intent and tier",
		},
		[]string{"intent", "tier"},
	)

	GenerationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receptionist_generation_calls_total",
			Help: "Total number of generation collaborator calls, by outcome",
		},
		[]string{"outcome"},
	)

	ResponseCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receptionist_response_cache_lookups_total",
			Help: "Generation response cache lookups, by result",
		},
		[]string{"result"},
	)

	TicketsFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "receptionist_tickets_finalized_total",
			Help: "Total number of kitchen tickets finalized",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "receptionist_active_sessions",
			Help: "Number of conversation sessions currently held in the ledger",
		},
	)
)
