package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bus consumption metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callflow_orchestrator_events_total",
			Help: "Total number of envelopes received per topic",
		},
		[]string{"topic"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callflow_orchestrator_events_dropped_total",
			Help: "Total number of envelopes dropped before workflow execution",
		},
		[]string{"reason"},
	)

	// Workflow outcome metrics
	LeadsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callflow_orchestrator_leads_created_total",
			Help: "Total number of new leads created from calls",
		},
	)

	NotesAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callflow_orchestrator_notes_added_total",
			Help: "Total number of call notes appended to existing leads",
		},
	)

	RecordingsAttachedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callflow_orchestrator_recordings_attached_total",
			Help: "Total number of call recordings attached to leads",
		},
	)

	WorkflowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callflow_orchestrator_workflow_errors_total",
			Help: "Total number of failed workflow steps",
		},
		[]string{"step"},
	)
)
