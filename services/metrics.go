package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_appeal_transitions_total",
		Help: "Committed request status transitions by target status and action type.",
	}, []string{"status", "action"})

	transitionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfer_appeal_transition_conflicts_total",
		Help: "Status transitions rejected because the record changed concurrently.",
	})

	importedSpecsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_appeal_imported_specs_total",
		Help: "Rows processed by the bulk personnel import, by outcome.",
	}, []string{"outcome"})
)
