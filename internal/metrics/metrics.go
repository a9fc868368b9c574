// Package metrics exposes Prometheus counters for the reminder engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitalia_reminders_emitted_total",
		Help: "Reminder events emitted by the evaluator, per schedule domain.",
	}, []string{"domain"})

	RemindersDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitalia_reminders_dropped_total",
		Help: "Reminder events dropped because a call session was already active.",
	}, []string{"domain"})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitalia_call_sessions_started_total",
		Help: "Call sessions started.",
	})

	SessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitalia_call_sessions_ended_total",
		Help: "Call sessions ended, by cause (narration, hangup).",
	}, []string{"cause"})

	ReadingsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitalia_readings_classified_total",
		Help: "Vital-sign readings classified, by reading type and tier.",
	}, []string{"type", "tier"})

	LedgerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitalia_ledger_failures_total",
		Help: "Dedup ledger operations that failed and were treated as not fired.",
	})
)
