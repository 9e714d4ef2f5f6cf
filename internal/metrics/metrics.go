// Package metrics provides Prometheus instrumentation for the dialogue
// engine and its collaborators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_turns_total",
			Help: "Total number of processed dialogue turns",
		},
		[]string{"intent"},
	)

	turnDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"intent"},
	)

	collaboratorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_collaborator_calls_total",
			Help: "Total number of outbound collaborator calls",
		},
		[]string{"action", "status"}, // status: success, auth, quota, timeout, validation, generic
	)

	loopBreakerTripsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_loop_breaker_trips_total",
			Help: "Total number of forced meeting-flow resets",
		},
	)
)

// ObserveTurn records one completed turn.
func ObserveTurn(intent string, seconds float64) {
	turnsTotal.WithLabelValues(intent).Inc()
	turnDurationSeconds.WithLabelValues(intent).Observe(seconds)
}

// RecordCollaboratorCall records one outbound bridge or completion call.
func RecordCollaboratorCall(action, status string) {
	collaboratorCallsTotal.WithLabelValues(action, status).Inc()
}

// RecordLoopBreakerTrip records one forced reset of the meeting flow.
func RecordLoopBreakerTrip() {
	loopBreakerTripsTotal.Inc()
}
