// Package metrics exposes Prometheus instrumentation for playback health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlaybackErrors counts recorded playback errors by classified type.
	PlaybackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_playback_errors_total",
		Help: "Total playback errors recorded, by classified type",
	}, []string{"type"})

	// StallsDetected counts silent stalls caught by the position sampler.
	StallsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "haven_playback_stalls_detected_total",
		Help: "Silent stalls detected by the periodic position sampler",
	})

	// RecoveryAttempts counts started recovery sequences.
	RecoveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "haven_playback_recovery_attempts_total",
		Help: "Recovery sequences started",
	})

	// RecoveryOutcomes counts finished recovery sequences by result.
	RecoveryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_playback_recovery_outcomes_total",
		Help: "Recovery sequences finished, by outcome",
	}, []string{"outcome"})
)

// IncPlaybackError records a playback error of the given type.
func IncPlaybackError(errType string) {
	PlaybackErrors.WithLabelValues(errType).Inc()
}

// IncStallDetected records a silently detected stall.
func IncStallDetected() {
	StallsDetected.Inc()
}

// IncRecoveryAttempt records a started recovery sequence.
func IncRecoveryAttempt() {
	RecoveryAttempts.Inc()
}

// IncRecoveryOutcome records a finished recovery sequence.
// outcome is "success" or "failure".
func IncRecoveryOutcome(outcome string) {
	RecoveryOutcomes.WithLabelValues(outcome).Inc()
}
