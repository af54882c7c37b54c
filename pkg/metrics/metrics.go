package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvitationTransitions counts invitation lifecycle events by transition
	// (create|accept|decline|revoke|resend|expire|destroy).
	InvitationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsapi_invitation_transitions_total",
			Help: "Total number of invitation state transitions",
		},
		[]string{"transition"},
	)

	// InvitationSweepExpired counts invitations moved to expired by the maintenance sweep.
	InvitationSweepExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsapi_invitation_sweep_expired_total",
			Help: "Total number of pending invitations expired by the periodic sweep",
		},
	)

	// TokenCollisions counts token candidates rejected because they already exist.
	TokenCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsapi_invitation_token_collisions_total",
			Help: "Total number of generated invitation tokens that collided with a stored token",
		},
	)

	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsapi_maintenance_runs_total",
			Help: "Total number of maintenance job executions",
		},
		[]string{"job", "result"},
	)

	MaintenanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsapi_maintenance_duration_seconds",
			Help:    "Duration of maintenance job executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	MaintenanceLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opsapi_maintenance_last_success_timestamp",
			Help: "Timestamp of the last successful maintenance run (seconds since epoch)",
		},
		[]string{"job"},
	)
)

// RecordMaintenanceRun records the completion of a maintenance job. Result is one of
// success, failure, or skipped.
func RecordMaintenanceRun(job, result string, duration time.Duration) {
	job = normalizeLabel(job)
	result = normalizeLabel(result)

	MaintenanceRuns.WithLabelValues(job, result).Inc()
	if result == "skipped" {
		return
	}
	if duration < 0 {
		duration = 0
	}
	MaintenanceDuration.WithLabelValues(job).Observe(duration.Seconds())
	if result == "success" {
		MaintenanceLastSuccess.WithLabelValues(job).Set(float64(time.Now().Unix()))
	}
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
