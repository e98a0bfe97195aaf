// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Domain counters
var (
	EligibilityEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_evaluations_total",
			Help: "Eligibility evaluations by resulting status",
		},
		[]string{"status"},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transitions_total",
			Help: "Committed application status transitions",
		},
		[]string{"from", "to"},
	)

	LifecycleCASConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "application_cas_conflicts_total",
			Help: "Optimistic version conflicts while updating applications",
		},
	)

	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_side_effect_failures_total",
			Help: "Audit or notification side effects that failed after a commit",
		},
		[]string{"effect"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Stored notifications by type",
		},
		[]string{"type"},
	)

	NotificationDedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_dedup_hits_total",
			Help: "Notifications suppressed by the dedup window",
		},
	)

	NotificationDeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_failures_total",
			Help: "Email or SMS deliveries that failed",
		},
		[]string{"channel"},
	)

	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		},
	)

	SchemeCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheme_cache_requests_total",
			Help: "Active-scheme cache lookups by result",
		},
		[]string{"result"},
	)
)
