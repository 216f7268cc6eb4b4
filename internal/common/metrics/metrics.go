// internal/common/metrics/metrics.go
package metrics

import (
	"time"

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

	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_tool_invocations_total",
			Help: "Pipeline tool invocations by tool and outcome",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meme_tool_duration_seconds",
			Help:    "Pipeline tool latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	DispatchBranches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_dispatch_branch_total",
			Help: "Dispatches by generation branch",
		},
		[]string{"branch"},
	)

	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_upstream_failures_total",
			Help: "Failed collaborator calls by pipeline step",
		},
		[]string{"step"},
	)

	GuardrailRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_guardrail_rejections_total",
			Help: "Requests refused by the content policy",
		},
		[]string{"category"},
	)

	LineCountMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meme_line_count_mismatch_total",
			Help: "Template dispatches whose text had to be fitted to the template",
		},
	)
)

// Tool statuses.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// ObserveTool records one pipeline tool invocation.
func ObserveTool(tool, status string, d time.Duration) {
	ToolInvocations.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}
