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
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
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

var (
	HarvestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_runs_total",
			Help: "Harvest runs by outcome",
		},
		[]string{"source", "status"},
	)

	HarvestRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_run_duration_seconds",
			Help:    "Wall time of a harvest run",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 14400},
		},
		[]string{"source"},
	)

	HarvestRecordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_emitted_total",
			Help: "Records handed to the sink",
		},
		[]string{"source"},
	)

	HarvestRecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_rejected_total",
			Help: "Records dropped by schema validation",
		},
		[]string{"source"},
	)

	HarvestDataflows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_dataflows_total",
			Help: "Dataflows processed, by result (expanded, skipped)",
		},
		[]string{"source", "result"},
	)
)
