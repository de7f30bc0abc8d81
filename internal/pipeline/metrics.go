package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfetch_pipeline_items_total",
			Help: "Symbols handled by the pipeline, by status",
		},
		[]string{"status"},
	)

	persistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockfetch_pipeline_persist_errors_total",
			Help: "Successful fetches whose progress entry could not be written",
		},
	)

	snapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfetch_pipeline_snapshots_total",
			Help: "Intermediate snapshots, by result",
		},
		[]string{"result"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockfetch_pipeline_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

const (
	statusSuccess     = "success"
	statusFailure     = "failure"
	statusAlreadyDone = "already_done"
	statusDuplicate   = "duplicate"
)
