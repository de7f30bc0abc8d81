package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockfetch_fetch_attempts_total",
		Help: "Total number of fetch attempts by outcome",
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockfetch_fetch_retries_total",
		Help: "Total number of retries scheduled after a failed attempt",
	})

	backoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockfetch_fetch_backoff_seconds",
		Help:    "Backoff duration between fetch attempts",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 7.5, 10, 30},
	})

	exhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockfetch_fetch_retry_exhausted_total",
		Help: "Total number of items that exhausted every attempt",
	})
)
