package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stl311_sync_runs_total",
		Help: "Sync runs by terminal state.",
	}, []string{"state"})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stl311_sync_pages_fetched_total",
		Help: "Upstream pages fetched and committed to the store.",
	})

	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stl311_sync_records_total",
		Help: "Validated records by outcome.",
	}, []string{"outcome"})

	UpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stl311_sync_upserts_total",
		Help: "Store writes by result.",
	}, []string{"result"})

	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stl311_sync_retries_total",
		Help: "Transient page failures that entered a retry wait.",
	})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stl311_publish_failures_total",
		Help: "Layer refresh attempts that failed after a completed upsert.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stl311_sync_run_duration_seconds",
		Help:    "Wall time of a sync run.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)
