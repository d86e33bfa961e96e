package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farms_dashboard_query_duration_seconds",
		Help:    "Duration of each dashboard source query.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	queryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farms_dashboard_query_failures_total",
		Help: "Dashboard source queries that degraded to their default.",
	}, []string{"source"})

	snapshotsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farms_dashboard_snapshots_total",
		Help: "Dashboard snapshots computed, by completeness.",
	}, []string{"result"})
)
