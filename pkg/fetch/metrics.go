package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itempager_fetch_batches_total",
		Help: "Total fetch batches by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome: "success", "error"

	fetchBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itempager_fetch_batch_duration_seconds",
		Help:    "Fetch batch duration in seconds by kind",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"kind"})

	itemsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itempager_fetch_items_released_total",
		Help: "Total number of items released through the fetcher",
	})

	sourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itempager_source_requests_total",
		Help: "Total requests to the remote item source by endpoint and status",
	}, []string{"endpoint", "status"})
)
