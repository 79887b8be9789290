package pager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the paging cache.
var (
	residentItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itempager_resident_items",
		Help: "Number of items currently holding a payload",
	})

	residentPages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itempager_resident_pages",
		Help: "Number of fully loaded pages",
	})

	pagesLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itempager_pages_loaded_total",
		Help: "Total number of pages that became resident",
	})

	pagesEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itempager_pages_evicted_total",
		Help: "Total number of pages unloaded",
	})

	positionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itempager_position_requests_total",
		Help: "Total SetPosition calls by outcome",
	}, []string{"outcome"}) // "started", "coalesced"

	staleCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itempager_stale_completions_total",
		Help: "Total fetch completions discarded because the item was no longer loading",
	})

	updateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itempager_update_duration_seconds",
		Help:    "Duration of one position update in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
)
