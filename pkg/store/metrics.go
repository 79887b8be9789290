package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreHits counts item values served from the store
	StoreHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itempager_store_hits_total",
			Help: "Total number of item values served from the store",
		},
	)

	// StoreMisses counts item values not found in the store
	StoreMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itempager_store_misses_total",
			Help: "Total number of item values missing from the store",
		},
	)

	// StoreErrors tracks store operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itempager_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
