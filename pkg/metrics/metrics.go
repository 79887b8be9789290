// Package metrics exposes the Prometheus registry shared by the item pager.
// All metrics are defined in their respective packages (pager, fetch, store)
// and registered via promauto, so this package only documents them and
// serves the registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every itempager metric is registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics handler for Gatherer, instrumented with the
// promhttp scrape metrics.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Paging Cache Metrics (pkg/pager):
//   - itempager_resident_items (Gauge): Items currently holding a payload
//   - itempager_resident_pages (Gauge): Fully loaded pages
//   - itempager_pages_loaded_total (Counter): Pages that became resident
//   - itempager_pages_evicted_total (Counter): Pages unloaded by a plan, a pagination change or a dropped partial page
//   - itempager_position_requests_total{outcome} (Counter): SetPosition calls that started a loop or were coalesced
//   - itempager_stale_completions_total (Counter): Fetch results discarded because the item was unloaded meanwhile
//   - itempager_update_duration_seconds (Histogram): Duration of one planned update
//
// Fetch Metrics (pkg/fetch):
//   - itempager_fetch_batches_total{kind, outcome} (Counter): Batches by kind (payload, metadata) and outcome
//   - itempager_fetch_batch_duration_seconds{kind} (Histogram): Batch duration by kind
//   - itempager_fetch_items_released_total (Counter): Items released through the fetcher
//   - itempager_source_requests_total{endpoint, status} (Counter): Requests to the remote source by endpoint and HTTP status
//
// Store Metrics (pkg/store):
//   - itempager_store_hits_total (Counter): Item values served from Redis
//   - itempager_store_misses_total (Counter): Item values missing from Redis
//   - itempager_store_errors_total{operation} (Counter): Redis operation errors
//
// Example Prometheus Queries:
//
//   # Store Hit Rate
//   sum(rate(itempager_store_hits_total[5m])) /
//   (sum(rate(itempager_store_hits_total[5m])) + sum(rate(itempager_store_misses_total[5m])))
//
//   # Coalesced Position Share
//   rate(itempager_position_requests_total{outcome="coalesced"}[5m]) /
//   rate(itempager_position_requests_total[5m])
//
//   # Failed Batch Rate
//   sum by (kind) (rate(itempager_fetch_batches_total{outcome="error"}[5m]))
//
//   # P95 Update Latency
//   histogram_quantile(0.95, rate(itempager_update_duration_seconds_bucket[5m]))
