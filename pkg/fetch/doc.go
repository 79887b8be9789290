// Package fetch defines the batched fetch contract of the paging cache and
// its implementations.
//
// A Fetcher loads item payloads and metadata in batches and releases them
// again. Batches are all-or-nothing: one failure fails every item in the
// batch. Nothing in this package retries; a failed batch is reported and the
// caller decides whether to ask again later.
//
// Implementations:
//
//   - HTTPFetcher talks to a remote item source (POST /v1/items/payloads and
//     /v1/items/metadata with {"indices": [...]}), paced by a token bucket.
//   - CachingFetcher reads through a shared store.Store (Redis) and only
//     sends misses to the wrapped fetcher.
//
// Batcher splits an item list into batches of at most MaxBatchSize items and
// issues them concurrently, joining all results before it returns:
//
//	batcher := fetch.NewBatcher(fetcher, fetch.DefaultConfig())
//	for _, res := range batcher.Fetch(ctx, fetch.KindPayload, indices) {
//		if res.Err != nil {
//			// every item in res.Indices failed
//		}
//	}
package fetch
