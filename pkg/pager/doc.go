// Package pager keeps the pages around a caller-driven position of a large
// item collection loaded, within a memory budget.
//
// A Cache owns one item slot per collection index and a Policy deciding which
// pages to load and which to evict. Callers move the position with
// SetPosition; rapid moves coalesce so only the latest position is worked
// off, and each move loads its pages in priority order: the page at the
// position, then the following pages, then the preceding ones.
//
// Basic Usage:
//
//	cache, err := pager.New(pager.DefaultSettings(), nil, pagination.Uniform(n, 50), fetcher)
//	if err != nil {
//		return err
//	}
//	defer cache.Close()
//
//	if err := cache.SetPosition(ctx, 3); err != nil {
//		return err // ctx done or cache closed; fetch failures never surface here
//	}
//	payload, ok := cache.Payload(170)
//
// Eviction:
//
// PreloadingPolicy keeps NumPrecedingPreloadedPages before and
// NumFollowingPreloadedPages after the position. When the loaded items plus
// the pages about to load exceed MaxItems, resident pages outside that window
// are evicted farthest first. Pages inside the window are never evicted, so
// a window larger than the budget exceeds it.
//
// Failures:
//
// A failed batch reverts its items to Unloaded and leaves the page partially
// loaded. Nothing is retried; moving away drops the partial page and moving
// back loads the missing items again.
package pager
