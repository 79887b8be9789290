package pager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/itempager/pkg/fetch"
	"github.com/Sternrassler/itempager/pkg/item"
	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/Sternrassler/itempager/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by SetPosition once the cache is closed.
var ErrClosed = errors.New("paging cache closed")

// Option configures a Cache.
type Option func(*Cache)

// WithPolicy replaces the default PreloadingPolicy.
func WithPolicy(policy Policy) Option {
	return func(c *Cache) { c.policy = policy }
}

// WithLogger sets the cache logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// Cache keeps a window of pages around a caller-driven position loaded.
//
// Position changes are coalesced: a single pending slot holds the latest
// requested position and one update loop at a time works it off. The loop
// is the only writer of item state. It holds mu except while awaiting
// fetches, so readers never observe a half-applied batch.
type Cache struct {
	mu         sync.Mutex
	items      []*item.Item
	pagination *pagination.Pagination
	policy     Policy
	batcher    *fetch.Batcher
	settings   Settings
	logger     zerolog.Logger

	resident    map[int]bool // fully loaded pages
	partial     map[int]bool // pages with some items in use but not resident
	loadedItems int

	position    int
	hasPosition bool
	pending     int
	hasPending  bool

	pendingPagination *pagination.Pagination

	busy bool
	idle chan struct{} // closed when the running loop exits

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New creates a cache over items paginated by p, loading through fetcher.
// If items is nil, a fresh Unloaded item per index is created. Items that
// already hold values are audited like a pagination change: fully loaded
// pages become resident, partially loaded pages are unloaded.
func New(settings Settings, items []*item.Item, p *pagination.Pagination, fetcher fetch.Fetcher, opts ...Option) (*Cache, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("pagination is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if items == nil {
		items = item.NewItems(p.ItemCount())
	}
	if len(items) != p.ItemCount() {
		return nil, fmt.Errorf("%w: %d items, pagination covers %d",
			pagination.ErrItemCountMismatch, len(items), p.ItemCount())
	}
	for i, it := range items {
		if it == nil || it.Index != i {
			return nil, fmt.Errorf("item %d is missing or has index mismatch", i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		items:      items,
		pagination: p,
		policy:     NewPreloadingPolicy(settings),
		batcher: fetch.NewBatcher(fetcher, fetch.Config{
			MaxBatchSize:   settings.MaxBatchSize,
			MaxConcurrency: settings.MaxConcurrentBatches,
		}),
		settings: settings,
		logger:   logging.NewLogger(logging.ComponentPager),
		resident: make(map[int]bool),
		partial:  make(map[int]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	for _, it := range items {
		if it.Payload.Status() == item.Loaded {
			c.loadedItems++
		}
	}
	c.auditLocked(nil)
	c.mu.Unlock()

	return c, nil
}

// SetPosition moves the cache to page pos and waits until the update loop
// has settled at pos or at a later position that superseded it.
//
// ctx bounds only the wait; the update itself keeps running. Fetch failures
// are absorbed into item state and never returned. An out-of-range pos
// panics; on an empty cache the call does nothing.
func (c *Cache) SetPosition(ctx context.Context, pos int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	numPages := c.currentPaginationLocked().NumPages()
	if numPages == 0 {
		c.mu.Unlock()
		return nil
	}
	if pos < 0 || pos >= numPages {
		c.mu.Unlock()
		panic(fmt.Sprintf("pager: position %d out of range [0, %d)", pos, numPages))
	}

	c.pending = pos
	c.hasPending = true

	idle := c.idle
	if c.busy {
		positionRequestsTotal.WithLabelValues("coalesced").Inc()
	} else {
		positionRequestsTotal.WithLabelValues("started").Inc()
		c.busy = true
		idle = make(chan struct{})
		c.idle = idle
		go c.run(idle)
	}
	c.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Position returns the stabilized position. ok is false if no position
// has settled yet, or if the pagination changed since.
func (c *Cache) Position() (pos int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, c.hasPosition
}

// Pagination returns the current pagination, including one that was
// assigned while an update was running and is not applied yet.
func (c *Cache) Pagination() *pagination.Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPaginationLocked()
}

// SetPagination replaces the pagination. On an idle cache resident pages
// are re-audited immediately; otherwise the running loop applies the new
// pagination before its next plan. A pagination covering a different
// number of items panics.
func (c *Cache) SetPagination(p *pagination.Pagination) {
	if p == nil {
		panic("pager: pagination cannot be nil")
	}
	if p.ItemCount() != len(c.items) {
		panic(fmt.Sprintf("pager: %v: pagination covers %d items, cache holds %d",
			pagination.ErrItemCountMismatch, p.ItemCount(), len(c.items)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.busy {
		c.pendingPagination = p
		return
	}
	c.applyPaginationLocked(p)
}

// ResidentPages returns the fully loaded pages in ascending order.
func (c *Cache) ResidentPages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.residentLocked()
}

// ResidentItems returns the number of items holding a payload.
func (c *Cache) ResidentItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedItems
}

// ItemCount returns the size of the collection.
func (c *Cache) ItemCount() int {
	return len(c.items)
}

// ItemStatus returns the payload status of the item at index.
func (c *Cache) ItemStatus(index int) item.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemLocked(index).Payload.Status()
}

// Payload returns the payload of the item at index if it is loaded.
func (c *Cache) Payload(index int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.itemLocked(index)
	return it.Payload.Value(), it.Payload.Status() == item.Loaded
}

// Metadata returns the metadata of the item at index if it is loaded.
func (c *Cache) Metadata(index int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.itemLocked(index)
	return it.Metadata.Value(), it.Metadata.Status() == item.Loaded
}

// Close unloads every item and stops the update loop. Fetches still in
// flight complete against unloaded items and are discarded.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	c.hasPending = false
	c.pendingPagination = nil

	var release []int
	for _, it := range c.items {
		if c.unloadItemLocked(it) {
			release = append(release, it.Index)
		}
	}
	c.batcher.Release(release)
	c.resident = make(map[int]bool)
	c.partial = make(map[int]bool)
	c.hasPosition = false
	c.updateGaugesLocked()

	c.logger.Info().Int("released_items", len(release)).Msg("Paging cache closed")
	return nil
}

// run is the update loop. It exits once the pending slot is empty,
// checking and clearing busy under the same lock so no request is lost.
func (c *Cache) run(idle chan struct{}) {
	logger := c.logger.With().Str("run_id", uuid.NewString()).Logger()

	c.mu.Lock()
	defer func() {
		c.busy = false
		c.idle = nil
		c.mu.Unlock()
		close(idle)
	}()

	for !c.closed {
		if p := c.pendingPagination; p != nil {
			c.pendingPagination = nil
			c.applyPaginationLocked(p)
		}
		if !c.hasPending {
			return
		}

		pos := c.pending
		c.hasPending = false
		if c.hasPosition && pos == c.position {
			continue
		}
		c.updateLocked(logger, pos)
	}
}

// updateLocked plans and executes the move to pos. mu is released while
// page batches are in flight.
func (c *Cache) updateLocked(logger zerolog.Logger, pos int) {
	start := time.Now()
	defer func() {
		updateDuration.Observe(time.Since(start).Seconds())
	}()

	// Partial pages are completed if still required, otherwise dropped
	// before planning so they do not count against the budget.
	required := make(map[int]bool)
	for _, page := range c.policy.RequiredPages(c.pagination, pos) {
		required[page] = true
	}
	for _, page := range sortedKeys(c.partial) {
		if !required[page] {
			c.unloadPageLocked(page)
		}
	}

	plan := c.policy.ComputeUpdatePlan(c.stateLocked(), pos)

	logger.Debug().
		Int("position", pos).
		Ints("unload", plan.Unload).
		Ints("load", plan.Load).
		Int("loaded_items", c.loadedItems).
		Msg("Update planned")

	for _, page := range plan.Unload {
		c.unloadPageLocked(page)
	}
	c.updateGaugesLocked()

	for _, page := range plan.Load {
		if c.closed {
			return
		}
		c.loadPageLocked(logger, page)
	}
	if c.closed {
		return
	}

	c.position = pos
	c.hasPosition = true

	logger.Info().
		Int("position", pos).
		Ints("resident_pages", c.residentLocked()).
		Int("loaded_items", c.loadedItems).
		Dur("duration", time.Since(start)).
		Msg("Position settled")
}

// loadPageLocked requests every unloaded slot of page, awaits all batches
// with mu released, and applies the results.
func (c *Cache) loadPageLocked(logger zerolog.Logger, page int) {
	start, end := c.pagination.ItemRange(page)
	withMetadata := c.settings.LoadMetadata

	var payloads, metadata []int
	for i := start; i < end; i++ {
		it := c.items[i]
		if it.Payload.Status() == item.Unloaded {
			it.Payload.RequestLoad()
			payloads = append(payloads, i)
		}
		if withMetadata && it.Metadata.Status() == item.Unloaded {
			it.Metadata.RequestLoad()
			metadata = append(metadata, i)
		}
	}

	var payloadResults, metadataResults []fetch.BatchResult
	if len(payloads) > 0 || len(metadata) > 0 {
		ctx := c.ctx
		c.mu.Unlock()
		var g errgroup.Group
		g.Go(func() error {
			payloadResults = c.batcher.Fetch(ctx, fetch.KindPayload, payloads)
			return nil
		})
		g.Go(func() error {
			metadataResults = c.batcher.Fetch(ctx, fetch.KindMetadata, metadata)
			return nil
		})
		_ = g.Wait()
		c.mu.Lock()
	}

	c.applyResultsLocked(logger, page, payloadResults)
	c.applyResultsLocked(logger, page, metadataResults)

	complete := true
	touched := false
	for i := start; i < end; i++ {
		it := c.items[i]
		if !it.Loaded(withMetadata) {
			complete = false
		}
		if it.Touched() {
			touched = true
		}
	}
	switch {
	case complete && !c.closed:
		c.resident[page] = true
		delete(c.partial, page)
		pagesLoadedTotal.Inc()
	case touched:
		c.partial[page] = true
	default:
		delete(c.partial, page)
	}
	c.updateGaugesLocked()
}

// applyResultsLocked installs batch results into item slots. Results for
// slots no longer Loading are stale and discarded.
func (c *Cache) applyResultsLocked(logger zerolog.Logger, page int, results []fetch.BatchResult) {
	for _, res := range results {
		if res.Err != nil {
			for _, index := range res.Indices {
				c.slotLocked(res.Kind, index).OnFetchFailure()
			}
			if !c.closed {
				logger.Warn().
					Err(res.Err).
					Str("kind", string(res.Kind)).
					Int("page", page).
					Int("batch_size", len(res.Indices)).
					Msg("Batch fetch failed, items reverted to unloaded")
			}
			continue
		}

		stale := 0
		for _, index := range res.Indices {
			if !c.slotLocked(res.Kind, index).OnFetchSuccess(res.Values[index]) {
				stale++
				continue
			}
			if res.Kind == fetch.KindPayload {
				c.loadedItems++
			}
		}
		if stale > 0 {
			staleCompletionsTotal.Add(float64(stale))
			logger.Debug().
				Str("kind", string(res.Kind)).
				Int("page", page).
				Int("stale", stale).
				Msg("Discarded stale completions")
		}
	}
}

// unloadPageLocked unloads every item of page and releases held values.
func (c *Cache) unloadPageLocked(page int) {
	start, end := c.pagination.ItemRange(page)
	var release []int
	for i := start; i < end; i++ {
		if c.unloadItemLocked(c.items[i]) {
			release = append(release, i)
		}
	}
	c.batcher.Release(release)
	delete(c.resident, page)
	delete(c.partial, page)
	pagesEvictedTotal.Inc()
}

// unloadItemLocked unloads both slots of it and reports whether it held a value.
func (c *Cache) unloadItemLocked(it *item.Item) bool {
	if it.Payload.Status() == item.Loaded {
		c.loadedItems--
	}
	heldPayload := it.Payload.RequestUnload()
	heldMetadata := it.Metadata.RequestUnload()
	return heldPayload || heldMetadata
}

// applyPaginationLocked swaps the pagination and re-audits every page.
func (c *Cache) applyPaginationLocked(p *pagination.Pagination) {
	if p.Equal(c.pagination) {
		return
	}
	c.pagination = p
	numPages := p.NumPages()

	if c.hasPending {
		if numPages == 0 {
			c.hasPending = false
		} else if c.pending >= numPages {
			c.logger.Debug().
				Int("pending", c.pending).
				Int("num_pages", numPages).
				Msg("Pending position clamped to new pagination")
			c.pending = numPages - 1
		}
	}

	var required []int
	switch {
	case numPages == 0:
	case c.hasPending:
		required = c.policy.RequiredPages(p, c.pending)
	case c.hasPosition:
		required = c.policy.RequiredPages(p, min(c.position, numPages-1))
	}
	c.hasPosition = false

	c.auditLocked(required)

	c.logger.Info().
		Int("num_pages", numPages).
		Ints("resident_pages", c.residentLocked()).
		Ints("partial_pages", sortedKeys(c.partial)).
		Msg("Pagination changed")
}

// auditLocked rebuilds the resident and partial page sets from item state.
// Partially loaded pages are kept for completion if listed in required,
// otherwise unloaded.
func (c *Cache) auditLocked(required []int) {
	keep := make(map[int]bool, len(required))
	for _, page := range required {
		keep[page] = true
	}

	withMetadata := c.settings.LoadMetadata
	c.resident = make(map[int]bool)
	c.partial = make(map[int]bool)
	for page := 0; page < c.pagination.NumPages(); page++ {
		start, end := c.pagination.ItemRange(page)
		complete, touched := true, false
		for i := start; i < end; i++ {
			if !c.items[i].Loaded(withMetadata) {
				complete = false
			}
			if c.items[i].Touched() {
				touched = true
			}
		}
		switch {
		case complete:
			c.resident[page] = true
		case touched && keep[page]:
			c.partial[page] = true
		case touched:
			c.unloadPageLocked(page)
		}
	}
	c.updateGaugesLocked()
}

func (c *Cache) stateLocked() State {
	return State{
		Pagination:  c.pagination,
		Resident:    c.residentLocked(),
		LoadedItems: c.loadedItems,
	}
}

func (c *Cache) residentLocked() []int {
	return sortedKeys(c.resident)
}

func (c *Cache) currentPaginationLocked() *pagination.Pagination {
	if c.pendingPagination != nil {
		return c.pendingPagination
	}
	return c.pagination
}

func (c *Cache) itemLocked(index int) *item.Item {
	if index < 0 || index >= len(c.items) {
		panic(fmt.Sprintf("pager: item index %d out of range [0, %d)", index, len(c.items)))
	}
	return c.items[index]
}

func (c *Cache) slotLocked(kind fetch.Kind, index int) *item.Slot {
	if kind == fetch.KindMetadata {
		return &c.items[index].Metadata
	}
	return &c.items[index].Payload
}

func (c *Cache) updateGaugesLocked() {
	residentItems.Set(float64(c.loadedItems))
	residentPages.Set(float64(len(c.resident)))
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
