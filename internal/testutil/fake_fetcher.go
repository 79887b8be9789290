package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInjected is returned by FakeFetcher for batches containing a failing item.
var ErrInjected = errors.New("injected fetch failure")

// FetchCall records one batch call on a FakeFetcher.
type FetchCall struct {
	Kind    string
	Indices []int
}

// FakeFetcher is an in-memory fetch.Fetcher with failure injection and hooks.
// Item i has payload Payload(i) and metadata Metadata(i). It ignores context
// cancellation so completions after Close still arrive.
type FakeFetcher struct {
	mu       sync.Mutex
	calls    []FetchCall
	released []int
	failing  map[string]map[int]bool

	// BeforeFetch, when set, runs at the start of every batch call outside
	// the fetcher's lock. Tests use it to block or observe batches.
	BeforeFetch func(ctx context.Context, kind string, indices []int)
}

// NewFakeFetcher creates an empty fake fetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{failing: make(map[string]map[int]bool)}
}

// FailItems makes every payload or metadata batch containing one of indices fail.
func (f *FakeFetcher) FailItems(indices ...int) {
	f.FailItemsOfKind("payload", indices...)
	f.FailItemsOfKind("metadata", indices...)
}

// FailItemsOfKind makes every batch of kind containing one of indices fail.
func (f *FakeFetcher) FailItemsOfKind(kind string, indices ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[kind] == nil {
		f.failing[kind] = make(map[int]bool)
	}
	for _, index := range indices {
		f.failing[kind][index] = true
	}
}

// ClearFailures removes all injected failures.
func (f *FakeFetcher) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = make(map[string]map[int]bool)
}

// BatchFetchPayloads implements fetch.Fetcher.
func (f *FakeFetcher) BatchFetchPayloads(ctx context.Context, indices []int) (map[int][]byte, error) {
	return f.fetch(ctx, "payload", indices, Payload)
}

// BatchFetchMetadata implements fetch.Fetcher.
func (f *FakeFetcher) BatchFetchMetadata(ctx context.Context, indices []int) (map[int][]byte, error) {
	return f.fetch(ctx, "metadata", indices, Metadata)
}

// ReleaseItems implements fetch.Fetcher.
func (f *FakeFetcher) ReleaseItems(indices []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, indices...)
}

// Calls returns a copy of all recorded batch calls.
func (f *FakeFetcher) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]FetchCall, len(f.calls))
	for i, c := range f.calls {
		calls[i] = FetchCall{Kind: c.Kind, Indices: append([]int(nil), c.Indices...)}
	}
	return calls
}

// FetchedItems returns the sorted set of indices requested for kind.
func (f *FakeFetcher) FetchedItems(kind string) []int {
	seen := make(map[int]bool)
	for _, c := range f.Calls() {
		if c.Kind != kind {
			continue
		}
		for _, index := range c.Indices {
			seen[index] = true
		}
	}
	out := make([]int, 0, len(seen))
	for index := range seen {
		out = append(out, index)
	}
	sort.Ints(out)
	return out
}

// Released returns the sorted list of released indices.
func (f *FakeFetcher) Released() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.released...)
	sort.Ints(out)
	return out
}

// Reset clears recorded calls and releases.
func (f *FakeFetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.released = nil
}

func (f *FakeFetcher) fetch(ctx context.Context, kind string, indices []int, value func(int) []byte) (map[int][]byte, error) {
	if f.BeforeFetch != nil {
		f.BeforeFetch(ctx, kind, indices)
	}

	f.mu.Lock()
	f.calls = append(f.calls, FetchCall{Kind: kind, Indices: append([]int(nil), indices...)})
	fail := false
	for _, index := range indices {
		if f.failing[kind][index] {
			fail = true
			break
		}
	}
	f.mu.Unlock()

	if fail {
		return nil, ErrInjected
	}

	values := make(map[int][]byte, len(indices))
	for _, index := range indices {
		values[index] = value(index)
	}
	return values, nil
}
