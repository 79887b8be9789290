package fetch

import (
	"context"

	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/Sternrassler/itempager/pkg/store"
	"github.com/rs/zerolog"
)

// CachingFetcher reads through a shared store before asking the inner fetcher.
type CachingFetcher struct {
	inner  Fetcher
	store  store.Store
	logger zerolog.Logger
}

// NewCachingFetcher wraps inner with a read-through store.
func NewCachingFetcher(inner Fetcher, s store.Store) *CachingFetcher {
	if inner == nil {
		panic("inner fetcher cannot be nil")
	}
	if s == nil {
		panic("store cannot be nil")
	}
	return &CachingFetcher{
		inner:  inner,
		store:  s,
		logger: logging.NewLogger(logging.ComponentCachingFetcher),
	}
}

// BatchFetchPayloads implements Fetcher.
func (f *CachingFetcher) BatchFetchPayloads(ctx context.Context, indices []int) (map[int][]byte, error) {
	return f.fetchThrough(ctx, KindPayload, indices)
}

// BatchFetchMetadata implements Fetcher.
func (f *CachingFetcher) BatchFetchMetadata(ctx context.Context, indices []int) (map[int][]byte, error) {
	return f.fetchThrough(ctx, KindMetadata, indices)
}

// ReleaseItems implements Fetcher. Stored copies are shared and stay cached.
func (f *CachingFetcher) ReleaseItems(indices []int) {
	f.inner.ReleaseItems(indices)
}

func (f *CachingFetcher) fetchThrough(ctx context.Context, kind Kind, indices []int) (map[int][]byte, error) {
	found, err := f.store.GetMany(ctx, string(kind), indices)
	if err != nil {
		f.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Store get error, fetching from source")
		found = nil
	}

	misses := make([]int, 0, len(indices))
	for _, index := range indices {
		if _, ok := found[index]; !ok {
			misses = append(misses, index)
		}
	}
	if len(misses) == 0 {
		f.logger.Debug().Str("kind", string(kind)).Int("items", len(indices)).Msg("Batch served from store")
		return found, nil
	}

	fetched, err := fetchKind(ctx, f.inner, kind, misses)
	if err != nil {
		return nil, err
	}

	if err := f.store.SetMany(ctx, string(kind), fetched); err != nil {
		f.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to store fetched items")
	}

	result := make(map[int][]byte, len(indices))
	for index, value := range found {
		result[index] = value
	}
	for index, value := range fetched {
		result[index] = value
	}
	return result, nil
}
