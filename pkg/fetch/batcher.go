package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds batcher configuration.
type Config struct {
	// MaxBatchSize caps the number of items in one fetch or release call.
	MaxBatchSize int

	// MaxConcurrency is the maximum number of batches in flight at once.
	MaxConcurrency int
}

// DefaultConfig returns the default batcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:   64,
		MaxConcurrency: 4,
	}
}

// BatchResult is the outcome of one batch.
// Values is nil when Err is set.
type BatchResult struct {
	Kind    Kind
	Indices []int
	Values  map[int][]byte
	Err     error
}

// Batcher splits item lists into capped batches and issues them concurrently.
type Batcher struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatcher creates a batcher over fetcher.
func NewBatcher(fetcher Fetcher, config Config) *Batcher {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 64
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	return &Batcher{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentBatcher),
	}
}

// Config returns the effective configuration.
func (b *Batcher) Config() Config {
	return b.config
}

// Fetch fetches indices of the given kind, one result per batch, in batch order.
// All batches are issued concurrently (bounded by MaxConcurrency) and joined
// before Fetch returns. A failed batch does not affect the others.
func (b *Batcher) Fetch(ctx context.Context, kind Kind, indices []int) []BatchResult {
	batches := Split(indices, b.config.MaxBatchSize)
	results := make([]BatchResult, len(batches))

	var g errgroup.Group
	g.SetLimit(b.config.MaxConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = b.fetchBatch(ctx, kind, batch)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchBatch runs one batch and enforces the all-or-nothing contract.
func (b *Batcher) fetchBatch(ctx context.Context, kind Kind, indices []int) BatchResult {
	start := time.Now()
	defer func() {
		fetchBatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	result := BatchResult{Kind: kind, Indices: indices}

	values, err := fetchKind(ctx, b.fetcher, kind, indices)
	if err == nil {
		for _, index := range indices {
			if _, ok := values[index]; !ok {
				err = fmt.Errorf("%w: index %d", ErrMissingItem, index)
				break
			}
		}
	}
	if err != nil {
		var batchErr *BatchError
		if !errors.As(err, &batchErr) {
			err = &BatchError{Kind: kind, Indices: indices, Err: err}
		}
		fetchBatchesTotal.WithLabelValues(string(kind), "error").Inc()
		result.Err = err
		return result
	}

	fetchBatchesTotal.WithLabelValues(string(kind), "success").Inc()
	b.logger.Debug().
		Str("kind", string(kind)).
		Int("batch_size", len(indices)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetched")

	result.Values = values
	return result
}

// Release releases indices through the fetcher in capped batches.
func (b *Batcher) Release(indices []int) {
	for _, batch := range Split(indices, b.config.MaxBatchSize) {
		b.fetcher.ReleaseItems(batch)
		itemsReleasedTotal.Add(float64(len(batch)))
	}
}

// Split cuts indices into consecutive chunks of at most size items.
// The chunks share the backing array of indices.
func Split(indices []int, size int) [][]int {
	if len(indices) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(indices)
	}
	batches := make([][]int, 0, (len(indices)+size-1)/size)
	for start := 0; start < len(indices); start += size {
		end := min(start+size, len(indices))
		batches = append(batches, indices[start:end:end])
	}
	return batches
}
