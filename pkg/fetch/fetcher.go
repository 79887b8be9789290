package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Kind names the item slot a batch targets.
type Kind string

const (
	// KindPayload batches fetch item payloads.
	KindPayload Kind = "payload"

	// KindMetadata batches fetch item metadata.
	KindMetadata Kind = "metadata"
)

var (
	// ErrMissingItem indicates a batch response that omitted a requested item.
	ErrMissingItem = errors.New("item missing from batch response")

	// ErrUnknownKind indicates a batch for a kind the fetcher does not serve.
	ErrUnknownKind = errors.New("unknown batch kind")
)

// Fetcher performs batched fetch and release of item payloads and metadata.
//
// Batch calls are all-or-nothing: a returned error fails every item in the
// batch. ReleaseItems is synchronous and never fails.
type Fetcher interface {
	BatchFetchPayloads(ctx context.Context, indices []int) (map[int][]byte, error)
	BatchFetchMetadata(ctx context.Context, indices []int) (map[int][]byte, error)
	ReleaseItems(indices []int)
}

// BatchError describes a failed batch.
type BatchError struct {
	Kind       Kind
	Indices    []int
	StatusCode int // 0 unless the failure came from an HTTP response
	Err        error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	span := "no items"
	if n := len(e.Indices); n > 0 {
		span = fmt.Sprintf("%d items from %d", n, e.Indices[0])
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s batch (%s) failed with status %d: %v", e.Kind, span, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s batch (%s) failed: %v", e.Kind, span, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// fetchKind dispatches a batch to the fetcher method for kind.
func fetchKind(ctx context.Context, f Fetcher, kind Kind, indices []int) (map[int][]byte, error) {
	switch kind {
	case KindPayload:
		return f.BatchFetchPayloads(ctx, indices)
	case KindMetadata:
		return f.BatchFetchMetadata(ctx, indices)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
