package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/itempager/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

func TestCachingFetcher_ReadThrough(t *testing.T) {
	inner := testutil.NewFakeFetcher()
	s := testutil.NewMemStore()
	f := NewCachingFetcher(inner, s)
	ctx := context.Background()

	first, err := f.BatchFetchPayloads(ctx, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("BatchFetchPayloads() error = %v", err)
	}
	if got := s.Len("payload"); got != 3 {
		t.Errorf("store holds %d payloads, want 3", got)
	}

	// Second call overlaps the first: only item 3 goes to the source.
	second, err := f.BatchFetchPayloads(ctx, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("BatchFetchPayloads() error = %v", err)
	}

	calls := inner.Calls()
	if len(calls) != 2 {
		t.Fatalf("inner fetcher called %d times, want 2", len(calls))
	}
	if diff := cmp.Diff([]int{3}, calls[1].Indices); diff != "" {
		t.Errorf("miss indices mismatch (-want +got):\n%s", diff)
	}

	want := map[int][]byte{1: testutil.Payload(1), 2: testutil.Payload(2), 3: testutil.Payload(3)}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("merged result mismatch (-want +got):\n%s", diff)
	}
	if string(first[0]) != string(testutil.Payload(0)) {
		t.Errorf("first[0] = %q", first[0])
	}
}

func TestCachingFetcher_AllHits(t *testing.T) {
	inner := testutil.NewFakeFetcher()
	s := testutil.NewMemStore()
	s.SetMany(context.Background(), "metadata", map[int][]byte{5: []byte("cached")})
	f := NewCachingFetcher(inner, s)

	got, err := f.BatchFetchMetadata(context.Background(), []int{5})
	if err != nil {
		t.Fatalf("BatchFetchMetadata() error = %v", err)
	}
	if string(got[5]) != "cached" {
		t.Errorf("got[5] = %q, want cached", got[5])
	}
	if calls := inner.Calls(); len(calls) != 0 {
		t.Errorf("inner fetcher called on a full hit: %v", calls)
	}
}

func TestCachingFetcher_KindsAreSeparate(t *testing.T) {
	inner := testutil.NewFakeFetcher()
	s := testutil.NewMemStore()
	f := NewCachingFetcher(inner, s)
	ctx := context.Background()

	if _, err := f.BatchFetchPayloads(ctx, []int{0}); err != nil {
		t.Fatalf("BatchFetchPayloads() error = %v", err)
	}
	got, err := f.BatchFetchMetadata(ctx, []int{0})
	if err != nil {
		t.Fatalf("BatchFetchMetadata() error = %v", err)
	}
	if string(got[0]) != string(testutil.Metadata(0)) {
		t.Errorf("metadata served from the payload cache: %q", got[0])
	}
}

func TestCachingFetcher_StoreErrorFallsBack(t *testing.T) {
	inner := testutil.NewFakeFetcher()
	s := testutil.NewMemStore()
	s.Err = errors.New("store down")
	f := NewCachingFetcher(inner, s)

	got, err := f.BatchFetchPayloads(context.Background(), []int{0, 1})
	if err != nil {
		t.Fatalf("store errors must not fail the batch, got %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d values, want 2", len(got))
	}
	if diff := cmp.Diff([]int{0, 1}, inner.FetchedItems("payload")); diff != "" {
		t.Errorf("source fetches mismatch (-want +got):\n%s", diff)
	}
}

func TestCachingFetcher_InnerErrorPropagates(t *testing.T) {
	inner := testutil.NewFakeFetcher()
	inner.FailItems(1)
	s := testutil.NewMemStore()
	f := NewCachingFetcher(inner, s)

	if _, err := f.BatchFetchPayloads(context.Background(), []int{0, 1}); !errors.Is(err, testutil.ErrInjected) {
		t.Errorf("error = %v, want ErrInjected", err)
	}
	if got := s.Len("payload"); got != 0 {
		t.Errorf("failed batch stored %d values", got)
	}
}

func TestCachingFetcher_ReleaseForwards(t *testing.T) {
	inner := testutil.NewFakeFetcher()
	s := testutil.NewMemStore()
	f := NewCachingFetcher(inner, s)
	s.SetMany(context.Background(), "payload", map[int][]byte{4: []byte("x")})

	f.ReleaseItems([]int{4, 2})

	if diff := cmp.Diff([]int{2, 4}, inner.Released()); diff != "" {
		t.Errorf("released mismatch (-want +got):\n%s", diff)
	}
	if got := s.Len("payload"); got != 1 {
		t.Errorf("release dropped stored values: %d left", got)
	}
}
