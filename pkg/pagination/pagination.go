package pagination

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrInvalidBoundaries indicates a boundary list that does not start at 0
	// or is not non-decreasing.
	ErrInvalidBoundaries = errors.New("invalid page boundaries")

	// ErrItemCountMismatch indicates the last boundary differs from the item count.
	ErrItemCountMismatch = errors.New("page boundaries do not match item count")
)

// Pagination maps item indices to page numbers and back.
// Page p covers items [boundaries[p], boundaries[p+1]).
// A Pagination is immutable once created.
type Pagination struct {
	boundaries  []int
	fingerprint uint64
}

// New creates a Pagination from a list of page boundaries.
// The first boundary must be 0, the list must be non-decreasing and
// the last boundary must equal itemCount. An empty list is accepted
// for an empty collection.
func New(boundaries []int, itemCount int) (*Pagination, error) {
	if itemCount < 0 {
		return nil, fmt.Errorf("%w: negative item count %d", ErrItemCountMismatch, itemCount)
	}
	if len(boundaries) == 0 {
		if itemCount != 0 {
			return nil, fmt.Errorf("%w: no boundaries for %d items", ErrItemCountMismatch, itemCount)
		}
		return &Pagination{fingerprint: fingerprint(nil)}, nil
	}
	if boundaries[0] != 0 {
		return nil, fmt.Errorf("%w: first boundary is %d, want 0", ErrInvalidBoundaries, boundaries[0])
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] < boundaries[i-1] {
			return nil, fmt.Errorf("%w: boundary %d (%d) is less than boundary %d (%d)",
				ErrInvalidBoundaries, i, boundaries[i], i-1, boundaries[i-1])
		}
	}
	if last := boundaries[len(boundaries)-1]; last != itemCount {
		return nil, fmt.Errorf("%w: last boundary is %d, item count is %d", ErrItemCountMismatch, last, itemCount)
	}

	b := make([]int, len(boundaries))
	copy(b, boundaries)
	return &Pagination{
		boundaries:  b,
		fingerprint: fingerprint(b),
	}, nil
}

// MustNew is like New but panics on malformed boundaries.
func MustNew(boundaries []int, itemCount int) *Pagination {
	p, err := New(boundaries, itemCount)
	if err != nil {
		panic(err)
	}
	return p
}

// Uniform paginates itemCount items into pages of pageSize items.
// The last page holds the remainder.
func Uniform(itemCount, pageSize int) *Pagination {
	if pageSize <= 0 {
		panic(fmt.Sprintf("pagination: page size must be > 0 (got %d)", pageSize))
	}
	if itemCount <= 0 {
		return MustNew(nil, 0)
	}
	boundaries := make([]int, 0, itemCount/pageSize+2)
	for start := 0; start < itemCount; start += pageSize {
		boundaries = append(boundaries, start)
	}
	boundaries = append(boundaries, itemCount)
	return MustNew(boundaries, itemCount)
}

// NumPages returns the number of pages.
func (p *Pagination) NumPages() int {
	return max(0, len(p.boundaries)-1)
}

// ItemCount returns the number of items covered by the pagination.
func (p *Pagination) ItemCount() int {
	if len(p.boundaries) == 0 {
		return 0
	}
	return p.boundaries[len(p.boundaries)-1]
}

// Boundaries returns a copy of the page boundaries.
func (p *Pagination) Boundaries() []int {
	b := make([]int, len(p.boundaries))
	copy(b, p.boundaries)
	return b
}

// PageForItem returns the page containing the item at index.
// Panics if index is outside [0, ItemCount()).
func (p *Pagination) PageForItem(index int) int {
	if index < 0 || index >= p.ItemCount() {
		panic(fmt.Sprintf("pagination: item index %d out of range [0, %d)", index, p.ItemCount()))
	}
	// Last boundary <= index. Empty pages share a boundary with their
	// successor, so the search picks the last page starting at or before index.
	return sort.Search(len(p.boundaries), func(i int) bool {
		return p.boundaries[i] > index
	}) - 1
}

// ItemRange returns the half-open item range [start, end) of page.
// Panics if page is outside [0, NumPages()).
func (p *Pagination) ItemRange(page int) (start, end int) {
	p.checkPage(page)
	return p.boundaries[page], p.boundaries[page+1]
}

// ItemsInPage returns the number of items on page.
func (p *Pagination) ItemsInPage(page int) int {
	start, end := p.ItemRange(page)
	return end - start
}

// ValidPage reports whether page is in [0, NumPages()).
func (p *Pagination) ValidPage(page int) bool {
	return page >= 0 && page < p.NumPages()
}

// Fingerprint returns a hash of the boundaries. Two paginations with equal
// fingerprints describe the same page layout.
func (p *Pagination) Fingerprint() uint64 {
	return p.fingerprint
}

// Equal reports whether both paginations have identical boundaries.
func (p *Pagination) Equal(other *Pagination) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.fingerprint != other.fingerprint || len(p.boundaries) != len(other.boundaries) {
		return false
	}
	for i := range p.boundaries {
		if p.boundaries[i] != other.boundaries[i] {
			return false
		}
	}
	return true
}

func (p *Pagination) checkPage(page int) {
	if !p.ValidPage(page) {
		panic(fmt.Sprintf("pagination: page %d out of range [0, %d)", page, p.NumPages()))
	}
}

func fingerprint(boundaries []int) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, b := range boundaries {
		binary.LittleEndian.PutUint64(buf[:], uint64(b))
		h.Write(buf[:])
	}
	return h.Sum64()
}
