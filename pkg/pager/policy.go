package pager

import (
	"slices"
	"sort"

	"github.com/Sternrassler/itempager/pkg/pagination"
)

// State is the cache state a policy plans against.
type State struct {
	Pagination *pagination.Pagination

	// Resident lists the fully loaded pages in ascending order.
	Resident []int

	// LoadedItems counts items holding a payload, including items of
	// partially loaded pages.
	LoadedItems int
}

// Plan is the outcome of one planning step.
type Plan struct {
	// Unload lists resident pages to drop before loading.
	Unload []int

	// Load lists pages to load, most urgent first.
	Load []int
}

// Policy decides which pages to load and evict around a position.
type Policy interface {
	// RequiredPages returns the pages that must be resident at pos,
	// most urgent first.
	RequiredPages(p *pagination.Pagination, pos int) []int

	// ComputeUpdatePlan plans the move to pos.
	ComputeUpdatePlan(state State, pos int) Plan
}

// SimplePolicy keeps only the page at the position loaded.
type SimplePolicy struct{}

// RequiredPages implements Policy.
func (SimplePolicy) RequiredPages(_ *pagination.Pagination, pos int) []int {
	return []int{pos}
}

// ComputeUpdatePlan implements Policy.
func (SimplePolicy) ComputeUpdatePlan(state State, pos int) Plan {
	var plan Plan
	resident := false
	for _, page := range state.Resident {
		if page == pos {
			resident = true
			continue
		}
		plan.Unload = append(plan.Unload, page)
	}
	if !resident {
		plan.Load = []int{pos}
	}
	return plan
}

// PreloadingPolicy keeps a window of pages around the position loaded and
// evicts the pages farthest from that window when the item budget is exceeded.
type PreloadingPolicy struct {
	MaxItems     int
	NumPreceding int
	NumFollowing int
}

// NewPreloadingPolicy creates the policy described by settings.
func NewPreloadingPolicy(s Settings) PreloadingPolicy {
	return PreloadingPolicy{
		MaxItems:     s.MaxItems,
		NumPreceding: s.NumPrecedingPreloadedPages,
		NumFollowing: s.NumFollowingPreloadedPages,
	}
}

// RequiredPages implements Policy. The order is the position, then the
// following pages nearest first, then the preceding pages nearest first.
func (pp PreloadingPolicy) RequiredPages(p *pagination.Pagination, pos int) []int {
	numPages := p.NumPages()
	pages := make([]int, 0, 1+pp.NumFollowing+pp.NumPreceding)
	pages = append(pages, pos)
	for i := 1; i <= pp.NumFollowing && pos+i < numPages; i++ {
		pages = append(pages, pos+i)
	}
	for i := 1; i <= pp.NumPreceding && pos-i >= 0; i++ {
		pages = append(pages, pos-i)
	}
	return pages
}

// ComputeUpdatePlan implements Policy.
//
// If the loaded items plus the incoming pages exceed MaxItems, resident
// pages outside the required window are evicted farthest first (lowest page
// number on ties) until the budget holds or no candidate is left. Required
// pages are never evicted, so the budget may stay exceeded.
func (pp PreloadingPolicy) ComputeUpdatePlan(state State, pos int) Plan {
	p := state.Pagination
	required := pp.RequiredPages(p, pos)

	var plan Plan
	incoming := 0
	for _, page := range required {
		if _, resident := slices.BinarySearch(state.Resident, page); !resident {
			plan.Load = append(plan.Load, page)
			incoming += p.ItemsInPage(page)
		}
	}

	total := state.LoadedItems
	if total+incoming <= pp.MaxItems {
		return plan
	}

	lo, hi := slices.Min(required), slices.Max(required)
	var candidates []int
	for _, page := range state.Resident {
		if windowDistance(page, lo, hi) > 0 {
			candidates = append(candidates, page)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return windowDistance(candidates[i], lo, hi) > windowDistance(candidates[j], lo, hi)
	})

	for _, page := range candidates {
		if total+incoming <= pp.MaxItems {
			break
		}
		plan.Unload = append(plan.Unload, page)
		total -= p.ItemsInPage(page)
	}
	return plan
}

// windowDistance is the number of pages between page and the nearer edge
// of [lo, hi], or 0 inside the window.
func windowDistance(page, lo, hi int) int {
	switch {
	case page < lo:
		return lo - page
	case page > hi:
		return page - hi
	default:
		return 0
	}
}
