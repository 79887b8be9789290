package pager

import (
	"fmt"
	"testing"

	"github.com/Sternrassler/itempager/pkg/pagination"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func scenarioAPagination() *pagination.Pagination {
	return pagination.MustNew([]int{0, 1, 3, 7, 9, 12, 14, 16}, 16)
}

func TestPreloadingPolicy_RequiredPages(t *testing.T) {
	policy := PreloadingPolicy{MaxItems: 100, NumPreceding: 1, NumFollowing: 2}
	p := scenarioAPagination() // 7 pages

	tests := []struct {
		pos  int
		want []int
	}{
		{0, []int{0, 1, 2}},
		{3, []int{3, 4, 5, 2}},
		{5, []int{5, 6, 4}},
		{6, []int{6, 5}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("pos %d", tt.pos), func(t *testing.T) {
			got := policy.RequiredPages(p, tt.pos)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("RequiredPages(%d) mismatch (-want +got):\n%s", tt.pos, diff)
			}
		})
	}
}

func TestPreloadingPolicy_ComputeUpdatePlan(t *testing.T) {
	p := scenarioAPagination()
	policy := PreloadingPolicy{MaxItems: 12, NumPreceding: 1, NumFollowing: 2}

	tests := []struct {
		name       string
		resident   []int
		pos        int
		wantUnload []int
		wantLoad   []int
	}{
		{
			name:     "cold start",
			pos:      0,
			wantLoad: []int{0, 1, 2},
		},
		{
			name:     "fits in budget",
			resident: []int{0, 1, 2},
			pos:      1,
			wantLoad: []int{3},
		},
		{
			name:       "evicts farthest first",
			resident:   []int{0, 1, 2, 3, 4},
			pos:        3,
			wantUnload: []int{0, 1},
			wantLoad:   []int{5},
		},
		{
			name:       "jump back evicts from the far end",
			resident:   []int{3, 4, 5, 6},
			pos:        0,
			wantUnload: []int{6, 5},
			wantLoad:   []int{0, 1, 2},
		},
		{
			name:     "nothing to do",
			resident: []int{2, 3, 4, 5},
			pos:      3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{Pagination: p, Resident: tt.resident, LoadedItems: itemsIn(p, tt.resident)}
			plan := policy.ComputeUpdatePlan(state, tt.pos)
			if diff := cmp.Diff(tt.wantUnload, plan.Unload, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Unload mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLoad, plan.Load, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Load mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreloadingPolicy_BudgetExceededByRequiredPages(t *testing.T) {
	p := pagination.Uniform(20, 5) // 4 pages of 5
	policy := PreloadingPolicy{MaxItems: 8, NumPreceding: 1, NumFollowing: 1}

	state := State{Pagination: p, Resident: []int{1}, LoadedItems: 5}
	plan := policy.ComputeUpdatePlan(state, 1)

	if len(plan.Unload) != 0 {
		t.Errorf("required pages must not be evicted, got Unload = %v", plan.Unload)
	}
	if diff := cmp.Diff([]int{2, 0}, plan.Load); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestPreloadingPolicy_TieBreakLowestPage(t *testing.T) {
	p := pagination.Uniform(8, 1)
	policy := PreloadingPolicy{MaxItems: 4, NumPreceding: 1, NumFollowing: 1}

	// Pages 1 and 7 are both two pages from the window [3, 5].
	state := State{Pagination: p, Resident: []int{0, 1, 6, 7}, LoadedItems: 4}
	plan := policy.ComputeUpdatePlan(state, 4)

	if diff := cmp.Diff([]int{0, 1, 7}, plan.Unload); diff != "" {
		t.Errorf("Unload mismatch (-want +got):\n%s", diff)
	}
}

// No retained non-required page may be farther from the window than an evicted one.
func TestPreloadingPolicy_EvictionDistanceProperty(t *testing.T) {
	p := pagination.Uniform(40, 2) // 20 pages of 2
	policy := PreloadingPolicy{MaxItems: 14, NumPreceding: 1, NumFollowing: 1}

	for pos := 0; pos < p.NumPages(); pos++ {
		resident := []int{0, 2, 4, 7, 9, 11, 15, 19}
		state := State{Pagination: p, Resident: resident, LoadedItems: itemsIn(p, resident)}
		plan := policy.ComputeUpdatePlan(state, pos)

		required := policy.RequiredPages(p, pos)
		lo, hi := minMax(required)

		evicted := make(map[int]bool)
		minEvicted := -1
		for _, page := range plan.Unload {
			evicted[page] = true
			d := windowDistance(page, lo, hi)
			if d == 0 {
				t.Fatalf("pos %d: evicted required page %d", pos, page)
			}
			if minEvicted < 0 || d < minEvicted {
				minEvicted = d
			}
		}
		if minEvicted < 0 {
			continue
		}
		for _, page := range resident {
			if evicted[page] {
				continue
			}
			if d := windowDistance(page, lo, hi); d > minEvicted {
				t.Errorf("pos %d: kept page %d at distance %d, evicted a page at distance %d", pos, page, d, minEvicted)
			}
		}
	}
}

func TestSimplePolicy(t *testing.T) {
	p := pagination.Uniform(10, 2)
	policy := SimplePolicy{}

	if diff := cmp.Diff([]int{3}, policy.RequiredPages(p, 3)); diff != "" {
		t.Errorf("RequiredPages mismatch (-want +got):\n%s", diff)
	}

	plan := policy.ComputeUpdatePlan(State{Pagination: p, Resident: []int{1, 3, 4}, LoadedItems: 6}, 3)
	if diff := cmp.Diff([]int{1, 4}, plan.Unload); diff != "" {
		t.Errorf("Unload mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Load) != 0 {
		t.Errorf("Load = %v, want none", plan.Load)
	}

	plan = policy.ComputeUpdatePlan(State{Pagination: p, Resident: []int{1}, LoadedItems: 2}, 2)
	if diff := cmp.Diff([]int{2}, plan.Load); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowDistance(t *testing.T) {
	tests := []struct{ page, lo, hi, want int }{
		{0, 2, 4, 2},
		{2, 2, 4, 0},
		{3, 2, 4, 0},
		{7, 2, 4, 3},
	}
	for _, tt := range tests {
		if got := windowDistance(tt.page, tt.lo, tt.hi); got != tt.want {
			t.Errorf("windowDistance(%d, %d, %d) = %d, want %d", tt.page, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func itemsIn(p *pagination.Pagination, pages []int) int {
	n := 0
	for _, page := range pages {
		n += p.ItemsInPage(page)
	}
	return n
}

func minMax(pages []int) (lo, hi int) {
	lo, hi = pages[0], pages[0]
	for _, page := range pages[1:] {
		lo = min(lo, page)
		hi = max(hi, page)
	}
	return lo, hi
}
