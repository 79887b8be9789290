package pagination

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []int
		itemCount  int
		wantErr    error
	}{
		{name: "valid", boundaries: []int{0, 1, 3, 7}, itemCount: 7},
		{name: "empty collection", boundaries: nil, itemCount: 0},
		{name: "single boundary", boundaries: []int{0}, itemCount: 0},
		{name: "empty page", boundaries: []int{0, 2, 2, 5}, itemCount: 5},
		{name: "nonzero start", boundaries: []int{1, 3}, itemCount: 3, wantErr: ErrInvalidBoundaries},
		{name: "decreasing", boundaries: []int{0, 4, 3, 7}, itemCount: 7, wantErr: ErrInvalidBoundaries},
		{name: "count mismatch", boundaries: []int{0, 4, 7}, itemCount: 8, wantErr: ErrItemCountMismatch},
		{name: "no boundaries with items", boundaries: nil, itemCount: 3, wantErr: ErrItemCountMismatch},
		{name: "negative count", boundaries: nil, itemCount: -1, wantErr: ErrItemCountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.boundaries, tt.itemCount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			if p.ItemCount() != tt.itemCount {
				t.Errorf("ItemCount() = %d, want %d", p.ItemCount(), tt.itemCount)
			}
		})
	}
}

func TestNumPages(t *testing.T) {
	tests := []struct {
		boundaries []int
		itemCount  int
		want       int
	}{
		{nil, 0, 0},
		{[]int{0}, 0, 0},
		{[]int{0, 5}, 5, 1},
		{[]int{0, 1, 3, 7, 9, 12, 14, 16}, 16, 7},
	}
	for _, tt := range tests {
		p := MustNew(tt.boundaries, tt.itemCount)
		if got := p.NumPages(); got != tt.want {
			t.Errorf("NumPages(%v) = %d, want %d", tt.boundaries, got, tt.want)
		}
	}
}

func TestPageForItem(t *testing.T) {
	p := MustNew([]int{0, 1, 3, 7, 9, 12, 14, 16}, 16)
	want := []int{0, 1, 1, 2, 2, 2, 2, 3, 3, 4, 4, 4, 5, 5, 6, 6}
	got := make([]int, 16)
	for i := range got {
		got[i] = p.PageForItem(i)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PageForItem mismatch (-want +got):\n%s", diff)
	}
}

func TestPageForItem_SkipsEmptyPages(t *testing.T) {
	p := MustNew([]int{0, 2, 2, 5}, 5)
	if got := p.PageForItem(2); got != 2 {
		t.Errorf("PageForItem(2) = %d, want 2", got)
	}
	if got := p.ItemsInPage(1); got != 0 {
		t.Errorf("ItemsInPage(1) = %d, want 0", got)
	}
}

func TestItemRange(t *testing.T) {
	p := MustNew([]int{0, 1, 3, 7}, 7)
	start, end := p.ItemRange(2)
	if start != 3 || end != 7 {
		t.Errorf("ItemRange(2) = [%d, %d), want [3, 7)", start, end)
	}
	if got := p.ItemsInPage(1); got != 2 {
		t.Errorf("ItemsInPage(1) = %d, want 2", got)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	p := MustNew([]int{0, 1, 3, 7}, 7)
	tests := []struct {
		name string
		fn   func()
	}{
		{"item below range", func() { p.PageForItem(-1) }},
		{"item above range", func() { p.PageForItem(7) }},
		{"page below range", func() { p.ItemRange(-1) }},
		{"page above range", func() { p.ItemRange(3) }},
		{"empty pagination", func() { MustNew(nil, 0).PageForItem(0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestUniform(t *testing.T) {
	p := Uniform(10, 4)
	if diff := cmp.Diff([]int{0, 4, 8, 10}, p.Boundaries()); diff != "" {
		t.Errorf("Uniform(10, 4) boundaries mismatch (-want +got):\n%s", diff)
	}
	if Uniform(0, 4).NumPages() != 0 {
		t.Error("Uniform(0, 4) should have no pages")
	}
}

func TestFingerprintAndEqual(t *testing.T) {
	a := MustNew([]int{0, 2, 5}, 5)
	b := MustNew([]int{0, 2, 5}, 5)
	c := MustNew([]int{0, 3, 5}, 5)

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical boundaries should share a fingerprint")
	}
	if !a.Equal(b) {
		t.Error("identical boundaries should be equal")
	}
	if a.Equal(c) {
		t.Error("different boundaries should not be equal")
	}
}

func TestBoundariesAreCopied(t *testing.T) {
	in := []int{0, 2, 5}
	p := MustNew(in, 5)
	in[1] = 4
	if p.ItemsInPage(0) != 2 {
		t.Error("mutating the input slice changed the pagination")
	}
	out := p.Boundaries()
	out[1] = 4
	if p.ItemsInPage(0) != 2 {
		t.Error("mutating Boundaries() result changed the pagination")
	}
}
