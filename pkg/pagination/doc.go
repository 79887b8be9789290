// Package pagination maps a sequentially indexed item collection onto pages.
//
// A pagination is a non-decreasing list of k+1 item boundaries defining k
// pages; page p covers items [boundaries[p], boundaries[p+1]). The last
// boundary equals the item count. Boundaries usually come from a layout pass
// (for example, items packed by display width) and are replaced wholesale
// when the layout changes.
//
// Example usage:
//
//	p, err := pagination.New([]int{0, 1, 3, 7}, 7)
//	if err != nil {
//		return err
//	}
//	page := p.PageForItem(4)      // 2
//	start, end := p.ItemRange(1)  // 1, 3
//
// Out-of-range pages and item indices are programming errors and panic.
// Malformed boundaries are reported by New as ErrInvalidBoundaries or
// ErrItemCountMismatch.
package pagination
