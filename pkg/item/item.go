// Package item holds the per-item load state used by the paging cache.
//
// Each slot follows the state machine
//
//	Unloaded -> Loading -> Loaded | Unloaded
//	Loaded   -> Unloaded
//
// The Loading state doubles as the cancellation token for in-flight fetches:
// a completion is only applied while the slot still reads Loading. Once a
// slot is moved back to Unloaded the pending result is discarded.
package item

import "fmt"

// Status is the load state of an item slot.
type Status uint8

const (
	// Unloaded slots hold no value and have no fetch in flight.
	Unloaded Status = iota

	// Loading slots have a fetch in flight.
	Loading

	// Loaded slots own their value.
	Loaded
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Slot is one independently loaded value of an item.
type Slot struct {
	status Status
	value  []byte
}

// Status returns the slot's load state.
func (s *Slot) Status() Status { return s.status }

// Value returns the slot's value while Loaded, nil otherwise.
func (s *Slot) Value() []byte { return s.value }

// RequestLoad moves an Unloaded slot to Loading.
// Calling it in any other state is a programming error and panics.
func (s *Slot) RequestLoad() {
	if s.status != Unloaded {
		panic(fmt.Sprintf("item: load requested for %s slot", s.status))
	}
	s.status = Loading
}

// OnFetchSuccess installs value if the slot is still Loading and reports
// whether it did. A false result means the load was canceled in the meantime.
func (s *Slot) OnFetchSuccess(value []byte) bool {
	if s.status != Loading {
		return false
	}
	s.status = Loaded
	s.value = value
	return true
}

// OnFetchFailure reverts a Loading slot to Unloaded and reports whether it did.
func (s *Slot) OnFetchFailure() bool {
	if s.status != Loading {
		return false
	}
	s.status = Unloaded
	return true
}

// RequestUnload moves a Loaded or Loading slot to Unloaded, dropping its value.
// It reports whether the slot held a value that must be released.
// An in-flight fetch is left to complete; its result will be discarded.
func (s *Slot) RequestUnload() bool {
	held := s.status == Loaded
	s.status = Unloaded
	s.value = nil
	return held
}

// Item is one entry of the collection. Index is fixed for the item's lifetime.
type Item struct {
	Index    int
	Payload  Slot
	Metadata Slot
}

// NewItems creates count Unloaded items indexed 0..count-1.
func NewItems(count int) []*Item {
	items := make([]*Item, count)
	for i := range items {
		items[i] = &Item{Index: i}
	}
	return items
}

// Loaded reports whether the payload, and the metadata when withMetadata
// is set, are Loaded.
func (it *Item) Loaded(withMetadata bool) bool {
	if it.Payload.status != Loaded {
		return false
	}
	return !withMetadata || it.Metadata.status == Loaded
}

// Touched reports whether any slot is Loading or Loaded.
func (it *Item) Touched() bool {
	return it.Payload.status != Unloaded || it.Metadata.status != Unloaded
}
