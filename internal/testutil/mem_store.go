package testutil

import (
	"context"
	"sync"
)

// MemStore is an in-memory store.Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string]map[int][]byte

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]map[int][]byte)}
}

// GetMany implements store.Store.
func (s *MemStore) GetMany(_ context.Context, kind string, indices []int) (map[int][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	found := make(map[int][]byte)
	for _, index := range indices {
		if v, ok := s.values[kind][index]; ok {
			found[index] = v
		}
	}
	return found, nil
}

// SetMany implements store.Store.
func (s *MemStore) SetMany(_ context.Context, kind string, values map[int][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.values[kind] == nil {
		s.values[kind] = make(map[int][]byte)
	}
	for index, v := range values {
		s.values[kind][index] = v
	}
	return nil
}

// Delete implements store.Store.
func (s *MemStore) Delete(_ context.Context, kind string, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, index := range indices {
		delete(s.values[kind], index)
	}
	return nil
}

// Len returns the number of stored values of kind.
func (s *MemStore) Len(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values[kind])
}
