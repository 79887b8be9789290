// Package testutil provides testing utilities for the item pager.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockSourceResponse overrides the behavior of one mock source endpoint.
type MockSourceResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockSource is a configurable mock remote item source for testing.
// Item i has payload "payload-<i>" and metadata `{"index":<i>}`.
type MockSource struct {
	server    *httptest.Server
	mu        sync.RWMutex
	itemCount int
	overrides map[string]MockSourceResponse

	// Tracking
	RequestCount   int
	RequestedItems map[string][]int
}

// NewMockSource starts a mock source serving itemCount items.
func NewMockSource(itemCount int) *MockSource {
	mock := &MockSource{
		itemCount:      itemCount,
		overrides:      make(map[string]MockSourceResponse),
		RequestedItems: make(map[string][]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockSource) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and overrides.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestedItems = make(map[string][]int)
	m.overrides = make(map[string]MockSourceResponse)
}

// SetResponse overrides the response for path.
func (m *MockSource) SetResponse(path string, resp MockSourceResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[path] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSource) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestedItems returns all indices requested on path, in request order.
func (m *MockSource) GetRequestedItems(path string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.RequestedItems[path]...)
}

// Payload returns the payload the mock serves for index.
func Payload(index int) []byte {
	return []byte(fmt.Sprintf("payload-%d", index))
}

// Metadata returns the metadata the mock serves for index.
func Metadata(index int) []byte {
	return []byte(fmt.Sprintf(`{"index":%d}`, index))
}

func (m *MockSource) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	override, hasOverride := m.overrides[r.URL.Path]
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		if override.StatusCode != 0 {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(override.StatusCode)
			if override.Body != "" {
				w.Write([]byte(override.Body))
			}
			return
		}
	}

	switch r.URL.Path {
	case "/v1/collection":
		writeJSON(w, map[string]int{"item_count": m.itemCount})
	case "/v1/items/payloads":
		m.serveBatch(w, r, Payload)
	case "/v1/items/metadata":
		m.serveBatch(w, r, Metadata)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockSource) serveBatch(w http.ResponseWriter, r *http.Request, value func(int) []byte) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Indices []int `json:"indices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.RequestedItems[r.URL.Path] = append(m.RequestedItems[r.URL.Path], req.Indices...)
	m.mu.Unlock()

	items := make(map[int][]byte, len(req.Indices))
	for _, index := range req.Indices {
		if index < 0 || index >= m.itemCount {
			http.Error(w, fmt.Sprintf("item %d out of range", index), http.StatusNotFound)
			return
		}
		items[index] = value(index)
	}
	writeJSON(w, map[string]any{"items": items})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
