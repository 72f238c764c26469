package storage

import (
	"sort"
	"strings"
	"sync"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It is safe for concurrent use.
type MockRepository struct {
	mu    sync.Mutex
	items map[string]string

	// Hooks for test assertions
	SetItemCalls    int
	LastSetKey      string
	RemoveItemCalls int

	// Error injection for testing error paths
	GetItemErr      error
	SetItemErr      error
	RemoveItemErr   error
	RemovePrefixErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{items: make(map[string]string)}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// GetItem reads from the in-memory map
func (m *MockRepository) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetItemErr != nil {
		return "", false, m.GetItemErr
	}
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem writes to the in-memory map
func (m *MockRepository) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetItemCalls++
	m.LastSetKey = key
	if m.SetItemErr != nil {
		return m.SetItemErr
	}
	m.items[key] = value
	return nil
}

// RemoveItem deletes from the in-memory map
func (m *MockRepository) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveItemCalls++
	if m.RemoveItemErr != nil {
		return m.RemoveItemErr
	}
	delete(m.items, key)
	return nil
}

// Keys lists keys with prefix
func (m *MockRepository) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// RemovePrefix deletes keys with prefix
func (m *MockRepository) RemovePrefix(prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemovePrefixErr != nil {
		return 0, m.RemovePrefixErr
	}
	var n int64
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

// Put seeds a value without touching the call counters.
func (m *MockRepository) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

// Len returns the number of stored items.
func (m *MockRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
