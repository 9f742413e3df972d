package memo

import "sync"

// Memo is a small keyed memoization table meant to live for a single
// resolution pass or request. It is deliberately not a process-wide cache:
// staleness across concurrent mutations is avoided by throwing the whole
// table away with the pass that created it.
type Memo struct {
	mu    sync.RWMutex
	items map[string]any
}

// New creates an empty memoization table.
func New() *Memo {
	return &Memo{items: map[string]any{}}
}

// Get retrieves a memoized value.
func (m *Memo) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// Set stores a value under key, replacing any previous entry.
func (m *Memo) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
}

// Delete removes a key.
func (m *Memo) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Len returns the number of memoized entries.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
