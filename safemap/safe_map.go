// Package safemap is a generic, concurrency-safe map over sync.Map. The dev
// server keeps its connected players in one.
package safemap

import "sync"

// SafeMap maps comparable keys to values and may be used from many
// goroutines at once. The zero value is empty and ready to use; it must not
// be copied after first use.
type SafeMap[K comparable, V any] struct {
	m sync.Map
}

// New returns an empty SafeMap.
func New[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{}
}

// Store sets the value for k, replacing any previous one.
func (m *SafeMap[K, V]) Store(k K, v V) {
	m.m.Store(k, v)
}

// Load returns the value for k.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value, or the zero V when k is absent
//   - Whether k was present
func (m *SafeMap[K, V]) Load(k K) (V, bool) {
	v, ok := m.m.Load(k)
	if !ok {
		var zero V
		return zero, false
	}

	return v.(V), true
}

// Delete removes k; deleting an absent key is a no-op.
func (m *SafeMap[K, V]) Delete(k K) {
	m.m.Delete(k)
}

// Range calls f for every entry until f returns false. Entries stored or
// deleted during the walk may or may not be visited.
func (m *SafeMap[K, V]) Range(f func(k K, v V) bool) {
	m.m.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}

// Len counts the entries by walking the whole map.
func (m *SafeMap[K, V]) Len() int {
	n := 0
	m.Range(func(K, V) bool {
		n++
		return true
	})

	return n
}
