// Package syncmap provides a typed concurrent map.
package syncmap

import "sync"

// Map is a concurrent map guarded by a RWMutex. It suits read-mostly
// workloads where key and value types are known at compile time.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

// Load returns the value for key and whether it was present.
func (sm *Map[K, V]) Load(key K) (value V, ok bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	value, ok = sm.m[key]
	return
}

// Store sets the value for key.
func (sm *Map[K, V]) Store(key K, value V) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.m[key] = value
}

// Swap stores value for key and returns the previous value, if any.
func (sm *Map[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	previous, loaded = sm.m[key]
	sm.m[key] = value
	return
}

// LoadOrCreate returns the value for key, calling create and storing its
// result if key is absent. create runs at most once per missing key.
func (sm *Map[K, V]) LoadOrCreate(key K, create func() V) V {
	sm.mu.RLock()
	v, ok := sm.m[key]
	sm.mu.RUnlock()
	if ok {
		return v
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if v, ok = sm.m[key]; ok {
		return v
	}
	v = create()
	sm.m[key] = v
	return v
}

// DeleteIf deletes key only if match reports true for its value.
// It returns whether the key was deleted.
func (sm *Map[K, V]) DeleteIf(key K, match func(V) bool) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	v, ok := sm.m[key]
	if !ok || !match(v) {
		return false
	}
	delete(sm.m, key)
	return true
}

// Delete removes key.
func (sm *Map[K, V]) Delete(key K) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.m, key)
}

// Range calls fn for a snapshot of the entries. fn may modify the map.
func (sm *Map[K, V]) Range(fn func(K, V) bool) {
	sm.mu.RLock()
	snapshot := make(map[K]V, len(sm.m))
	for k, v := range sm.m {
		snapshot[k] = v
	}
	sm.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// Len returns the number of entries.
func (sm *Map[K, V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.m)
}
