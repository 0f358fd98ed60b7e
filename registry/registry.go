// Package registry provides a keyed collection that notifies injected
// callbacks when entries are inserted or removed.
//
// The owner of a Registry learns about additions and deletions made by any
// writer without polling:
//
//	kernels := registry.New(
//	    func(id string, k *Kernel) { log.Println("added", id) },
//	    func(id string) { log.Println("removed", id) },
//	)
//	kernels.Insert("k1", k)
//	kernels.Remove("k1")
package registry

import (
	"iter"
	"maps"
	"sync"
)

// Registry maps keys to values and fires OnInserted after every successful
// Insert (including overwrites) and OnRemoved after every removal of an
// existing key. Writers and their callbacks are serialized, so callbacks run
// in mutation order. Callbacks may read the registry but must not write it.
// Thread-safe for concurrent access.
type Registry[K comparable, V any] struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	entries map[K]V

	onInserted func(K, V)
	onRemoved  func(K)
}

// New creates an empty Registry. Either callback may be nil.
func New[K comparable, V any](onInserted func(K, V), onRemoved func(K)) *Registry[K, V] {
	return &Registry[K, V]{
		entries:    make(map[K]V),
		onInserted: onInserted,
		onRemoved:  onRemoved,
	}
}

// Insert stores value under key, then calls OnInserted.
func (r *Registry[K, V]) Insert(key K, value V) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	r.entries[key] = value
	r.mu.Unlock()

	if r.onInserted != nil {
		r.onInserted(key, value)
	}
}

// Remove deletes key and calls OnRemoved before returning. Reports whether
// the key was present; OnRemoved is not called for missing keys.
func (r *Registry[K, V]) Remove(key K) bool {
	_, ok := r.Pop(key)
	return ok
}

// Pop deletes key and returns the value it held, calling OnRemoved before
// returning.
func (r *Registry[K, V]) Pop(key K) (V, bool) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	value, exists := r.entries[key]
	if exists {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if exists && r.onRemoved != nil {
		r.onRemoved(key)
	}
	return value, exists
}

// Get returns the value stored under key.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, exists := r.entries[key]
	return value, exists
}

// Has reports whether key is present.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[key]
	return exists
}

func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns a snapshot of the registered keys in no particular order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]K, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	return keys
}

// All iterates over a snapshot taken when iteration starts.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		r.mu.RLock()
		snapshot := maps.Clone(r.entries)
		r.mu.RUnlock()

		for key, value := range snapshot {
			if !yield(key, value) {
				return
			}
		}
	}
}
