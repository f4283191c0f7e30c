// Package trie provides persistent hash tries: immutable maps and sets indexed by 5-bit hash segments with
// structural sharing between versions. Every mutating operation takes an Ownership token; nodes created under a token
// are updated in place by later operations carrying the same token, which makes long chains of updates by a single
// owner cheap. Pure operations (NoOwnership) always copy the touched path.
//
// Versions produced under one token form a lineage: after an owned update, only the newest version of the lineage
// may be used, because older versions may share the nodes that were updated in place. Snapshots which must stay
// observable are taken by switching the owner to a fresh token.
package trie

import "iter"

// Map is a persistent map from K to V. The zero value is not usable; create maps with NewMap.
type Map[K comparable, V any] struct {
	root   *node[K, V]
	hasher Hasher[K]
}

// NewMap creates an empty map using the provided hasher.
func NewMap[K comparable, V any](hasher Hasher[K]) Map[K, V] {
	return Map[K, V]{root: &node[K, V]{}, hasher: hasher}
}

// Len returns the amount of entries in the map.
func (m Map[K, V]) Len() int {
	return m.root.size
}

// Get returns the value bound to key, if any.
func (m Map[K, V]) Get(key K) (V, bool) {
	return m.root.get(m.hasher(key), key, 0)
}

// Contains indicates whether key is bound in the map.
func (m Map[K, V]) Contains(key K) bool {
	return m.root.has(m.hasher(key), key, 0)
}

// Put returns the map with key bound to val.
func (m Map[K, V]) Put(key K, val V, owner Ownership) Map[K, V] {
	root, _ := m.root.put(m.hasher(key), key, val, 0, owner)
	return Map[K, V]{root: root, hasher: m.hasher}
}

// Remove returns the map without key. The map itself is returned if key was not bound.
func (m Map[K, V]) Remove(key K, owner Ownership) Map[K, V] {
	root, removed := m.root.remove(m.hasher(key), key, 0, owner)
	if !removed {
		return m
	}
	return Map[K, V]{root: root, hasher: m.hasher}
}

// All iterates over the entries of the map in hash order.
func (m Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.root.each(yield)
	}
}

// Same indicates whether both maps share their root, in which case they are equal without inspection.
func (m Map[K, V]) Same(other Map[K, V]) bool {
	return m.root == other.root
}
