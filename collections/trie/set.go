package trie

import "iter"

// Set is a persistent set of E. The zero value is not usable; create sets with NewSet.
type Set[E comparable] struct {
	root   *node[E, struct{}]
	hasher Hasher[E]
}

// NewSet creates an empty set using the provided hasher.
func NewSet[E comparable](hasher Hasher[E]) Set[E] {
	return Set[E]{root: &node[E, struct{}]{}, hasher: hasher}
}

// SetOf creates a set holding the provided elements.
func SetOf[E comparable](hasher Hasher[E], elems ...E) Set[E] {
	s := NewSet(hasher)
	owner := NewOwnership()
	for _, e := range elems {
		s = s.Add(e, owner)
	}
	return s
}

// Len returns the amount of elements in the set.
func (s Set[E]) Len() int {
	return s.root.size
}

// Contains indicates whether elem is in the set.
func (s Set[E]) Contains(elem E) bool {
	return s.root.has(s.hasher(elem), elem, 0)
}

// Add returns the set with elem added. The set itself is returned if elem was already present.
func (s Set[E]) Add(elem E, owner Ownership) Set[E] {
	hash := s.hasher(elem)
	if s.root.has(hash, elem, 0) {
		return s
	}
	root, _ := s.root.put(hash, elem, struct{}{}, 0, owner)
	return s.with(root)
}

// Remove returns the set without elem. The set itself is returned if elem was absent.
func (s Set[E]) Remove(elem E, owner Ownership) Set[E] {
	root, removed := s.root.remove(s.hasher(elem), elem, 0, owner)
	if !removed {
		return s
	}
	return s.with(root)
}

// Union returns the elements in either set. Unchanged sub-tries of both operands are shared with the result, and
// the union of a set with itself is the set.
func (s Set[E]) Union(other Set[E], owner Ownership) Set[E] {
	return s.with(union(s.root, other.root, 0, owner))
}

// RetainAll returns the elements of s which are also in other.
func (s Set[E]) RetainAll(other Set[E], owner Ownership) Set[E] {
	return s.with(retain(s.root, other.root, 0, owner))
}

// RemoveAll returns the elements of s which are not in other.
func (s Set[E]) RemoveAll(other Set[E], owner Ownership) Set[E] {
	return s.with(subtract(s.root, other.root, 0, owner))
}

// Equal indicates whether both sets hold the same elements.
func (s Set[E]) Equal(other Set[E]) bool {
	if s.root == other.root {
		return true
	}
	if s.Len() != other.Len() {
		return false
	}
	for e := range s.All() {
		if !other.Contains(e) {
			return false
		}
	}
	return true
}

// All iterates over the elements of the set in hash order.
func (s Set[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		s.root.each(func(e E, _ struct{}) bool {
			return yield(e)
		})
	}
}

func (s Set[E]) with(root *node[E, struct{}]) Set[E] {
	if root == s.root {
		return s
	}
	return Set[E]{root: root, hasher: s.hasher}
}
