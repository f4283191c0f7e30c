package trie

import (
	"math/bits"
	"slices"
)

const (
	// bitsPerLevel is the amount of hash bits consumed by each trie level.
	bitsPerLevel = 5
	// levelMask selects the hash bits of one level.
	levelMask = 1<<bitsPerLevel - 1
	// maxShift is the last shift at which hash bits remain. Deeper nodes are collision nodes holding a plain list.
	maxShift = 30
)

// cell is a slot of a trie node: either an entry (sub is nil) or a reference to a sub-node.
type cell[K comparable, V any] struct {
	hash uint32
	key  K
	val  V
	sub  *node[K, V]
}

// node is a bitmap-indexed trie node. Cells are ordered by the bit they occupy in bitmap. Nodes deeper than maxShift
// are collision nodes: their bitmap is unused and their cells are entries with identical hashes.
//
// Every node other than a root holds at least two entries, so removing down to a single entry inlines it into the
// parent.
type node[K comparable, V any] struct {
	bitmap uint32
	cells  []cell[K, V]

	// size is the amount of entries reachable from this node.
	size int

	// owner is the token allowed to mutate this node in place.
	owner Ownership
}

// position returns the bitmap bit selected by the hash at the given shift.
func position(hash uint32, shift uint) uint32 {
	return 1 << ((hash >> shift) & levelMask)
}

// index returns the cell index of the given bitmap bit.
func (n *node[K, V]) index(bit uint32) int {
	return bits.OnesCount32(n.bitmap & (bit - 1))
}

// editable returns n itself if the token owns it, or an owned shallow copy otherwise.
func (n *node[K, V]) editable(owner Ownership) *node[K, V] {
	if owner.IsOwner(n.owner) {
		return n
	}
	return &node[K, V]{
		bitmap: n.bitmap,
		cells:  slices.Clone(n.cells),
		size:   n.size,
		owner:  owner,
	}
}

func (n *node[K, V]) get(hash uint32, key K, shift uint) (V, bool) {
	for {
		if shift > maxShift {
			for i := range n.cells {
				if n.cells[i].key == key {
					return n.cells[i].val, true
				}
			}
			break
		}
		bit := position(hash, shift)
		if n.bitmap&bit == 0 {
			break
		}
		c := &n.cells[n.index(bit)]
		if c.sub == nil {
			if c.key == key {
				return c.val, true
			}
			break
		}
		n = c.sub
		shift += bitsPerLevel
	}
	var zero V
	return zero, false
}

func (n *node[K, V]) has(hash uint32, key K, shift uint) bool {
	_, ok := n.get(hash, key, shift)
	return ok
}

// put returns the node with key bound to val, and whether the key was absent before.
func (n *node[K, V]) put(hash uint32, key K, val V, shift uint, owner Ownership) (*node[K, V], bool) {
	entry := cell[K, V]{hash: hash, key: key, val: val}
	if shift > maxShift {
		for i := range n.cells {
			if n.cells[i].key == key {
				m := n.editable(owner)
				m.cells[i].val = val
				return m, false
			}
		}
		m := n.editable(owner)
		m.cells = append(m.cells, entry)
		m.size++
		return m, true
	}

	bit := position(hash, shift)
	idx := n.index(bit)
	if n.bitmap&bit == 0 {
		m := n.editable(owner)
		m.cells = slices.Insert(m.cells, idx, entry)
		m.bitmap |= bit
		m.size++
		return m, true
	}

	c := n.cells[idx]
	switch {
	case c.sub != nil:
		sub, added := c.sub.put(hash, key, val, shift+bitsPerLevel, owner)
		if sub == c.sub && !added {
			return n, false
		}
		m := n.editable(owner)
		m.cells[idx].sub = sub
		if added {
			m.size++
		}
		return m, added
	case c.key == key:
		m := n.editable(owner)
		m.cells[idx].val = val
		return m, false
	default:
		m := n.editable(owner)
		m.cells[idx] = cell[K, V]{sub: mergeCells(c, entry, shift+bitsPerLevel, owner)}
		m.size++
		return m, true
	}
}

// mergeCells builds the smallest sub-trie holding two entries with distinct keys.
func mergeCells[K comparable, V any](a, b cell[K, V], shift uint, owner Ownership) *node[K, V] {
	if shift > maxShift {
		return &node[K, V]{cells: []cell[K, V]{a, b}, size: 2, owner: owner}
	}
	bitA, bitB := position(a.hash, shift), position(b.hash, shift)
	if bitA == bitB {
		sub := mergeCells(a, b, shift+bitsPerLevel, owner)
		return &node[K, V]{bitmap: bitA, cells: []cell[K, V]{{sub: sub}}, size: 2, owner: owner}
	}
	if bitA > bitB {
		a, b = b, a
	}
	return &node[K, V]{bitmap: bitA | bitB, cells: []cell[K, V]{a, b}, size: 2, owner: owner}
}

// remove returns the node without key, and whether the key was present.
func (n *node[K, V]) remove(hash uint32, key K, shift uint, owner Ownership) (*node[K, V], bool) {
	if shift > maxShift {
		for i := range n.cells {
			if n.cells[i].key == key {
				m := n.editable(owner)
				m.cells = slices.Delete(m.cells, i, i+1)
				m.size--
				return m, true
			}
		}
		return n, false
	}

	bit := position(hash, shift)
	if n.bitmap&bit == 0 {
		return n, false
	}
	idx := n.index(bit)
	c := n.cells[idx]
	if c.sub == nil {
		if c.key != key {
			return n, false
		}
		m := n.editable(owner)
		m.cells = slices.Delete(m.cells, idx, idx+1)
		m.bitmap &^= bit
		m.size--
		return m, true
	}

	sub, removed := c.sub.remove(hash, key, shift+bitsPerLevel, owner)
	if !removed {
		return n, false
	}
	m := n.editable(owner)
	m.cells[idx] = canonicalCell(sub)
	m.size--
	return m, true
}

// canonicalCell returns the cell referencing sub, inlining sub when it holds a single entry.
func canonicalCell[K comparable, V any](sub *node[K, V]) cell[K, V] {
	if sub.size == 1 {
		return sub.cells[0]
	}
	return cell[K, V]{sub: sub}
}

// cellSize returns the amount of entries reachable from a cell.
func cellSize[K comparable, V any](c cell[K, V]) int {
	if c.sub != nil {
		return c.sub.size
	}
	return 1
}

// appendCell adds c at bit to a node under construction, dropping empty sub-tries and inlining single entries.
func (n *node[K, V]) appendCell(bit uint32, c cell[K, V]) {
	if c.sub != nil {
		if c.sub.size == 0 {
			return
		}
		c = canonicalCell(c.sub)
	}
	n.bitmap |= bit
	n.cells = append(n.cells, c)
	n.size += cellSize(c)
}

// each calls yield for every entry until yield returns false. It reports whether the iteration ran to completion.
func (n *node[K, V]) each(yield func(K, V) bool) bool {
	for i := range n.cells {
		c := &n.cells[i]
		if c.sub != nil {
			if !c.sub.each(yield) {
				return false
			}
			continue
		}
		if !yield(c.key, c.val) {
			return false
		}
	}
	return true
}

// union returns the entries of a and b. Entries of a win on equal keys. Neither input is mutated: new nodes are
// owned by owner and unchanged sub-tries of both inputs are shared.
func union[K comparable, V any](a, b *node[K, V], shift uint, owner Ownership) *node[K, V] {
	if a == b {
		return a
	}
	m := &node[K, V]{owner: owner}
	if shift > maxShift {
		m.cells = slices.Clone(a.cells)
		for _, c := range b.cells {
			if !a.has(c.hash, c.key, shift) {
				m.cells = append(m.cells, c)
			}
		}
		m.size = len(m.cells)
	} else {
		for bm := a.bitmap | b.bitmap; bm != 0; bm &= bm - 1 {
			bit := bm & (^bm + 1)
			inA, inB := a.bitmap&bit != 0, b.bitmap&bit != 0
			switch {
			case !inB:
				m.appendCell(bit, a.cells[a.index(bit)])
			case !inA:
				m.appendCell(bit, b.cells[b.index(bit)])
			default:
				m.appendCell(bit, unionCells(a.cells[a.index(bit)], b.cells[b.index(bit)], shift+bitsPerLevel, owner))
			}
		}
	}

	switch m.size {
	case a.size:
		return a
	case b.size:
		return b
	}
	return m
}

func unionCells[K comparable, V any](ca, cb cell[K, V], shift uint, owner Ownership) cell[K, V] {
	switch {
	case ca.sub == nil && cb.sub == nil:
		if ca.key == cb.key {
			return ca
		}
		return cell[K, V]{sub: mergeCells(ca, cb, shift, owner)}
	case cb.sub == nil:
		if ca.sub.has(cb.hash, cb.key, shift) {
			return ca
		}
		sub, _ := ca.sub.put(cb.hash, cb.key, cb.val, shift, NoOwnership)
		return cell[K, V]{sub: sub}
	case ca.sub == nil:
		// Keep the entry of a.
		sub, _ := cb.sub.put(ca.hash, ca.key, ca.val, shift, NoOwnership)
		return cell[K, V]{sub: sub}
	default:
		return cell[K, V]{sub: union(ca.sub, cb.sub, shift, owner)}
	}
}

// retain returns the entries of a whose keys are also in b.
func retain[K comparable, V any](a, b *node[K, V], shift uint, owner Ownership) *node[K, V] {
	if a == b {
		return a
	}
	m := &node[K, V]{owner: owner}
	if shift > maxShift {
		for _, c := range a.cells {
			if b.has(c.hash, c.key, shift) {
				m.cells = append(m.cells, c)
			}
		}
		m.size = len(m.cells)
	} else {
		for bm := a.bitmap & b.bitmap; bm != 0; bm &= bm - 1 {
			bit := bm & (^bm + 1)
			ca, cb := a.cells[a.index(bit)], b.cells[b.index(bit)]
			switch {
			case ca.sub == nil && cb.sub == nil:
				if ca.key == cb.key {
					m.appendCell(bit, ca)
				}
			case ca.sub == nil:
				if cb.sub.has(ca.hash, ca.key, shift+bitsPerLevel) {
					m.appendCell(bit, ca)
				}
			case cb.sub == nil:
				if val, ok := ca.sub.get(cb.hash, cb.key, shift+bitsPerLevel); ok {
					m.appendCell(bit, cell[K, V]{hash: cb.hash, key: cb.key, val: val})
				}
			default:
				m.appendCell(bit, cell[K, V]{sub: retain(ca.sub, cb.sub, shift+bitsPerLevel, owner)})
			}
		}
	}

	if m.size == a.size {
		return a
	}
	return m
}

// subtract returns the entries of a whose keys are not in b.
func subtract[K comparable, V any](a, b *node[K, V], shift uint, owner Ownership) *node[K, V] {
	m := &node[K, V]{owner: owner}
	if a == b {
		return m
	}
	if shift > maxShift {
		for _, c := range a.cells {
			if !b.has(c.hash, c.key, shift) {
				m.cells = append(m.cells, c)
			}
		}
		m.size = len(m.cells)
	} else {
		for bm := a.bitmap; bm != 0; bm &= bm - 1 {
			bit := bm & (^bm + 1)
			ca := a.cells[a.index(bit)]
			if b.bitmap&bit == 0 {
				m.appendCell(bit, ca)
				continue
			}
			cb := b.cells[b.index(bit)]
			switch {
			case ca.sub == nil && cb.sub == nil:
				if ca.key != cb.key {
					m.appendCell(bit, ca)
				}
			case ca.sub == nil:
				if !cb.sub.has(ca.hash, ca.key, shift+bitsPerLevel) {
					m.appendCell(bit, ca)
				}
			case cb.sub == nil:
				sub, _ := ca.sub.remove(cb.hash, cb.key, shift+bitsPerLevel, NoOwnership)
				m.appendCell(bit, cell[K, V]{sub: sub})
			default:
				m.appendCell(bit, cell[K, V]{sub: subtract(ca.sub, cb.sub, shift+bitsPerLevel, owner)})
			}
		}
	}

	if m.size == a.size {
		return a
	}
	return m
}
