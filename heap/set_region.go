package heap

import (
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// SetRegion stores the membership of primitive elements in every set of one type, or the key sets of every map of one
// type.
type SetRegion struct {
	partition
}

// NewSetRegion creates an empty set region. Sets of references are not supported.
func NewSetRegion(ctx *expr.Context, id memory.RegionID) SetRegion {
	if id.Kind != memory.SetKind {
		memory.Violatef("region %v is not a set region", id)
	}
	if id.KeySort.IsAddress() {
		memory.Violatef("set region %v cannot hold references", id)
	}
	return SetRegion{partition: newPartition(ctx, id)}
}

// ID returns the identity of the region.
func (r SetRegion) ID() memory.RegionID {
	return r.id
}

func checkKeyRef(ref *expr.Expr) {
	if ref.IsNullRef() {
		memory.Violatef("null reference in key position")
	}
}

// Contains returns whether elem is in the set ref denotes.
func (r SetRegion) Contains(ref, elem *expr.Expr) *expr.Expr {
	checkKeyRef(ref)
	return r.read(ref, elem)
}

// Write sets whether elem is in the set ref denotes, under guard.
func (r SetRegion) Write(ref, elem, contains, guard *expr.Expr, owner trie.Ownership) SetRegion {
	checkKeyRef(ref)
	return SetRegion{partition: r.write(ref, elem, contains, guard, owner)}
}

// Union adds every element of the source set to the destination set, under guard. The source is referenced, not
// enumerated.
func (r SetRegion) Union(srcRef, dstRef, guard *expr.Expr, owner trie.Ownership) SetRegion {
	return SetRegion{partition: unionPartition(r.partition, r.partition, srcRef, dstRef, guard, owner)}
}

// Entries lists the elements ever written to the set ref denotes. The list is flagged incomplete when the set may
// hold elements of an unresolved reference.
func (r SetRegion) Entries(ref *expr.Expr) memory.Elements[*expr.Expr] {
	checkKeyRef(ref)
	return r.elements(ref)
}

// IntersectionSize returns the amount of distinct elements in both sets. The size is enumerated when either set is
// allocated and completely known, and is an opaque reading otherwise.
func (r SetRegion) IntersectionSize(a, b *expr.Expr) *expr.Expr {
	checkKeyRef(a)
	checkKeyRef(b)
	size := func(leafA memory.GuardedRef) *expr.Expr {
		pair := func(leafB memory.GuardedRef) *expr.Expr {
			return r.intersectionSize(leafA.Ref, leafB.Ref)
		}
		return memory.MapHeapRef(b, true, pair, pair)
	}
	return memory.MapHeapRef(a, true, size, size)
}

func (r SetRegion) intersectionSize(a, b *expr.Expr) *expr.Expr {
	ctx := r.ctx
	// An element is counted unless an earlier listed element equals it. Distinct literals never collide, so fully
	// concrete lists count to a constant.
	count := func(elements []*expr.Expr) *expr.Expr {
		size := ctx.BitVec(memory.SizeSort.Width, 0)
		one := ctx.BitVec(memory.SizeSort.Width, 1)
		for i, e := range elements {
			counted := []*expr.Expr{r.read(a, e), r.read(b, e)}
			for _, earlier := range elements[:i] {
				counted = append(counted, ctx.Not(ctx.Eq(earlier, e)))
			}
			size = ctx.Ite(ctx.And(counted...), ctx.Add(size, one), size)
		}
		return size
	}

	if a.IsConcreteRef() {
		if elements := r.elements(a); elements.Complete() {
			return count(elements.Keys)
		}
	}
	if b.IsConcreteRef() {
		if elements := r.elements(b); elements.Complete() {
			return count(elements.Keys)
		}
	}
	return ctx.Reading("intersection-size:"+r.id.String(), memory.SizeSort, a, b)
}

// unionPartition adds the keys of src to dst in the destination partition, for every pair of leaves of both
// references. keys is the partition holding the key sets of the source: the source itself for sets, and the key set
// region for maps.
//
// Leaf pairs have mutually exclusive guards, so reading sources from the accumulated partition is equivalent to
// reading them from dst.
func unionPartition(dst, keys partition, srcRef, dstRef, guard *expr.Expr, owner trie.Ownership) partition {
	return memory.FoldHeapRef2(srcRef, dstRef, guard, dst, true, func(acc partition, src, d memory.GuardedRef) partition {
		g := d.Guard
		switch {
		case src.Ref.IsConcreteRef() && d.Ref.IsConcreteRef():
			adapter := allocatedToAllocatedUnion{keys: keys.collection(src.Ref.Address())}
			target := acc.collection(d.Ref.Address())
			merged := memory.CopyRange[*expr.Expr, *expr.Expr](target, acc.collection(src.Ref.Address()), adapter, g)
			return acc.withCollection(d.Ref.Address(), merged, owner)
		case src.Ref.IsConcreteRef():
			adapter := allocatedToInputUnion{keys: keys.collection(src.Ref.Address()), dstRef: d.Ref}
			acc.input = memory.CopyRange[*expr.Expr, memory.RefKey](acc.input, acc.collection(src.Ref.Address()), adapter, g)
			return acc
		case d.Ref.IsConcreteRef():
			adapter := inputToAllocatedUnion{keys: keys.input, srcRef: src.Ref}
			target := acc.collection(d.Ref.Address())
			merged := memory.CopyRange[memory.RefKey, *expr.Expr](target, acc.input, adapter, g)
			return acc.withCollection(d.Ref.Address(), merged, owner)
		default:
			adapter := inputToInputUnion{keys: keys.input, srcRef: src.Ref, dstRef: d.Ref}
			acc.input = memory.CopyRange[memory.RefKey, memory.RefKey](acc.input, acc.input, adapter, g)
			return acc
		}
	})
}
