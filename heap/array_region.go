package heap

import (
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// ArrayRegion stores the elements of every array of one type. It is an immutable value: every update returns a new
// region.
type ArrayRegion struct {
	partition
}

// NewArrayRegion creates an empty array region.
func NewArrayRegion(ctx *expr.Context, id memory.RegionID) ArrayRegion {
	if id.Kind != memory.ArrayKind {
		memory.Violatef("region %v is not an array region", id)
	}
	return ArrayRegion{partition: newPartition(ctx, id)}
}

// ID returns the identity of the region.
func (r ArrayRegion) ID() memory.RegionID {
	return r.id
}

// Read returns the element at index of the array ref denotes.
func (r ArrayRegion) Read(ref, index *expr.Expr) *expr.Expr {
	return r.read(ref, index)
}

// Write stores value at index of the array ref denotes, under guard.
func (r ArrayRegion) Write(ref, index, value, guard *expr.Expr, owner trie.Ownership) ArrayRegion {
	return ArrayRegion{partition: r.write(ref, index, value, guard, owner)}
}

// Memcpy makes the elements [dstFrom, dstTo] of the destination array read through to the source array, starting at
// srcFrom. Each pair of leaves of both references contributes one ranged update under the conjunction of their
// guards; no element is enumerated.
func (r ArrayRegion) Memcpy(srcRef, dstRef, srcFrom, dstFrom, dstTo, guard *expr.Expr, owner trie.Ownership) ArrayRegion {
	span := copyRange{srcFrom: srcFrom, dstFrom: dstFrom, dstTo: dstTo}
	return memory.FoldHeapRef2(srcRef, dstRef, guard, r, true, func(acc ArrayRegion, src, dst memory.GuardedRef) ArrayRegion {
		g := dst.Guard
		switch {
		case src.Ref.IsConcreteRef() && dst.Ref.IsConcreteRef():
			source := acc.collection(src.Ref.Address())
			target := acc.collection(dst.Ref.Address())
			copied := memory.CopyRange[*expr.Expr, *expr.Expr](target, source, allocatedToAllocatedCopy{span}, g)
			acc.partition = acc.withCollection(dst.Ref.Address(), copied, owner)
		case src.Ref.IsConcreteRef():
			source := acc.collection(src.Ref.Address())
			adapter := allocatedToInputCopy{copyRange: span, dstRef: dst.Ref}
			acc.input = memory.CopyRange[*expr.Expr, memory.RefKey](acc.input, source, adapter, g)
		case dst.Ref.IsConcreteRef():
			target := acc.collection(dst.Ref.Address())
			adapter := inputToAllocatedCopy{copyRange: span, srcRef: src.Ref}
			copied := memory.CopyRange[memory.RefKey, *expr.Expr](target, acc.input, adapter, g)
			acc.partition = acc.withCollection(dst.Ref.Address(), copied, owner)
		default:
			adapter := inputToInputCopy{copyRange: span, srcRef: src.Ref, dstRef: dst.Ref}
			acc.input = memory.CopyRange[memory.RefKey, memory.RefKey](acc.input, acc.input, adapter, g)
		}
		return acc
	})
}

// InitializeAllocatedArray writes the provided contents at indices 0..len(contents)-1 of the allocated array.
func (r ArrayRegion) InitializeAllocatedArray(address uint64, contents []*expr.Expr, owner trie.Ownership) ArrayRegion {
	c := r.collection(address)
	for i, value := range contents {
		c = c.Write(r.ctx.BitVec(memory.SizeSort.Width, uint64(i)), value, r.ctx.True())
	}
	return ArrayRegion{partition: r.withCollection(address, c, owner)}
}
