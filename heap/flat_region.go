package heap

import (
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// FlatRegion stores a single value per entity: an object field, an array length or a map length. Allocated entities
// hold their value directly, folded with ite on guarded writes; unresolved references share one input collection
// keyed by reference.
type FlatRegion struct {
	id        memory.RegionID
	ctx       *expr.Context
	allocated trie.Map[uint64, *expr.Expr]
	input     memory.Collection[*expr.Expr]
}

// NewFlatRegion creates an empty flat region.
func NewFlatRegion(ctx *expr.Context, id memory.RegionID) FlatRegion {
	if !id.IsFlat() {
		memory.Violatef("region %v is not flat", id)
	}
	return FlatRegion{
		id:        id,
		ctx:       ctx,
		allocated: trie.NewMap[uint64, *expr.Expr](trie.Uint64Hasher),
		input:     memory.NewCollection[*expr.Expr](ctx, flatInputID{region: id}),
	}
}

// ID returns the identity of the region.
func (r FlatRegion) ID() memory.RegionID {
	return r.id
}

func (r FlatRegion) value(address uint64) *expr.Expr {
	if v, ok := r.allocated.Get(address); ok {
		return v
	}
	return r.ctx.Sample(r.id.Sort)
}

// Read returns the value of the entity ref denotes.
func (r FlatRegion) Read(ref *expr.Expr) *expr.Expr {
	return memory.MapHeapRef(ref, true,
		func(leaf memory.GuardedRef) *expr.Expr {
			return r.value(leaf.Ref.Address())
		},
		func(leaf memory.GuardedRef) *expr.Expr {
			return r.input.Read(leaf.Ref, nil)
		},
	)
}

// Write stores value for every entity ref may denote, each under the guard of its leaf.
func (r FlatRegion) Write(ref, value, guard *expr.Expr, owner trie.Ownership) FlatRegion {
	return memory.FoldHeapRef(ref, guard, r, true,
		func(acc FlatRegion, leaf memory.GuardedRef) FlatRegion {
			address := leaf.Ref.Address()
			acc.allocated = acc.allocated.Put(address, r.ctx.Ite(leaf.Guard, value, acc.value(address)), owner)
			return acc
		},
		func(acc FlatRegion, leaf memory.GuardedRef) FlatRegion {
			acc.input = acc.input.Write(leaf.Ref, value, leaf.Guard)
			return acc
		},
	)
}
