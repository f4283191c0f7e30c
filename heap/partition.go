package heap

import (
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// partition splits the storage of a keyed region (arrays, sets and maps) between one collection per allocated address
// and a single input collection keyed by (reference, key) for every unresolved reference.
type partition struct {
	id        memory.RegionID
	ctx       *expr.Context
	allocated trie.Map[uint64, memory.Collection[*expr.Expr]]
	input     memory.Collection[memory.RefKey]
}

func newPartition(ctx *expr.Context, id memory.RegionID) partition {
	return partition{
		id:        id,
		ctx:       ctx,
		allocated: trie.NewMap[uint64, memory.Collection[*expr.Expr]](trie.Uint64Hasher),
		input:     memory.NewCollection[memory.RefKey](ctx, inputID{region: id}),
	}
}

// collection returns the collection of the allocated address. Addresses never written to yield an empty collection
// which is not stored.
func (p partition) collection(address uint64) memory.Collection[*expr.Expr] {
	if c, ok := p.allocated.Get(address); ok {
		return c
	}
	return memory.NewCollection[*expr.Expr](p.ctx, allocatedID{region: p.id, address: address})
}

// withCollection returns the partition with the collection of the allocated address replaced.
func (p partition) withCollection(address uint64, c memory.Collection[*expr.Expr], owner trie.Ownership) partition {
	p.allocated = p.allocated.Put(address, c, owner)
	return p
}

// read returns the value at key of the entity ref denotes, split over the leaves of ref.
func (p partition) read(ref, key *expr.Expr) *expr.Expr {
	return memory.MapHeapRef(ref, true,
		func(leaf memory.GuardedRef) *expr.Expr {
			return p.collection(leaf.Ref.Address()).Read(key, nil)
		},
		func(leaf memory.GuardedRef) *expr.Expr {
			return p.input.Read(memory.RefKey{Ref: leaf.Ref, Key: key}, nil)
		},
	)
}

// write stores value at key of every entity ref may denote, each under the guard of its leaf.
func (p partition) write(ref, key, value, guard *expr.Expr, owner trie.Ownership) partition {
	return memory.FoldHeapRef(ref, guard, p, true,
		func(acc partition, leaf memory.GuardedRef) partition {
			address := leaf.Ref.Address()
			return acc.withCollection(address, acc.collection(address).Write(key, value, leaf.Guard), owner)
		},
		func(acc partition, leaf memory.GuardedRef) partition {
			acc.input = acc.input.Write(memory.RefKey{Ref: leaf.Ref, Key: key}, value, leaf.Guard)
			return acc
		},
	)
}

// elements lists the keys ever written to the entities ref may denote. Keys of the input collection are included
// when their reference may alias a symbolic leaf of ref, and make the list incomplete.
func (p partition) elements(ref *expr.Expr) memory.Elements[*expr.Expr] {
	var elements memory.Elements[*expr.Expr]
	return memory.FoldHeapRef(ref, p.ctx.True(), elements, true,
		func(acc memory.Elements[*expr.Expr], leaf memory.GuardedRef) memory.Elements[*expr.Expr] {
			p.collection(leaf.Ref.Address()).CollectInto(&acc)
			return acc
		},
		func(acc memory.Elements[*expr.Expr], leaf memory.GuardedRef) memory.Elements[*expr.Expr] {
			for _, key := range inputKeysOf(p.input, leaf.Ref) {
				acc.Add(key)
			}
			acc.MarkInput()
			return acc
		},
	)
}
