package heap

import (
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// MapRegion stores the values of every map of one type. Key membership is kept in the key set region of the maps,
// and lengths in their map length region.
type MapRegion struct {
	partition
}

// NewMapRegion creates an empty map region. Maps keyed by references are not supported.
func NewMapRegion(ctx *expr.Context, id memory.RegionID) MapRegion {
	if id.Kind != memory.MapKind {
		memory.Violatef("region %v is not a map region", id)
	}
	if id.KeySort.IsAddress() {
		memory.Violatef("map region %v cannot be keyed by references", id)
	}
	return MapRegion{partition: newPartition(ctx, id)}
}

// ID returns the identity of the region.
func (r MapRegion) ID() memory.RegionID {
	return r.id
}

// Read returns the value bound to key in the map ref denotes. Keys which are not contained read as the sample value.
func (r MapRegion) Read(ref, key *expr.Expr) *expr.Expr {
	checkKeyRef(ref)
	return r.read(ref, key)
}

// Write binds key to value in the map ref denotes, under guard. Key sets and lengths are not updated.
func (r MapRegion) Write(ref, key, value, guard *expr.Expr, owner trie.Ownership) MapRegion {
	checkKeyRef(ref)
	return MapRegion{partition: r.write(ref, key, value, guard, owner)}
}

// Merge binds every key contained in the source map to its source value in the destination map, under guard. keys is
// the key set region of the maps before the merge.
func (r MapRegion) Merge(srcRef, dstRef, guard *expr.Expr, keys SetRegion, owner trie.Ownership) MapRegion {
	if keys.id != r.id.KeySetID() {
		memory.Violatef("region %v is not the key set of %v", keys.id, r.id)
	}
	return MapRegion{partition: unionPartition(r.partition, keys.partition, srcRef, dstRef, guard, owner)}
}
