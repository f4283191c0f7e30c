// Package heap implements the symbolic heap of one execution state: regions of arrays, fields, sets and maps split
// between allocated and input partitions, concrete address allocation, and forking of states.
package heap

import (
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/logging"
	"github.com/crytic/symheap/memory"
	"github.com/google/uuid"
)

// region is implemented by every region type stored in a heap.
type region interface {
	ID() memory.RegionID
}

// Heap is the memory of a single execution state. Regions are immutable values; the heap holds the current version
// of each and replaces it on every update. Updates are made under the heap's ownership token, so structure created by
// this heap since its last fork is updated in place. A Heap is not safe for concurrent use; concurrent states each use
// their own Heap, obtained through Fork.
type Heap struct {
	// ctx is the expression context every term of this heap is built in.
	ctx *expr.Context

	// id identifies the state this heap belongs to in logs and events.
	id uuid.UUID

	// owner is the token of this heap's in-place updates. It is NoOwnership in pure mode.
	owner trie.Ownership

	// pure disables in-place updates altogether.
	pure bool

	// nextAddress is the address the next allocation mints.
	nextAddress uint64

	// allocated holds every address minted by this heap or its ancestors.
	allocated trie.Set[uint64]

	// regions maps region ids to the current version of the region.
	regions trie.Map[memory.RegionID, region]

	// Events describes the event emitters of the heap.
	Events HeapEvents

	// logger describes the heap's logger.
	logger *logging.Logger
}

// NewHeap creates an empty heap. In pure mode every update copies the structure it touches; otherwise the heap
// updates the structure it owns in place.
func NewHeap(ctx *expr.Context, pure bool) *Heap {
	h := &Heap{
		ctx:         ctx,
		id:          uuid.New(),
		pure:        pure,
		nextAddress: 1,
		allocated:   trie.NewSet[uint64](trie.Uint64Hasher),
		regions:     trie.NewMap[memory.RegionID, region](memory.RegionIDHasher),
	}
	h.owner = h.newOwnership()
	h.logger = logging.GlobalLogger.NewSubLogger(logging.SERVICE_KEY, logging.HEAP_SERVICE).NewSubLogger(logging.HEAP_KEY, h.id.String())
	return h
}

func (h *Heap) newOwnership() trie.Ownership {
	if h.pure {
		return trie.NoOwnership
	}
	return trie.NewOwnership()
}

// ID returns the identifier of the heap.
func (h *Heap) ID() uuid.UUID {
	return h.id
}

// Context returns the expression context of the heap.
func (h *Heap) Context() *expr.Context {
	return h.ctx
}

// Fork returns a copy of the heap for a new execution state. Both heaps receive fresh ownership tokens, so no update
// of either is visible to the other.
func (h *Heap) Fork() *Heap {
	child := &Heap{
		ctx:         h.ctx,
		id:          uuid.New(),
		pure:        h.pure,
		nextAddress: h.nextAddress,
		allocated:   h.allocated,
		regions:     h.regions,
	}
	child.owner = child.newOwnership()
	child.logger = logging.GlobalLogger.NewSubLogger(logging.SERVICE_KEY, logging.HEAP_SERVICE).NewSubLogger(logging.HEAP_KEY, child.id.String())
	h.owner = h.newOwnership()

	h.logger.Debug("Forked heap ", child.id.String(), logging.StructuredLogInfo{"regions": h.regions.Len(), "allocated": h.allocated.Len()})
	if err := h.Events.Forked.Publish(HeapForkedEvent{Parent: h, Child: child}); err != nil {
		h.logger.Error("Fork event handler failed", err)
	}
	return child
}

// Snapshot returns a copy of the heap as it is now. The heap receives a fresh ownership token, so its later updates
// are not visible through the snapshot. The snapshot itself is pure.
func (h *Heap) Snapshot() *Heap {
	snapshot := &Heap{
		ctx:         h.ctx,
		id:          h.id,
		owner:       trie.NoOwnership,
		pure:        true,
		nextAddress: h.nextAddress,
		allocated:   h.allocated,
		regions:     h.regions,
		logger:      h.logger,
	}
	h.owner = h.newOwnership()
	return snapshot
}

// Allocate mints a fresh concrete address and returns the reference to it.
func (h *Heap) Allocate() *expr.Expr {
	address := h.nextAddress
	h.nextAddress++
	h.allocated = h.allocated.Add(address, h.owner)
	return h.ctx.ConcreteRef(address)
}

// AllocateArray allocates an array of the given length in the length region of arrays of the region's type.
func (h *Heap) AllocateArray(region memory.RegionID, length *expr.Expr) *expr.Expr {
	ref := h.Allocate()
	h.WriteArrayLength(region.LengthID(), ref, length, h.ctx.True())
	return ref
}

// IsAllocated indicates whether the address was minted by this heap or its ancestors.
func (h *Heap) IsAllocated(address uint64) bool {
	return h.allocated.Contains(address)
}

// checkRefs raises a contract violation if a concrete leaf of any reference was never allocated.
func (h *Heap) checkRefs(refs ...*expr.Expr) {
	check := func(_ struct{}, leaf memory.GuardedRef) struct{} {
		if !h.allocated.Contains(leaf.Ref.Address()) {
			memory.Violatef("address %d was never allocated", leaf.Ref.Address())
		}
		return struct{}{}
	}
	skip := func(acc struct{}, _ memory.GuardedRef) struct{} {
		return acc
	}
	for _, ref := range refs {
		if !ref.Sort().IsAddress() {
			memory.Violatef("term %v is not a reference", ref)
		}
		memory.FoldHeapRef(ref, h.ctx.True(), struct{}{}, true, check, skip)
	}
}

// lookup returns the stored version of a region, or nil if it was never updated.
func lookup[R region](h *Heap, id memory.RegionID) (R, bool) {
	var zero R
	stored, ok := h.regions.Get(id)
	if !ok {
		return zero, false
	}
	r, ok := stored.(R)
	if !ok {
		memory.Violatef("region %v holds a %T", id, stored)
	}
	return r, true
}

func (h *Heap) store(r region) {
	h.regions = h.regions.Put(r.ID(), r, h.owner)
}

func (h *Heap) arrayRegion(id memory.RegionID) ArrayRegion {
	if r, ok := lookup[ArrayRegion](h, id); ok {
		return r
	}
	return NewArrayRegion(h.ctx, id)
}

func (h *Heap) flatRegion(id memory.RegionID, kind memory.RegionKind) FlatRegion {
	if id.Kind != kind {
		memory.Violatef("region %v is not a %v region", id, kind)
	}
	if r, ok := lookup[FlatRegion](h, id); ok {
		return r
	}
	return NewFlatRegion(h.ctx, id)
}

func (h *Heap) setRegion(id memory.RegionID) SetRegion {
	if r, ok := lookup[SetRegion](h, id); ok {
		return r
	}
	return NewSetRegion(h.ctx, id)
}

func (h *Heap) mapRegion(id memory.RegionID) MapRegion {
	if r, ok := lookup[MapRegion](h, id); ok {
		return r
	}
	return NewMapRegion(h.ctx, id)
}

// ReadArrayIndex returns the element at index of the array ref denotes.
func (h *Heap) ReadArrayIndex(region memory.RegionID, ref, index *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.arrayRegion(region).Read(ref, index)
}

// WriteArrayIndex stores value at index of the array ref denotes, under guard.
func (h *Heap) WriteArrayIndex(region memory.RegionID, ref, index, value, guard *expr.Expr) {
	h.checkRefs(ref)
	h.store(h.arrayRegion(region).Write(ref, index, value, guard, h.owner))
}

// Memcpy makes the elements [dstFrom, dstTo] of the destination array read from the source array starting at srcFrom,
// under guard.
func (h *Heap) Memcpy(region memory.RegionID, srcRef, dstRef, srcFrom, dstFrom, dstTo, guard *expr.Expr) {
	h.checkRefs(srcRef, dstRef)
	h.store(h.arrayRegion(region).Memcpy(srcRef, dstRef, srcFrom, dstFrom, dstTo, guard, h.owner))
}

// InitializeAllocatedArray stores contents as the elements of the allocated array ref and sets its length.
func (h *Heap) InitializeAllocatedArray(region memory.RegionID, ref *expr.Expr, contents []*expr.Expr) {
	if !ref.IsConcreteRef() {
		memory.Violatef("array %v is not allocated", ref)
	}
	h.checkRefs(ref)
	h.store(h.arrayRegion(region).InitializeAllocatedArray(ref.Address(), contents, h.owner))
	length := h.ctx.BitVec(memory.SizeSort.Width, uint64(len(contents)))
	h.WriteArrayLength(region.LengthID(), ref, length, h.ctx.True())
}

// ReadArrayLength returns the length of the array ref denotes.
func (h *Heap) ReadArrayLength(region memory.RegionID, ref *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.flatRegion(region, memory.ArrayLengthKind).Read(ref)
}

// WriteArrayLength sets the length of the array ref denotes, under guard.
func (h *Heap) WriteArrayLength(region memory.RegionID, ref, length, guard *expr.Expr) {
	h.checkRefs(ref)
	h.store(h.flatRegion(region, memory.ArrayLengthKind).Write(ref, length, guard, h.owner))
}

// ReadField returns the value of the field of the object ref denotes.
func (h *Heap) ReadField(region memory.RegionID, ref *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.flatRegion(region, memory.FieldKind).Read(ref)
}

// WriteField sets the field of the object ref denotes, under guard.
func (h *Heap) WriteField(region memory.RegionID, ref, value, guard *expr.Expr) {
	h.checkRefs(ref)
	h.store(h.flatRegion(region, memory.FieldKind).Write(ref, value, guard, h.owner))
}

// ReadSetEntry returns whether elem is in the set ref denotes.
func (h *Heap) ReadSetEntry(region memory.RegionID, ref, elem *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.setRegion(region).Contains(ref, elem)
}

// WriteSetEntry sets whether elem is in the set ref denotes, under guard.
func (h *Heap) WriteSetEntry(region memory.RegionID, ref, elem, contains, guard *expr.Expr) {
	h.checkRefs(ref)
	h.store(h.setRegion(region).Write(ref, elem, contains, guard, h.owner))
}

// SetUnion adds every element of the source set to the destination set, under guard.
func (h *Heap) SetUnion(region memory.RegionID, srcRef, dstRef, guard *expr.Expr) {
	checkKeyRef(srcRef)
	checkKeyRef(dstRef)
	h.checkRefs(srcRef, dstRef)
	h.store(h.setRegion(region).Union(srcRef, dstRef, guard, h.owner))
}

// SetEntries lists the elements ever written to the set ref denotes.
func (h *Heap) SetEntries(region memory.RegionID, ref *expr.Expr) memory.Elements[*expr.Expr] {
	h.checkRefs(ref)
	return h.setRegion(region).Entries(ref)
}

// SetIntersectionSize returns the amount of elements contained in both sets.
func (h *Heap) SetIntersectionSize(region memory.RegionID, a, b *expr.Expr) *expr.Expr {
	h.checkRefs(a, b)
	return h.setRegion(region).IntersectionSize(a, b)
}

// ReadMapEntry returns the value bound to key in the map ref denotes.
func (h *Heap) ReadMapEntry(region memory.RegionID, ref, key *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.mapRegion(region).Read(ref, key)
}

// ContainsMapKey returns whether key is bound in the map ref denotes.
func (h *Heap) ContainsMapKey(region memory.RegionID, ref, key *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.setRegion(region.KeySetID()).Contains(ref, key)
}

// WriteMapEntry binds key to value in the map ref denotes, under guard, adding key to its key set and growing its
// length if key was not bound.
func (h *Heap) WriteMapEntry(region memory.RegionID, ref, key, value, guard *expr.Expr) {
	h.checkRefs(ref)
	contains := h.ContainsMapKey(region, ref, key)
	length := h.ReadMapLength(region.LengthID(), ref)
	grown := h.ctx.Ite(contains, length, h.ctx.Add(length, h.ctx.BitVec(memory.SizeSort.Width, 1)))

	h.WriteMapValue(region, ref, key, value, guard)
	h.WriteSetEntry(region.KeySetID(), ref, key, h.ctx.True(), guard)
	h.WriteMapLength(region.LengthID(), ref, grown, guard)
}

// RemoveMapEntry unbinds key in the map ref denotes, under guard, shrinking its length if key was bound.
func (h *Heap) RemoveMapEntry(region memory.RegionID, ref, key, guard *expr.Expr) {
	h.checkRefs(ref)
	contains := h.ContainsMapKey(region, ref, key)
	length := h.ReadMapLength(region.LengthID(), ref)
	shrunk := h.ctx.Ite(contains, h.ctx.Sub(length, h.ctx.BitVec(memory.SizeSort.Width, 1)), length)

	h.WriteSetEntry(region.KeySetID(), ref, key, h.ctx.False(), guard)
	h.WriteMapLength(region.LengthID(), ref, shrunk, guard)
}

// WriteMapValue binds key to value in the map ref denotes, under guard, without updating its key set or length.
func (h *Heap) WriteMapValue(region memory.RegionID, ref, key, value, guard *expr.Expr) {
	h.checkRefs(ref)
	h.store(h.mapRegion(region).Write(ref, key, value, guard, h.owner))
}

// MapMerge binds every key of the source map in the destination map to its source value and adds it to the
// destination key set, under guard. The destination length becomes the size of the union of both key sets.
func (h *Heap) MapMerge(region memory.RegionID, srcRef, dstRef, guard *expr.Expr) {
	checkKeyRef(srcRef)
	checkKeyRef(dstRef)
	h.checkRefs(srcRef, dstRef)

	// Sizes are taken before the key sets change
	srcLen := h.ReadMapLength(region.LengthID(), srcRef)
	dstLen := h.ReadMapLength(region.LengthID(), dstRef)
	shared := h.SetIntersectionSize(region.KeySetID(), srcRef, dstRef)
	merged := h.ctx.Sub(h.ctx.Add(dstLen, srcLen), shared)

	keys := h.setRegion(region.KeySetID())
	h.store(h.mapRegion(region).Merge(srcRef, dstRef, guard, keys, h.owner))
	h.store(keys.Union(srcRef, dstRef, guard, h.owner))
	h.WriteMapLength(region.LengthID(), dstRef, merged, guard)
}

// MapEntries lists the keys ever bound in the map ref denotes.
func (h *Heap) MapEntries(region memory.RegionID, ref *expr.Expr) memory.Elements[*expr.Expr] {
	h.checkRefs(ref)
	return h.setRegion(region.KeySetID()).Entries(ref)
}

// ReadMapLength returns the amount of entries of the map ref denotes.
func (h *Heap) ReadMapLength(region memory.RegionID, ref *expr.Expr) *expr.Expr {
	h.checkRefs(ref)
	return h.flatRegion(region, memory.MapLengthKind).Read(ref)
}

// WriteMapLength sets the amount of entries of the map ref denotes, under guard.
func (h *Heap) WriteMapLength(region memory.RegionID, ref, length, guard *expr.Expr) {
	h.checkRefs(ref)
	h.store(h.flatRegion(region, memory.MapLengthKind).Write(ref, length, guard, h.owner))
}

// Regions returns the ids of the regions updated so far.
func (h *Heap) Regions() []memory.RegionID {
	ids := make([]memory.RegionID, 0, h.regions.Len())
	for id := range h.regions.All() {
		ids = append(ids, id)
	}
	return ids
}
