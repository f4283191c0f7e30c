package heap

import (
	"fmt"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// The union adapters implement both set union and map merge. A destination key is covered when it is contained in
// keys, the source set itself for a union and the key set of the source map for a merge; its value is read from the
// source collection.

// applyUnion replays a union or a merge into mem, depending on the kind of the destination region.
func applyUnion[S comparable](mem memory.Writable, keys memory.Collection[S], region memory.RegionID, srcRef, dstRef, guard *expr.Expr, composer expr.Composer) {
	guard = expr.Compose(composer, guard)
	srcRef = expr.Compose(composer, srcRef)
	dstRef = expr.Compose(composer, dstRef)
	switch region.Kind {
	case memory.SetKind:
		mem.SetUnion(region, srcRef, dstRef, guard)
	case memory.MapKind:
		keys.ApplyTo(mem, composer)
		mem.MapMerge(region, srcRef, dstRef, guard)
	default:
		memory.Violatef("cannot merge into region %v", region)
	}
}

// allocatedToAllocatedUnion merges an allocated set or map into another.
type allocatedToAllocatedUnion struct {
	keys memory.Collection[*expr.Expr]
}

func (a allocatedToAllocatedUnion) Convert(key *expr.Expr) *expr.Expr {
	return key
}

func (a allocatedToAllocatedUnion) Includes(key *expr.Expr) *expr.Expr {
	return a.keys.Read(key, nil)
}

func (a allocatedToAllocatedUnion) Shape() memory.Shape {
	return a.keys.ContentShape()
}

func (a allocatedToAllocatedUnion) ApplyTo(mem memory.Writable, src, dst memory.CollectionID[*expr.Expr], guard *expr.Expr, composer expr.Composer) {
	applyUnion(mem, a.keys, dst.Region(), concreteRef(mem, src), concreteRef(mem, dst), guard, composer)
}

func (a allocatedToAllocatedUnion) CollectElements(into *memory.Elements[*expr.Expr]) {
	a.keys.CollectInto(into)
}

func (a allocatedToAllocatedUnion) String() string {
	return fmt.Sprintf("union %v", a.keys.ID())
}

// allocatedToInputUnion merges an allocated set or map into the one denoted by an unresolved reference.
type allocatedToInputUnion struct {
	keys   memory.Collection[*expr.Expr]
	dstRef *expr.Expr
}

func (a allocatedToInputUnion) Convert(key memory.RefKey) *expr.Expr {
	return key.Key
}

func (a allocatedToInputUnion) Includes(key memory.RefKey) *expr.Expr {
	ctx := key.Ref.Context()
	return ctx.And(ctx.Eq(key.Ref, a.dstRef), a.keys.Read(key.Key, nil))
}

func (a allocatedToInputUnion) Shape() memory.Shape {
	return memory.Pair(memory.RefShapeOf(a.dstRef), a.keys.ContentShape())
}

func (a allocatedToInputUnion) ApplyTo(mem memory.Writable, src memory.CollectionID[*expr.Expr], dst memory.CollectionID[memory.RefKey], guard *expr.Expr, composer expr.Composer) {
	applyUnion(mem, a.keys, dst.Region(), concreteRef(mem, src), a.dstRef, guard, composer)
}

func (a allocatedToInputUnion) CollectElements(into *memory.Elements[memory.RefKey]) {
	elements := memory.CollectElements(a.keys)
	for _, key := range elements.Keys {
		into.Add(memory.RefKey{Ref: a.dstRef, Key: key})
	}
	if !elements.Complete() {
		into.MarkInput()
	}
}

func (a allocatedToInputUnion) String() string {
	return fmt.Sprintf("union %v into %v", a.keys.ID(), a.dstRef)
}

// inputToAllocatedUnion merges the set or map denoted by an unresolved reference into an allocated one.
type inputToAllocatedUnion struct {
	keys   memory.Collection[memory.RefKey]
	srcRef *expr.Expr
}

func (a inputToAllocatedUnion) Convert(key *expr.Expr) memory.RefKey {
	return memory.RefKey{Ref: a.srcRef, Key: key}
}

func (a inputToAllocatedUnion) Includes(key *expr.Expr) *expr.Expr {
	return a.keys.Read(a.Convert(key), nil)
}

func (a inputToAllocatedUnion) Shape() memory.Shape {
	return memory.StripRef(a.keys.ContentShape())
}

func (a inputToAllocatedUnion) ApplyTo(mem memory.Writable, _ memory.CollectionID[memory.RefKey], dst memory.CollectionID[*expr.Expr], guard *expr.Expr, composer expr.Composer) {
	applyUnion(mem, a.keys, dst.Region(), a.srcRef, concreteRef(mem, dst), guard, composer)
}

func (a inputToAllocatedUnion) CollectElements(into *memory.Elements[*expr.Expr]) {
	for _, key := range inputKeysOf(a.keys, a.srcRef) {
		into.Add(key)
	}
	into.MarkInput()
}

func (a inputToAllocatedUnion) String() string {
	return fmt.Sprintf("union %v from %v", a.keys.ID(), a.srcRef)
}

// inputToInputUnion merges between sets or maps denoted by unresolved references.
type inputToInputUnion struct {
	keys           memory.Collection[memory.RefKey]
	srcRef, dstRef *expr.Expr
}

func (a inputToInputUnion) Convert(key memory.RefKey) memory.RefKey {
	return memory.RefKey{Ref: a.srcRef, Key: key.Key}
}

func (a inputToInputUnion) Includes(key memory.RefKey) *expr.Expr {
	ctx := key.Ref.Context()
	return ctx.And(ctx.Eq(key.Ref, a.dstRef), a.keys.Read(a.Convert(key), nil))
}

func (a inputToInputUnion) Shape() memory.Shape {
	return memory.Pair(memory.RefShapeOf(a.dstRef), memory.StripRef(a.keys.ContentShape()))
}

func (a inputToInputUnion) ApplyTo(mem memory.Writable, _, dst memory.CollectionID[memory.RefKey], guard *expr.Expr, composer expr.Composer) {
	applyUnion(mem, a.keys, dst.Region(), a.srcRef, a.dstRef, guard, composer)
}

func (a inputToInputUnion) CollectElements(into *memory.Elements[memory.RefKey]) {
	for _, key := range inputKeysOf(a.keys, a.srcRef) {
		into.Add(memory.RefKey{Ref: a.dstRef, Key: key})
	}
	into.MarkInput()
}

func (a inputToInputUnion) String() string {
	return fmt.Sprintf("union %v from %v into %v", a.keys.ID(), a.srcRef, a.dstRef)
}

// inputKeysOf lists the keys of an input collection whose reference may alias ref.
func inputKeysOf(keys memory.Collection[memory.RefKey], ref *expr.Expr) []*expr.Expr {
	ctx := keys.Context()
	var result []*expr.Expr
	for _, key := range memory.CollectElements(keys).Keys {
		if !ctx.Eq(key.Ref, ref).IsFalse() {
			result = append(result, key.Key)
		}
	}
	return result
}
