package heap

import (
	"fmt"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// copyRange describes the destination indices [dstFrom, dstTo] of an array copy and the source index dstFrom maps
// to.
type copyRange struct {
	srcFrom, dstFrom, dstTo *expr.Expr
}

// convert maps a destination index to its source index.
func (r copyRange) convert(index *expr.Expr) *expr.Expr {
	ctx := index.Context()
	return ctx.Add(ctx.Sub(index, r.dstFrom), r.srcFrom)
}

// includes returns the condition under which the destination index lies in the copied range.
func (r copyRange) includes(index *expr.Expr) *expr.Expr {
	ctx := index.Context()
	return ctx.And(ctx.Ule(r.dstFrom, index), ctx.Ule(index, r.dstTo))
}

func (r copyRange) shape() memory.Shape {
	return memory.ValueKeyInfo{}.RangeShape(r.dstFrom, r.dstTo)
}

// memcpy replays the copy into mem between the provided references.
func (r copyRange) memcpy(mem memory.Writable, region memory.RegionID, srcRef, dstRef, guard *expr.Expr, composer expr.Composer) {
	mem.Memcpy(region, expr.Compose(composer, srcRef), expr.Compose(composer, dstRef),
		expr.Compose(composer, r.srcFrom), expr.Compose(composer, r.dstFrom), expr.Compose(composer, r.dstTo),
		expr.Compose(composer, guard))
}

func (r copyRange) String() string {
	return fmt.Sprintf("[%v..%v] <- %v", r.dstFrom, r.dstTo, r.srcFrom)
}

// concreteRef returns the reference to the address of an allocated collection.
func concreteRef[K comparable](mem memory.Writable, id memory.CollectionID[K]) *expr.Expr {
	address, ok := id.Address()
	if !ok {
		memory.Violatef("collection %v is not allocated", id)
	}
	return mem.Context().ConcreteRef(address)
}

// allocatedToAllocatedCopy copies between two allocated arrays.
type allocatedToAllocatedCopy struct {
	copyRange
}

func (a allocatedToAllocatedCopy) Convert(index *expr.Expr) *expr.Expr {
	return a.convert(index)
}

func (a allocatedToAllocatedCopy) Includes(index *expr.Expr) *expr.Expr {
	return a.includes(index)
}

func (a allocatedToAllocatedCopy) Shape() memory.Shape {
	return a.shape()
}

func (a allocatedToAllocatedCopy) ApplyTo(mem memory.Writable, src, dst memory.CollectionID[*expr.Expr], guard *expr.Expr, composer expr.Composer) {
	a.memcpy(mem, dst.Region(), concreteRef(mem, src), concreteRef(mem, dst), guard, composer)
}

func (a allocatedToAllocatedCopy) String() string {
	return "copy " + a.copyRange.String()
}

// allocatedToInputCopy copies from an allocated array into the array denoted by an unresolved reference.
type allocatedToInputCopy struct {
	copyRange
	dstRef *expr.Expr
}

func (a allocatedToInputCopy) Convert(key memory.RefKey) *expr.Expr {
	return a.convert(key.Key)
}

func (a allocatedToInputCopy) Includes(key memory.RefKey) *expr.Expr {
	ctx := key.Ref.Context()
	return ctx.And(ctx.Eq(key.Ref, a.dstRef), a.includes(key.Key))
}

func (a allocatedToInputCopy) Shape() memory.Shape {
	return memory.Pair(memory.RefShapeOf(a.dstRef), a.shape())
}

func (a allocatedToInputCopy) ApplyTo(mem memory.Writable, src memory.CollectionID[*expr.Expr], dst memory.CollectionID[memory.RefKey], guard *expr.Expr, composer expr.Composer) {
	a.memcpy(mem, dst.Region(), concreteRef(mem, src), a.dstRef, guard, composer)
}

func (a allocatedToInputCopy) String() string {
	return fmt.Sprintf("copy %v%v", a.dstRef, a.copyRange)
}

// inputToAllocatedCopy copies from the array denoted by an unresolved reference into an allocated array.
type inputToAllocatedCopy struct {
	copyRange
	srcRef *expr.Expr
}

func (a inputToAllocatedCopy) Convert(index *expr.Expr) memory.RefKey {
	return memory.RefKey{Ref: a.srcRef, Key: a.convert(index)}
}

func (a inputToAllocatedCopy) Includes(index *expr.Expr) *expr.Expr {
	return a.includes(index)
}

func (a inputToAllocatedCopy) Shape() memory.Shape {
	return a.shape()
}

func (a inputToAllocatedCopy) ApplyTo(mem memory.Writable, _ memory.CollectionID[memory.RefKey], dst memory.CollectionID[*expr.Expr], guard *expr.Expr, composer expr.Composer) {
	a.memcpy(mem, dst.Region(), a.srcRef, concreteRef(mem, dst), guard, composer)
}

func (a inputToAllocatedCopy) String() string {
	return fmt.Sprintf("copy %v from %v", a.copyRange, a.srcRef)
}

// inputToInputCopy copies between two arrays denoted by unresolved references.
type inputToInputCopy struct {
	copyRange
	srcRef, dstRef *expr.Expr
}

func (a inputToInputCopy) Convert(key memory.RefKey) memory.RefKey {
	return memory.RefKey{Ref: a.srcRef, Key: a.convert(key.Key)}
}

func (a inputToInputCopy) Includes(key memory.RefKey) *expr.Expr {
	ctx := key.Ref.Context()
	return ctx.And(ctx.Eq(key.Ref, a.dstRef), a.includes(key.Key))
}

func (a inputToInputCopy) Shape() memory.Shape {
	return memory.Pair(memory.RefShapeOf(a.dstRef), a.shape())
}

func (a inputToInputCopy) ApplyTo(mem memory.Writable, _, dst memory.CollectionID[memory.RefKey], guard *expr.Expr, composer expr.Composer) {
	a.memcpy(mem, dst.Region(), a.srcRef, a.dstRef, guard, composer)
}

func (a inputToInputCopy) String() string {
	return fmt.Sprintf("copy %v%v from %v", a.dstRef, a.copyRange, a.srcRef)
}
