package memory

import "github.com/crytic/symheap/expr"

// Writable is a memory which update logs can be replayed into. Every operation takes the region it applies to and a
// guard under which it takes effect; references may be concrete, symbolic or branching.
type Writable interface {
	Context() *expr.Context

	WriteArrayIndex(region RegionID, ref, index, value, guard *expr.Expr)
	WriteArrayLength(region RegionID, ref, length, guard *expr.Expr)
	WriteField(region RegionID, ref, value, guard *expr.Expr)
	WriteSetEntry(region RegionID, ref, elem, contains, guard *expr.Expr)
	WriteMapValue(region RegionID, ref, key, value, guard *expr.Expr)
	WriteMapLength(region RegionID, ref, length, guard *expr.Expr)

	// Memcpy copies the elements [dstFrom, dstTo] of the destination array from the source array, starting at
	// srcFrom.
	Memcpy(region RegionID, srcRef, dstRef, srcFrom, dstFrom, dstTo, guard *expr.Expr)
	// SetUnion adds every element of the source set to the destination set.
	SetUnion(region RegionID, srcRef, dstRef, guard *expr.Expr)
	// MapMerge binds every key of the source map in the destination map to its source value.
	MapMerge(region RegionID, srcRef, dstRef, guard *expr.Expr)
}
