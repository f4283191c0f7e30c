package heap

import (
	"fmt"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
)

// allocatedID identifies the collection holding the contents of one allocated array, set or map.
type allocatedID struct {
	region  memory.RegionID
	address uint64
}

func (id allocatedID) Region() memory.RegionID {
	return id.region
}

func (id allocatedID) KeyInfo() memory.KeyInfo[*expr.Expr] {
	return memory.ValueKeyInfo{}
}

func (id allocatedID) Address() (uint64, bool) {
	return id.address, true
}

func (id allocatedID) WriteTo(mem memory.Writable, key *expr.Expr, value, guard *expr.Expr) {
	writeEntry(mem, id.region, mem.Context().ConcreteRef(id.address), key, value, guard)
}

func (id allocatedID) String() string {
	return fmt.Sprintf("%v#%d", id.region, id.address)
}

// inputID identifies the collection holding the contents of every unresolved array, set or map reference of a region.
type inputID struct {
	region memory.RegionID
}

func (id inputID) Region() memory.RegionID {
	return id.region
}

func (id inputID) KeyInfo() memory.KeyInfo[memory.RefKey] {
	return memory.PairKeyInfo{}
}

func (id inputID) Address() (uint64, bool) {
	return 0, false
}

func (id inputID) WriteTo(mem memory.Writable, key memory.RefKey, value, guard *expr.Expr) {
	writeEntry(mem, id.region, key.Ref, key.Key, value, guard)
}

func (id inputID) String() string {
	return fmt.Sprintf("input:%v", id.region)
}

// flatInputID identifies the collection holding the value of a flat region (a field or a length) for every
// unresolved reference.
type flatInputID struct {
	region memory.RegionID
}

func (id flatInputID) Region() memory.RegionID {
	return id.region
}

func (id flatInputID) KeyInfo() memory.KeyInfo[*expr.Expr] {
	return memory.RefKeyInfo{}
}

func (id flatInputID) Address() (uint64, bool) {
	return 0, false
}

func (id flatInputID) WriteTo(mem memory.Writable, ref *expr.Expr, value, guard *expr.Expr) {
	switch id.region.Kind {
	case memory.ArrayLengthKind:
		mem.WriteArrayLength(id.region, ref, value, guard)
	case memory.FieldKind:
		mem.WriteField(id.region, ref, value, guard)
	case memory.MapLengthKind:
		mem.WriteMapLength(id.region, ref, value, guard)
	default:
		memory.Violatef("region %v is not flat", id.region)
	}
}

func (id flatInputID) String() string {
	return fmt.Sprintf("input:%v", id.region)
}

// writeEntry performs a single keyed write to the region in mem.
func writeEntry(mem memory.Writable, region memory.RegionID, ref, key, value, guard *expr.Expr) {
	switch region.Kind {
	case memory.ArrayKind:
		mem.WriteArrayIndex(region, ref, key, value, guard)
	case memory.SetKind:
		mem.WriteSetEntry(region, ref, key, value, guard)
	case memory.MapKind:
		mem.WriteMapValue(region, ref, key, value, guard)
	default:
		memory.Violatef("region %v has no keyed entries", region)
	}
}
