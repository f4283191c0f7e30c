package memory

import (
	"fmt"
	"github.com/crytic/symheap/collections/trie"
	"github.com/crytic/symheap/expr"
)

// SizeSort is the sort of array indices, array lengths, map lengths and set intersection sizes.
var SizeSort = expr.BitVecSort(32)

// RegionKind describes which kind of heap entity a region stores.
type RegionKind int

const (
	// ArrayKind regions map (array, index) to the element stored there.
	ArrayKind RegionKind = iota
	// ArrayLengthKind regions map an array to its length.
	ArrayLengthKind
	// FieldKind regions map an object to the value of one field.
	FieldKind
	// SetKind regions map (set, element) to whether the element is contained.
	SetKind
	// MapKind regions map (map, key) to the value bound to the key.
	MapKind
	// MapLengthKind regions map a map to its amount of entries.
	MapLengthKind
)

var regionKindNames = map[RegionKind]string{
	ArrayKind:       "array",
	ArrayLengthKind: "length",
	FieldKind:       "field",
	SetKind:         "set",
	MapKind:         "map",
	MapLengthKind:   "map-length",
}

func (k RegionKind) String() string {
	if name, ok := regionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

// RegionID identifies a region: the storage of one kind of heap entity, for one type. It is comparable and used as
// the key of the heap's region table.
type RegionID struct {
	Kind RegionKind
	// Type is the type of the entities stored, as named by the interpreter.
	Type string
	// Field is the field name for field regions, and distinguishes the key sets of maps from primitive sets.
	Field string
	// Sort is the sort of the stored values.
	Sort expr.Sort
	// KeySort is the sort of the keys inside an entity. Flat regions use the address sort.
	KeySort expr.Sort
}

// ArrayRegionID identifies the elements of arrays of the given type.
func ArrayRegionID(typ string, elemSort expr.Sort) RegionID {
	return RegionID{Kind: ArrayKind, Type: typ, Sort: elemSort, KeySort: SizeSort}
}

// ArrayLengthRegionID identifies the lengths of arrays of the given type.
func ArrayLengthRegionID(typ string) RegionID {
	return RegionID{Kind: ArrayLengthKind, Type: typ, Sort: SizeSort, KeySort: expr.AddressSort}
}

// FieldRegionID identifies one field of objects of the given type.
func FieldRegionID(typ, field string, sort expr.Sort) RegionID {
	return RegionID{Kind: FieldKind, Type: typ, Field: field, Sort: sort, KeySort: expr.AddressSort}
}

// SetRegionID identifies the membership of elements in sets of the given type.
func SetRegionID(typ string, elemSort expr.Sort) RegionID {
	return RegionID{Kind: SetKind, Type: typ, Sort: expr.BoolSort, KeySort: elemSort}
}

// MapRegionID identifies the values of maps of the given type.
func MapRegionID(typ string, keySort, valueSort expr.Sort) RegionID {
	return RegionID{Kind: MapKind, Type: typ, Sort: valueSort, KeySort: keySort}
}

// MapLengthRegionID identifies the lengths of maps of the given type.
func MapLengthRegionID(typ string) RegionID {
	return RegionID{Kind: MapLengthKind, Type: typ, Sort: SizeSort, KeySort: expr.AddressSort}
}

// KeySetID returns the set region holding the keys of the maps identified by id.
func (id RegionID) KeySetID() RegionID {
	if id.Kind != MapKind {
		Violatef("region %v has no key set", id)
	}
	return RegionID{Kind: SetKind, Type: id.Type, Field: "keys", Sort: expr.BoolSort, KeySort: id.KeySort}
}

// LengthID returns the length region of the arrays or maps identified by id.
func (id RegionID) LengthID() RegionID {
	switch id.Kind {
	case ArrayKind:
		return ArrayLengthRegionID(id.Type)
	case MapKind:
		return MapLengthRegionID(id.Type)
	}
	Violatef("region %v has no length", id)
	return RegionID{}
}

// IsFlat indicates whether the region stores a single value per entity.
func (id RegionID) IsFlat() bool {
	switch id.Kind {
	case ArrayLengthKind, FieldKind, MapLengthKind:
		return true
	}
	return false
}

func (id RegionID) String() string {
	switch id.Kind {
	case FieldKind:
		return fmt.Sprintf("field[%s.%s]:%v", id.Type, id.Field, id.Sort)
	case ArrayLengthKind, MapLengthKind:
		return fmt.Sprintf("%v[%s]", id.Kind, id.Type)
	case SetKind:
		if id.Field != "" {
			return fmt.Sprintf("set[%s.%s]:%v", id.Type, id.Field, id.KeySort)
		}
		return fmt.Sprintf("set[%s]:%v", id.Type, id.KeySort)
	}
	return fmt.Sprintf("%v[%s]:%v->%v", id.Kind, id.Type, id.KeySort, id.Sort)
}

// RegionIDHasher hashes region ids for the region table of a heap.
func RegionIDHasher(id RegionID) uint32 {
	return trie.StringHasher(id.String())
}
