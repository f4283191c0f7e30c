package memory

import (
	"fmt"
	"slices"
	"strings"
)

// Shape is a conservative approximation of the set of keys an update log may contain. Shapes are used only to skip
// updates during a read: Intersects may return true for disjoint shapes, but it never returns false when some key
// lies in both.
type Shape interface {
	// Intersects returns false only if no key can lie in both shapes.
	Intersects(other Shape) bool
	// Union returns a shape containing every key of both shapes.
	Union(other Shape) Shape
	// IsEmpty indicates whether the shape contains no key at all.
	IsEmpty() bool
	String() string
}

type emptyShape struct{}

type topShape struct{}

var (
	// Empty is the shape containing no key.
	Empty Shape = emptyShape{}
	// Top is the shape which may contain every key.
	Top Shape = topShape{}
)

func (emptyShape) Intersects(Shape) bool     { return false }
func (emptyShape) Union(other Shape) Shape   { return other }
func (emptyShape) IsEmpty() bool             { return true }
func (emptyShape) String() string            { return "empty" }
func (topShape) Intersects(other Shape) bool { return !other.IsEmpty() }
func (topShape) Union(Shape) Shape           { return Top }
func (topShape) IsEmpty() bool               { return false }
func (topShape) String() string              { return "top" }

// span is a closed interval of integer keys.
type span struct {
	lo, hi uint64
}

// Intervals is the shape of integer keys: a sorted list of disjoint, non-adjacent closed intervals.
type Intervals struct {
	spans []span
}

// Point returns the shape holding the single key v.
func Point(v uint64) Intervals {
	return Intervals{spans: []span{{lo: v, hi: v}}}
}

// Range returns the shape holding every key in [lo, hi]. It is empty when lo > hi.
func Range(lo, hi uint64) Intervals {
	if lo > hi {
		return Intervals{}
	}
	return Intervals{spans: []span{{lo: lo, hi: hi}}}
}

// Contains indicates whether v lies in the shape.
func (s Intervals) Contains(v uint64) bool {
	_, found := slices.BinarySearchFunc(s.spans, v, func(sp span, v uint64) int {
		switch {
		case sp.hi < v:
			return -1
		case sp.lo > v:
			return 1
		}
		return 0
	})
	return found
}

// IsEmpty indicates whether the shape holds no key.
func (s Intervals) IsEmpty() bool {
	return len(s.spans) == 0
}

// Intersects reports whether both shapes may share a key.
func (s Intervals) Intersects(other Shape) bool {
	switch o := other.(type) {
	case emptyShape:
		return false
	case topShape:
		return !s.IsEmpty()
	case Intervals:
		i, j := 0, 0
		for i < len(s.spans) && j < len(o.spans) {
			a, b := s.spans[i], o.spans[j]
			if a.hi < b.lo {
				i++
			} else if b.hi < a.lo {
				j++
			} else {
				return true
			}
		}
		return false
	}
	return true
}

// Union returns the intervals of both shapes merged.
func (s Intervals) Union(other Shape) Shape {
	switch o := other.(type) {
	case emptyShape:
		return s
	case Intervals:
		return s.merge(o)
	}
	return Top
}

func (s Intervals) merge(o Intervals) Intervals {
	if o.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return o
	}
	all := append(slices.Clone(s.spans), o.spans...)
	slices.SortFunc(all, func(a, b span) int {
		switch {
		case a.lo < b.lo:
			return -1
		case a.lo > b.lo:
			return 1
		}
		return 0
	})
	merged := all[:1]
	for _, sp := range all[1:] {
		last := &merged[len(merged)-1]
		if last.hi == ^uint64(0) || sp.lo <= last.hi+1 {
			last.hi = max(last.hi, sp.hi)
			continue
		}
		merged = append(merged, sp)
	}
	return Intervals{spans: merged}
}

func (s Intervals) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	parts := make([]string, len(s.spans))
	for i, sp := range s.spans {
		if sp.lo == sp.hi {
			parts[i] = fmt.Sprint(sp.lo)
		} else {
			parts[i] = fmt.Sprintf("%d..%d", sp.lo, sp.hi)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RefShape is the shape of heap reference keys: the concrete addresses which may occur, and whether any symbolic
// (input) reference may occur. A symbolic reference never denotes an allocated address, so the two components are
// disjoint.
type RefShape struct {
	Concrete Intervals
	Symbolic bool
}

// ConcreteRefShape returns the shape of the single concrete address.
func ConcreteRefShape(address uint64) RefShape {
	return RefShape{Concrete: Point(address)}
}

// SymbolicRefShape is the shape of any symbolic reference.
var SymbolicRefShape = RefShape{Symbolic: true}

func (s RefShape) IsEmpty() bool {
	return !s.Symbolic && s.Concrete.IsEmpty()
}

func (s RefShape) Intersects(other Shape) bool {
	switch o := other.(type) {
	case emptyShape:
		return false
	case topShape:
		return !s.IsEmpty()
	case RefShape:
		return (s.Symbolic && o.Symbolic) || s.Concrete.Intersects(o.Concrete)
	}
	return true
}

func (s RefShape) Union(other Shape) Shape {
	switch o := other.(type) {
	case emptyShape:
		return s
	case RefShape:
		return RefShape{Concrete: s.Concrete.merge(o.Concrete), Symbolic: s.Symbolic || o.Symbolic}
	}
	return Top
}

func (s RefShape) String() string {
	if s.Symbolic {
		return fmt.Sprintf("refs%v+symbolic", s.Concrete)
	}
	return fmt.Sprintf("refs%v", s.Concrete)
}

// PairShape is the shape of input keys: a reference shape paired with the shape of the key component. It
// over-approximates by the product of both components.
type PairShape struct {
	Ref  Shape
	Keys Shape
}

// Pair builds the product shape of ref and keys, collapsing to Empty when either component is empty.
func Pair(ref, keys Shape) Shape {
	if ref.IsEmpty() || keys.IsEmpty() {
		return Empty
	}
	return PairShape{Ref: ref, Keys: keys}
}

func (s PairShape) IsEmpty() bool {
	return s.Ref.IsEmpty() || s.Keys.IsEmpty()
}

func (s PairShape) Intersects(other Shape) bool {
	switch o := other.(type) {
	case emptyShape:
		return false
	case topShape:
		return !s.IsEmpty()
	case PairShape:
		return s.Ref.Intersects(o.Ref) && s.Keys.Intersects(o.Keys)
	}
	return true
}

func (s PairShape) Union(other Shape) Shape {
	switch o := other.(type) {
	case emptyShape:
		return s
	case PairShape:
		return PairShape{Ref: s.Ref.Union(o.Ref), Keys: s.Keys.Union(o.Keys)}
	}
	return Top
}

func (s PairShape) String() string {
	return fmt.Sprintf("(%v, %v)", s.Ref, s.Keys)
}

// StripRef returns the key component of an input shape, as seen by an allocated collection after the reference
// component has been resolved. Shapes other than pairs are returned unchanged if empty, and as Top otherwise.
func StripRef(s Shape) Shape {
	switch p := s.(type) {
	case PairShape:
		return p.Keys
	case emptyShape:
		return Empty
	}
	return Top
}
