package memory

import (
	"fmt"
	"github.com/crytic/symheap/expr"
)

// RefKey is the key of an input collection: a heap reference which is not resolved to an allocated address, paired
// with the key inside the referenced entity (an index, a set element or a map key). Both components are interned
// terms, so RefKey values compare structurally.
type RefKey struct {
	Ref *expr.Expr
	Key *expr.Expr
}

func (k RefKey) String() string {
	return fmt.Sprintf("(%v, %v)", k.Ref, k.Key)
}

// KeyInfo describes how the keys of a collection are compared, composed and approximated.
type KeyInfo[K comparable] interface {
	// Eq returns the condition under which both keys are equal.
	Eq(a, b K) *expr.Expr
	// Compose rewrites the key through the composer.
	Compose(key K, composer expr.Composer) K
	// Shape returns the smallest known shape holding the key.
	Shape(key K) Shape
	// Exprs returns the terms making up the key, in order.
	Exprs(key K) []*expr.Expr
}

// ValueKeyInfo describes keys which are plain terms: array indices, set elements and map keys of allocated
// collections.
type ValueKeyInfo struct{}

func (ValueKeyInfo) Eq(a, b *expr.Expr) *expr.Expr {
	return a.Context().Eq(a, b)
}

func (ValueKeyInfo) Compose(key *expr.Expr, composer expr.Composer) *expr.Expr {
	return expr.Compose(composer, key)
}

// Shape returns a point for bit-vector and boolean literals, and Top for any other term.
func (ValueKeyInfo) Shape(key *expr.Expr) Shape {
	if v, ok := key.Uint64(); ok {
		return Point(v)
	}
	switch {
	case key.IsTrue():
		return Point(1)
	case key.IsFalse():
		return Point(0)
	}
	return Top
}

func (ValueKeyInfo) Exprs(key *expr.Expr) []*expr.Expr {
	return []*expr.Expr{key}
}

// RangeShape returns the shape of the closed key range [from, to], or Top if either bound is symbolic.
func (ValueKeyInfo) RangeShape(from, to *expr.Expr) Shape {
	lo, okLo := from.Uint64()
	hi, okHi := to.Uint64()
	if !okLo || !okHi {
		return Top
	}
	if lo > hi {
		return Empty
	}
	return Range(lo, hi)
}

// RefKeyInfo describes keys which are heap references: the keys of input collections of flat regions.
type RefKeyInfo struct{}

func (RefKeyInfo) Eq(a, b *expr.Expr) *expr.Expr {
	return a.Context().Eq(a, b)
}

func (RefKeyInfo) Compose(key *expr.Expr, composer expr.Composer) *expr.Expr {
	return expr.Compose(composer, key)
}

func (RefKeyInfo) Shape(key *expr.Expr) Shape {
	return RefShapeOf(key)
}

func (RefKeyInfo) Exprs(key *expr.Expr) []*expr.Expr {
	return []*expr.Expr{key}
}

// RefShapeOf returns the reference shape of a single reference.
func RefShapeOf(ref *expr.Expr) Shape {
	switch {
	case ref.IsConcreteRef():
		return ConcreteRefShape(ref.Address())
	case ref.IsSymbolicRef():
		return SymbolicRefShape
	}
	return Top
}

// PairKeyInfo describes the (reference, key) pairs of input collections, given the info of the key component.
type PairKeyInfo struct {
	Key ValueKeyInfo
}

func (p PairKeyInfo) Eq(a, b RefKey) *expr.Expr {
	ctx := a.Ref.Context()
	return ctx.And(ctx.Eq(a.Ref, b.Ref), p.Key.Eq(a.Key, b.Key))
}

func (p PairKeyInfo) Compose(key RefKey, composer expr.Composer) RefKey {
	return RefKey{Ref: expr.Compose(composer, key.Ref), Key: p.Key.Compose(key.Key, composer)}
}

func (p PairKeyInfo) Shape(key RefKey) Shape {
	return Pair(RefShapeOf(key.Ref), p.Key.Shape(key.Key))
}

func (p PairKeyInfo) Exprs(key RefKey) []*expr.Expr {
	return []*expr.Expr{key.Ref, key.Key}
}
