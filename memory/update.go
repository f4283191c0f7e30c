package memory

import (
	"fmt"
	"github.com/crytic/symheap/expr"
)

// UpdateNode is one guarded update of a collection's log. It is either a *PinpointUpdate or a *RangedUpdate; no
// other implementation exists.
type UpdateNode[K comparable] interface {
	// Guard returns the condition under which the update applies.
	Guard() *expr.Expr
	// Shape returns a conservative approximation of the keys the update may affect.
	Shape() Shape
	String() string

	isUpdateNode()
}

// PinpointUpdate overwrites the value of a single key.
type PinpointUpdate[K comparable] struct {
	key   K
	value *expr.Expr
	guard *expr.Expr
	shape Shape
}

// Key returns the key written.
func (u *PinpointUpdate[K]) Key() K {
	return u.key
}

// Value returns the value written.
func (u *PinpointUpdate[K]) Value() *expr.Expr {
	return u.value
}

func (u *PinpointUpdate[K]) Guard() *expr.Expr {
	return u.guard
}

func (u *PinpointUpdate[K]) Shape() Shape {
	return u.shape
}

func (u *PinpointUpdate[K]) String() string {
	return fmt.Sprintf("{%v <- %v | %v}", u.key, u.value, u.guard)
}

func (*PinpointUpdate[K]) isUpdateNode() {}

// RangedUpdate makes the keys of a collection included by an adapter read through to a source collection. The source
// is referenced, never copied.
type RangedUpdate[K comparable] struct {
	link  rangedLink[K]
	guard *expr.Expr
}

// Includes returns the condition under which the update covers key.
func (u *RangedUpdate[K]) Includes(key K) *expr.Expr {
	return u.link.includes(key)
}

// Adapter returns the adapter converting the keys of this update.
func (u *RangedUpdate[K]) Adapter() any {
	return u.link.adapter()
}

func (u *RangedUpdate[K]) Guard() *expr.Expr {
	return u.guard
}

func (u *RangedUpdate[K]) Shape() Shape {
	return u.link.shape()
}

func (u *RangedUpdate[K]) String() string {
	return fmt.Sprintf("{%v | %v}", u.link, u.guard)
}

func (*RangedUpdate[K]) isUpdateNode() {}

// Adapter converts the keys of a destination collection into keys of a source collection, so that a range of the
// destination can be read lazily from the source.
type Adapter[S, D comparable] interface {
	// Convert returns the source key a destination key reads from.
	Convert(key D) S
	// Includes returns the condition under which the destination key is covered by the adapter.
	Includes(key D) *expr.Expr
	// Shape returns a conservative approximation of the destination keys covered by the adapter.
	Shape() Shape
	// ApplyTo replays the copy into mem, through the bulk operation which created it.
	ApplyTo(mem Writable, src CollectionID[S], dst CollectionID[D], guard *expr.Expr, composer expr.Composer)
	String() string
}

// ElementsAdapter is implemented by adapters whose covered keys can be enumerated, such as set unions and map merges.
type ElementsAdapter[D comparable] interface {
	// CollectElements adds the destination keys the adapter may cover to into.
	CollectElements(into *Elements[D])
}

// rangedLink erases the source key type of a ranged update.
type rangedLink[D comparable] interface {
	includes(key D) *expr.Expr
	read(key D, composer expr.Composer) *expr.Expr
	shape() Shape
	applyTo(mem Writable, dst CollectionID[D], guard *expr.Expr, composer expr.Composer)
	collect(into *Elements[D])
	adapter() any
	String() string
}

// binding ties an adapter to the source collection it reads from.
type binding[S, D comparable] struct {
	adapt  Adapter[S, D]
	source Collection[S]
	region Shape
}

func (b *binding[S, D]) includes(key D) *expr.Expr {
	return b.adapt.Includes(key)
}

func (b *binding[S, D]) read(key D, composer expr.Composer) *expr.Expr {
	return b.source.Read(b.adapt.Convert(key), composer)
}

func (b *binding[S, D]) shape() Shape {
	return b.region
}

func (b *binding[S, D]) applyTo(mem Writable, dst CollectionID[D], guard *expr.Expr, composer expr.Composer) {
	b.source.ApplyTo(mem, composer)
	b.adapt.ApplyTo(mem, b.source.ID(), dst, guard, composer)
}

func (b *binding[S, D]) collect(into *Elements[D]) {
	elements, ok := b.adapt.(ElementsAdapter[D])
	if !ok {
		Violatef("cannot enumerate the elements of %v", b.adapt)
	}
	elements.CollectElements(into)
}

func (b *binding[S, D]) adapter() any {
	return b.adapt
}

func (b *binding[S, D]) String() string {
	return fmt.Sprintf("%v from %v", b.adapt, b.source.ID())
}
