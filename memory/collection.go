package memory

import (
	"github.com/crytic/symheap/expr"
	"iter"
	"slices"
	"strings"
)

// CollectionID identifies a collection and describes its keys and values.
type CollectionID[K comparable] interface {
	// Region returns the region the collection belongs to.
	Region() RegionID
	// KeyInfo describes the keys of the collection.
	KeyInfo() KeyInfo[K]
	// Address returns the address of the entity the collection belongs to, if it is allocated. Input collections
	// hold the contents of every unresolved reference and have no address.
	Address() (uint64, bool)
	// WriteTo performs a single write to the entity at key in mem.
	WriteTo(mem Writable, key K, value, guard *expr.Expr)
	String() string
}

// updates is a link of an update log. Links are immutable and shared between collections.
type updates[K comparable] struct {
	node UpdateNode[K]
	next *updates[K]

	// shape is the union of the shapes of this update and every older one.
	shape Shape

	// size is the amount of updates from this link to the end of the log.
	size int
}

// Collection is an immutable logical mapping from keys to values, defined by a log of guarded updates over a default
// content. Allocated collections default to the sample value of their sort; input collections default to an opaque
// reading resolved once a model is known.
type Collection[K comparable] struct {
	ctx     *expr.Context
	id      CollectionID[K]
	updates *updates[K]
}

// NewCollection creates a collection with an empty log.
func NewCollection[K comparable](ctx *expr.Context, id CollectionID[K]) Collection[K] {
	return Collection[K]{ctx: ctx, id: id}
}

// ID returns the identity of the collection.
func (c Collection[K]) ID() CollectionID[K] {
	return c.id
}

// Context returns the expression context values are built in.
func (c Collection[K]) Context() *expr.Context {
	return c.ctx
}

// Len returns the amount of updates in the log.
func (c Collection[K]) Len() int {
	if c.updates == nil {
		return 0
	}
	return c.updates.size
}

// IsInput indicates whether the collection belongs to the input partition.
func (c Collection[K]) IsInput() bool {
	_, allocated := c.id.Address()
	return !allocated
}

// Updates iterates over the log, newest update first.
func (c Collection[K]) Updates() iter.Seq[UpdateNode[K]] {
	return func(yield func(UpdateNode[K]) bool) {
		for u := c.updates; u != nil; u = u.next {
			if !yield(u.node) {
				return
			}
		}
	}
}

// oldestFirst returns the log in the order the updates were made.
func (c Collection[K]) oldestFirst() []UpdateNode[K] {
	nodes := slices.Collect(c.Updates())
	slices.Reverse(nodes)
	return nodes
}

// ContentShape returns a conservative approximation of the keys which may hold a non-default value.
func (c Collection[K]) ContentShape() Shape {
	if c.IsInput() {
		return Top
	}
	if c.updates == nil {
		return Empty
	}
	return c.updates.shape
}

func (c Collection[K]) push(node UpdateNode[K]) Collection[K] {
	link := &updates[K]{node: node, next: c.updates, shape: node.Shape(), size: 1}
	if c.updates != nil {
		link.shape = node.Shape().Union(c.updates.shape)
		link.size += c.updates.size
	}
	return Collection[K]{ctx: c.ctx, id: c.id, updates: link}
}

// Write returns the collection with value written at key under guard. Writes under a statically false guard are
// dropped. A branching reference value is split into one write per leaf.
func (c Collection[K]) Write(key K, value, guard *expr.Expr) Collection[K] {
	if guard.IsFalse() {
		return c
	}
	if !value.Sort().IsAddress() || value.Op() != expr.OpIte {
		return c.writeSingle(key, value, guard)
	}
	write := func(acc Collection[K], leaf GuardedRef) Collection[K] {
		return acc.writeSingle(key, leaf.Ref, leaf.Guard)
	}
	return FoldHeapRef(value, guard, c, false, write, write)
}

func (c Collection[K]) writeSingle(key K, value, guard *expr.Expr) Collection[K] {
	if guard.IsFalse() {
		return c
	}
	return c.push(&PinpointUpdate[K]{
		key:   key,
		value: value,
		guard: guard,
		shape: c.id.KeyInfo().Shape(key),
	})
}

// CopyRange returns dst with the keys included by adapter read through to src under guard. The source is not
// enumerated: the update is recorded in constant time.
func CopyRange[S, D comparable](dst Collection[D], src Collection[S], adapter Adapter[S, D], guard *expr.Expr) Collection[D] {
	if guard.IsFalse() {
		return dst
	}
	link := &binding[S, D]{adapt: adapter, source: src, region: adapter.Shape()}
	return dst.push(&RangedUpdate[D]{link: link, guard: guard})
}

// Read returns the value at key, replaying the log from the newest update to the oldest. When a composer is given,
// the result is rewritten through it; input collections then default to the composed reading.
func (c Collection[K]) Read(key K, composer expr.Composer) *expr.Expr {
	ctx := c.ctx
	info := c.id.KeyInfo()

	// Shapes describe uncomposed keys, so pruning only applies without a composer.
	prune := composer == nil
	var keyShape Shape
	if prune {
		keyShape = info.Shape(key)
	}
	composedKey := info.Compose(key, composer)

	var (
		conds, values []*expr.Expr
		result        *expr.Expr
	)
replay:
	for u := c.updates; u != nil; u = u.next {
		if prune && !u.shape.Intersects(keyShape) {
			break
		}

		var cond, value *expr.Expr
		switch node := u.node.(type) {
		case *PinpointUpdate[K]:
			eq := info.Eq(composedKey, info.Compose(node.key, composer))
			cond = ctx.And(eq, expr.Compose(composer, node.guard))
			if cond.IsFalse() {
				continue
			}
			value = expr.Compose(composer, node.value)
		case *RangedUpdate[K]:
			if prune && !node.link.shape().Intersects(keyShape) {
				continue
			}
			cond = ctx.And(expr.Compose(composer, node.link.includes(key)), expr.Compose(composer, node.guard))
			if cond.IsFalse() {
				continue
			}
			value = node.link.read(key, composer)
		default:
			Violatef("unknown update node %T", u.node)
		}

		if cond.IsTrue() {
			result = value
			break replay
		}
		conds = append(conds, cond)
		values = append(values, value)
	}

	if result == nil {
		result = c.base(key, composer)
	}
	for i := len(conds) - 1; i >= 0; i-- {
		result = ctx.Ite(conds[i], values[i], result)
	}
	return result
}

// base returns the default content of the collection at key.
func (c Collection[K]) base(key K, composer expr.Composer) *expr.Expr {
	sort := c.id.Region().Sort
	if !c.IsInput() {
		return expr.Compose(composer, c.ctx.Sample(sort))
	}
	return expr.Compose(composer, c.ctx.Reading(c.id.String(), sort, c.id.KeyInfo().Exprs(key)...))
}

// ApplyTo replays the log into mem, oldest update first, rewriting keys, values and guards through the composer.
func (c Collection[K]) ApplyTo(mem Writable, composer expr.Composer) {
	info := c.id.KeyInfo()
	for _, n := range c.oldestFirst() {
		switch node := n.(type) {
		case *PinpointUpdate[K]:
			guard := expr.Compose(composer, node.guard)
			if guard.IsFalse() {
				continue
			}
			c.id.WriteTo(mem, info.Compose(node.key, composer), expr.Compose(composer, node.value), guard)
		case *RangedUpdate[K]:
			node.link.applyTo(mem, c.id, node.guard, composer)
		default:
			Violatef("unknown update node %T", n)
		}
	}
}

func (c Collection[K]) String() string {
	var sb strings.Builder
	sb.WriteString(c.id.String())
	sb.WriteString(" <")
	first := true
	for node := range c.Updates() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(node.String())
	}
	sb.WriteString(">")
	return sb.String()
}
