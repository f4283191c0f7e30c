package expr

import "fmt"

// Composer rewrites terms, typically by substituting model values for free constants and input readings.
type Composer interface {
	Compose(e *Expr) *Expr
}

// Compose applies the composer to e, treating a nil composer as the identity.
func Compose(composer Composer, e *Expr) *Expr {
	if composer == nil {
		return e
	}
	return composer.Compose(e)
}

// ReadOnlyCollection is the contents of an input collection under a model, read at composed key components.
type ReadOnlyCollection interface {
	Read(keys []*Expr) *Expr
}

// ReadOnlyCollectionFunc adapts a function to the ReadOnlyCollection interface.
type ReadOnlyCollectionFunc func(keys []*Expr) *Expr

// Read implements ReadOnlyCollection.
func (f ReadOnlyCollectionFunc) Read(keys []*Expr) *Expr {
	return f(keys)
}

// DecodeFunc decodes the named input collection, whose values have the given sort, from a model. It is the hook
// through which a solver model is consulted.
type DecodeFunc func(collection string, sort Sort) ReadOnlyCollection

// Substitution is a Composer which replaces free constants (including symbolic references) by bound values and
// resolves readings through an optional DecodeFunc. Each input collection is decoded at most once per Substitution,
// however many of its readings are composed. A Substitution is not safe for concurrent use.
type Substitution struct {
	ctx      *Context
	bindings map[*Expr]*Expr
	decode   DecodeFunc

	// cache maps term identifiers to their composed form.
	cache map[uint64]*Expr

	// collections maps collection names to their decoded contents.
	collections map[string]ReadOnlyCollection
}

// NewSubstitution creates an empty Substitution over the provided Context. decode may be nil, in which case readings
// are only rewritten in terms of their composed keys.
func NewSubstitution(ctx *Context, decode DecodeFunc) *Substitution {
	return &Substitution{
		ctx:         ctx,
		bindings:    make(map[*Expr]*Expr),
		decode:      decode,
		cache:       make(map[uint64]*Expr),
		collections: make(map[string]ReadOnlyCollection),
	}
}

// Bind maps the free constant c to value and returns the Substitution for chaining. Binding after the first call to
// Compose is not allowed.
func (s *Substitution) Bind(c *Expr, value *Expr) *Substitution {
	if c.op != OpConst {
		panic(fmt.Sprintf("cannot bind non-constant term %v", c))
	}
	checkSort(value, c.sort)

	if len(s.cache) > 0 {
		panic("cannot bind constants after composition has started")
	}
	s.bindings[c] = value
	return s
}

// Decoded returns the amount of collections decoded through the DecodeFunc so far.
func (s *Substitution) Decoded() int {
	return len(s.collections)
}

// collection returns the decoded contents of the named collection, decoding it on first use.
func (s *Substitution) collection(name string, sort Sort) ReadOnlyCollection {
	if decoded, ok := s.collections[name]; ok {
		return decoded
	}
	decoded := s.decode(name, sort)
	s.collections[name] = decoded
	return decoded
}

// Compose implements Composer.
func (s *Substitution) Compose(e *Expr) *Expr {
	if cached, ok := s.cache[e.id]; ok {
		return cached
	}

	var result *Expr
	switch e.op {
	case OpBoolConst, OpBitVecConst, OpConcreteRef, OpNullRef:
		result = e
	case OpConst:
		result = e
		if value, ok := s.bindings[e]; ok {
			result = value
		}
	case OpReading:
		keys := s.composeArgs(e.args)
		if s.decode == nil {
			result = s.ctx.Reading(e.name, e.sort, keys...)
			break
		}
		result = s.collection(e.name, e.sort).Read(keys)
		checkSort(result, e.sort)
	default:
		result = s.rebuild(e, s.composeArgs(e.args))
	}

	s.cache[e.id] = result
	return result
}

func (s *Substitution) composeArgs(args []*Expr) []*Expr {
	composed := make([]*Expr, len(args))
	for i, arg := range args {
		composed[i] = s.Compose(arg)
	}
	return composed
}

// rebuild re-applies the constructor for e's operator so that the composed term is simplified again.
func (s *Substitution) rebuild(e *Expr, args []*Expr) *Expr {
	ctx := s.ctx
	switch e.op {
	case OpIte:
		return ctx.Ite(args[0], args[1], args[2])
	case OpAnd:
		return ctx.And(args...)
	case OpOr:
		return ctx.Or(args...)
	case OpNot:
		return ctx.Not(args[0])
	case OpEq:
		return ctx.Eq(args[0], args[1])
	case OpAdd:
		return ctx.Add(args[0], args[1])
	case OpSub:
		return ctx.Sub(args[0], args[1])
	case OpUle:
		return ctx.Ule(args[0], args[1])
	case OpUlt:
		return ctx.Ult(args[0], args[1])
	default:
		panic(fmt.Sprintf("cannot compose term with operator %v", e.op))
	}
}
