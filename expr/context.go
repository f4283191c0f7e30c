// Package expr provides the term layer used by the symbolic heap: sorts, hash-consed terms with eager local
// simplification, and composers which substitute model values into terms.
package expr

import (
	"fmt"
	"github.com/holiman/uint256"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Context is a term factory. It interns every term it creates so that structurally equal terms share a single
// pointer, and it applies local simplifications eagerly in every constructor. A Context is safe for concurrent use.
type Context struct {
	// terms maps the structural key of every interned term to the term itself.
	terms map[string]*Expr

	// termsLock guards terms and nextID.
	termsLock sync.Mutex

	// nextID is the surrogate identifier given to the next interned term.
	nextID uint64

	trueExpr  *Expr
	falseExpr *Expr
	nullRef   *Expr
}

// NewContext creates a new, empty term factory.
func NewContext() *Context {
	c := &Context{
		terms:  make(map[string]*Expr),
		nextID: 1,
	}
	c.trueExpr = c.intern(&Expr{op: OpBoolConst, sort: BoolSort, boolean: true})
	c.falseExpr = c.intern(&Expr{op: OpBoolConst, sort: BoolSort, boolean: false})
	c.nullRef = c.intern(&Expr{op: OpNullRef, sort: AddressSort})
	return c
}

// Len returns the amount of distinct terms interned so far.
func (c *Context) Len() int {
	c.termsLock.Lock()
	defer c.termsLock.Unlock()
	return len(c.terms)
}

// intern returns the canonical instance of the provided term, registering it if it is new.
func (c *Context) intern(e *Expr) *Expr {
	key := structuralKey(e)

	c.termsLock.Lock()
	defer c.termsLock.Unlock()
	if existing, ok := c.terms[key]; ok {
		return existing
	}
	e.ctx = c
	e.id = c.nextID
	c.nextID++
	c.terms[key] = e
	return e
}

// structuralKey renders the fields which determine the identity of a term. Operands are already interned, so their
// identifiers stand in for their structure.
func structuralKey(e *Expr) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(e.op)))
	sb.WriteByte('|')
	sb.WriteString(e.sort.String())
	sb.WriteByte('|')
	switch e.op {
	case OpBoolConst:
		sb.WriteString(strconv.FormatBool(e.boolean))
	case OpBitVecConst:
		sb.WriteString(e.value.Hex())
	case OpConcreteRef:
		sb.WriteString(strconv.FormatUint(e.address, 10))
	case OpConst, OpReading:
		sb.WriteString(strconv.Quote(e.name))
	}
	for _, arg := range e.args {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(arg.id, 10))
	}
	return sb.String()
}

// True returns the boolean constant true.
func (c *Context) True() *Expr {
	return c.trueExpr
}

// False returns the boolean constant false.
func (c *Context) False() *Expr {
	return c.falseExpr
}

// Bool returns the boolean constant for b.
func (c *Context) Bool(b bool) *Expr {
	if b {
		return c.trueExpr
	}
	return c.falseExpr
}

// BitVec returns the bit-vector constant v of the given width, truncated to the width.
func (c *Context) BitVec(width uint, v uint64) *Expr {
	return c.BitVecInt(width, uint256.NewInt(v))
}

// BitVecInt returns the bit-vector constant v of the given width, truncated to the width.
func (c *Context) BitVecInt(width uint, v *uint256.Int) *Expr {
	sort := BitVecSort(width)
	e := &Expr{op: OpBitVecConst, sort: sort}
	e.value.And(v, widthMask(width))
	return c.intern(e)
}

// Const returns the free constant with the given name and sort. Constants of AddressSort are symbolic references.
func (c *Context) Const(name string, sort Sort) *Expr {
	return c.intern(&Expr{op: OpConst, sort: sort, name: name})
}

// SymbolicRef returns the symbolic heap reference with the given name.
func (c *Context) SymbolicRef(name string) *Expr {
	return c.Const(name, AddressSort)
}

// ConcreteRef returns the reference to the given allocated address.
func (c *Context) ConcreteRef(address uint64) *Expr {
	return c.intern(&Expr{op: OpConcreteRef, sort: AddressSort, address: address})
}

// NullRef returns the null reference.
func (c *Context) NullRef() *Expr {
	return c.nullRef
}

// Reading returns an opaque read of the named input collection at the given key components. Readings are resolved
// by a Composer once a model is available.
func (c *Context) Reading(collection string, sort Sort, keys ...*Expr) *Expr {
	return c.intern(&Expr{op: OpReading, sort: sort, name: collection, args: slices.Clone(keys)})
}

// Sample returns the canonical default value of the sort: false, zero or null.
func (c *Context) Sample(sort Sort) *Expr {
	switch sort.Kind {
	case BoolKind:
		return c.falseExpr
	case BitVecKind:
		return c.BitVec(sort.Width, 0)
	case AddressKind:
		return c.nullRef
	default:
		panic(fmt.Sprintf("no sample value for sort %v", sort))
	}
}

// Ite returns the conditional term "if cond then a else b".
func (c *Context) Ite(cond, a, b *Expr) *Expr {
	checkSort(cond, BoolSort)
	checkSort(b, a.sort)

	switch {
	case cond.IsTrue():
		return a
	case cond.IsFalse():
		return b
	case a == b:
		return a
	}
	if cond.op == OpNot {
		return c.Ite(cond.args[0], b, a)
	}
	if b.op == OpIte && b.args[0] == cond {
		b = b.args[2]
	}
	if a.op == OpIte && a.args[0] == cond {
		a = a.args[1]
	}
	if a == b {
		return a
	}

	if a.sort.IsBool() {
		switch {
		case a.IsTrue() && b.IsFalse():
			return cond
		case a.IsFalse() && b.IsTrue():
			return c.Not(cond)
		case a.IsTrue():
			return c.Or(cond, b)
		case a.IsFalse():
			return c.And(c.Not(cond), b)
		case b.IsFalse():
			return c.And(cond, a)
		case b.IsTrue():
			return c.Or(c.Not(cond), a)
		}
	}
	return c.intern(&Expr{op: OpIte, sort: a.sort, args: []*Expr{cond, a, b}})
}

// And returns the conjunction of the provided terms.
func (c *Context) And(args ...*Expr) *Expr {
	return c.junction(OpAnd, args)
}

// Or returns the disjunction of the provided terms.
func (c *Context) Or(args ...*Expr) *Expr {
	return c.junction(OpOr, args)
}

// junction builds a flattened, deduplicated and sorted n-ary conjunction or disjunction.
func (c *Context) junction(op Op, args []*Expr) *Expr {
	// For conjunctions, true is neutral and false absorbs. Disjunctions are the mirror image.
	neutral, absorbing := c.trueExpr, c.falseExpr
	if op == OpOr {
		neutral, absorbing = c.falseExpr, c.trueExpr
	}

	seen := make(map[*Expr]struct{}, len(args))
	flat := make([]*Expr, 0, len(args))
	stack := slices.Clone(args)
	for len(stack) > 0 {
		arg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		checkSort(arg, BoolSort)

		switch {
		case arg == neutral:
			continue
		case arg == absorbing:
			return absorbing
		case arg.op == op:
			stack = append(stack, arg.args...)
			continue
		}
		if _, ok := seen[arg]; ok {
			continue
		}
		seen[arg] = struct{}{}
		flat = append(flat, arg)
	}

	// A term and its negation together decide the junction.
	for _, arg := range flat {
		if arg.op == OpNot {
			if _, ok := seen[arg.args[0]]; ok {
				return absorbing
			}
		}
	}

	switch len(flat) {
	case 0:
		return neutral
	case 1:
		return flat[0]
	}
	slices.SortFunc(flat, byID)
	return c.intern(&Expr{op: op, sort: BoolSort, args: flat})
}

// Not returns the negation of a.
func (c *Context) Not(a *Expr) *Expr {
	checkSort(a, BoolSort)
	switch {
	case a.IsTrue():
		return c.falseExpr
	case a.IsFalse():
		return c.trueExpr
	case a.op == OpNot:
		return a.args[0]
	}
	return c.intern(&Expr{op: OpNot, sort: BoolSort, args: []*Expr{a}})
}

// Eq returns the equality of a and b, which must share a sort.
func (c *Context) Eq(a, b *Expr) *Expr {
	checkSort(b, a.sort)
	if a == b {
		return c.trueExpr
	}
	// Distinct literals are distinct values.
	if a.IsValue() && b.IsValue() {
		return c.falseExpr
	}
	// Freshly allocated addresses never alias input references.
	if (a.IsConcreteRef() && b.IsSymbolicRef()) || (a.IsSymbolicRef() && b.IsConcreteRef()) {
		return c.falseExpr
	}
	if a.sort.IsBool() {
		switch {
		case a.op == OpBoolConst:
			return c.Ite(a, b, c.Not(b))
		case b.op == OpBoolConst:
			return c.Ite(b, a, c.Not(a))
		}
	}
	if a.id > b.id {
		a, b = b, a
	}
	return c.intern(&Expr{op: OpEq, sort: BoolSort, args: []*Expr{a, b}})
}

// Add returns the modular sum of two bit-vectors. Constants are folded and kept as the right operand.
func (c *Context) Add(a, b *Expr) *Expr {
	checkBitVec(a)
	checkSort(b, a.sort)
	if a.op == OpBitVecConst && b.op != OpBitVecConst {
		a, b = b, a
	}
	if a.op == OpBitVecConst {
		return c.BitVecInt(a.sort.Width, new(uint256.Int).Add(&a.value, &b.value))
	}
	if b.op == OpBitVecConst {
		if b.value.IsZero() {
			return a
		}
		// (x + c1) + c2 = x + (c1 + c2)
		if a.op == OpAdd && a.args[1].op == OpBitVecConst {
			return c.Add(a.args[0], c.Add(a.args[1], b))
		}
		return c.intern(&Expr{op: OpAdd, sort: a.sort, args: []*Expr{a, b}})
	}
	if a.id > b.id {
		a, b = b, a
	}
	return c.intern(&Expr{op: OpAdd, sort: a.sort, args: []*Expr{a, b}})
}

// Sub returns the modular difference of two bit-vectors. Subtracting a constant is rewritten as adding its negation.
func (c *Context) Sub(a, b *Expr) *Expr {
	checkBitVec(a)
	checkSort(b, a.sort)
	switch {
	case a == b:
		return c.BitVec(a.sort.Width, 0)
	case b.op == OpBitVecConst:
		return c.Add(a, c.BitVecInt(a.sort.Width, new(uint256.Int).Neg(&b.value)))
	case a.op == OpAdd && a.args[0] == b && a.args[1].op == OpBitVecConst:
		// (x + k) - x = k
		return a.args[1]
	case b.op == OpAdd && b.args[0] == a && b.args[1].op == OpBitVecConst:
		// x - (x + k) = -k
		return c.BitVecInt(a.sort.Width, new(uint256.Int).Neg(&b.args[1].value))
	}
	return c.intern(&Expr{op: OpSub, sort: a.sort, args: []*Expr{a, b}})
}

// Ule returns the unsigned comparison a <= b.
func (c *Context) Ule(a, b *Expr) *Expr {
	checkBitVec(a)
	checkSort(b, a.sort)
	switch {
	case a == b:
		return c.trueExpr
	case a.op == OpBitVecConst && b.op == OpBitVecConst:
		return c.Bool(a.value.Cmp(&b.value) <= 0)
	case a.op == OpBitVecConst && a.value.IsZero():
		return c.trueExpr
	case b.op == OpBitVecConst && b.value.Eq(widthMask(b.sort.Width)):
		return c.trueExpr
	}
	return c.intern(&Expr{op: OpUle, sort: BoolSort, args: []*Expr{a, b}})
}

// Ult returns the unsigned comparison a < b.
func (c *Context) Ult(a, b *Expr) *Expr {
	checkBitVec(a)
	checkSort(b, a.sort)
	switch {
	case a == b:
		return c.falseExpr
	case a.op == OpBitVecConst && b.op == OpBitVecConst:
		return c.Bool(a.value.Cmp(&b.value) < 0)
	case b.op == OpBitVecConst && b.value.IsZero():
		return c.falseExpr
	}
	return c.intern(&Expr{op: OpUlt, sort: BoolSort, args: []*Expr{a, b}})
}

// widthMask returns 2^width - 1.
func widthMask(width uint) *uint256.Int {
	if width >= MaxBitVecWidth {
		return new(uint256.Int).SetAllOne()
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), width)
	return mask.SubUint64(mask, 1)
}

func byID(a, b *Expr) int {
	switch {
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return 1
	default:
		return 0
	}
}

func checkSort(e *Expr, sort Sort) {
	if e.sort != sort {
		panic(fmt.Sprintf("sort mismatch: %v has sort %v, expected %v", e, e.sort, sort))
	}
}

func checkBitVec(e *Expr) {
	if !e.sort.IsBitVec() {
		panic(fmt.Sprintf("sort mismatch: %v has sort %v, expected a bit-vector", e, e.sort))
	}
}
