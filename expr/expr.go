package expr

import (
	"github.com/holiman/uint256"
	"strconv"
	"strings"
)

// Op identifies the operator of a term.
type Op uint8

const (
	OpBoolConst Op = iota + 1
	OpBitVecConst
	OpConst
	OpConcreteRef
	OpNullRef
	OpReading
	OpIte
	OpAnd
	OpOr
	OpNot
	OpEq
	OpAdd
	OpSub
	OpUle
	OpUlt
)

var opNames = map[Op]string{
	OpBoolConst:   "bool",
	OpBitVecConst: "bv",
	OpConst:       "const",
	OpConcreteRef: "ref",
	OpNullRef:     "null",
	OpReading:     "select",
	OpIte:         "ite",
	OpAnd:         "and",
	OpOr:          "or",
	OpNot:         "not",
	OpEq:          "=",
	OpAdd:         "bvadd",
	OpSub:         "bvsub",
	OpUle:         "bvule",
	OpUlt:         "bvult",
}

// String returns the operator's name.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Expr is an immutable, hash-consed term created by a Context. Two terms created by the same Context are structurally
// equal if and only if they are the same pointer.
type Expr struct {
	// ctx is the Context which created this term.
	ctx *Context

	// id is a surrogate identifier assigned when the term was first interned. It is stable for the lifetime of the
	// Context and is used to key per-traversal caches.
	id uint64

	op   Op
	sort Sort
	args []*Expr

	// name is the symbol of a constant or the collection name of a reading.
	name string

	// value holds the value of bit-vector constants.
	value uint256.Int

	// address holds the address of concrete heap references.
	address uint64

	// boolean holds the value of boolean constants.
	boolean bool
}

// Context returns the Context which created the term.
func (e *Expr) Context() *Context {
	return e.ctx
}

// ID returns the surrogate identifier of the term.
func (e *Expr) ID() uint64 {
	return e.id
}

// Op returns the operator of the term.
func (e *Expr) Op() Op {
	return e.op
}

// Sort returns the sort of the term.
func (e *Expr) Sort() Sort {
	return e.sort
}

// Args returns the operands of the term. The returned slice must not be modified.
func (e *Expr) Args() []*Expr {
	return e.args
}

// Name returns the symbol of a constant, or the collection name of a reading.
func (e *Expr) Name() string {
	return e.name
}

// Address returns the address of a concrete heap reference.
func (e *Expr) Address() uint64 {
	return e.address
}

// Value returns a copy of the value of a bit-vector constant.
func (e *Expr) Value() *uint256.Int {
	return new(uint256.Int).Set(&e.value)
}

// Uint64 returns the value of a bit-vector constant if the term is one and its value fits in 64 bits.
func (e *Expr) Uint64() (uint64, bool) {
	if e.op != OpBitVecConst || !e.value.IsUint64() {
		return 0, false
	}
	return e.value.Uint64(), true
}

// IsTrue indicates whether the term is the boolean constant true.
func (e *Expr) IsTrue() bool {
	return e.op == OpBoolConst && e.boolean
}

// IsFalse indicates whether the term is the boolean constant false.
func (e *Expr) IsFalse() bool {
	return e.op == OpBoolConst && !e.boolean
}

// IsConcreteRef indicates whether the term is a reference to an allocated address.
func (e *Expr) IsConcreteRef() bool {
	return e.op == OpConcreteRef
}

// IsNullRef indicates whether the term is the null reference.
func (e *Expr) IsNullRef() bool {
	return e.op == OpNullRef
}

// IsSymbolicRef indicates whether the term is a reference which is not yet resolved to an address. Branching
// references (ite over references) are neither concrete nor symbolic and must be split first.
func (e *Expr) IsSymbolicRef() bool {
	return e.sort.IsAddress() && e.op != OpConcreteRef && e.op != OpNullRef && e.op != OpIte
}

// IsValue indicates whether the term is a literal: a boolean or bit-vector constant, a concrete reference or null.
func (e *Expr) IsValue() bool {
	switch e.op {
	case OpBoolConst, OpBitVecConst, OpConcreteRef, OpNullRef:
		return true
	default:
		return false
	}
}

// String returns an s-expression rendering of the term.
func (e *Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.op {
	case OpBoolConst:
		sb.WriteString(strconv.FormatBool(e.boolean))
	case OpBitVecConst:
		sb.WriteString(e.value.Dec())
	case OpConst:
		sb.WriteString(e.name)
	case OpConcreteRef:
		sb.WriteString("#")
		sb.WriteString(strconv.FormatUint(e.address, 10))
	case OpNullRef:
		sb.WriteString("null")
	case OpReading:
		sb.WriteString(e.name)
		sb.WriteString("[")
		for i, arg := range e.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			arg.write(sb)
		}
		sb.WriteString("]")
	default:
		sb.WriteString("(")
		sb.WriteString(e.op.String())
		for _, arg := range e.args {
			sb.WriteString(" ")
			arg.write(sb)
		}
		sb.WriteString(")")
	}
}
