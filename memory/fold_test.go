package memory

import (
	"fmt"
	"github.com/crytic/symheap/expr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// TestFoldHeapRef checks the decomposition of a branching reference into guarded leaves.
func TestFoldHeapRef(t *testing.T) {
	ctx := expr.NewContext()
	c1, c2 := ctx.Const("c1", expr.BoolSort), ctx.Const("c2", expr.BoolSort)
	s := ctx.SymbolicRef("s")
	ref := ctx.Ite(c1, ctx.ConcreteRef(1), ctx.Ite(c2, s, ctx.NullRef()))

	concrete, symbolic := SplitHeapRef(ref, ctx.True(), true)
	require.Len(t, concrete, 1)
	require.Len(t, symbolic, 1)
	assert.Equal(t, GuardedRef{Ref: ctx.ConcreteRef(1), Guard: c1}, concrete[0])
	assert.Equal(t, GuardedRef{Ref: s, Guard: ctx.And(ctx.Not(c1), c2)}, symbolic[0])

	// Null leaves are reported as symbolic unless ignored.
	_, symbolic = SplitHeapRef(ref, ctx.True(), false)
	require.Len(t, symbolic, 2)
	assert.Same(t, ctx.NullRef(), symbolic[1].Ref)
	assert.Same(t, ctx.And(ctx.Not(c1), ctx.Not(c2)), symbolic[1].Guard)

	// An outer guard is conjoined to every leaf, and false guards prune everything.
	g := ctx.Const("g", expr.BoolSort)
	concrete, _ = SplitHeapRef(ref, g, true)
	assert.Same(t, ctx.And(g, c1), concrete[0].Guard)
	concrete, symbolic = SplitHeapRef(ref, ctx.False(), false)
	assert.Empty(t, concrete)
	assert.Empty(t, symbolic)
}

// TestFoldHeapRef2 checks that every pair of leaves is visited under the conjunction of their guards.
func TestFoldHeapRef2(t *testing.T) {
	ctx := expr.NewContext()
	c, d := ctx.Const("c", expr.BoolSort), ctx.Const("d", expr.BoolSort)
	a := ctx.Ite(c, ctx.ConcreteRef(1), ctx.SymbolicRef("x"))
	b := ctx.Ite(d, ctx.ConcreteRef(2), ctx.ConcreteRef(3))

	type pair struct {
		a, b  *expr.Expr
		guard *expr.Expr
	}
	pairs := FoldHeapRef2(a, b, ctx.True(), []pair(nil), true, func(acc []pair, la, lb GuardedRef) []pair {
		return append(acc, pair{a: la.Ref, b: lb.Ref, guard: lb.Guard})
	})
	require.Len(t, pairs, 4)
	assert.Equal(t, pair{ctx.ConcreteRef(1), ctx.ConcreteRef(2), ctx.And(c, d)}, pairs[0])
	assert.Equal(t, pair{ctx.SymbolicRef("x"), ctx.ConcreteRef(3), ctx.And(ctx.Not(c), ctx.Not(d))}, pairs[3])
}

// TestMapHeapRef checks that reads through a branching reference recombine into an ite cascade.
func TestMapHeapRef(t *testing.T) {
	ctx := expr.NewContext()
	c := ctx.Const("c", expr.BoolSort)
	ref := ctx.Ite(c, ctx.ConcreteRef(1), ctx.SymbolicRef("s"))
	read := func(leaf GuardedRef) *expr.Expr {
		if leaf.Ref.IsConcreteRef() {
			return ctx.BitVec(8, leaf.Ref.Address())
		}
		return ctx.Const("v", expr.BitVecSort(8))
	}
	result := MapHeapRef(ref, true, read, read)
	assert.Same(t, ctx.Ite(c, ctx.BitVec(8, 1), ctx.Const("v", expr.BitVecSort(8))), result)

	// A single leaf needs no condition.
	assert.Same(t, ctx.BitVec(8, 1), MapHeapRef(ctx.ConcreteRef(1), true, read, read))

	// A reference without leaves cannot be read.
	var err error
	func() {
		defer RecoverContractViolation(&err)
		MapHeapRef(ctx.NullRef(), true, read, read)
	}()
	var violation *ContractViolation
	assert.ErrorAs(t, err, &violation)
}

// TestRecoverContractViolation checks that only contract violations are recovered.
func TestRecoverContractViolation(t *testing.T) {
	var err error
	func() {
		defer RecoverContractViolation(&err)
		Violatef("bad region %d", 3)
	}()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad region 3")
	assert.Contains(t, fmt.Sprintf("%+v", errors.Unwrap(err)), "TestRecoverContractViolation")

	assert.PanicsWithValue(t, "other", func() {
		var err error
		defer RecoverContractViolation(&err)
		panic("other")
	})
}
