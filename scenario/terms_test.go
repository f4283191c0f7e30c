package scenario

import (
	"github.com/crytic/symheap/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// TestParseTerms checks that terms are built with the sorts implied by their position, declarations and bindings.
func TestParseTerms(t *testing.T) {
	ctx := expr.NewContext()
	bv32 := expr.BitVecSort(32)
	a := ctx.ConcreteRef(1)
	c := ctx.Const("c", expr.BoolSort)
	x := ctx.Const("x", bv32)
	parser := &termParser{
		ctx:  ctx,
		vars: map[string]expr.Sort{"x": bv32},
		refs: map[string]*expr.Expr{"a": a},
	}

	tests := []struct {
		text     string
		sort     expr.Sort
		expected *expr.Expr
	}{
		{"42", bv32, ctx.BitVec(32, 42)},
		{"true", expr.BoolSort, ctx.True()},
		{"null", expr.AddressSort, ctx.NullRef()},
		{"#7", expr.AddressSort, ctx.ConcreteRef(7)},
		{"a", expr.AddressSort, a},
		{"p", expr.AddressSort, ctx.SymbolicRef("p")},
		{"(ite c a null)", expr.AddressSort, ctx.Ite(c, a, ctx.NullRef())},
		{"(= x 3)", expr.BoolSort, ctx.Eq(x, ctx.BitVec(32, 3))},
		{"(and c (bvult x 4))", expr.BoolSort, ctx.And(c, ctx.Ult(x, ctx.BitVec(32, 4)))},
		{"(bvadd 1 (bvsub x 1))", bv32, ctx.Add(ctx.BitVec(32, 1), ctx.Sub(x, ctx.BitVec(32, 1)))},
		{"(not (or c (= a null)))", expr.BoolSort, ctx.Not(ctx.Or(c, ctx.Eq(a, ctx.NullRef())))},
	}
	for _, test := range tests {
		term, err := parser.parse(test.text, test.sort)
		require.NoError(t, err, test.text)
		assert.Same(t, test.expected, term, test.text)
	}
}

// TestParseInvalidTerms verifies that malformed and ill-sorted terms are rejected.
func TestParseInvalidTerms(t *testing.T) {
	ctx := expr.NewContext()
	parser := &termParser{ctx: ctx, vars: map[string]expr.Sort{"x": expr.BitVecSort(8)}}
	tests := map[string]expr.Sort{
		"":                 expr.BoolSort,
		"(":                expr.BoolSort,
		"()":               expr.BoolSort,
		"(and true) false": expr.BoolSort,
		"(xor true false)": expr.BoolSort,
		"(not true false)": expr.BoolSort,
		"5":                expr.BoolSort,
		"x":                expr.BitVecSort(32),
		"(= 1 2)":          expr.BoolSort,
		"(bvadd true 1)":   expr.BitVecSort(8),
		"#abc":             expr.AddressSort,
		"true":             expr.AddressSort,
	}
	for text, sort := range tests {
		_, err := parser.parse(text, sort)
		assert.Error(t, err, text)
	}
}
