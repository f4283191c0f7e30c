package memory

import "github.com/crytic/symheap/expr"

// GuardedRef is a leaf of a branching heap reference together with the condition under which the reference denotes
// it. The guards of the leaves of one reference are mutually exclusive.
type GuardedRef struct {
	Ref   *expr.Expr
	Guard *expr.Expr
}

// FoldHeapRef decomposes ref into its leaves and folds them into acc: concrete references are passed to onConcrete,
// everything else to onSymbolic. Null leaves are skipped if ignoreNull is set, and passed to onSymbolic otherwise.
// Leaves under a statically false guard are skipped. Leaves are visited in the order of the branches, then-branch
// first.
func FoldHeapRef[R any](ref, guard *expr.Expr, acc R, ignoreNull bool, onConcrete, onSymbolic func(R, GuardedRef) R) R {
	ctx := ref.Context()
	stack := []GuardedRef{{Ref: ref, Guard: guard}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Guard.IsFalse() {
			continue
		}

		cur := top.Ref
		switch {
		case cur.Op() == expr.OpIte:
			cond, then, els := cur.Args()[0], cur.Args()[1], cur.Args()[2]
			stack = append(stack,
				GuardedRef{Ref: els, Guard: ctx.And(top.Guard, ctx.Not(cond))},
				GuardedRef{Ref: then, Guard: ctx.And(top.Guard, cond)},
			)
		case cur.IsConcreteRef():
			acc = onConcrete(acc, top)
		case cur.IsNullRef() && ignoreNull:
		default:
			acc = onSymbolic(acc, top)
		}
	}
	return acc
}

// SplitHeapRef returns the leaves of ref, separated into concrete references and the rest.
func SplitHeapRef(ref, guard *expr.Expr, ignoreNull bool) (concrete, symbolic []GuardedRef) {
	type split struct {
		concrete, symbolic []GuardedRef
	}
	s := FoldHeapRef(ref, guard, split{}, ignoreNull,
		func(s split, leaf GuardedRef) split {
			s.concrete = append(s.concrete, leaf)
			return s
		},
		func(s split, leaf GuardedRef) split {
			s.symbolic = append(s.symbolic, leaf)
			return s
		},
	)
	return s.concrete, s.symbolic
}

// FoldHeapRef2 folds every pair of leaves of two references. The guard of the leaf of b passed to f is the
// conjunction of both leaf guards.
func FoldHeapRef2[R any](a, b, guard *expr.Expr, acc R, ignoreNull bool, f func(acc R, a, b GuardedRef) R) R {
	outer := func(acc R, leafA GuardedRef) R {
		inner := func(acc R, leafB GuardedRef) R {
			return f(acc, leafA, leafB)
		}
		return FoldHeapRef(b, leafA.Guard, acc, ignoreNull, inner, inner)
	}
	return FoldHeapRef(a, guard, acc, ignoreNull, outer, outer)
}

// MapHeapRef reads through every leaf of ref and recombines the results as a cascade of ite terms ordered like the
// leaves. The last leaf needs no condition because the leaf guards are exhaustive. A reference without leaves is a
// contract violation.
func MapHeapRef(ref *expr.Expr, ignoreNull bool, onConcrete, onSymbolic func(GuardedRef) *expr.Expr) *expr.Expr {
	ctx := ref.Context()
	type branch struct {
		guard, value *expr.Expr
	}
	collect := func(read func(GuardedRef) *expr.Expr) func([]branch, GuardedRef) []branch {
		return func(branches []branch, leaf GuardedRef) []branch {
			return append(branches, branch{guard: leaf.Guard, value: read(leaf)})
		}
	}
	branches := FoldHeapRef(ref, ctx.True(), []branch(nil), ignoreNull, collect(onConcrete), collect(onSymbolic))
	if len(branches) == 0 {
		Violatef("no heap reference to read in %v", ref)
	}

	result := branches[len(branches)-1].value
	for i := len(branches) - 2; i >= 0; i-- {
		result = ctx.Ite(branches[i].guard, branches[i].value, result)
	}
	return result
}
