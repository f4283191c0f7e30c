package scenario

import (
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/version"
)

// Example returns a small scenario showing the shape of scenario files: a field written on one heap stays visible to
// a fork of it, while writes on the fork leave the original heap untouched.
func Example() *Scenario {
	x := &RegionSpec{Kind: "field", Type: "Point", Field: "x", Sort: expr.BitVecSort(32)}
	return &Scenario{
		Version: version.ScenarioFormat,
		Name:    "example",
		Steps: []Step{
			{Op: OpAlloc, Bind: "p"},
			{Op: OpWrite, Region: x, Ref: "p", Value: "4"},
			{Op: OpFork, Bind: "alt"},
			{Op: OpRead, Heap: "alt", Region: x, Ref: "p", Expect: "4"},
			{Op: OpWrite, Heap: "alt", Region: x, Ref: "p", Value: "7"},
			{Op: OpRead, Heap: "alt", Region: x, Ref: "p", Expect: "7"},
			{Op: OpRead, Region: x, Ref: "p", Expect: "4"},
		},
	}
}
