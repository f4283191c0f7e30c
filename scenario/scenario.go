// Package scenario loads and runs scripted sequences of heap operations, checking their results against
// expectations. Scenarios exercise the heap the way an interpreter would: allocations, reads and writes through
// concrete, symbolic or branching references, bulk copies, unions, merges and forks of execution states.
package scenario

import (
	"encoding/json"
	"github.com/Masterminds/semver"
	"github.com/crytic/symheap/expr"
	"github.com/crytic/symheap/memory"
	"github.com/crytic/symheap/utils"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
	"os"
)

// DefaultHeap is the name of the heap every scenario starts with.
const DefaultHeap = "main"

// Op names the heap operation a Step performs.
type Op string

const (
	// OpAlloc allocates a fresh object, or an array when a region and length are given, and binds it to a name.
	OpAlloc Op = "alloc"
	// OpInit stores the initial contents of an allocated array.
	OpInit Op = "init"
	// OpWrite stores a value: an array element, a field, a length, a set membership or a map entry.
	OpWrite Op = "write"
	// OpRead reads a value and checks it against the expectation.
	OpRead Op = "read"
	// OpPut binds a map value without updating the map's key set or length.
	OpPut Op = "put"
	// OpRemove removes a map entry.
	OpRemove Op = "remove"
	// OpContains checks whether a set element or map key is present.
	OpContains Op = "contains"
	// OpLength reads the length of an array or map.
	OpLength Op = "length"
	// OpEntries lists the elements of a set or the keys of a map.
	OpEntries Op = "entries"
	// OpIntersection computes the amount of elements two sets share.
	OpIntersection Op = "intersection"
	// OpMemcpy copies a range of array elements.
	OpMemcpy Op = "memcpy"
	// OpUnion adds the elements of one set to another.
	OpUnion Op = "union"
	// OpMerge merges the entries of one map into another.
	OpMerge Op = "merge"
	// OpFork forks a heap into a new execution state.
	OpFork Op = "fork"
)

// Scenario is a named sequence of steps run against a fresh heap.
type Scenario struct {
	// Version is the format version of the scenario, checked against the configured constraint.
	Version string `json:"version"`

	// Name identifies the scenario in logs and reports.
	Name string `json:"name"`

	// Vars declares the sorts of the free constants used in terms.
	Vars map[string]expr.Sort `json:"vars,omitempty"`

	// Steps are the operations of the scenario, run in order.
	Steps []Step `json:"steps"`
}

// RegionSpec describes a region in a scenario file.
type RegionSpec struct {
	// Kind is one of "array", "length", "field", "set", "map" or "map-length".
	Kind string `json:"kind"`

	// Type is the type of the stored entities.
	Type string `json:"type"`

	// Field is the field name of field regions.
	Field string `json:"field,omitempty"`

	// Sort is the sort of array elements, field values and map values.
	Sort expr.Sort `json:"sort"`

	// KeySort is the sort of set elements and map keys.
	KeySort expr.Sort `json:"keySort"`
}

// Step is a single heap operation of a scenario. Terms are written as s-expressions over the operators ite, and, or,
// not, =, bvadd, bvsub, bvule and bvult, with decimal literals, true, false, null, #address and names as atoms.
type Step struct {
	// Op is the operation performed.
	Op Op `json:"op"`

	// Heap is the heap the step runs against. Defaults to DefaultHeap.
	Heap string `json:"heap,omitempty"`

	// Bind names the reference created by alloc or the heap created by fork.
	Bind string `json:"bind,omitempty"`

	// Region is the region operated on.
	Region *RegionSpec `json:"region,omitempty"`

	// Ref is the reference operated on.
	Ref string `json:"ref,omitempty"`

	// Src and Dst are the source and destination references of memcpy, union and merge.
	Src string `json:"src,omitempty"`
	Dst string `json:"dst,omitempty"`

	// Other is the second set of intersection.
	Other string `json:"other,omitempty"`

	// Key is an array index, set element or map key.
	Key string `json:"key,omitempty"`

	// Value is the value written.
	Value string `json:"value,omitempty"`

	// Guard is the condition of an update. Defaults to true.
	Guard string `json:"guard,omitempty"`

	// Length is the length of an allocated array.
	Length string `json:"length,omitempty"`

	// SrcFrom, DstFrom and DstTo delimit the elements copied by memcpy.
	SrcFrom string `json:"srcFrom,omitempty"`
	DstFrom string `json:"dstFrom,omitempty"`
	DstTo   string `json:"dstTo,omitempty"`

	// Values are the contents stored by init, or the expected elements listed by entries.
	Values []string `json:"values,omitempty"`

	// Expect is the term the result of the step must equal.
	Expect string `json:"expect,omitempty"`

	// ExpectComplete is the expected completeness of the elements listed by entries.
	ExpectComplete *bool `json:"expectComplete,omitempty"`

	// ExpectViolation indicates the step must be rejected as a contract violation.
	ExpectViolation bool `json:"expectViolation,omitempty"`
}

// heapName returns the name of the heap the step runs against.
func (s *Step) heapName() string {
	if s.Heap == "" {
		return DefaultHeap
	}
	return s.Heap
}

// RegionID returns the identifier of the region described.
func (r *RegionSpec) RegionID() (memory.RegionID, error) {
	requireSort := func(name string, sort expr.Sort) error {
		if sort.Kind == 0 {
			return errors.Errorf("%s region %s requires %s", r.Kind, r.Type, name)
		}
		return nil
	}

	switch r.Kind {
	case "array":
		if err := requireSort("sort", r.Sort); err != nil {
			return memory.RegionID{}, err
		}
		return memory.ArrayRegionID(r.Type, r.Sort), nil
	case "length":
		return memory.ArrayLengthRegionID(r.Type), nil
	case "field":
		if err := requireSort("sort", r.Sort); err != nil {
			return memory.RegionID{}, err
		}
		if r.Field == "" {
			return memory.RegionID{}, errors.Errorf("field region %s requires field", r.Type)
		}
		return memory.FieldRegionID(r.Type, r.Field, r.Sort), nil
	case "set":
		if err := requireSort("keySort", r.KeySort); err != nil {
			return memory.RegionID{}, err
		}
		return memory.SetRegionID(r.Type, r.KeySort), nil
	case "map":
		if err := requireSort("keySort", r.KeySort); err != nil {
			return memory.RegionID{}, err
		}
		if err := requireSort("sort", r.Sort); err != nil {
			return memory.RegionID{}, err
		}
		return memory.MapRegionID(r.Type, r.KeySort, r.Sort), nil
	case "map-length":
		return memory.MapLengthRegionID(r.Type), nil
	}
	return memory.RegionID{}, errors.Errorf("unknown region kind %q", r.Kind)
}

// Parse decodes a scenario from its JSON representation. Scenarios without a name are named after fallbackName.
func Parse(data []byte, fallbackName string) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.WithStack(err)
	}
	if s.Name == "" {
		s.Name = fallbackName
	}
	return &s, nil
}

// Load reads the scenario stored at path and checks its format version against the formatConstraint.
func Load(path string, formatConstraint string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s, err := Parse(b, utils.GetFileNameWithoutExtension(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse scenario %s", path)
	}
	if err = s.CheckVersion(formatConstraint); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	return s, nil
}

// CheckVersion returns an error unless the format version of the scenario satisfies the constraint.
func (s *Scenario) CheckVersion(formatConstraint string) error {
	constraint, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return errors.Wrapf(err, "invalid format constraint %q", formatConstraint)
	}
	version, err := semver.NewVersion(s.Version)
	if err != nil {
		return errors.Wrapf(err, "invalid format version %q", s.Version)
	}
	if !constraint.Check(version) {
		return errors.Errorf("format version %s does not satisfy %s", version, formatConstraint)
	}
	return nil
}

// Digest returns a hash identifying the contents of the scenario. Any edit to its declarations or steps changes it.
func (s *Scenario) Digest() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	hash := sha3.New256()
	if _, err = hash.Write(b); err != nil {
		return nil, errors.WithStack(err)
	}
	return hash.Sum(nil), nil
}
