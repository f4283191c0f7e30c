package expr

import (
	"fmt"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

// SortKind describes the family a Sort belongs to.
type SortKind uint8

const (
	// BoolKind describes boolean terms.
	BoolKind SortKind = iota + 1
	// BitVecKind describes fixed-width unsigned bit-vector terms.
	BitVecKind
	// AddressKind describes heap references.
	AddressKind
)

// MaxBitVecWidth is the widest bit-vector sort supported by the term factory.
const MaxBitVecWidth = 256

// Sort describes the type of a term. Width is only meaningful for BitVecKind.
type Sort struct {
	Kind  SortKind
	Width uint
}

var (
	// BoolSort is the sort of guards and set membership values.
	BoolSort = Sort{Kind: BoolKind}
	// AddressSort is the sort of heap references.
	AddressSort = Sort{Kind: AddressKind}
)

// BitVecSort returns the bit-vector sort of the given width. It panics if the width is outside of [1, MaxBitVecWidth].
func BitVecSort(width uint) Sort {
	if width == 0 || width > MaxBitVecWidth {
		panic(fmt.Sprintf("invalid bit-vector width %d", width))
	}
	return Sort{Kind: BitVecKind, Width: width}
}

// IsBool indicates whether the sort is BoolSort.
func (s Sort) IsBool() bool {
	return s.Kind == BoolKind
}

// IsBitVec indicates whether the sort is a bit-vector sort.
func (s Sort) IsBitVec() bool {
	return s.Kind == BitVecKind
}

// IsAddress indicates whether the sort is AddressSort.
func (s Sort) IsAddress() bool {
	return s.Kind == AddressKind
}

// String returns the textual form of the sort, which ParseSort accepts.
func (s Sort) String() string {
	switch s.Kind {
	case BoolKind:
		return "bool"
	case BitVecKind:
		return "bv" + strconv.FormatUint(uint64(s.Width), 10)
	case AddressKind:
		return "address"
	default:
		return "invalid"
	}
}

// MarshalText implements encoding.TextMarshaler so sorts serialize by name.
func (s Sort) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sort) UnmarshalText(text []byte) error {
	parsed, err := ParseSort(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSort parses a sort name such as "bool", "address" or "bv32".
func ParseSort(name string) (Sort, error) {
	switch name = strings.TrimSpace(strings.ToLower(name)); {
	case name == "bool":
		return BoolSort, nil
	case name == "address", name == "ref":
		return AddressSort, nil
	case strings.HasPrefix(name, "bv"):
		width, err := strconv.ParseUint(name[2:], 10, 16)
		if err != nil || width == 0 || width > MaxBitVecWidth {
			return Sort{}, errors.Errorf("invalid bit-vector sort %q", name)
		}
		return Sort{Kind: BitVecKind, Width: uint(width)}, nil
	default:
		return Sort{}, errors.Errorf("unknown sort %q", name)
	}
}
