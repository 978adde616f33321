package clbench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Variant identifies one of the parallel matrix multiplication kernels.
type Variant int

const (
	// Naive runs one work-item per output element straight from global memory.
	Naive Variant = iota + 1
	// Tiled caches TSxTS tiles of A and B in local memory.
	Tiled
	// TiledCoalesced is Tiled with loads mapped onto contiguous addresses.
	TiledCoalesced
	// RegisterBlocked computes WPT output rows per work-item.
	RegisterBlocked
)

const numVariants = int(RegisterBlocked)

// EntryPointPrefix is the kernel name prefix; entry points are the prefix
// followed by the variant number.
const EntryPointPrefix = "vec_mul_"

type variantInfo struct {
	name        string
	entryPoint  string
	rowsPerItem func(wpt int) int
}

func oneRow(int) int      { return 1 }
func wptRows(wpt int) int { return wpt }

// variantTable is indexed by Variant-1.
var variantTable = [...]variantInfo{
	{name: "naive", entryPoint: "vec_mul_1", rowsPerItem: oneRow},
	{name: "tiled", entryPoint: "vec_mul_2", rowsPerItem: oneRow},
	{name: "tiled-coalesced", entryPoint: "vec_mul_3", rowsPerItem: oneRow},
	{name: "register-blocked", entryPoint: "vec_mul_4", rowsPerItem: wptRows},
}

// Fails to compile unless variantTable has exactly one entry per Variant.
var _ [0]struct{} = [len(variantTable) - numVariants]struct{}{}

// Variants returns every variant in benchmark order.
func Variants() []Variant {
	vs := make([]Variant, 0, numVariants)
	for v := Naive; v <= RegisterBlocked; v++ {
		vs = append(vs, v)
	}
	return vs
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v >= Naive && v <= RegisterBlocked
}

func (v Variant) info() variantInfo {
	if !v.Valid() {
		panic(fmt.Sprintf("clbench: invalid variant %d", int(v)))
	}
	return variantTable[v-1]
}

// String returns the variant's short name.
func (v Variant) String() string {
	if !v.Valid() {
		return "Variant(" + strconv.Itoa(int(v)) + ")"
	}
	return v.info().name
}

// EntryPoint returns the kernel function name for v.
func (v Variant) EntryPoint() string {
	return v.info().entryPoint
}

// RowsPerItem returns how many output rows one work-item of v computes.
func (v Variant) RowsPerItem(wpt int) int {
	return v.info().rowsPerItem(wpt)
}

// ParseVariant accepts a variant number ("2"), name ("tiled") or entry
// point ("vec_mul_2").
func ParseVariant(s string) (Variant, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(strings.TrimPrefix(s, EntryPointPrefix)); err == nil {
		if v := Variant(n); v.Valid() {
			return v, nil
		}
	}
	for i, vi := range variantTable {
		if s == vi.name {
			return Variant(i + 1), nil
		}
	}
	return 0, NewInvalidArgError("ParseVariant", fmt.Sprintf("unknown variant %q", s))
}

// ParseVariants parses a list of variant names, dropping repeats. Each
// element may itself be a comma-separated list. An empty list yields nil.
func ParseVariants(list []string) ([]Variant, error) {
	var vs []Variant
	for _, item := range list {
		for _, s := range strings.Split(item, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			v, err := ParseVariant(s)
			if err != nil {
				return nil, err
			}
			vs = append(vs, v)
		}
	}
	if len(vs) == 0 {
		return nil, nil
	}
	return lo.Uniq(vs), nil
}
