package clbench

import (
	"fmt"
	"math"
)

// Verification is the outcome of comparing a kernel result against the
// sequential reference.
type Verification struct {
	Match bool

	// First mismatch in row-major order. Index is -1 when the shapes
	// differ.
	Index    int
	Expected float32
	Actual   float32
}

// Verify compares actual against expected element by element and stops at
// the first pair whose absolute difference exceeds tol. NaN never matches.
func Verify(expected, actual *Matrix, tol float32) Verification {
	if expected.Rows != actual.Rows || expected.Cols != actual.Cols || len(expected.Data) != len(actual.Data) {
		return Verification{Index: -1}
	}
	for i, e := range expected.Data {
		a := actual.Data[i]
		if !(float32(math.Abs(float64(e-a))) <= tol) {
			return Verification{Index: i, Expected: e, Actual: a}
		}
	}
	return Verification{Match: true}
}

func (v Verification) String() string {
	switch {
	case v.Match:
		return "match"
	case v.Index < 0:
		return "shape mismatch"
	default:
		return fmt.Sprintf("%d\t%f\t%f", v.Index, v.Expected, v.Actual)
	}
}
