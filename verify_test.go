package clbench

import (
	"math"
	"testing"
)

func TestVerify(t *testing.T) {
	ref, _ := NewMatrixFrom(2, 2, []float32{1, 2, 3, 4})

	tests := []struct {
		name string
		got  []float32
		want Verification
	}{
		{"equal", []float32{1, 2, 3, 4}, Verification{Match: true}},
		{"within tolerance", []float32{1.0009, 2, 3, 3.9991}, Verification{Match: true}},
		{"first of two", []float32{1, 2.5, 3, 5}, Verification{Index: 1, Expected: 2, Actual: 2.5}},
		{"last", []float32{1, 2, 3, 4.01}, Verification{Index: 3, Expected: 4, Actual: 4.01}},
		{"NaN", []float32{float32(math.NaN()), 2, 3, 4}, Verification{Index: 0, Expected: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := NewMatrixFrom(2, 2, tt.got)
			v := Verify(ref, got, DefaultTolerance)
			if v.Match != tt.want.Match || v.Index != tt.want.Index || v.Expected != tt.want.Expected {
				t.Errorf("Verify() = %+v, want %+v", v, tt.want)
			}
			if !v.Match && tt.name != "NaN" && v.Actual != tt.want.Actual {
				t.Errorf("Actual = %v, want %v", v.Actual, tt.want.Actual)
			}
		})
	}
}

func TestVerifyShapeMismatch(t *testing.T) {
	v := Verify(NewMatrix(2, 3), NewMatrix(3, 2), DefaultTolerance)
	if v.Match || v.Index != -1 {
		t.Errorf("Verify() = %+v, want mismatch at -1", v)
	}
	if v.String() != "shape mismatch" {
		t.Errorf("String() = %q", v.String())
	}
}

func TestVerificationString(t *testing.T) {
	v := Verification{Index: 7, Expected: 1.5, Actual: 2.25}
	if got, want := v.String(), "7\t1.500000\t2.250000"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Verification{Match: true}).String(); got != "match" {
		t.Errorf("String() = %q, want match", got)
	}
}
