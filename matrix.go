package clbench

import (
	"fmt"
	"math/rand/v2"
)

// Matrix is a dense row-major single-precision matrix.
type Matrix struct {
	Rows, Cols int
	Data       []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// NewMatrixFrom wraps data without copying. len(data) must equal rows*cols.
func NewMatrixFrom(rows, cols int, data []float32) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, NewInvalidArgError("NewMatrix", fmt.Sprintf("invalid shape %dx%d", rows, cols))
	}
	if len(data) != rows*cols {
		return nil, NewInvalidArgError("NewMatrix",
			fmt.Sprintf("data has %d elements, shape %dx%d needs %d", len(data), rows, cols, rows*cols))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// RandomMatrix returns a rows x cols matrix with values in [0, 1).
func RandomMatrix(rows, cols int, rng *rand.Rand) *Matrix {
	m := NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = rng.Float32()
	}
	return m
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Len returns the element count.
func (m *Matrix) Len() int {
	return m.Rows * m.Cols
}

// Bytes returns the size of the matrix data in bytes.
func (m *Matrix) Bytes() int {
	return m.Len() * 4
}

// checkProduct verifies that c can hold a*b.
func checkProduct(a, b, c *Matrix) error {
	if a == nil || b == nil || c == nil {
		return NewInvalidArgError("MatMul", "nil matrix")
	}
	if a.Cols != b.Rows {
		return fmt.Errorf("%w: A is %dx%d, B is %dx%d", ErrDimensionMismatch, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	if c.Rows != a.Rows || c.Cols != b.Cols {
		return fmt.Errorf("%w: C is %dx%d, want %dx%d", ErrDimensionMismatch, c.Rows, c.Cols, a.Rows, b.Cols)
	}
	if len(a.Data) < a.Len() || len(b.Data) < b.Len() || len(c.Data) < c.Len() {
		return NewInvalidArgError("MatMul", "matrix data shorter than its shape")
	}
	return nil
}
