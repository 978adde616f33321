// Package clbench sequential reference implementation
package clbench

import (
	"time"
)

// SequentialName labels the reference run in reports.
const SequentialName = "vec_mul_seq"

// Sequential computes C = A*B with three nested loops and no blocking. The
// returned duration covers the loop nest only. It is the ground truth every
// kernel variant is verified against.
func Sequential(a, b, c *Matrix) (time.Duration, error) {
	if err := checkProduct(a, b, c); err != nil {
		return 0, err
	}

	start := time.Now()
	multiplySequential(a.Data, b.Data, c.Data, a.Rows, a.Cols, b.Cols)
	return time.Since(start), nil
}

func multiplySequential(A, B, C []float32, rowA, colA, colB int) {
	for i := 0; i < rowA; i++ {
		for j := 0; j < colB; j++ {
			var sum float32
			for k := 0; k < colA; k++ {
				sum += A[i*colA+k] * B[k*colB+j]
			}
			C[i*colB+j] = sum
		}
	}
}
