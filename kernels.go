package clbench

// Native implementations of the matmul entry points. Each body runs once per
// work-item and mirrors the kernel of the same name in kernels/matmul.cl;
// the program builder binds them by name.

// kernelArgs are the arguments of one dispatch, captured at enqueue time.
type kernelArgs struct {
	A, B, C []float32
	rowA    int
	colA    int
	colB    int
	ts      int
	wpt     int
}

type nativeKernel struct {
	name string

	// params is the signature the source declaration must match.
	params []kernelParam

	// constants are the build macros the body reads.
	constants []string

	// barrier is set for bodies that call (*WorkItem).Barrier.
	barrier bool

	// localFloats returns the group-local floats needed for tile size ts.
	localFloats func(ts int) int

	// reqdLocal returns the work-group shape the body assumes, or ok=false
	// if any shape works.
	reqdLocal func(ts, wpt int) (local [2]int, ok bool)

	body func(w *WorkItem, a *kernelArgs)
}

var matmulParams = []kernelParam{
	{addrSpace: "global", baseType: "float", pointer: true, name: "A"},
	{addrSpace: "global", baseType: "float", pointer: true, name: "B"},
	{addrSpace: "global", baseType: "float", pointer: true, name: "C"},
	{addrSpace: "private", baseType: "int", name: "ROW_A"},
	{addrSpace: "private", baseType: "int", name: "COL_A"},
	{addrSpace: "private", baseType: "int", name: "COL_B"},
}

func twoTiles(ts int) int { return 2 * ts * ts }

var nativeKernels = map[string]*nativeKernel{
	"vec_mul_1": {
		name:   "vec_mul_1",
		params: matmulParams,
		body:   matmulNaive,
	},
	"vec_mul_2": {
		name:        "vec_mul_2",
		params:      matmulParams,
		constants:   []string{"TS"},
		barrier:     true,
		localFloats: twoTiles,
		reqdLocal:   func(ts, _ int) ([2]int, bool) { return [2]int{ts, ts}, true },
		body:        matmulTiled,
	},
	"vec_mul_3": {
		name:        "vec_mul_3",
		params:      matmulParams,
		constants:   []string{"TS"},
		barrier:     true,
		localFloats: twoTiles,
		reqdLocal:   func(ts, _ int) ([2]int, bool) { return [2]int{ts, ts}, true },
		body:        matmulCoalesced,
	},
	"vec_mul_4": {
		name:        "vec_mul_4",
		params:      matmulParams,
		constants:   []string{"TS", "WPT"},
		barrier:     true,
		localFloats: twoTiles,
		reqdLocal:   func(ts, wpt int) ([2]int, bool) { return [2]int{ts / wpt, ts}, true },
		body:        matmulRegisterBlocked,
	},
}

// matmulNaive computes one output element straight from global memory.
func matmulNaive(w *WorkItem, a *kernelArgs) {
	row, col := w.GlobalID(0), w.GlobalID(1)
	if row >= a.rowA || col >= a.colB {
		return
	}
	var acc float32
	for k := 0; k < a.colA; k++ {
		acc += a.A[row*a.colA+k] * a.B[k*a.colB+col]
	}
	a.C[row*a.colB+col] = acc
}

// matmulTiled stages TSxTS tiles of A and B in local memory. Each work-item
// loads the tile element at its own (row, col) position.
func matmulTiled(w *WorkItem, a *kernelArgs) {
	ts := a.ts
	lr, lc := w.LocalID(0), w.LocalID(1)
	row, col := w.GlobalID(0), w.GlobalID(1)
	mem := w.LocalMem()
	asub, bsub := mem[:ts*ts], mem[ts*ts:2*ts*ts]

	var acc float32
	for tk := 0; tk < a.colA; tk += ts {
		if row < a.rowA && tk+lc < a.colA {
			asub[lr*ts+lc] = a.A[row*a.colA+tk+lc]
		} else {
			asub[lr*ts+lc] = 0
		}
		if tk+lr < a.colA && col < a.colB {
			bsub[lr*ts+lc] = a.B[(tk+lr)*a.colB+col]
		} else {
			bsub[lr*ts+lc] = 0
		}
		w.Barrier()

		for k := range ts {
			acc += asub[lr*ts+k] * bsub[k*ts+lc]
		}
		w.Barrier()
	}
	if row < a.rowA && col < a.colB {
		a.C[row*a.colB+col] = acc
	}
}

// matmulCoalesced is matmulTiled with the load index swapped: local id 0,
// the fastest-varying one, walks consecutive global addresses.
func matmulCoalesced(w *WorkItem, a *kernelArgs) {
	ts := a.ts
	lr, lc := w.LocalID(0), w.LocalID(1)
	gr0, gc0 := w.GroupID(0)*ts, w.GroupID(1)*ts
	mem := w.LocalMem()
	asub, bsub := mem[:ts*ts], mem[ts*ts:2*ts*ts]

	var acc float32
	for tk := 0; tk < a.colA; tk += ts {
		if gr0+lc < a.rowA && tk+lr < a.colA {
			asub[lc*ts+lr] = a.A[(gr0+lc)*a.colA+tk+lr]
		} else {
			asub[lc*ts+lr] = 0
		}
		if tk+lc < a.colA && gc0+lr < a.colB {
			bsub[lc*ts+lr] = a.B[(tk+lc)*a.colB+gc0+lr]
		} else {
			bsub[lc*ts+lr] = 0
		}
		w.Barrier()

		for k := range ts {
			acc += asub[lr*ts+k] * bsub[k*ts+lc]
		}
		w.Barrier()
	}
	row, col := gr0+lr, gc0+lc
	if row < a.rowA && col < a.colB {
		a.C[row*a.colB+col] = acc
	}
}

// maxWPT bounds the private accumulator array of matmulRegisterBlocked.
const maxWPT = 64

// matmulRegisterBlocked computes WPT rows per work-item, spaced TS/WPT
// apart, and loads WPT elements of each tile.
func matmulRegisterBlocked(w *WorkItem, a *kernelArgs) {
	ts, wpt := a.ts, a.wpt
	rts := ts / wpt
	lr, lc := w.LocalID(0), w.LocalID(1)
	gr0, gc0 := w.GroupID(0)*ts, w.GroupID(1)*ts
	mem := w.LocalMem()
	asub, bsub := mem[:ts*ts], mem[ts*ts:2*ts*ts]

	var accBuf [maxWPT]float32
	acc := accBuf[:wpt]

	for tk := 0; tk < a.colA; tk += ts {
		for p := range wpt {
			k := lr + p*rts
			if gr0+lc < a.rowA && tk+k < a.colA {
				asub[lc*ts+k] = a.A[(gr0+lc)*a.colA+tk+k]
			} else {
				asub[lc*ts+k] = 0
			}
			if tk+lc < a.colA && gc0+k < a.colB {
				bsub[lc*ts+k] = a.B[(tk+lc)*a.colB+gc0+k]
			} else {
				bsub[lc*ts+k] = 0
			}
		}
		w.Barrier()

		for k := range ts {
			b := bsub[k*ts+lc]
			for p := range wpt {
				acc[p] += asub[(lr+p*rts)*ts+k] * b
			}
		}
		w.Barrier()
	}

	col := gc0 + lc
	for p := range wpt {
		row := gr0 + lr + p*rts
		if row < a.rowA && col < a.colB {
			a.C[row*a.colB+col] = acc[p]
		}
	}
}
