package clbench

import (
	"fmt"
	"log"
	"time"
)

// Orchestrator runs one kernel variant on a compute device: it builds the
// program, moves the operands to device memory, dispatches the kernel and
// reads the product back. Every device object it creates is released before
// Run returns, on success and failure alike.
type Orchestrator struct {
	Config Config
	Source string

	// Device to run on. Nil selects the first device of the first platform.
	Device *Device

	// Logger receives progress messages. Nil disables them.
	Logger *log.Logger
}

// NewOrchestrator returns an orchestrator for cfg that builds source.
func NewOrchestrator(cfg Config, source string) *Orchestrator {
	return &Orchestrator{Config: cfg, Source: source}
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// Run computes c = a*b with variant v. The returned duration covers the
// dispatch and the blocking read-back of c, not the build or the uploads.
//
// A build failure returns an error wrapping *BuildError with the compiler
// log. Other device failures return a Device *Error naming the call.
func (o *Orchestrator) Run(v Variant, a, b, c *Matrix) (elapsed time.Duration, err error) {
	if !v.Valid() {
		return 0, NewInvalidArgError("Run", fmt.Sprintf("invalid variant %d", int(v)))
	}
	if err := checkProduct(a, b, c); err != nil {
		return 0, err
	}
	cfg := o.Config
	rowA, colA, colB := a.Rows, a.Cols, b.Cols

	release := func(op string, fn func() error) {
		if rerr := fn(); rerr != nil && err == nil {
			err = deviceCall(op, rerr)
		}
	}

	// 1. Device
	dev := o.Device
	if dev == nil {
		if dev, err = DefaultDevice(); err != nil {
			return 0, deviceCall("GetDeviceIDs", err)
		}
	}

	// 2. Context and queue
	ctx, err := NewContext(dev)
	if err != nil {
		return 0, deviceCall("CreateContext", err)
	}
	defer release("ReleaseContext", ctx.Release)

	queue, err := ctx.CreateCommandQueue()
	if err != nil {
		return 0, deviceCall("CreateCommandQueue", err)
	}
	defer release("ReleaseCommandQueue", queue.Release)

	// 3. Program
	program, err := ctx.CreateProgramWithSource(o.Source)
	if err != nil {
		return 0, deviceCall("CreateProgramWithSource", err)
	}
	defer release("ReleaseProgram", program.Release)

	options := cfg.BuildOptions()
	o.logf("building %s for %s with %q", v.EntryPoint(), dev.Name, options)
	if err := program.Build(options); err != nil {
		return 0, deviceCall("BuildProgram", err)
	}
	if buildLog := program.BuildLog(); buildLog != "" {
		o.logf("build log:\n%s", buildLog)
	}

	// 4. Kernel
	kernel, err := program.CreateKernel(v.EntryPoint())
	if err != nil {
		return 0, deviceCall("CreateKernel", err)
	}
	defer release("ReleaseKernel", kernel.Release)

	// 5. Buffers
	bufA, err := ctx.CreateBuffer(MemReadOnly, a.Bytes())
	if err != nil {
		return 0, deviceCall("CreateBuffer", err)
	}
	defer release("ReleaseMemObject", bufA.Release)

	bufB, err := ctx.CreateBuffer(MemReadOnly, b.Bytes())
	if err != nil {
		return 0, deviceCall("CreateBuffer", err)
	}
	defer release("ReleaseMemObject", bufB.Release)

	bufC, err := ctx.CreateBuffer(MemReadWrite, c.Bytes())
	if err != nil {
		return 0, deviceCall("CreateBuffer", err)
	}
	defer release("ReleaseMemObject", bufC.Release)

	// Buffers may still be referenced by queued commands on an error path.
	defer func() { _ = queue.Finish() }()

	// 6. Uploads, in queue order ahead of the dispatch
	if _, err := queue.EnqueueWriteBuffer(bufA, false, 0, a.Bytes(), a.Data); err != nil {
		return 0, deviceCall("EnqueueWriteBuffer", err)
	}
	if _, err := queue.EnqueueWriteBuffer(bufB, false, 0, b.Bytes(), b.Data); err != nil {
		return 0, deviceCall("EnqueueWriteBuffer", err)
	}

	// 7. Arguments
	args := []any{bufA, bufB, bufC, rowA, colA, colB}
	for i, arg := range args {
		if err := kernel.SetArg(i, arg); err != nil {
			return 0, deviceCall("SetKernelArg", err)
		}
	}

	// 8. Geometry
	geom, err := NewWorkGeometry(v, rowA, colB, cfg.TileSize, cfg.WorkPerThread)
	if err != nil {
		return 0, deviceCall("NDRange", err)
	}
	o.logf("dispatching %s: %s", v.EntryPoint(), geom)

	// 9. Timed dispatch and read-back
	start := time.Now()
	ev, err := queue.EnqueueNDRangeKernel(kernel, geom)
	if err != nil {
		return 0, deviceCall("EnqueueNDRangeKernel", err)
	}
	if _, err := queue.EnqueueReadBuffer(bufC, true, 0, c.Bytes(), c.Data); err != nil {
		if kerr := ev.Wait(); kerr != nil {
			return 0, deviceCall("EnqueueNDRangeKernel", kerr)
		}
		return 0, deviceCall("EnqueueReadBuffer", err)
	}
	elapsed = time.Since(start)

	return elapsed, nil
}
