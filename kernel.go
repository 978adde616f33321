package clbench

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Kernel is one entry point of a built program together with its argument
// bindings.
type Kernel struct {
	program *Program
	name    string
	info    *kernelInfo

	mu   sync.Mutex
	args []any
	set  []bool

	released atomic.Bool
}

// CreateKernel returns the kernel named name from a successfully built
// program.
func (p *Program) CreateKernel(name string) (*Kernel, error) {
	const op = "CreateKernel"
	if p.released.Load() {
		return nil, ErrReleased
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != BuildSuccess {
		return nil, fmt.Errorf("%s %q: %w", op, name, ErrProgramNotBuilt)
	}
	info, ok := p.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", op, name, ErrInvalidKernelName)
	}
	if info.native == nil {
		return nil, NewDeviceError(op, fmt.Sprintf("kernel %q has no implementation on device %s", name, p.ctx.device.Name), nil)
	}
	p.ctx.retain()
	return &Kernel{
		program: p,
		name:    name,
		info:    info,
		args:    make([]any, len(info.params)),
		set:     make([]bool, len(info.params)),
	}, nil
}

// Name returns the kernel's entry point.
func (k *Kernel) Name() string { return k.name }

// NumArgs returns the number of kernel parameters.
func (k *Kernel) NumArgs() int { return len(k.info.params) }

// SetArg binds argument i. Pointer parameters take a *Buffer from the same
// context; integer parameters take an int32 or int.
func (k *Kernel) SetArg(i int, v any) error {
	const op = "SetKernelArg"
	if k.released.Load() {
		return ErrReleased
	}
	if i < 0 || i >= len(k.info.params) {
		return fmt.Errorf("%s %d: %w (kernel %s takes %d)", op, i, ErrInvalidArgIndex, k.name, len(k.info.params))
	}
	param := k.info.params[i]

	if param.pointer {
		buf, ok := v.(*Buffer)
		if !ok || buf == nil {
			return NewInvalidArgError(op, fmt.Sprintf("argument %d (%s) of %s needs a buffer, got %T", i, param.name, k.name, v))
		}
		if buf.ctx != k.program.ctx {
			return NewInvalidArgError(op, fmt.Sprintf("argument %d (%s) of %s: buffer belongs to another context", i, param.name, k.name))
		}
	} else {
		switch n := v.(type) {
		case int32:
		case int:
			if int(int32(n)) != n {
				return NewInvalidArgError(op, fmt.Sprintf("argument %d (%s) of %s: %d overflows int", i, param.name, k.name, n))
			}
			v = int32(n)
		default:
			return NewInvalidArgError(op, fmt.Sprintf("argument %d (%s) of %s needs an int, got %T", i, param.name, k.name, v))
		}
	}

	k.mu.Lock()
	k.args[i] = v
	k.set[i] = true
	k.mu.Unlock()
	return nil
}

// Release destroys the kernel.
func (k *Kernel) Release() error {
	if !k.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	k.program.ctx.drop()
	return nil
}

// prepare checks the bindings and geometry and captures a launch.
func (k *Kernel) prepare(dev *Device, geom WorkGeometry) (*launch, error) {
	const op = "EnqueueNDRangeKernel"
	if k.released.Load() {
		return nil, ErrReleased
	}
	if err := geom.Validate(dev); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, k.name, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for i, ok := range k.set {
		if !ok {
			return nil, fmt.Errorf("%s %s: %w: argument %d (%s)", op, k.name, ErrArgsNotSet, i, k.info.params[i].name)
		}
	}

	nk := k.info.native
	ts, _ := k.program.Constant("TS")
	wpt, _ := k.program.Constant("WPT")
	if nk.reqdLocal != nil {
		if want, ok := nk.reqdLocal(ts, wpt); ok && want != geom.Local {
			return nil, fmt.Errorf("%s %s: %w: local size %dx%d, kernel was built for %dx%d",
				op, k.name, ErrInvalidWorkGroupSize, geom.Local[0], geom.Local[1], want[0], want[1])
		}
	}

	bufs := [3]*Buffer{k.args[0].(*Buffer), k.args[1].(*Buffer), k.args[2].(*Buffer)}
	a := kernelArgs{
		rowA: int(k.args[3].(int32)),
		colA: int(k.args[4].(int32)),
		colB: int(k.args[5].(int32)),
		ts:   ts,
		wpt:  wpt,
	}
	if a.rowA <= 0 || a.colA <= 0 || a.colB <= 0 {
		return nil, NewInvalidArgError(op, fmt.Sprintf("%s: non-positive dimensions %dx%d * %dx%d",
			k.name, a.rowA, a.colA, a.colA, a.colB))
	}

	need := [3]int{a.rowA * a.colA, a.colA * a.colB, a.rowA * a.colB}
	for i, buf := range bufs {
		if buf.released.Load() {
			return nil, fmt.Errorf("%s %s: argument %d: %w", op, k.name, i, ErrReleased)
		}
		if have := buf.Size() / 4; have < need[i] {
			return nil, NewInvalidArgError(op, fmt.Sprintf("%s: buffer %s holds %d floats, dimensions need %d",
				k.name, k.info.params[i].name, have, need[i]))
		}
	}
	a.A, a.B, a.C = bufs[0].data(), bufs[1].data(), bufs[2].data()

	l := &launch{kernel: nk, args: a, geom: geom}
	if nk.localFloats != nil {
		l.localFloats = nk.localFloats(ts)
	}
	return l, nil
}
