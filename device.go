// Package clbench benchmarks dense single-precision matrix multiplication
// kernels on a data-parallel compute device.
//
// The device runs on the host CPU. Work-groups are spread across the
// available cores; the work-items of a group share local memory and
// synchronise at group barriers.
//
// Programs are built from OpenCL-C source. The builder checks the source
// and binds each entry point by name to the device's built-in
// implementation; kernel bodies in the source are not interpreted, so
// editing one does not change what runs. The build log carries a note for
// every entry point bound this way.
//
// The host API follows the usual platform / context / command queue /
// program / kernel shape:
//
//	dev, _ := clbench.DefaultDevice()
//	ctx, _ := clbench.NewContext(dev)
//	defer ctx.Release()
//
//	queue, _ := ctx.CreateCommandQueue()
//	defer queue.Release()
//
//	prog, _ := ctx.CreateProgramWithSource(clbench.DefaultKernelSource())
//	defer prog.Release()
//	if err := prog.Build("-D TS=16 -D WPT=8"); err != nil {
//	    log.Fatal(prog.BuildLog())
//	}
//
//	kernel, _ := prog.CreateKernel("vec_mul_2")
//	defer kernel.Release()
package clbench

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// DeviceType is a bit set of device categories.
type DeviceType int

const (
	DeviceTypeCPU DeviceType = 1 << iota
	DeviceTypeGPU
	DeviceTypeAccelerator

	DeviceTypeAll = DeviceTypeCPU | DeviceTypeGPU | DeviceTypeAccelerator
)

func (t DeviceType) String() string {
	var parts []string
	if t&DeviceTypeCPU != 0 {
		parts = append(parts, "CPU")
	}
	if t&DeviceTypeGPU != 0 {
		parts = append(parts, "GPU")
	}
	if t&DeviceTypeAccelerator != 0 {
		parts = append(parts, "Accelerator")
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// Device represents a compute device. Its capabilities bound the work-group
// geometry, local memory use and buffer sizes accepted by the runtime.
type Device struct {
	ID               int
	Name             string
	Type             DeviceType
	ComputeUnits     int    // concurrently executing work-groups
	MaxWorkGroupSize int    // work-items per group
	LocalMemSize     int    // bytes of group-local memory
	GlobalMemSize    uint64 // bytes
	MaxMemAllocSize  int    // bytes per buffer
	Extensions       []string

	contexts   atomic.Int64
	dispatches atomic.Int64
}

// DeviceStats reports device activity counters.
type DeviceStats struct {
	ActiveContexts int64
	Dispatches     int64
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() DeviceStats {
	return DeviceStats{
		ActiveContexts: d.contexts.Load(),
		Dispatches:     d.dispatches.Load(),
	}
}

// Platform groups the devices of one runtime implementation.
type Platform struct {
	Name    string
	Vendor  string
	Version string

	devices []*Device
}

var (
	platforms    []*Platform
	platformOnce sync.Once
)

// Platforms enumerates the available platforms.
func Platforms() []*Platform {
	platformOnce.Do(func() {
		platforms = []*Platform{{
			Name:    "clbench CPU",
			Vendor:  "clbench",
			Version: "1.2",
			devices: []*Device{NewCPUDevice()},
		}}
	})
	return platforms
}

// Devices returns the platform's devices whose type intersects t.
func (p *Platform) Devices(t DeviceType) ([]*Device, error) {
	var out []*Device
	for _, d := range p.devices {
		if d.Type&t != 0 {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, ErrDeviceNotFound
	}
	return out, nil
}

// DefaultDevice returns the first device of the first platform.
func DefaultDevice() (*Device, error) {
	ps := Platforms()
	if len(ps) == 0 {
		return nil, ErrDeviceNotFound
	}
	devs, err := ps[0].Devices(DeviceTypeAll)
	if err != nil {
		return nil, err
	}
	return devs[0], nil
}

// NewCPUDevice describes the host CPU as a compute device. Each call returns
// an independent device with its own counters.
func NewCPUDevice() *Device {
	return &Device{
		ID:               0,
		Name:             cpuName(),
		Type:             DeviceTypeCPU,
		ComputeUnits:     runtime.NumCPU(),
		MaxWorkGroupSize: MaxWorkGroupSize,
		LocalMemSize:     LocalMemSize,
		GlobalMemSize:    systemMemory(),
		MaxMemAllocSize:  MaxMemAllocSize,
		Extensions:       cpuExtensions(),
	}
}

// String describes the device by name and extensions, as in
// "CPU (amd64) [avx avx2 fma]".
func (d *Device) String() string {
	if len(d.Extensions) == 0 {
		return d.Name
	}
	return d.Name + " [" + strings.Join(d.Extensions, " ") + "]"
}

func cpuName() string {
	return "CPU (" + runtime.GOARCH + ")"
}

// cpuExtensions lists the SIMD features the device can use.
func cpuExtensions() []string {
	var ext []string
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 || cpu.X86.HasSSE42 {
			ext = append(ext, "sse4")
		}
		if cpu.X86.HasAVX {
			ext = append(ext, "avx")
		}
		if cpu.X86.HasAVX2 {
			ext = append(ext, "avx2")
		}
		if cpu.X86.HasFMA {
			ext = append(ext, "fma")
		}
		if cpu.X86.HasAVX512F {
			ext = append(ext, "avx512f")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			ext = append(ext, "neon")
		}
		if cpu.ARM64.HasFPHP {
			ext = append(ext, "fp16")
		}
		if cpu.ARM64.HasSVE {
			ext = append(ext, "sve")
		}
	}
	return ext
}

// Context owns the device objects created through it: command queues,
// programs, kernels and buffers.
type Context struct {
	device   *Device
	memory   *MemoryPool
	live     atomic.Int64
	released atomic.Bool
}

// NewContext creates a context on dev.
func NewContext(dev *Device) (*Context, error) {
	if dev == nil {
		return nil, ErrDeviceNotFound
	}
	limit := int64(dev.GlobalMemSize)
	if limit <= 0 {
		limit = MaxMemAllocSize
	}
	dev.contexts.Add(1)
	return &Context{
		device: dev,
		memory: NewMemoryPool(limit),
	}, nil
}

// Device returns the context's device.
func (c *Context) Device() *Device {
	return c.device
}

// MemoryStats returns the bytes currently allocated and the peak.
func (c *Context) MemoryStats() (allocated, peak int64) {
	return c.memory.Stats()
}

// LiveObjects returns the number of unreleased objects owned by the context.
func (c *Context) LiveObjects() int64 {
	return c.live.Load()
}

// Release destroys the context. Objects still alive are reported as an
// error, but the context is released regardless.
func (c *Context) Release() error {
	if !c.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	c.device.contexts.Add(-1)
	if n := c.live.Load(); n > 0 {
		return NewMemoryError("ReleaseContext", "context released with live objects", nil)
	}
	return nil
}

func (c *Context) checkLive(op string) error {
	if c.released.Load() {
		return NewInvalidArgError(op, "context already released")
	}
	return nil
}

func (c *Context) retain() { c.live.Add(1) }
func (c *Context) drop()   { c.live.Add(-1) }
