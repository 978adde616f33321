package clbench

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/cpu"
)

func TestPlatforms(t *testing.T) {
	ps := Platforms()
	require.NotEmpty(t, ps)
	assert.Same(t, ps[0], Platforms()[0], "platforms are enumerated once")

	devs, err := ps[0].Devices(DeviceTypeCPU)
	require.NoError(t, err)
	require.NotEmpty(t, devs)
	assert.Equal(t, DeviceTypeCPU, devs[0].Type)
	assert.Positive(t, devs[0].ComputeUnits)

	_, err = ps[0].Devices(DeviceTypeGPU)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	dev, err := DefaultDevice()
	require.NoError(t, err)
	assert.Same(t, devs[0], dev)
}

func TestDeviceTypeString(t *testing.T) {
	assert.Equal(t, "CPU", DeviceTypeCPU.String())
	assert.Equal(t, "CPU|GPU", (DeviceTypeCPU | DeviceTypeGPU).String())
	assert.Equal(t, "None", DeviceType(0).String())
}

func TestNewCPUDevice(t *testing.T) {
	dev := NewCPUDevice()
	assert.Equal(t, MaxWorkGroupSize, dev.MaxWorkGroupSize)
	assert.Equal(t, LocalMemSize, dev.LocalMemSize)
	assert.Positive(t, dev.GlobalMemSize)
	assert.Contains(t, dev.Name, "CPU")
	assert.Zero(t, dev.Stats())

	has := func(ext string) bool { return slices.Contains(dev.Extensions, ext) }
	switch runtime.GOARCH {
	case "amd64":
		assert.Equal(t, cpu.X86.HasAVX, has("avx"))
		assert.Equal(t, cpu.X86.HasAVX2, has("avx2"))
		assert.Equal(t, cpu.X86.HasFMA, has("fma"))
		assert.Equal(t, cpu.X86.HasAVX512F, has("avx512f"))
	case "arm64":
		assert.Equal(t, cpu.ARM64.HasASIMD, has("neon"))
		assert.Equal(t, cpu.ARM64.HasSVE, has("sve"))
	}
	for _, ext := range dev.Extensions {
		assert.Contains(t, dev.String(), ext)
	}
}

func TestDeviceString(t *testing.T) {
	dev := &Device{Name: "CPU (amd64)", Extensions: []string{"avx2", "fma"}}
	assert.Equal(t, "CPU (amd64) [avx2 fma]", dev.String())
	dev.Extensions = nil
	assert.Equal(t, "CPU (amd64)", dev.String())
}

func TestContextLifecycle(t *testing.T) {
	dev := NewCPUDevice()
	ctx, err := NewContext(dev)
	require.NoError(t, err)
	assert.Same(t, dev, ctx.Device())
	assert.EqualValues(t, 1, dev.Stats().ActiveContexts)

	buf, err := ctx.CreateBuffer(MemReadWrite, 100)
	require.NoError(t, err)
	allocated, peak := ctx.MemoryStats()
	assert.GreaterOrEqual(t, allocated, int64(100))
	assert.Equal(t, allocated, peak)
	assert.EqualValues(t, 1, ctx.LiveObjects())

	require.NoError(t, buf.Release())
	allocated, after := ctx.MemoryStats()
	assert.Zero(t, allocated)
	assert.Equal(t, peak, after, "peak survives the release")
	assert.Zero(t, ctx.LiveObjects())

	require.NoError(t, ctx.Release())
	assert.ErrorIs(t, ctx.Release(), ErrReleased)
	assert.Zero(t, dev.Stats().ActiveContexts)

	_, err = ctx.CreateBuffer(MemReadWrite, 16)
	assert.True(t, IsInvalidArgError(err))
	_, err = ctx.CreateCommandQueue()
	assert.True(t, IsInvalidArgError(err))

	_, err = NewContext(nil)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestLoadKernelSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.cl")
	require.NoError(t, os.WriteFile(path, []byte(naiveSource), 0o644))

	src, err := LoadKernelSource(path)
	require.NoError(t, err)
	assert.Equal(t, naiveSource, src)

	_, err = LoadKernelSource(filepath.Join(dir, "missing.cl"))
	assert.True(t, IsResourceError(err), "got %v", err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.cl")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = LoadKernelSource(empty)
	assert.True(t, IsResourceError(err), "got %v", err)

	assert.Contains(t, DefaultKernelSource(), "__kernel void vec_mul_4")
}
