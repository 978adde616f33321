package clbench

import (
	"errors"
	"testing"
)

func TestMemoryPoolReuse(t *testing.T) {
	mp := NewMemoryPool(1 << 20)

	a, err := mp.allocate(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.data) != 25 {
		t.Errorf("len = %d, want 25", len(a.data))
	}
	if cap(a.data)*4%BufferAlignment != 0 {
		t.Errorf("capacity %d bytes is not aligned to %d", cap(a.data)*4, BufferAlignment)
	}
	a.data[0] = 42

	if err := mp.free(a); err != nil {
		t.Fatal(err)
	}
	if allocated, _ := mp.Stats(); allocated != 0 {
		t.Errorf("allocated = %d after free, want 0", allocated)
	}

	b, err := mp.allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	if b != a {
		t.Error("expected the freed block to be reused")
	}
	if b.data[0] != 0 {
		t.Error("reused block was not cleared")
	}
	if _, peak := mp.Stats(); peak != 128 {
		t.Errorf("peak = %d, want 128", peak)
	}
}

func TestMemoryPoolErrors(t *testing.T) {
	mp := NewMemoryPool(256)

	for _, size := range []int{0, -4, 6} {
		if _, err := mp.allocate(size); !errors.Is(err, ErrInvalidBufferSize) {
			t.Errorf("allocate(%d): got %v", size, err)
		}
	}

	a, err := mp.allocate(256)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mp.allocate(4); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("over limit: got %v", err)
	}
	if err := mp.free(a); err != nil {
		t.Fatal(err)
	}
	if err := mp.free(a); !errors.Is(err, ErrDoubleFree) {
		t.Errorf("double free: got %v", err)
	}
}

func TestBufferLifecycle(t *testing.T) {
	ctx, err := NewContext(NewCPUDevice())
	if err != nil {
		t.Fatal(err)
	}

	buf, err := ctx.CreateBuffer(MemReadOnly, 4*10)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Size() != 40 || buf.Flags() != MemReadOnly {
		t.Errorf("Size, Flags = %d, %s", buf.Size(), buf.Flags())
	}
	if ctx.LiveObjects() != 1 {
		t.Errorf("LiveObjects = %d, want 1", ctx.LiveObjects())
	}
	if err := ctx.Release(); !IsMemoryError(err) {
		t.Errorf("releasing a context with a live buffer: got %v", err)
	}

	if err := buf.Release(); err != nil {
		t.Fatal(err)
	}
	if err := buf.Release(); !errors.Is(err, ErrDoubleFree) {
		t.Errorf("second release: got %v", err)
	}
	if ctx.LiveObjects() != 0 {
		t.Errorf("LiveObjects = %d, want 0", ctx.LiveObjects())
	}
}

func TestCreateBufferLimits(t *testing.T) {
	dev := NewCPUDevice()
	dev.MaxMemAllocSize = 1024
	ctx, err := NewContext(dev)
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Release()

	if _, err := ctx.CreateBuffer(MemReadWrite, 2048); !IsMemoryError(err) {
		t.Errorf("over allocation limit: got %v", err)
	}
	if _, err := ctx.CreateBuffer(MemReadWrite, 3); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("odd size: got %v", err)
	}
	if ctx.LiveObjects() != 0 {
		t.Errorf("failed creations left %d live objects", ctx.LiveObjects())
	}
}
