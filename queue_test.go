package clbench

import (
	"errors"
	"testing"
)

func newTestQueue(t *testing.T) (*Context, *CommandQueue) {
	t.Helper()
	ctx, err := NewContext(NewCPUDevice())
	if err != nil {
		t.Fatal(err)
	}
	q, err := ctx.CreateCommandQueue()
	if err != nil {
		t.Fatal(err)
	}
	return ctx, q
}

func TestQueueWriteRead(t *testing.T) {
	ctx, q := newTestQueue(t)
	buf, err := ctx.CreateBuffer(MemReadWrite, 4*8)
	if err != nil {
		t.Fatal(err)
	}

	src := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	if _, err := q.EnqueueWriteBuffer(buf, false, 0, 32, src); err != nil {
		t.Fatal(err)
	}
	dst := make([]float32, 4)
	if _, err := q.EnqueueReadBuffer(buf, true, 16, 16, dst); err != nil {
		t.Fatal(err)
	}
	for i, want := range []float32{5, 6, 7, 8} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}

	if err := buf.Release(); err != nil {
		t.Fatal(err)
	}
	if err := q.Release(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestQueueTransferRange(t *testing.T) {
	ctx, q := newTestQueue(t)
	defer ctx.Release()
	defer q.Release()
	buf, err := ctx.CreateBuffer(MemReadWrite, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Release()

	host := make([]float32, 8)
	tests := []struct {
		name         string
		offset, size int
		host         []float32
	}{
		{"past end", 8, 16, host},
		{"unaligned offset", 2, 4, host},
		{"zero size", 0, 0, host},
		{"short host slice", 0, 16, host[:2]},
	}
	for _, tt := range tests {
		if _, err := q.EnqueueWriteBuffer(buf, true, tt.offset, tt.size, tt.host); !IsInvalidArgError(err) {
			t.Errorf("write %s: got %v", tt.name, err)
		}
		if _, err := q.EnqueueReadBuffer(buf, true, tt.offset, tt.size, tt.host); !IsInvalidArgError(err) {
			t.Errorf("read %s: got %v", tt.name, err)
		}
	}
}

func TestQueueInOrder(t *testing.T) {
	ctx, q := newTestQueue(t)
	defer ctx.Release()
	defer q.Release()

	var order []int
	for i := range 50 {
		if _, err := q.submit("test", func() error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Finish(); err != nil {
		t.Fatal(err)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("command %d ran at position %d", got, i)
		}
	}
}

func TestQueueSkipsAfterFailure(t *testing.T) {
	ctx, q := newTestQueue(t)
	defer ctx.Release()
	defer q.Release()

	boom := errors.New("boom")
	first, _ := q.submit("fails", func() error { return boom })
	ran := false
	second, _ := q.submit("skipped", func() error { ran = true; return nil })

	if err := first.Wait(); !errors.Is(err, boom) {
		t.Errorf("first command: got %v", err)
	}
	if err := second.Wait(); !IsExecutionError(err) || !errors.Is(err, boom) {
		t.Errorf("second command: got %v", err)
	}
	if ran {
		t.Error("command after a failure should not run")
	}
	if err := q.Finish(); !errors.Is(err, boom) {
		t.Errorf("Finish() = %v, want the first failure", err)
	}
}

func TestQueueRelease(t *testing.T) {
	ctx, q := newTestQueue(t)
	defer ctx.Release()

	if err := q.Release(); err != nil {
		t.Fatal(err)
	}
	if err := q.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second release: got %v", err)
	}
	if _, err := q.submit("late", func() error { return nil }); !IsInvalidArgError(err) {
		t.Errorf("submit after release: got %v", err)
	}
}
