package clbench

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MemFlags describes how kernels may access a buffer.
type MemFlags int

const (
	MemReadWrite MemFlags = iota
	MemReadOnly
	MemWriteOnly
)

func (f MemFlags) String() string {
	switch f {
	case MemReadWrite:
		return "READ_WRITE"
	case MemReadOnly:
		return "READ_ONLY"
	case MemWriteOnly:
		return "WRITE_ONLY"
	default:
		return fmt.Sprintf("MemFlags(%d)", int(f))
	}
}

// MemoryPool manages device memory allocation with reuse. Released blocks
// go to a free list and are handed out again to later requests that fit.
type MemoryPool struct {
	mu         sync.Mutex
	limit      int64
	live       map[*allocation]struct{}
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	data []float32
	used bool
}

// NewMemoryPool creates a pool that refuses to hold more than limit bytes
// in live allocations.
func NewMemoryPool(limit int64) *MemoryPool {
	return &MemoryPool{
		limit: limit,
		live:  make(map[*allocation]struct{}),
	}
}

// allocate returns a zeroed block of at least size bytes. The size is
// rounded up to BufferAlignment.
func (mp *MemoryPool) allocate(size int) (*allocation, error) {
	if size <= 0 || size%4 != 0 {
		return nil, ErrInvalidBufferSize
	}
	alignedSize := (size + BufferAlignment - 1) &^ (BufferAlignment - 1)
	n := size / 4

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.totalAlloc+int64(alignedSize) > mp.limit {
		return nil, ErrOutOfMemory
	}

	// Try to reuse from free list
	for i, alloc := range mp.freeList {
		if cap(alloc.data)*4 >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.data = alloc.data[:n]
			clear(alloc.data)
			alloc.used = true
			mp.track(alloc)
			return alloc, nil
		}
	}

	alloc := &allocation{
		data: make([]float32, n, alignedSize/4),
		used: true,
	}
	mp.track(alloc)
	return alloc, nil
}

func (mp *MemoryPool) track(alloc *allocation) {
	mp.live[alloc] = struct{}{}
	mp.totalAlloc += int64(cap(alloc.data) * 4)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// free returns a block to the pool.
func (mp *MemoryPool) free(alloc *allocation) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, ok := mp.live[alloc]; !ok {
		if alloc != nil && !alloc.used {
			return ErrDoubleFree
		}
		return NewMemoryError("ReleaseMemObject", "allocation not owned by this pool", nil)
	}

	delete(mp.live, alloc)
	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(cap(alloc.data) * 4)
	return nil
}

// Stats returns the bytes currently allocated and the peak.
func (mp *MemoryPool) Stats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Buffer is a device memory object holding float32 elements.
type Buffer struct {
	ctx      *Context
	flags    MemFlags
	size     int
	alloc    *allocation
	released atomic.Bool
}

// CreateBuffer allocates size bytes of device memory. size must be a
// positive multiple of 4.
func (c *Context) CreateBuffer(flags MemFlags, size int) (*Buffer, error) {
	if err := c.checkLive("CreateBuffer"); err != nil {
		return nil, err
	}
	if size > c.device.MaxMemAllocSize {
		return nil, NewMemoryError("CreateBuffer",
			fmt.Sprintf("%d bytes exceeds the device allocation limit of %d", size, c.device.MaxMemAllocSize), nil)
	}
	alloc, err := c.memory.allocate(size)
	if err != nil {
		return nil, err
	}
	c.retain()
	return &Buffer{ctx: c, flags: flags, size: size, alloc: alloc}, nil
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int {
	return b.size
}

// Flags returns the access flags the buffer was created with.
func (b *Buffer) Flags() MemFlags {
	return b.flags
}

// Release frees the buffer's device memory.
func (b *Buffer) Release() error {
	if !b.released.CompareAndSwap(false, true) {
		return ErrDoubleFree
	}
	b.ctx.drop()
	return b.ctx.memory.free(b.alloc)
}

// data returns the device-side elements. Only the runtime touches them.
func (b *Buffer) data() []float32 {
	return b.alloc.data
}

// checkRange validates a byte range for a host transfer.
func (b *Buffer) checkRange(op string, offset, size, hostLen int) error {
	if b.released.Load() {
		return NewInvalidArgError(op, "buffer already released")
	}
	if offset < 0 || size <= 0 || offset%4 != 0 || size%4 != 0 {
		return NewInvalidArgError(op, fmt.Sprintf("offset %d and size %d must be non-negative multiples of 4", offset, size))
	}
	if offset+size > b.size {
		return NewInvalidArgError(op, fmt.Sprintf("range [%d, %d) exceeds buffer size %d", offset, offset+size, b.size))
	}
	if size/4 > hostLen {
		return NewInvalidArgError(op, fmt.Sprintf("host slice holds %d elements, transfer needs %d", hostLen, size/4))
	}
	return nil
}
