package clbench

import (
	"errors"
	"sync"
)

// errBarrierBroken is raised in work-items waiting at a barrier whose group
// was aborted by a failing peer.
var errBarrierBroken = errors.New("work-group barrier broken by a failed work-item")

// barrier is a reusable rendezvous for the n work-items of one group.
type barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	arrived    int
	finished   int
	generation uint64
	broken     bool
	divergent  bool
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// wait blocks until all n work-items have called wait for the current
// generation. It panics with errBarrierBroken if the group was aborted.
func (b *barrier) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		panic(errBarrierBroken)
	}
	gen := b.generation
	b.arrived++
	if b.arrived+b.finished == b.n && b.finished > 0 {
		b.diverge()
		panic(errBarrierBroken)
	}
	if b.arrived == b.n {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	if b.broken {
		panic(errBarrierBroken)
	}
}

// done records that a work-item returned from the kernel. If the remaining
// work-items are all parked at a barrier the group can never proceed.
func (b *barrier) done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished++
	if b.arrived > 0 && b.arrived+b.finished == b.n {
		b.diverge()
	}
}

// diverge marks the group as having hit a barrier in divergent control flow.
// Callers hold b.mu.
func (b *barrier) diverge() {
	b.divergent = true
	b.broken = true
	b.cond.Broadcast()
}

// abort releases every waiter. Later waits panic.
func (b *barrier) abort() {
	b.mu.Lock()
	b.broken = true
	b.mu.Unlock()
	b.cond.Broadcast()
}
