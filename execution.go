package clbench

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

var errNoBarrier = errors.New("barrier() reached in a kernel launched without group synchronisation")

// WorkItem identifies one work-item within an NDRange dispatch and gives it
// access to its group's local memory and barrier.
type WorkItem struct {
	global [2]int
	local  [2]int
	group  [2]int
	geom   *WorkGeometry
	mem    []float32
	bar    *barrier
}

// GlobalID returns the work-item's global index in dimension d.
func (w *WorkItem) GlobalID(d int) int { return w.global[d] }

// LocalID returns the index within the work-group in dimension d.
func (w *WorkItem) LocalID(d int) int { return w.local[d] }

// GroupID returns the work-group index in dimension d.
func (w *WorkItem) GroupID(d int) int { return w.group[d] }

// LocalSize returns the work-group extent in dimension d.
func (w *WorkItem) LocalSize(d int) int { return w.geom.Local[d] }

// GlobalSize returns the NDRange extent in dimension d.
func (w *WorkItem) GlobalSize(d int) int { return w.geom.Global[d] }

// LocalMem returns the group-local memory shared by every work-item of the
// group. Its contents are undefined at group start.
func (w *WorkItem) LocalMem() []float32 { return w.mem }

// Barrier blocks until every work-item of the group reaches it. All
// work-items must execute the same sequence of barriers.
func (w *WorkItem) Barrier() {
	if w.bar == nil {
		panic(errNoBarrier)
	}
	w.bar.wait()
}

func (w *WorkItem) place(li, lj int) {
	w.local = [2]int{li, lj}
	w.global = [2]int{
		w.group[0]*w.geom.Local[0] + li,
		w.group[1]*w.geom.Local[1] + lj,
	}
}

// launch is one enqueued kernel execution with its arguments captured at
// enqueue time.
type launch struct {
	kernel      *nativeKernel
	args        kernelArgs
	geom        WorkGeometry
	localFloats int
}

// run executes every work-group of the launch on dev. Groups are split into
// contiguous ranges, one range per compute unit, so neighbouring groups share
// caches. The first failing group stops the remaining ranges.
func (l *launch) run(dev *Device) error {
	dev.dispatches.Add(1)

	groups := l.geom.NumGroups()
	total := groups[0] * groups[1]
	workers := min(max(dev.ComputeUnits, 1), total)
	groupsPerWorker := ceilDiv(total, workers)

	eg, ctx := errgroup.WithContext(context.Background())
	for w := range workers {
		start := w * groupsPerWorker
		end := min(start+groupsPerWorker, total)
		if start >= end {
			continue
		}
		eg.Go(func() error {
			mem := make([]float32, l.localFloats)
			for g := start; g < end; g++ {
				if ctx.Err() != nil {
					return nil
				}
				gid := [2]int{g / groups[1], g % groups[1]}
				if err := l.runGroup(gid, mem); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

// runGroup executes the work-items of one group. Kernels without barriers
// run their work-items in order on the calling goroutine; kernels with
// barriers get one goroutine per work-item.
func (l *launch) runGroup(gid [2]int, mem []float32) error {
	if !l.kernel.barrier {
		w := WorkItem{group: gid, geom: &l.geom, mem: mem}
		return l.guard(func() {
			for li := 0; li < l.geom.Local[0]; li++ {
				for lj := 0; lj < l.geom.Local[1]; lj++ {
					w.place(li, lj)
					l.kernel.body(&w, &l.args)
				}
			}
		})
	}

	bar := newBarrier(l.geom.GroupSize())
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for li := 0; li < l.geom.Local[0]; li++ {
		for lj := 0; lj < l.geom.Local[1]; lj++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := WorkItem{group: gid, geom: &l.geom, mem: mem, bar: bar}
				w.place(li, lj)
				err := l.guard(func() { l.kernel.body(&w, &l.args) })
				if err == nil {
					bar.done()
					return
				}
				if !errors.Is(err, errBarrierBroken) {
					once.Do(func() { firstErr = err })
				}
				bar.abort()
			}()
		}
	}
	wg.Wait()
	if firstErr == nil && bar.divergent {
		return NewExecutionError(l.kernel.name, "barrier reached by only part of the work-group", nil)
	}
	return firstErr
}

// guard runs fn and converts a panic into an execution error.
func (l *launch) guard(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cause, ok := r.(error)
		if !ok {
			cause = fmt.Errorf("%v", r)
		}
		if errors.Is(cause, errBarrierBroken) {
			err = errBarrierBroken
			return
		}
		err = NewExecutionError(l.kernel.name, "work-item failed", cause)
	}()
	fn()
	return nil
}
