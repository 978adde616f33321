package clbench

import (
	"fmt"
	"sync"
)

// Event tracks completion of one enqueued command.
type Event struct {
	done chan struct{}
	err  error
}

func newEvent() *Event {
	return &Event{done: make(chan struct{})}
}

// Wait blocks until the command completes and returns its error.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

type command struct {
	name  string
	run   func() error
	event *Event
}

// CommandQueue is an in-order queue: commands complete in submission order,
// so a write enqueued before a dispatch is visible to it.
type CommandQueue struct {
	ctx   *Context
	tasks chan command
	done  chan struct{}

	mu       sync.Mutex // guards released and sends on tasks
	released bool
	pending  sync.WaitGroup

	errMu  sync.Mutex
	failed error // first failed command; later commands are skipped
}

// CreateCommandQueue creates an in-order queue on the context's device.
func (c *Context) CreateCommandQueue() (*CommandQueue, error) {
	if err := c.checkLive("CreateCommandQueue"); err != nil {
		return nil, err
	}
	q := &CommandQueue{
		ctx:   c,
		tasks: make(chan command, 1000),
		done:  make(chan struct{}),
	}
	c.retain()

	// Start worker goroutine for queue
	go q.worker()
	return q, nil
}

// worker processes commands in order
func (q *CommandQueue) worker() {
	for cmd := range q.tasks {
		q.errMu.Lock()
		prev := q.failed
		q.errMu.Unlock()

		if prev != nil {
			cmd.event.err = NewExecutionError(cmd.name, "skipped after an earlier command failed", prev)
		} else if err := cmd.run(); err != nil {
			cmd.event.err = err
			q.errMu.Lock()
			q.failed = err
			q.errMu.Unlock()
		}
		close(cmd.event.done)
		q.pending.Done()
	}
	close(q.done)
}

func (q *CommandQueue) submit(name string, run func() error) (*Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return nil, NewInvalidArgError(name, "command queue already released")
	}
	ev := newEvent()
	q.pending.Add(1)
	q.tasks <- command{name: name, run: run, event: ev}
	return ev, nil
}

// EnqueueWriteBuffer copies size bytes from src into buf starting at byte
// offset. A non-blocking write reads src when the command executes, so src
// must not change until the returned event completes.
func (q *CommandQueue) EnqueueWriteBuffer(buf *Buffer, blocking bool, offset, size int, src []float32) (*Event, error) {
	const op = "EnqueueWriteBuffer"
	if err := buf.checkRange(op, offset, size, len(src)); err != nil {
		return nil, err
	}
	ev, err := q.submit(op, func() error {
		copy(buf.data()[offset/4:(offset+size)/4], src[:size/4])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if blocking {
		return ev, ev.Wait()
	}
	return ev, nil
}

// EnqueueReadBuffer copies size bytes of buf starting at byte offset into
// dst.
func (q *CommandQueue) EnqueueReadBuffer(buf *Buffer, blocking bool, offset, size int, dst []float32) (*Event, error) {
	const op = "EnqueueReadBuffer"
	if err := buf.checkRange(op, offset, size, len(dst)); err != nil {
		return nil, err
	}
	ev, err := q.submit(op, func() error {
		copy(dst[:size/4], buf.data()[offset/4:(offset+size)/4])
		return nil
	})
	if err != nil {
		return nil, err
	}
	if blocking {
		return ev, ev.Wait()
	}
	return ev, nil
}

// EnqueueNDRangeKernel dispatches k over geom. The kernel's arguments are
// captured now; later SetArg calls do not affect this dispatch.
func (q *CommandQueue) EnqueueNDRangeKernel(k *Kernel, geom WorkGeometry) (*Event, error) {
	const op = "EnqueueNDRangeKernel"
	if k.program.ctx != q.ctx {
		return nil, NewInvalidArgError(op, "kernel and queue belong to different contexts")
	}
	l, err := k.prepare(q.ctx.device, geom)
	if err != nil {
		return nil, err
	}
	return q.submit(op, func() error {
		if err := l.run(q.ctx.device); err != nil {
			return fmt.Errorf("%s %s: %w", k.name, geom, err)
		}
		return nil
	})
}

// Finish blocks until every enqueued command has completed and returns the
// first command failure, if any.
func (q *CommandQueue) Finish() error {
	q.pending.Wait()
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.failed
}

// Release waits for outstanding commands and stops the queue.
func (q *CommandQueue) Release() error {
	q.mu.Lock()
	if q.released {
		q.mu.Unlock()
		return ErrReleased
	}
	q.released = true
	close(q.tasks)
	q.mu.Unlock()

	<-q.done
	q.ctx.drop()
	return nil
}
