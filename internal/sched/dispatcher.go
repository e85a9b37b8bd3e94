package sched

import (
	"context"
	"sync/atomic"
	"time"
)

// Dispatcher backs timers with the runtime clock but delivers their callbacks
// on C() so that one owning goroutine executes them in its select loop.
type Dispatcher struct {
	ctx context.Context
	c   chan func()
}

func NewDispatcher(ctx context.Context, buffer int) *Dispatcher {
	return &Dispatcher{ctx: ctx, c: make(chan func(), buffer)}
}

// C is drained by the owner; each value must be called on the owner goroutine.
func (d *Dispatcher) C() <-chan func() { return d.c }

func (d *Dispatcher) Now() time.Time { return time.Now() }

func (d *Dispatcher) AfterFunc(dur time.Duration, fn func()) Timer {
	t := &dispatchTimer{}
	t.rt = time.AfterFunc(dur, func() {
		if t.stopped.Load() {
			return
		}
		select {
		case d.c <- func() {
			// Stop may have run between the post and now.
			if t.stopped.Swap(true) {
				return
			}
			fn()
		}:
		case <-d.ctx.Done():
		}
	})
	return t
}

type dispatchTimer struct {
	rt      *time.Timer
	stopped atomic.Bool
}

func (t *dispatchTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.rt.Stop()
	return true
}
