package reveal

import (
	"time"

	"github.com/DoyleJ11/narrative-engine/internal/sched"
)

// step is one entry of a reveal plan. Offsets are absolute from the start of
// the run and non-decreasing.
type step struct {
	offset time.Duration
	fire   func()
}

// player drives a plan with a single pending timer. Every run gets a fresh
// generation; callbacks from an older generation are ignored.
type player struct {
	sched  sched.Scheduler
	steps  []step
	next   int
	start  time.Time
	timer  sched.Timer
	gen    uint64
	onDone func()
	done   bool
	active bool
}

func (p *player) run(steps []step, onDone func()) {
	p.cancel()
	p.steps = steps
	p.next = 0
	p.start = p.sched.Now()
	p.onDone = onDone
	p.done = false
	p.active = true

	if len(steps) == 0 {
		p.finish()
		return
	}
	p.arm()
}

func (p *player) arm() {
	wait := p.steps[p.next].offset - p.sched.Now().Sub(p.start)
	if wait < 0 {
		wait = 0
	}
	gen := p.gen
	p.timer = p.sched.AfterFunc(wait, func() { p.tick(gen) })
}

func (p *player) tick(gen uint64) {
	if gen != p.gen || !p.active {
		return
	}
	p.timer = nil

	elapsed := p.sched.Now().Sub(p.start)
	for p.next < len(p.steps) && p.steps[p.next].offset <= elapsed {
		s := p.steps[p.next]
		p.next++
		s.fire()
		// A step callback may cancel or restart the run.
		if gen != p.gen || !p.active {
			return
		}
	}

	if p.next >= len(p.steps) {
		p.finish()
		return
	}
	p.arm()
}

func (p *player) finish() {
	if p.done {
		return
	}
	p.done = true
	p.active = false
	if fn := p.onDone; fn != nil {
		p.onDone = nil
		fn()
	}
}

// cancel stops the pending timer synchronously. Nothing from the current run
// fires afterwards, including its completion callback.
func (p *player) cancel() {
	sched.Stop(p.timer)
	p.timer = nil
	p.gen++
	p.active = false
	p.onDone = nil
}
