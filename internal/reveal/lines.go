package reveal

import (
	"sort"
	"time"

	"github.com/DoyleJ11/narrative-engine/internal/sched"
)

// Line becomes visible Delay after the reveal starts.
type Line struct {
	Text  string
	Delay time.Duration
}

type LineReveal struct {
	p       player
	lines   []Line
	visible []bool
}

func NewLineReveal(s sched.Scheduler) *LineReveal {
	return &LineReveal{p: player{sched: s}}
}

// Start schedules every line at its own delay. Lines sharing a delay are
// shown in input order. A shown line stays shown until the next Start.
func (r *LineReveal) Start(lines []Line, onShow func(index int, line Line), onDone func()) {
	r.lines = append([]Line(nil), lines...)
	r.visible = make([]bool, len(lines))

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return r.lines[order[a]].Delay < r.lines[order[b]].Delay
	})

	steps := make([]step, 0, len(order))
	for _, idx := range order {
		i := idx
		steps = append(steps, step{offset: max(r.lines[i].Delay, 0), fire: func() {
			r.visible[i] = true
			if onShow != nil {
				onShow(i, r.lines[i])
			}
		}})
	}
	r.p.run(steps, onDone)
}

func (r *LineReveal) Cancel() { r.p.cancel() }

// Visible returns the shown lines in their original order.
func (r *LineReveal) Visible() []string {
	out := make([]string, 0, len(r.lines))
	for i, l := range r.lines {
		if r.visible[i] {
			out = append(out, l.Text)
		}
	}
	return out
}

func (r *LineReveal) Running() bool { return r.p.active }

func (r *LineReveal) Done() bool { return r.p.done }
