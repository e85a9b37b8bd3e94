package sched

import (
	"sync"
	"time"
)

// Manual is a controllable clock for tests. Nothing fires until Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	m    *Manual
	when time.Time
	seq  uint64
	fn   func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, p := range t.m.pending {
		if p == t {
			t.m.pending = append(t.m.pending[:i], t.m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls inside the window in deadline order. Now() reports each timer's
// deadline while its callback runs, so callbacks that schedule new timers
// inside the window see them fire too.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		idx := -1
		for i, p := range m.pending {
			if p.when.After(target) {
				continue
			}
			if idx == -1 || p.when.Before(m.pending[idx].when) ||
				(p.when.Equal(m.pending[idx].when) && p.seq < m.pending[idx].seq) {
				idx = i
			}
		}
		if idx == -1 {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.pending[idx]
		m.pending = append(m.pending[:idx], m.pending[idx+1:]...)
		m.now = t.when
		m.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
