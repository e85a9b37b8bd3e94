package sched

import "time"

// Timer is a pending callback. Stop reports whether it prevented the callback.
type Timer interface {
	Stop() bool
}

// Scheduler hands out one-shot timers. Callbacks always run on the goroutine
// that owns the scheduler, never concurrently with each other.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Stop is a nil-safe helper used by every owner before rescheduling.
func Stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}
