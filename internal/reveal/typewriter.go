// Package reveal schedules incremental text reveals: a typewriter that emits
// a growing prefix with jittered cadence, and a line reveal that shows lines
// at absolute delays. Both precompute a plan of steps with absolute offsets
// and drive it with one timer, so cancelling is a single operation.
package reveal

import (
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/narrative-engine/internal/sched"
)

const (
	DefaultInterval = 45 * time.Millisecond
	DefaultJitter   = 0.25
)

type TypewriterConfig struct {
	Interval time.Duration
	// Jitter is the fractional spread applied to every tick, 0.25 means ±25%.
	// Zero means DefaultJitter.
	Jitter float64
	// Steady turns jitter off for a fixed cadence.
	Steady bool
	// Rand drives the jitter. Nil uses a time-seeded source.
	Rand *rand.Rand
}

type Typewriter struct {
	cfg   TypewriterConfig
	p     player
	runes []rune
	shown int
}

func NewTypewriter(s sched.Scheduler, cfg TypewriterConfig) *Typewriter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	switch {
	case cfg.Steady, cfg.Jitter < 0:
		cfg.Jitter = 0
	case cfg.Jitter == 0:
		cfg.Jitter = DefaultJitter
	case cfg.Jitter > 1:
		cfg.Jitter = 1
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Typewriter{cfg: cfg, p: player{sched: s}}
}

// Start reveals text one rune per tick. onTick receives the growing prefix;
// onDone runs exactly once after the last rune unless the run is cancelled
// or restarted first. Empty text completes immediately.
func (t *Typewriter) Start(text string, onTick func(prefix string), onDone func()) {
	t.runes = []rune(text)
	t.shown = 0

	steps := make([]step, len(t.runes))
	var at time.Duration
	for i := range t.runes {
		at += t.delay()
		n := i + 1
		steps[i] = step{offset: at, fire: func() {
			t.shown = n
			if onTick != nil {
				onTick(string(t.runes[:n]))
			}
		}}
	}
	t.p.run(steps, onDone)
}

func (t *Typewriter) delay() time.Duration {
	if t.cfg.Jitter == 0 {
		return t.cfg.Interval
	}
	spread := (t.cfg.Rand.Float64()*2 - 1) * t.cfg.Jitter
	return time.Duration(float64(t.cfg.Interval) * (1 + spread))
}

func (t *Typewriter) Cancel() { t.p.cancel() }

// Text is the prefix revealed so far.
func (t *Typewriter) Text() string { return string(t.runes[:t.shown]) }

func (t *Typewriter) Running() bool { return t.p.active }

func (t *Typewriter) Done() bool { return t.p.done }
