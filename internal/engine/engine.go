package engine

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/sched"
)

var ErrUnknownResumePolicy = errors.New("unknown resume policy")

// ResumePolicy decides how long the current phase runs after a resume.
type ResumePolicy string

const (
	// ResumeRestart runs the phase's full duration again.
	ResumeRestart ResumePolicy = "restart"
	// ResumeRemaining runs only what was left when playback paused.
	ResumeRemaining ResumePolicy = "remaining"
)

func ParseResumePolicy(raw string) (ResumePolicy, error) {
	switch ResumePolicy(raw) {
	case "", ResumeRestart:
		return ResumeRestart, nil
	case ResumeRemaining:
		return ResumeRemaining, nil
	}
	return "", ErrUnknownResumePolicy
}

type Config struct {
	ResumePolicy ResumePolicy
	Logger       *zap.Logger
}

type State struct {
	CurrentIndex int
	Paused       bool
}

type EventType string

const (
	EvtActivated    EventType = "Activated"
	EvtPhaseChanged EventType = "PhaseChanged"
	EvtPaused       EventType = "Paused"
	EvtResumed      EventType = "Resumed"
	EvtClosed       EventType = "Closed"
)

type Cause string

const (
	CauseAuto   Cause = "auto"
	CauseManual Cause = "manual"
	CauseJump   Cause = "jump"
)

type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonCancelled Reason = "cancelled"
)

type Event struct {
	Type     EventType
	Index    int
	Previous int
	Phase    Phase
	Cause    Cause
	Reason   Reason
}

// Sequencer drives a Sequence through time. It is not safe for concurrent
// use: every method and every timer callback runs on the scheduler's owner.
type Sequencer struct {
	sched  sched.Scheduler
	cfg    Config
	logger *zap.Logger

	seq   *Sequence
	state State

	timer     sched.Timer
	gen       uint64
	deadline  time.Time
	remaining time.Duration

	observers map[int]func(Event)
	obsOrder  []int
	nextObs   int
}

func New(s sched.Scheduler, cfg Config) *Sequencer {
	if cfg.ResumePolicy == "" {
		cfg.ResumePolicy = ResumeRestart
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		sched:     s,
		cfg:       cfg,
		logger:    logger,
		state:     State{CurrentIndex: -1},
		observers: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every event and returns its unsubscribe.
func (s *Sequencer) Subscribe(fn func(Event)) func() {
	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn
	s.obsOrder = append(s.obsOrder, id)
	return func() {
		delete(s.observers, id)
		for i, v := range s.obsOrder {
			if v == id {
				s.obsOrder = append(s.obsOrder[:i], s.obsOrder[i+1:]...)
				break
			}
		}
	}
}

func (s *Sequencer) emit(e Event) {
	ids := append([]int(nil), s.obsOrder...)
	for _, id := range ids {
		if fn, ok := s.observers[id]; ok {
			fn(e)
		}
	}
}

func (s *Sequencer) State() State { return s.state }

func (s *Sequencer) Active() bool { return s.seq != nil && s.state.CurrentIndex >= 0 }

func (s *Sequencer) Sequence() *Sequence { return s.seq }

// Current returns the phase being shown, if any.
func (s *Sequencer) Current() (Phase, bool) {
	if !s.Active() {
		return Phase{}, false
	}
	return s.seq.Phase(s.state.CurrentIndex)
}

// Activate starts seq at phase 0. A running activation is closed first as
// cancelled so its observers still get their single terminal event.
func (s *Sequencer) Activate(seq *Sequence) {
	if s.Active() {
		s.finish(ReasonCancelled)
	}
	s.cancelTimer()

	s.seq = seq
	s.state = State{CurrentIndex: 0}
	s.resetRemaining()
	s.schedule(s.remaining)

	p, _ := seq.Phase(0)
	s.logger.Debug("sequence activated", zap.Int("phases", seq.Len()), zap.String("phase", p.ID))
	s.emit(Event{Type: EvtActivated, Index: 0, Previous: -1, Phase: p})
}

// GoToIndex moves to phase i. Out of range, or with nothing active, it does
// nothing and returns false.
func (s *Sequencer) GoToIndex(i int) bool {
	return s.goTo(i, CauseManual)
}

func (s *Sequencer) Next() bool {
	if !s.Active() {
		return false
	}
	return s.goTo(s.state.CurrentIndex+1, CauseManual)
}

func (s *Sequencer) Prev() bool {
	if !s.Active() {
		return false
	}
	return s.goTo(s.state.CurrentIndex-1, CauseManual)
}

func (s *Sequencer) JumpToSection(label string) bool {
	if !s.Active() {
		return false
	}
	i, ok := s.seq.SectionStart(label)
	if !ok {
		return false
	}
	return s.goTo(i, CauseJump)
}

func (s *Sequencer) goTo(i int, cause Cause) bool {
	if !s.Active() {
		return false
	}
	p, ok := s.seq.Phase(i)
	if !ok {
		return false
	}

	s.cancelTimer()
	prev := s.state.CurrentIndex
	s.state.CurrentIndex = i
	s.resetRemaining()
	if !s.state.Paused {
		s.schedule(s.remaining)
	}

	s.logger.Debug("phase changed",
		zap.String("phase", p.ID),
		zap.Int("index", i),
		zap.String("cause", string(cause)))
	s.emit(Event{Type: EvtPhaseChanged, Index: i, Previous: prev, Phase: p, Cause: cause})
	return true
}

// TogglePause flips the paused flag. Pausing cancels the auto-advance timer;
// resuming schedules it again according to the resume policy.
func (s *Sequencer) TogglePause() bool {
	if !s.Active() {
		return false
	}
	p, _ := s.Current()

	if !s.state.Paused {
		if s.timer != nil && s.cfg.ResumePolicy == ResumeRemaining {
			s.remaining = max(s.deadline.Sub(s.sched.Now()), 0)
		}
		s.cancelTimer()
		s.state.Paused = true
		s.emit(Event{Type: EvtPaused, Index: s.state.CurrentIndex, Previous: s.state.CurrentIndex, Phase: p})
		return true
	}

	s.state.Paused = false
	if s.cfg.ResumePolicy == ResumeRestart {
		s.resetRemaining()
	}
	s.schedule(s.remaining)
	s.emit(Event{Type: EvtResumed, Index: s.state.CurrentIndex, Previous: s.state.CurrentIndex, Phase: p})
	return true
}

// Confirm closes the activation as completed when it sits on a terminal phase.
func (s *Sequencer) Confirm() bool {
	p, ok := s.Current()
	if !ok || !p.Terminal {
		return false
	}
	s.finish(ReasonCompleted)
	return true
}

// Deactivate cancels every timer and resets to index -1.
func (s *Sequencer) Deactivate() {
	if !s.Active() {
		s.cancelTimer()
		return
	}
	s.finish(ReasonCancelled)
}

func (s *Sequencer) finish(reason Reason) {
	s.cancelTimer()
	prev := s.state.CurrentIndex
	p, _ := s.Current()

	s.state = State{CurrentIndex: -1}
	s.seq = nil
	s.remaining = 0

	s.logger.Debug("sequence closed", zap.String("reason", string(reason)), zap.String("phase", p.ID))
	s.emit(Event{Type: EvtClosed, Index: -1, Previous: prev, Phase: p, Reason: reason})
}

func (s *Sequencer) resetRemaining() {
	p, _ := s.seq.Phase(s.state.CurrentIndex)
	s.remaining = p.Duration
}

// schedule arms the auto-advance timer for d unless the phase is terminal.
// The callback carries the generation it was armed under and drops itself
// if anything changed since.
func (s *Sequencer) schedule(d time.Duration) {
	s.cancelTimer()
	p, ok := s.Current()
	if !ok || p.Terminal || s.state.Paused {
		return
	}
	gen := s.gen
	s.deadline = s.sched.Now().Add(d)
	s.timer = s.sched.AfterFunc(d, func() { s.autoAdvance(gen) })
}

func (s *Sequencer) autoAdvance(gen uint64) {
	if gen != s.gen || !s.Active() || s.state.Paused {
		return
	}
	s.timer = nil

	next := s.state.CurrentIndex + 1
	if next >= s.seq.Len() {
		s.finish(ReasonCompleted)
		return
	}
	s.goTo(next, CauseAuto)
}

// cancelTimer stops the pending timer and invalidates any callback already
// captured against the current generation.
func (s *Sequencer) cancelTimer() {
	sched.Stop(s.timer)
	s.timer = nil
	s.gen++
}
