// Package narrative composes the sequencer, the reveals, the secret input
// triggers and the scroll-visibility tracker into one page session. A host
// feeds it raw keys and viewport geometry and renders the Snapshots it emits.
//
// A Session is single-threaded: every call, and every timer callback from its
// scheduler, must run on the same goroutine.
package narrative

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/bus"
	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/engine"
	"github.com/DoyleJ11/narrative-engine/internal/input"
	"github.com/DoyleJ11/narrative-engine/internal/observability"
	"github.com/DoyleJ11/narrative-engine/internal/reveal"
	"github.com/DoyleJ11/narrative-engine/internal/sched"
	"github.com/DoyleJ11/narrative-engine/internal/visibility"
)

var (
	ErrUnknownExperience = errors.New("unknown experience")
	ErrStopped           = errors.New("session stopped")
)

// Bindings maps navigation actions to keys. They only apply while an
// experience is running.
type Bindings struct {
	Next    input.Key
	Prev    input.Key
	Pause   input.Key
	Confirm input.Key
	Close   input.Key
}

func DefaultBindings() Bindings {
	return Bindings{
		Next:    input.KeyArrowRight,
		Prev:    input.KeyArrowLeft,
		Pause:   input.KeySpace,
		Confirm: input.KeyEnter,
		Close:   input.KeyEscape,
	}
}

// Config gathers every mode switch a session needs in one place.
type Config struct {
	Catalog   *catalog.Catalog
	Scheduler sched.Scheduler
	Logger    *zap.Logger

	// Keys and Viewport are the shared host listeners. A session creates
	// private ones when they are nil.
	Keys     *bus.Bus[input.Key]
	Viewport *bus.Bus[visibility.Event]

	ResumePolicy  engine.ResumePolicy
	Typewriter    reveal.TypewriterConfig
	FrameInterval time.Duration
	Bindings      Bindings
}

type Session struct {
	cfg    Config
	logger *zap.Logger

	keys     *bus.Bus[input.Key]
	viewport *bus.Bus[visibility.Event]

	seq     *engine.Sequencer
	typer   *reveal.Typewriter
	lines   *reveal.LineReveal
	tracker *visibility.Tracker
	input   *input.Controller

	exp          *catalog.Experience
	lastViewport visibility.Viewport
	text         string
	opacity      float64
	lastTrigger  string
	lastClose    engine.Reason
	// consumed marks a key that completed a trigger so navigation skips it.
	consumed bool

	started  bool
	stopped  bool
	unsubs   []func()
	version  int
	watchers map[int]func(Snapshot)
	order    []int
	nextID   int
}

func New(cfg Config) (*Session, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("narrative: catalog is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("narrative: scheduler is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Keys == nil {
		cfg.Keys = bus.New[input.Key]()
	}
	if cfg.Viewport == nil {
		cfg.Viewport = bus.New[visibility.Event]()
	}
	if cfg.Bindings == (Bindings{}) {
		cfg.Bindings = DefaultBindings()
	}

	triggers := cfg.Catalog.Triggers()
	triggers.Logger = cfg.Logger.Named("input")
	ctrl, err := input.NewController(triggers)
	if err != nil {
		return nil, fmt.Errorf("narrative: triggers: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		logger:   cfg.Logger,
		keys:     cfg.Keys,
		viewport: cfg.Viewport,
		seq: engine.New(cfg.Scheduler, engine.Config{
			ResumePolicy: cfg.ResumePolicy,
			Logger:       cfg.Logger.Named("engine"),
		}),
		typer:    reveal.NewTypewriter(cfg.Scheduler, cfg.Typewriter),
		lines:    reveal.NewLineReveal(cfg.Scheduler),
		input:    ctrl,
		opacity:  1,
		watchers: make(map[int]func(Snapshot)),
	}
	s.seq.Subscribe(s.onSequence)
	s.input.OnTrigger(s.onTrigger)
	return s, nil
}

// Start is the once-per-session hook: it attaches the session to the host
// listeners. Calling it again is a no-op.
func (s *Session) Start() {
	if s.started || s.stopped {
		return
	}
	s.started = true
	observability.SessionOpened()

	s.input.Attach(s.keys)
	s.unsubs = append(s.unsubs,
		s.keys.Subscribe(s.onNavigationKey),
		s.viewport.Subscribe(func(ev visibility.Event) { s.lastViewport = ev.Viewport }),
	)
	s.logger.Info("session started", zap.Strings("experiences", s.cfg.Catalog.Names()))
	s.publish()
}

// Shutdown closes any running experience and releases every listener and
// timer. The session cannot be restarted.
func (s *Session) Shutdown() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.Close()
	s.input.Detach()
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
	if s.started {
		observability.SessionClosed()
	}
	s.logger.Info("session ended")
}

// Subscribe registers a renderer. It immediately receives the current snapshot.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	s.order = append(s.order, id)
	fn(s.Snapshot())
	return func() {
		delete(s.watchers, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *Session) publish() {
	s.version++
	snap := s.Snapshot()
	for _, id := range append([]int(nil), s.order...) {
		if fn, ok := s.watchers[id]; ok {
			fn(snap)
		}
	}
}

// HandleKey forwards a raw host key press to the shared key listeners.
func (s *Session) HandleKey(raw string) {
	if s.stopped {
		return
	}
	s.keys.Publish(input.ParseKey(raw))
}

// HandleViewport forwards a host scroll or resize.
func (s *Session) HandleViewport(ev visibility.Event) {
	if s.stopped {
		return
	}
	s.viewport.Publish(ev)
}

// Activate starts the named experience, replacing one that is running.
func (s *Session) Activate(name string) error {
	if s.stopped {
		return ErrStopped
	}
	exp, ok := s.cfg.Catalog.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExperience, name)
	}
	// Close the running experience before switching content so its close
	// event still reports the experience it belongs to.
	s.Close()
	s.exp = exp
	s.seq.Activate(exp.Sequence)
	return nil
}

func (s *Session) Next() bool { return s.seq.Next() }

func (s *Session) Prev() bool { return s.seq.Prev() }

func (s *Session) JumpToSection(label string) bool { return s.seq.JumpToSection(label) }

func (s *Session) TogglePause() bool { return s.seq.TogglePause() }

func (s *Session) Confirm() bool { return s.seq.Confirm() }

// Close cancels the running experience, if any.
func (s *Session) Close() { s.seq.Deactivate() }

func (s *Session) onTrigger(t input.Trigger) {
	observability.RecordTrigger(string(t.Kind), t.Name)
	s.lastTrigger = t.Name
	s.consumed = true
	if err := s.Activate(t.Name); err != nil {
		s.logger.Warn("trigger has no experience", zap.String("trigger", t.Name), zap.Error(err))
	}
}

func (s *Session) onNavigationKey(k input.Key) {
	consumed := s.consumed
	s.consumed = false
	if consumed || !s.seq.Active() {
		return
	}
	b := s.cfg.Bindings
	switch k {
	case b.Next:
		s.Next()
	case b.Prev:
		s.Prev()
	case b.Pause:
		s.TogglePause()
	case b.Confirm:
		s.Confirm()
	case b.Close:
		s.Close()
	}
}

func (s *Session) onSequence(e engine.Event) {
	switch e.Type {
	case engine.EvtActivated:
		observability.RecordActivation(s.exp.Name)
		s.logger.Info("experience activated", zap.String("experience", s.exp.Name))
		s.lastClose = ""
		s.openOverlay()
		s.showPhase(e.Phase)

	case engine.EvtPhaseChanged:
		observability.RecordTransition(s.exp.Name, string(e.Cause))
		s.showPhase(e.Phase)

	case engine.EvtPaused, engine.EvtResumed:
		s.publish()

	case engine.EvtClosed:
		name := ""
		if s.exp != nil {
			name = s.exp.Name
		}
		observability.RecordClose(name, string(e.Reason))
		s.logger.Info("experience closed", zap.String("experience", name), zap.String("reason", string(e.Reason)))
		s.teardown()
		s.lastClose = e.Reason
		s.publish()
	}
}

// showPhase cancels whatever the previous phase was revealing and starts
// this phase's content.
func (s *Session) showPhase(p engine.Phase) {
	s.typer.Cancel()
	s.lines.Cancel()
	s.lines.Start(nil, nil, nil)
	s.text = ""

	content, _ := s.exp.Content(p.ID)
	switch content.Reveal {
	case catalog.RevealType:
		s.typer.Start(content.Text, func(prefix string) {
			s.text = prefix
			s.publish()
		}, nil)
	case catalog.RevealLines:
		s.lines.Start(content.Lines, func(int, reveal.Line) { s.publish() }, nil)
	default:
		s.text = content.Text
	}
	s.publish()
}

func (s *Session) openOverlay() {
	if s.tracker != nil {
		s.tracker.Close()
		s.tracker = nil
	}
	s.opacity = 1

	o := s.exp.Overlay
	if o == nil {
		return
	}
	s.tracker = visibility.NewTracker(s.cfg.Scheduler, s.viewport, visibility.Config{
		Mode:          o.Mode,
		Threshold:     o.Threshold,
		FadeDistance:  o.FadeDistance,
		FrameInterval: s.cfg.FrameInterval,
		Logger:        s.logger.Named("visibility"),
	})

	exp := s.exp
	s.tracker.Open(o.Element, s.lastViewport,
		func(st visibility.State) {
			s.opacity = st.Opacity
			s.publish()
		},
		func() {
			observability.RecordDismissal(exp.Name, string(o.Mode))
			s.logger.Info("overlay dismissed", zap.String("experience", exp.Name))
			s.Close()
		})
}

func (s *Session) teardown() {
	s.typer.Cancel()
	s.lines.Cancel()
	if s.tracker != nil {
		s.tracker.Close()
		s.tracker = nil
	}
	s.exp = nil
	s.text = ""
	s.opacity = 1
}
