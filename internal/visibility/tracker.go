// Package visibility fades overlays out as they leave the viewport and
// dismisses them once, either by how much of an element is still on screen
// or by how far the page has scrolled since the overlay opened.
package visibility

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/bus"
	"github.com/DoyleJ11/narrative-engine/internal/sched"
)

type Mode string

const (
	ModeViewportRatio  Mode = "ratio"
	ModeScrollDistance Mode = "distance"
)

const (
	DefaultThreshold     = 0.5
	DefaultFadeDistance  = 400.0
	DefaultEpsilon       = 0.05
	DefaultFrameInterval = 16 * time.Millisecond
)

var ErrUnknownMode = errors.New("unknown visibility mode")

type Config struct {
	Mode Mode
	// Threshold is the visible fraction at which ratio mode starts fading.
	Threshold float64
	// FadeDistance is the scroll distance in px that takes distance mode to 0.
	FadeDistance  float64
	Epsilon       float64
	FrameInterval time.Duration
	Logger        *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeViewportRatio
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = DefaultThreshold
	}
	if c.FadeDistance <= 0 {
		c.FadeDistance = DefaultFadeDistance
	}
	if c.Epsilon <= 0 {
		c.Epsilon = DefaultEpsilon
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeViewportRatio, ModeScrollDistance:
		return Mode(raw), nil
	case "":
		return ModeViewportRatio, nil
	}
	return "", ErrUnknownMode
}

// State is the tracker output. Closed latches for the rest of an activation.
type State struct {
	Opacity float64
	Closed  bool
}

type Tracker struct {
	cfg    Config
	sched  sched.Scheduler
	events *bus.Bus[Event]

	element  string
	initial  float64
	bounds   Rect
	hasRect  bool
	latest   Viewport
	state    State
	open     bool
	frame    sched.Timer
	gen      uint64
	unsub    func()
	onChange func(State)
	onClose  func()
}

func NewTracker(s sched.Scheduler, events *bus.Bus[Event], cfg Config) *Tracker {
	return &Tracker{cfg: cfg.withDefaults(), sched: s, events: events}
}

// Open starts tracking element. Any previous activation is torn down first
// without firing its close callback.
func (t *Tracker) Open(element string, initial Viewport, onChange func(State), onClose func()) {
	t.Close()

	t.gen++
	t.element = element
	t.initial = initial.ScrollY
	t.latest = initial
	t.hasRect = false
	t.state = State{Opacity: 1}
	t.onChange = onChange
	t.onClose = onClose
	t.open = true
	t.unsub = t.events.Subscribe(t.handle)

	t.cfg.Logger.Debug("visibility tracker opened",
		zap.String("element", element),
		zap.String("mode", string(t.cfg.Mode)),
		zap.Float64("initial_scroll", t.initial))
}

func (t *Tracker) handle(ev Event) {
	if !t.open {
		return
	}
	t.latest = ev.Viewport
	if r, ok := ev.Bounds[t.element]; ok {
		t.bounds = r
		t.hasRect = true
	}
	if t.frame != nil {
		return
	}
	gen := t.gen
	t.frame = t.sched.AfterFunc(t.cfg.FrameInterval, func() { t.onFrame(gen) })
}

func (t *Tracker) onFrame(gen uint64) {
	if gen != t.gen || !t.open {
		return
	}
	t.frame = nil

	opacity, ok := t.compute()
	if !ok {
		return
	}
	t.state.Opacity = opacity
	if t.onChange != nil {
		t.onChange(t.state)
	}
	if opacity < t.cfg.Epsilon {
		t.dismiss()
	}
}

func (t *Tracker) compute() (float64, bool) {
	switch t.cfg.Mode {
	case ModeScrollDistance:
		return DistanceOpacity(t.latest.ScrollY, t.initial, t.cfg.FadeDistance), true
	default:
		if !t.hasRect {
			return 0, false
		}
		ratio, ok := Ratio(t.bounds, t.latest)
		if !ok {
			return 0, false
		}
		return RatioOpacity(ratio, t.cfg.Threshold), true
	}
}

func (t *Tracker) dismiss() {
	if t.state.Closed {
		return
	}
	t.state.Closed = true
	onClose := t.onClose
	t.teardown()

	t.cfg.Logger.Debug("visibility tracker dismissed", zap.String("element", t.element))
	if onClose != nil {
		onClose()
	}
}

// Close removes the listener and cancels any pending frame. Safe to call
// repeatedly and after an auto-dismiss.
func (t *Tracker) Close() {
	if !t.open {
		return
	}
	t.teardown()
}

func (t *Tracker) teardown() {
	t.open = false
	t.gen++
	sched.Stop(t.frame)
	t.frame = nil
	if t.unsub != nil {
		t.unsub()
		t.unsub = nil
	}
	t.onChange = nil
	t.onClose = nil
}

func (t *Tracker) State() State { return t.state }

func (t *Tracker) Active() bool { return t.open }
