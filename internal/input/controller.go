// Package input turns raw key presses into named secret triggers: typed words
// found in a rolling letter buffer and ordered key codes.
package input

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/bus"
)

var (
	ErrEmptyTrigger     = errors.New("trigger has no keys")
	ErrDuplicateTrigger = errors.New("duplicate trigger name")
	ErrInvalidWord      = errors.New("word triggers must be letters only")
)

const DefaultBufferSize = 16

type TriggerKind string

const (
	TriggerWord TriggerKind = "word"
	TriggerCode TriggerKind = "code"
)

type Trigger struct {
	Kind TriggerKind
	Name string
}

type Word struct {
	Name string
	Text string
}

type Code struct {
	Name string
	Keys []Key
}

type Config struct {
	BufferSize int
	Words      []Word
	Codes      []Code
	Logger     *zap.Logger
}

type word struct {
	name string
	text string
}

type code struct {
	name    string
	matcher *CodeMatcher
}

type Controller struct {
	logger   *zap.Logger
	buffer   *KeyBuffer
	words    []word
	codes    []code
	handlers []func(Trigger)
	unsub    func()
}

func NewController(cfg Config) (*Controller, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	seen := map[string]bool{}
	c := &Controller{logger: logger}

	for _, w := range cfg.Words {
		text := strings.ToLower(w.Text)
		if text == "" {
			return nil, fmt.Errorf("word %q: %w", w.Name, ErrEmptyTrigger)
		}
		for _, r := range text {
			if _, ok := Key(string(r)).Letter(); !ok {
				return nil, fmt.Errorf("word %q: %w", w.Name, ErrInvalidWord)
			}
		}
		if seen[w.Name] {
			return nil, fmt.Errorf("word %q: %w", w.Name, ErrDuplicateTrigger)
		}
		seen[w.Name] = true
		c.words = append(c.words, word{name: w.Name, text: text})
		size = max(size, len([]rune(text)))
	}

	for _, cd := range cfg.Codes {
		if len(cd.Keys) == 0 {
			return nil, fmt.Errorf("code %q: %w", cd.Name, ErrEmptyTrigger)
		}
		if seen[cd.Name] {
			return nil, fmt.Errorf("code %q: %w", cd.Name, ErrDuplicateTrigger)
		}
		seen[cd.Name] = true
		keys := make([]Key, len(cd.Keys))
		for i, k := range cd.Keys {
			keys[i] = ParseKey(string(k))
		}
		c.codes = append(c.codes, code{name: cd.Name, matcher: NewCodeMatcher(keys)})
	}

	c.buffer = NewKeyBuffer(size)
	return c, nil
}

// OnTrigger registers a handler for every fired trigger.
func (c *Controller) OnTrigger(fn func(Trigger)) {
	c.handlers = append(c.handlers, fn)
}

// Attach subscribes the controller to the shared key bus. Attaching twice
// keeps a single subscription.
func (c *Controller) Attach(keys *bus.Bus[Key]) {
	c.Detach()
	c.unsub = keys.Subscribe(func(k Key) { c.HandleKey(k) })
}

func (c *Controller) Detach() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

// HandleKey evaluates one key press and returns the triggers it fired.
// Buffers are reset before handlers run, so a handler never sees a state
// that could fire the same trigger again.
func (c *Controller) HandleKey(k Key) []Trigger {
	k = ParseKey(string(k))
	var fired []Trigger

	if r, ok := k.Letter(); ok {
		c.buffer.Push(r)
		for _, w := range c.words {
			if c.buffer.Contains(w.text) {
				c.buffer.Reset()
				fired = append(fired, Trigger{Kind: TriggerWord, Name: w.name})
				break
			}
		}
	}

	for _, cd := range c.codes {
		if cd.matcher.Feed(k) {
			fired = append(fired, Trigger{Kind: TriggerCode, Name: cd.name})
		}
	}

	for _, t := range fired {
		c.logger.Info("secret trigger fired", zap.String("kind", string(t.Kind)), zap.String("name", t.Name))
		for _, h := range c.handlers {
			h(t)
		}
	}
	return fired
}

// Buffer exposes the current letter window.
func (c *Controller) Buffer() string { return c.buffer.String() }
