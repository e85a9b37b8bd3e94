// Package stage hosts one narrative session on its own goroutine. Clients
// talk to it through the inbox; timer callbacks come back through the
// scheduler's dispatch channel so session state is only touched in loop.
package stage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/sched"
	"github.com/DoyleJ11/narrative-engine/internal/visibility"
)

var ErrUnknownCommand = errors.New("unknown command")
var ErrRejected = errors.New("command had no effect")

type Msg interface{ isStageMsg() }

type Join struct {
	ClientID string
	Outbox   chan narrative.Snapshot // where this client wants to receive snapshots
}

func (Join) isStageMsg() {}

type Leave struct{ ClientID string }

func (Leave) isStageMsg() {}

// Key is a raw key press from a client.
type Key struct{ Raw string }

func (Key) isStageMsg() {}

// Viewport is a scroll or resize from a client.
type Viewport struct{ Event visibility.Event }

func (Viewport) isStageMsg() {}

type CommandKind string

const (
	CmdActivate CommandKind = "activate"
	CmdNext     CommandKind = "next"
	CmdPrev     CommandKind = "prev"
	CmdJump     CommandKind = "jump"
	CmdPause    CommandKind = "pause"
	CmdConfirm  CommandKind = "confirm"
	CmdClose    CommandKind = "close"
)

// Command drives the session directly. Arg is the experience name for
// activate and the section label for jump. Reply is optional and buffered.
type Command struct {
	Kind  CommandKind
	Arg   string
	Reply chan error
}

func (Command) isStageMsg() {}

type Shutdown struct{}

func (Shutdown) isStageMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isStageMsg() {}

type View struct {
	Code       string
	NumClients int
	Snapshot   narrative.Snapshot
}

type Config struct {
	Code    string
	Session narrative.Config
	Logger  *zap.Logger
}

type Stage struct {
	code    string
	inbox   chan Msg
	disp    *sched.Dispatcher
	session *narrative.Session
	last    narrative.Snapshot
	clients map[string]chan narrative.Snapshot
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewStage builds the session and starts the loop. cfg.Session.Scheduler is
// replaced by the stage's dispatcher.
func NewStage(parent context.Context, cfg Config) (*Stage, error) {
	ctx, cancel := context.WithCancel(parent)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("stage", cfg.Code))

	disp := sched.NewDispatcher(ctx, 64)
	scfg := cfg.Session
	scfg.Scheduler = disp
	scfg.Logger = logger
	// Each stage is its own page, so it gets its own listeners.
	scfg.Keys = nil
	scfg.Viewport = nil

	session, err := narrative.New(scfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stage %s: %w", cfg.Code, err)
	}

	s := &Stage{
		code:    cfg.Code,
		inbox:   make(chan Msg, 64),
		disp:    disp,
		session: session,
		clients: make(map[string]chan narrative.Snapshot),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	session.Subscribe(s.broadcast)
	session.Start()

	go s.loop()
	return s, nil
}

func (s *Stage) Code() string { return s.code }

// Inbox exposes the inbox so the ws layer and tests can send messages.
func (s *Stage) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the loop has exited.
func (s *Stage) Done() <-chan struct{} { return s.done }

func (s *Stage) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case fn := <-s.disp.C():
			fn()

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.last
				s.logger.Debug("client joined", zap.String("client", msg.ClientID), zap.Int("clients", len(s.clients)))

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case Key:
				s.session.HandleKey(msg.Raw)

			case Viewport:
				s.session.HandleViewport(msg.Event)

			case Command:
				err := s.apply(msg)
				if err != nil {
					s.logger.Debug("command failed", zap.String("kind", string(msg.Kind)), zap.Error(err))
				}
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Code:       s.code,
					NumClients: len(s.clients),
					Snapshot:   s.session.Snapshot(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Stage) apply(cmd Command) error {
	var ok bool
	switch cmd.Kind {
	case CmdActivate:
		return s.session.Activate(cmd.Arg)
	case CmdNext:
		ok = s.session.Next()
	case CmdPrev:
		ok = s.session.Prev()
	case CmdJump:
		ok = s.session.JumpToSection(cmd.Arg)
	case CmdPause:
		ok = s.session.TogglePause()
	case CmdConfirm:
		ok = s.session.Confirm()
	case CmdClose:
		s.session.Close()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	if !ok {
		return fmt.Errorf("%s: %w", cmd.Kind, ErrRejected)
	}
	return nil
}

func (s *Stage) shutdown() {
	s.session.Shutdown()
	for id, ch := range s.clients {
		close(ch) // no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
	s.logger.Info("stage shut down")
}

func (s *Stage) broadcast(snap narrative.Snapshot) {
	s.last = snap
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
			s.logger.Warn("dropped slow client", zap.String("client", id))
		}
	}
}
