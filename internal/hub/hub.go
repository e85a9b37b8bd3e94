package hub

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
)

type HubMsg interface{ isHubMsg() }

// CreateStage returns the existing stage for Code or starts a new one. A nil
// reply means the stage could not be built.
type CreateStage struct {
	Code  string
	Reply chan *stage.Stage
}

type GetStage struct {
	Code  string
	Reply chan *stage.Stage
}

type EnsureStage struct {
	Code  string
	Reply chan *stage.Stage
}

// RemoveStage shuts the stage down and forgets it. Reply, if set, reports
// whether the code was known.
type RemoveStage struct {
	Code  string
	Reply chan bool
}

type ListStages struct {
	Reply chan []string
}

type ShutdownHub struct {
	Done chan struct{}
}

func (CreateStage) isHubMsg() {}
func (GetStage) isHubMsg()    {}
func (EnsureStage) isHubMsg() {}
func (RemoveStage) isHubMsg() {}
func (ListStages) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	// Session is the template every stage's session is built from.
	Session narrative.Config
	Logger  *zap.Logger
}

type Hub struct {
	inbox  chan HubMsg
	stages map[string]*stage.Stage
	cfg    Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		stages: make(map[string]*stage.Stage),
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateStage:
				msg.Reply <- h.ensure(msg.Code)

			case GetStage:
				msg.Reply <- h.stages[msg.Code] // May be nil

			case EnsureStage:
				msg.Reply <- h.ensure(msg.Code)

			case RemoveStage:
				st, ok := h.stages[msg.Code]
				if ok {
					stop(st)
					delete(h.stages, msg.Code)
					h.logger.Info("stage removed", zap.String("code", msg.Code))
				}
				if msg.Reply != nil {
					msg.Reply <- ok
				}

			case ListStages:
				codes := make([]string, 0, len(h.stages))
				for code := range h.stages {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

func (h *Hub) ensure(code string) *stage.Stage {
	if st := h.stages[code]; st != nil {
		return st
	}
	st, err := stage.NewStage(h.ctx, stage.Config{
		Code:    code,
		Session: h.cfg.Session,
		Logger:  h.logger,
	})
	if err != nil {
		h.logger.Error("create stage", zap.String("code", code), zap.Error(err))
		return nil
	}
	h.stages[code] = st
	h.logger.Info("stage created", zap.String("code", code), zap.Int("stages", len(h.stages)))
	return st
}

// shutdown stops every stage and waits for their loops to exit.
func (h *Hub) shutdown() {
	for _, st := range h.stages {
		stop(st)
	}
	for code, st := range h.stages {
		<-st.Done()
		delete(h.stages, code)
	}
	h.cancel()
}

func stop(st *stage.Stage) {
	select {
	case st.Inbox() <- stage.Shutdown{}:
	case <-st.Done():
	}
}
