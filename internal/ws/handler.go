package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/hub"
	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
	"github.com/DoyleJ11/narrative-engine/internal/visibility"
	"github.com/DoyleJ11/narrative-engine/pkg/types"
)

var errUnknownType = errors.New("unknown type")

type Options struct {
	Logger *zap.Logger
	// OutboxSize is the per-client snapshot buffer. A client that falls this
	// far behind is dropped by its stage.
	OutboxSize int
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutboxSize < 1 {
		opts.OutboxSize = 16
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *stage.Stage, 1)
		h.Inbox() <- hub.GetStage{Code: code, Reply: reply}
		st := <-reply
		if st == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan narrative.Snapshot, opts.OutboxSize)
		clientID := randID(6)
		log := logger.With(zap.String("code", code), zap.String("client", clientID))

		select {
		case st.Inbox() <- stage.Join{ClientID: clientID, Outbox: out}:
		case <-st.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer func() {
			select {
			case st.Inbox() <- stage.Leave{ClientID: clientID}:
			case <-st.Done():
			}
		}()
		log.Info("client connected")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// The stage closed our outbox: we left, were too slow or it shut down.
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					if err := writeJSON(writeCtx, conn, ServerSnapshot(snap)); err != nil {
						log.Debug("write snapshot", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, 60*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected")
				default:
					log.Debug("read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(writeCtx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			msg, err := ToStageMsg(cm)
			if err != nil {
				_ = writeJSON(writeCtx, conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
				continue
			}

			select {
			case st.Inbox() <- msg:
			case <-st.Done():
				return
			}
		}
	}
}

// ToStageMsg maps a client message onto the stage inbox. Commands are sent
// without a reply; their effect shows up in the next snapshot.
func ToStageMsg(m types.ClientMessage) (stage.Msg, error) {
	switch m.Type {
	case types.MsgKey:
		if m.Key == "" {
			return nil, errors.New("missing key")
		}
		return stage.Key{Raw: m.Key}, nil
	case types.MsgViewport:
		return stage.Viewport{Event: toViewportEvent(m)}, nil
	case types.MsgActivate:
		return stage.Command{Kind: stage.CmdActivate, Arg: m.Experience}, nil
	case types.MsgJump:
		return stage.Command{Kind: stage.CmdJump, Arg: m.Section}, nil
	case types.MsgNext:
		return stage.Command{Kind: stage.CmdNext}, nil
	case types.MsgPrev:
		return stage.Command{Kind: stage.CmdPrev}, nil
	case types.MsgPause:
		return stage.Command{Kind: stage.CmdPause}, nil
	case types.MsgConfirm:
		return stage.Command{Kind: stage.CmdConfirm}, nil
	case types.MsgClose:
		return stage.Command{Kind: stage.CmdClose}, nil
	default:
		return nil, errUnknownType
	}
}

func toViewportEvent(m types.ClientMessage) visibility.Event {
	kind := visibility.EventScroll
	if m.Kind == string(visibility.EventResize) {
		kind = visibility.EventResize
	}
	ev := visibility.Event{
		Kind:     kind,
		Viewport: visibility.Viewport{ScrollY: m.ScrollY, Height: m.Height},
	}
	if len(m.Bounds) > 0 {
		ev.Bounds = make(map[string]visibility.Rect, len(m.Bounds))
		for id, r := range m.Bounds {
			ev.Bounds[id] = visibility.Rect{Top: r.Top, Height: r.Height}
		}
	}
	return ev
}

// ServerSnapshot wraps a session snapshot for the wire.
func ServerSnapshot(s narrative.Snapshot) types.ServerMessage {
	lines := s.Lines
	if lines == nil {
		lines = []string{}
	}
	return types.ServerMessage{
		Type:    types.MsgSnapshot,
		Version: s.Version,
		Snapshot: &types.Snapshot{
			Experience: s.Experience,
			PhaseID:    s.PhaseID,
			Index:      s.Index,
			Total:      s.Total,
			Section:    s.Section,
			Paused:     s.Paused,
			Terminal:   s.Terminal,
			Text:       s.Text,
			Lines:      lines,
			Opacity:    s.Opacity,
			Trigger:    s.Trigger,
			LastClose:  string(s.LastClose),
		},
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
