package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/engine"
	"github.com/DoyleJ11/narrative-engine/internal/hub"
	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
	"github.com/DoyleJ11/narrative-engine/internal/visibility"
	"github.com/DoyleJ11/narrative-engine/pkg/types"
)

func TestToStageMsg(t *testing.T) {
	cases := []struct {
		in   types.ClientMessage
		want stage.Msg
	}{
		{types.ClientMessage{Type: "key", Key: "ArrowUp"}, stage.Key{Raw: "ArrowUp"}},
		{types.ClientMessage{Type: "activate", Experience: "tour"}, stage.Command{Kind: stage.CmdActivate, Arg: "tour"}},
		{types.ClientMessage{Type: "jump", Section: "pricing"}, stage.Command{Kind: stage.CmdJump, Arg: "pricing"}},
		{types.ClientMessage{Type: "next"}, stage.Command{Kind: stage.CmdNext}},
		{types.ClientMessage{Type: "prev"}, stage.Command{Kind: stage.CmdPrev}},
		{types.ClientMessage{Type: "pause"}, stage.Command{Kind: stage.CmdPause}},
		{types.ClientMessage{Type: "confirm"}, stage.Command{Kind: stage.CmdConfirm}},
		{types.ClientMessage{Type: "close"}, stage.Command{Kind: stage.CmdClose}},
	}
	for _, tc := range cases {
		got, err := ToStageMsg(tc.in)
		require.NoError(t, err, tc.in.Type)
		assert.Equal(t, tc.want, got, tc.in.Type)
	}

	_, err := ToStageMsg(types.ClientMessage{Type: "dance"})
	assert.ErrorIs(t, err, errUnknownType)
	_, err = ToStageMsg(types.ClientMessage{Type: "key"})
	assert.Error(t, err)
}

func TestToStageMsg_Viewport(t *testing.T) {
	got, err := ToStageMsg(types.ClientMessage{
		Type:    "viewport",
		Kind:    "resize",
		ScrollY: 120,
		Height:  800,
		Bounds:  map[string]types.Rect{"panel": {Top: 900, Height: 200}},
	})
	require.NoError(t, err)

	vp, ok := got.(stage.Viewport)
	require.True(t, ok)
	assert.Equal(t, visibility.EventResize, vp.Event.Kind)
	assert.Equal(t, visibility.Viewport{ScrollY: 120, Height: 800}, vp.Event.Viewport)
	assert.Equal(t, visibility.Rect{Top: 900, Height: 200}, vp.Event.Bounds["panel"])
}

func TestServerSnapshot(t *testing.T) {
	msg := ServerSnapshot(narrative.Snapshot{
		Version:    7,
		Experience: "tour",
		PhaseID:    "welcome",
		Index:      0,
		Total:      4,
		Opacity:    1,
		LastClose:  engine.ReasonCompleted,
	})
	assert.Equal(t, types.MsgSnapshot, msg.Type)
	assert.Equal(t, 7, msg.Version)
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, "tour", msg.Snapshot.Experience)
	assert.Equal(t, "completed", msg.Snapshot.LastClose)
	assert.NotNil(t, msg.Snapshot.Lines)
}

func TestHandler_RejectsMissingAndUnknownCode(t *testing.T) {
	h := newHub(t)
	handler := Handler(h, Options{})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ws?code=NOPE00", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_StreamsSnapshots(t *testing.T) {
	h := newHub(t)
	reply := make(chan *stage.Stage, 1)
	h.Inbox() <- hub.CreateStage{Code: "ABC123", Reply: reply}
	require.NotNil(t, <-reply)

	srv := httptest.NewServer(Handler(h, Options{}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=ABC123"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first types.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, types.MsgSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, -1, first.Snapshot.Index)

	require.NoError(t, wsjson.Write(ctx, conn, types.ClientMessage{Type: "activate", Experience: "tour"}))
	for {
		var msg types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Snapshot != nil && msg.Snapshot.Experience == "tour" {
			assert.Equal(t, "welcome", msg.Snapshot.PhaseID)
			break
		}
	}

	require.NoError(t, wsjson.Write(ctx, conn, types.ClientMessage{Type: "bogus"}))
	for {
		var msg types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == types.MsgError {
			assert.Equal(t, "unknown type", msg.Error)
			break
		}
	}
}

func TestHandler_DisconnectReleasesWriter(t *testing.T) {
	h := newHub(t)
	reply := make(chan *stage.Stage, 1)
	h.Inbox() <- hub.CreateStage{Code: "ABC123", Reply: reply}
	st := <-reply
	require.NotNil(t, st)

	srv := httptest.NewServer(Handler(h, Options{}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=ABC123"

	cycle := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, url, nil)
		require.NoError(t, err)
		var first types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &first))
		require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	}

	// Warm up the client transport before taking the baseline.
	cycle()
	require.Eventually(t, func() bool { return numClients(st) == 0 }, 2*time.Second, 10*time.Millisecond)
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		cycle()
	}

	require.Eventually(t, func() bool { return numClients(st) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+3 }, 2*time.Second, 20*time.Millisecond,
		"goroutines before=%d now=%d", before, runtime.NumGoroutine())
}

// numClients asks the stage for its client count, or -1 if it does not answer.
func numClients(st *stage.Stage) int {
	reply := make(chan stage.View, 1)
	st.Inbox() <- stage.GetState{Reply: reply}
	select {
	case v := <-reply:
		return v.NumClients
	case <-time.After(time.Second):
		return -1
	}
}

func newHub(t *testing.T) *hub.Hub {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	h := hub.NewHub(context.Background(), hub.Config{Session: narrative.Config{Catalog: cat}})
	t.Cleanup(func() {
		done := make(chan struct{})
		h.Inbox() <- hub.ShutdownHub{Done: done}
		<-done
	})
	return h
}
