package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
)

func newHub(t *testing.T) *Hub {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	h := NewHub(context.Background(), Config{Session: narrative.Config{Catalog: cat}})
	t.Cleanup(func() {
		done := make(chan struct{})
		h.Inbox() <- ShutdownHub{Done: done}
		<-done
	})
	return h
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newHub(t)
	reply := make(chan *stage.Stage, 1)

	h.Inbox() <- CreateStage{Code: "ZED123", Reply: reply}
	st1 := <-reply

	h.Inbox() <- GetStage{Code: "ZED123", Reply: reply}
	st2 := <-reply

	require.NotNil(t, st1)
	assert.Same(t, st1, st2)
	assert.Equal(t, "ZED123", st1.Code())

	h.Inbox() <- EnsureStage{Code: "ZED123", Reply: reply}
	assert.Same(t, st1, <-reply)
}

func TestHub_GetUnknownIsNil(t *testing.T) {
	h := newHub(t)
	reply := make(chan *stage.Stage, 1)
	h.Inbox() <- GetStage{Code: "NOPE00", Reply: reply}
	assert.Nil(t, <-reply)
}

func TestHub_RemoveStopsStage(t *testing.T) {
	h := newHub(t)
	reply := make(chan *stage.Stage, 1)
	h.Inbox() <- CreateStage{Code: "AAA111", Reply: reply}
	st := <-reply
	require.NotNil(t, st)

	removed := make(chan bool, 1)
	h.Inbox() <- RemoveStage{Code: "AAA111", Reply: removed}
	assert.True(t, <-removed)

	select {
	case <-st.Done():
	case <-time.After(time.Second):
		t.Fatal("removed stage still running")
	}

	h.Inbox() <- RemoveStage{Code: "AAA111", Reply: removed}
	assert.False(t, <-removed)

	codes := make(chan []string, 1)
	h.Inbox() <- ListStages{Reply: codes}
	assert.Empty(t, <-codes)
}

func TestHub_ShutdownStopsAllStages(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	h := NewHub(context.Background(), Config{Session: narrative.Config{Catalog: cat}})

	reply := make(chan *stage.Stage, 1)
	var stages []*stage.Stage
	for _, code := range []string{"B00001", "A00001"} {
		h.Inbox() <- CreateStage{Code: code, Reply: reply}
		stages = append(stages, <-reply)
	}

	codes := make(chan []string, 1)
	h.Inbox() <- ListStages{Reply: codes}
	assert.Equal(t, []string{"A00001", "B00001"}, <-codes)

	done := make(chan struct{})
	h.Inbox() <- ShutdownHub{Done: done}
	<-done
	for _, st := range stages {
		select {
		case <-st.Done():
		default:
			t.Fatalf("stage %s still running after hub shutdown", st.Code())
		}
	}
}
