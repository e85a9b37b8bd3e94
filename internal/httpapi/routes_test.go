package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/hub"
	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/observability"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
	"github.com/DoyleJ11/narrative-engine/pkg/types"
)

func setup(t *testing.T) (http.Handler, *hub.Hub) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	h := hub.NewHub(context.Background(), hub.Config{Session: narrative.Config{Catalog: cat}})
	t.Cleanup(func() {
		done := make(chan struct{})
		h.Inbox() <- hub.ShutdownHub{Done: done}
		<-done
	})
	return SetupRoutes(Deps{Hub: h, Catalog: cat}), h
}

func TestGenerateCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestHealthz(t *testing.T) {
	r, _ := setup(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndDeleteSession(t *testing.T) {
	r, h := setup(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Code, 6)

	reply := make(chan *stage.Stage, 1)
	h.Inbox() <- hub.GetStage{Code: body.Code, Reply: reply}
	require.NotNil(t, <-reply)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+body.Code, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	h.Inbox() <- hub.GetStage{Code: body.Code, Reply: reply}
	assert.Nil(t, <-reply)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+body.Code, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessions(t *testing.T) {
	r, h := setup(t)

	list := func() []string {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Codes []string `json:"codes"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Codes
	}
	assert.Empty(t, list())

	for _, code := range []string{"ZZZ999", "AAA111"} {
		reply := make(chan *stage.Stage, 1)
		h.Inbox() <- hub.CreateStage{Code: code, Reply: reply}
		require.NotNil(t, <-reply)
	}
	assert.Equal(t, []string{"AAA111", "ZZZ999"}, list())
}

func TestListExperiences(t *testing.T) {
	r, _ := setup(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiences", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []types.ExperienceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))

	byName := map[string]types.ExperienceInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	require.Contains(t, byName, "tour")
	assert.Equal(t, []string{"welcome", "features", "pricing", "outro"}, byName["tour"].Phases)
	assert.Equal(t, []string{"intro", "features", "pricing"}, byName["tour"].Sections)
	assert.Equal(t, "word", byName["matrix"].Trigger)
	assert.Equal(t, "distance", byName["matrix"].Overlay)
	assert.Equal(t, "code", byName["konami"].Trigger)
}

func TestMetricsEndpoint(t *testing.T) {
	observability.RegisterMetrics()
	observability.RecordActivation("tour")

	r, _ := setup(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "narrative_experience_activations_total"))
}

func TestWSRequiresCode(t *testing.T) {
	r, _ := setup(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
