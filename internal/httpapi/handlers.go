package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/hub"
	"github.com/DoyleJ11/narrative-engine/internal/stage"
	"github.com/DoyleJ11/narrative-engine/pkg/types"
)

// maxCodeAttempts bounds retries on code collisions.
const maxCodeAttempts = 16

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateSession(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for attempt := 0; ; attempt++ {
			if attempt == maxCodeAttempts {
				writeError(w, http.StatusServiceUnavailable, "no free session code")
				return
			}
			c, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			reply := make(chan *stage.Stage, 1)
			h.Inbox() <- hub.GetStage{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			logger.Debug("collision on code, regenerating", zap.String("code", c))
		}

		reply := make(chan *stage.Stage, 1)
		h.Inbox() <- hub.EnsureStage{Code: code, Reply: reply}
		if <-reply == nil {
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

// ListSessions reports the codes of every live session, sorted.
func ListSessions(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		h.Inbox() <- hub.ListStages{Reply: reply}
		writeJSON(w, http.StatusOK, struct {
			Codes []string `json:"codes"`
		}{Codes: <-reply})
	}
}

func DeleteSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan bool, 1)
		h.Inbox() <- hub.RemoveStage{Code: chi.URLParam(r, "code"), Reply: reply}
		if !<-reply {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListExperiences(cat *catalog.Catalog) http.HandlerFunc {
	infos := make([]types.ExperienceInfo, 0, len(cat.Names()))
	for _, name := range cat.Names() {
		exp, _ := cat.Get(name)
		info := types.ExperienceInfo{
			Name:     exp.Name,
			Sections: exp.Sequence.Sections(),
		}
		for _, p := range exp.Sequence.Phases() {
			info.Phases = append(info.Phases, p.ID)
		}
		switch {
		case exp.Word != "":
			info.Trigger = "word"
		case len(exp.Code) > 0:
			info.Trigger = "code"
		}
		if exp.Overlay != nil {
			info.Overlay = string(exp.Overlay.Mode)
		}
		infos = append(infos, info)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, infos)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ServerMessage{Type: types.MsgError, Error: msg})
}
