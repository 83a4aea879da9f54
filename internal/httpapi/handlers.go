package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/internal/client"
	"github.com/DoyleJ11/commons-client/internal/hub"
	"github.com/DoyleJ11/commons-client/internal/imaging"
	"github.com/DoyleJ11/commons-client/internal/types"
	"github.com/DoyleJ11/commons-client/internal/ws"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func GetView(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.View(r.Context())
		if err != nil {
			http.Error(w, "view unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, types.ViewMessage(v))
	}
}

func GetFrame(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutSuffix(chi.URLParam(r, "frame"), ".png")
		if !ok {
			http.NotFound(w, r)
			return
		}
		v, err := h.View(r.Context())
		if err != nil {
			http.Error(w, "view unavailable", http.StatusServiceUnavailable)
			return
		}
		img, ok := v.Frames[id]
		if !ok {
			http.Error(w, "no frame for agent", http.StatusNotFound)
			return
		}

		var buf bytes.Buffer
		if err := imaging.EncodePNG(&buf, img); err != nil {
			logger.Error("encode frame", zap.String("agent_id", id), zap.Error(err))
			http.Error(w, "failed to encode frame", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(buf.Bytes())
	}
}

func PostStart(sub ws.Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submit(w, r, sub, action.Start)
	}
}

// PostAction accepts canonical names ("move-up", "msg-strategy-collective")
// and the spaced form ("move up"). Acceptance does not mean the action was
// published: the turn gate decides that on the render loop.
func PostAction(sub ws.Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := action.ParseName(chi.URLParam(r, "action"))
		if err != nil || a == action.Start {
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		}
		submit(w, r, sub, a)
	}
}

func submit(w http.ResponseWriter, r *http.Request, sub ws.Submitter, a action.Action) {
	if err := sub.Submit(r.Context(), a); err != nil {
		if errors.Is(err, client.ErrLoopStopped) {
			http.Error(w, "client shutting down", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, http.StatusAccepted, struct {
		Action string `json:"action"`
	}{Action: a.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
