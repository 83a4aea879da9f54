package types

import (
	"fmt"
	"image"
	"net/url"
	"time"

	"github.com/DoyleJ11/commons-client/internal/audio"
	"github.com/DoyleJ11/commons-client/internal/engine"
)

// View is what every front-end renders. The render loop builds a new one
// whenever something visible changes; Frames is never mutated after it is
// published.
type View struct {
	Version      int            `json:"version"`
	AgentID      string         `json:"agent_id"`
	Session      engine.Session `json:"session"`
	CanAct       bool           `json:"can_act"`
	StatusText   string         `json:"status_text"`
	Elapsed      time.Duration  `json:"-"`
	ElapsedLabel string         `json:"elapsed"`       // "MM:SS"
	ElapsedHuman string         `json:"elapsed_human"` // "2m 5s"
	Mic          audio.MicState `json:"mic"`
	PendingKind  string         `json:"pending_message_kind,omitempty"`
	Agents       []string       `json:"agents"` // ids with a frame, sorted

	Frames map[string]image.Image `json:"-"`
}

type ClientMessage struct {
	Type   string `json:"type"` // "action" | "start"
	Action string `json:"action,omitempty"`
}

type ServerMessage struct {
	Type   string            `json:"type"` // "View" | "Error"
	View   *View             `json:"view,omitempty"`
	Frames map[string]string `json:"frames,omitempty"` // agent id -> PNG URL
	Error  string            `json:"error,omitempty"`
}

// ViewMessage wraps v for viewers, pointing each frame at its PNG endpoint.
// The version query keeps browsers from showing a cached frame.
func ViewMessage(v View) ServerMessage {
	frames := make(map[string]string, len(v.Frames))
	for id := range v.Frames {
		frames[id] = fmt.Sprintf("/frames/%s.png?v=%d", url.PathEscape(id), v.Version)
	}
	return ServerMessage{Type: "View", View: &v, Frames: frames}
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: "Error", Error: err.Error()}
}
