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

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/internal/hub"
	"github.com/DoyleJ11/commons-client/internal/types"
)

var errUnknownType = errors.New("unknown message type")

// Submitter accepts operator actions; the render loop implements it.
type Submitter interface {
	Submit(ctx context.Context, a action.Action) error
}

func Handler(h *hub.Hub, sub Submitter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.View, 8)
		clientID := randID(6)
		if !h.Join(clientID, out) {
			return
		}
		defer h.Leave(clientID)
		logger.Debug("viewer connected", zap.String("client_id", clientID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for v := range out {
				if err := writeJSON(writeCtx, conn, types.ViewMessage(v)); err != nil {
					writeCancel()
					return
				}
			}
			// Hub dropped us or shut down.
			conn.Close(websocket.StatusGoingAway, "view stream ended")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					logger.Debug("viewer read ended", zap.String("client_id", clientID), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(writeCtx, conn, types.ErrorMessage(errors.New("bad json")))
				continue
			}

			a, err := toAction(cm)
			if err != nil {
				_ = writeJSON(writeCtx, conn, types.ErrorMessage(err))
				continue
			}
			if err := sub.Submit(writeCtx, a); err != nil {
				_ = writeJSON(writeCtx, conn, types.ErrorMessage(err))
				return
			}
		}
	}
}

func toAction(m types.ClientMessage) (action.Action, error) {
	switch m.Type {
	case "start":
		return action.Start, nil
	case "action":
		return action.ParseName(m.Action)
	default:
		return action.None, errUnknownType
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
