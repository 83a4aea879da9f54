// Package hub fans the render loop's views out to every attached viewer
// (websocket sessions, the terminal console) and answers point-in-time
// reads for the HTTP API.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/commons-client/internal/types"
)

type Msg interface{ isHubMsg() }

type Join struct {
	ClientID string
	Outbox   chan types.View // where this viewer wants to receive views
}

type Leave struct{ ClientID string }

type Publish struct{ View types.View }

type GetState struct {
	Reply chan State
}

type Shutdown struct{}

func (Join) isHubMsg()     {}
func (Leave) isHubMsg()    {}
func (Publish) isHubMsg()  {}
func (GetState) isHubMsg() {}
func (Shutdown) isHubMsg() {}

type State struct {
	NumClients int
	View       types.View
}

type Hub struct {
	inbox   chan Msg
	latest  types.View
	clients map[string]chan types.View
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan types.View),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Publish hands v to the hub without blocking. It reports false when the
// hub is backed up, in which case the caller should retry on its next tick.
func (h *Hub) Publish(v types.View) bool {
	select {
	case h.inbox <- Publish{View: v}:
		return true
	default:
		return false
	}
}

// Join registers out under id. It reports false if the hub has shut down.
func (h *Hub) Join(id string, out chan types.View) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- Join{ClientID: id, Outbox: out}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Leave(id string) {
	select {
	case h.inbox <- Leave{ClientID: id}:
	case <-h.ctx.Done():
	}
}

// View returns the latest published view.
func (h *Hub) View(ctx context.Context) (types.View, error) {
	reply := make(chan State, 1)
	select {
	case h.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return types.View{}, ctx.Err()
	case <-h.ctx.Done():
		return types.View{}, h.ctx.Err()
	}
	select {
	case st := <-reply:
		return st.View, nil
	case <-ctx.Done():
		return types.View{}, ctx.Err()
	case <-h.ctx.Done():
		return types.View{}, h.ctx.Err()
	}
}

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				if h.latest.Version > 0 {
					h.send(msg.ClientID, msg.Outbox, h.latest)
				}

			case Leave:
				delete(h.clients, msg.ClientID)

			case Publish:
				if msg.View.Version <= h.latest.Version {
					break
				}
				h.latest = msg.View
				for id, ch := range h.clients {
					h.send(id, ch, msg.View)
				}

			case GetState:
				msg.Reply <- State{NumClients: len(h.clients), View: h.latest}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // no more views
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) send(id string, ch chan types.View, v types.View) {
	select {
	case ch <- v:
	default:
		// Slow viewer: drop it rather than stall the fan-out.
		close(ch)
		delete(h.clients, id)
		h.logger.Info("dropped slow viewer", zap.String("client_id", id))
	}
}
