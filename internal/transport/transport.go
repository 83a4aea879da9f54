// Package transport is the publish/subscribe channel between this client
// and the simulation server. The production implementation is an MQTT
// broker client; Memory is an in-process broker for tests.
package transport

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConnected = errors.New("transport not connected")
var ErrConnectTimeout = errors.New("connect timed out")
var ErrClosed = errors.New("transport closed")

// Handler receives raw payloads on the transport's delivery goroutine. It
// must not block for long; deliveries on one topic arrive in order.
type Handler func(payload []byte)

type Transport interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
	// Publish is fire-and-forget: it never waits for a broker
	// acknowledgement, and only reports failures known immediately.
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

type TransportError struct {
	Op    string // "connect", "subscribe", "publish"
	Topic string
	Err   error
}

func (e *TransportError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
