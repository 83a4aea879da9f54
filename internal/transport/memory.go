package transport

import (
	"context"
	"sync"
)

// Memory delivers publishes synchronously to subscribers in the same
// process and keeps a copy of everything published, per topic.
type Memory struct {
	mu        sync.Mutex
	subs      map[string][]Handler
	published map[string][][]byte
	closed    bool

	// PublishErr, when set, fails every Publish call.
	PublishErr error
}

func NewMemory() *Memory {
	return &Memory{
		subs:      make(map[string][]Handler),
		published: make(map[string][][]byte),
	}
}

func (m *Memory) Subscribe(ctx context.Context, topic string, handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &TransportError{Op: "subscribe", Topic: topic, Err: ErrClosed}
	}
	m.subs[topic] = append(m.subs[topic], handler)
	return nil
}

func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return &TransportError{Op: "publish", Topic: topic, Err: ErrClosed}
	}
	if m.PublishErr != nil {
		err := m.PublishErr
		m.mu.Unlock()
		return &TransportError{Op: "publish", Topic: topic, Err: err}
	}
	msg := append([]byte(nil), payload...)
	m.published[topic] = append(m.published[topic], msg)
	handlers := append([]Handler(nil), m.subs[topic]...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

// Published returns the payloads sent to topic, oldest first.
func (m *Memory) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published[topic]...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
