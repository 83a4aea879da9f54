package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type MQTTOptions struct {
	Host           string
	Port           int
	ClientID       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

func (o MQTTOptions) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

type MQTT struct {
	client mqtt.Client
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[string]Handler
	closed bool
}

// DialMQTT connects and returns once the broker has accepted the session.
// Subscriptions are replayed on every reconnect.
func DialMQTT(ctx context.Context, opts MQTTOptions, logger *zap.Logger) (*MQTT, error) {
	t := &MQTT{
		logger: logger,
		subs:   make(map[string]Handler),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL()).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("broker connection lost", zap.Error(err))
		})
	t.client = mqtt.NewClient(clientOpts)

	logger.Info("connecting to broker", zap.String("broker", opts.BrokerURL()), zap.String("client_id", opts.ClientID))
	token := t.client.Connect()
	if err := wait(ctx, token, opts.ConnectTimeout); err != nil {
		t.client.Disconnect(0)
		return nil, &TransportError{Op: "connect", Topic: opts.BrokerURL(), Err: err}
	}
	return t, nil
}

func (t *MQTT) onConnect(c mqtt.Client) {
	t.mu.Lock()
	subs := make(map[string]Handler, len(t.subs))
	for topic, h := range t.subs {
		subs[topic] = h
	}
	t.mu.Unlock()

	t.logger.Info("connected to broker", zap.Int("subscriptions", len(subs)))
	for topic, h := range subs {
		token := c.Subscribe(topic, 0, deliver(h))
		go func(topic string) {
			token.Wait()
			if err := token.Error(); err != nil {
				t.logger.Error("resubscribe failed", zap.String("topic", topic), zap.Error(err))
			}
		}(topic)
	}
}

func (t *MQTT) Subscribe(ctx context.Context, topic string, handler Handler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return &TransportError{Op: "subscribe", Topic: topic, Err: ErrClosed}
	}
	t.subs[topic] = handler
	t.mu.Unlock()

	token := t.client.Subscribe(topic, 0, deliver(handler))
	if err := wait(ctx, token, 0); err != nil {
		return &TransportError{Op: "subscribe", Topic: topic, Err: err}
	}
	return nil
}

func (t *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: "publish", Topic: topic, Err: err}
	}
	if !t.client.IsConnectionOpen() {
		return &TransportError{Op: "publish", Topic: topic, Err: ErrNotConnected}
	}

	token := t.client.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return &TransportError{Op: "publish", Topic: topic, Err: err}
		}
		return nil
	default:
	}

	// Still in flight; report late failures to the log only.
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			t.logger.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

func (t *MQTT) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.client.Disconnect(250)
	t.logger.Info("disconnected from broker")
	return nil
}

func deliver(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		h(m.Payload())
	}
}

// wait blocks on token until it completes, ctx ends, or timeout elapses
// (timeout <= 0 waits on ctx alone).
func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrConnectTimeout
	}
}
