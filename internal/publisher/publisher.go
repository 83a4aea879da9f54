// Package publisher serializes operator actions and recorded audio onto
// their outbound topics.
package publisher

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/internal/transport"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

const (
	DefaultActionTopic = "topic/actions"
	DefaultAudioTopic  = "topic/audio"
)

type Publisher struct {
	t           transport.Transport
	actionTopic string
	audioTopic  string
	dialect     action.Dialect
	logger      *zap.Logger
}

type Option func(*Publisher)

func WithTopics(actions, audio string) Option {
	return func(p *Publisher) {
		if actions != "" {
			p.actionTopic = actions
		}
		if audio != "" {
			p.audioTopic = audio
		}
	}
}

func WithDialect(d action.Dialect) Option {
	return func(p *Publisher) { p.dialect = d }
}

func New(t transport.Transport, logger *zap.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		t:           t,
		actionTopic: DefaultActionTopic,
		audioTopic:  DefaultAudioTopic,
		dialect:     action.DialectKeys,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishAction sends one action for agentID. It does not consult the turn
// gate; callers authorize first (Start is the one ungated action).
func (p *Publisher) PublishAction(ctx context.Context, agentID string, a action.Action) error {
	msg := types.ActionMessage{AgentID: agentID, Action: p.dialect.Wire(a)}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.t.Publish(ctx, p.actionTopic, payload); err != nil {
		return err
	}
	p.logger.Debug("action published", zap.String("agent_id", agentID), zap.String("action", msg.Action))
	return nil
}

func (p *Publisher) PublishAudio(ctx context.Context, msg types.AudioMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.t.Publish(ctx, p.audioTopic, payload); err != nil {
		return err
	}
	p.logger.Info("audio published",
		zap.String("agent_id", msg.AgentID),
		zap.String("message_kind", msg.MessageKind),
		zap.Int("encoded_bytes", len(msg.Audio)),
	)
	return nil
}
