package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

// Scheduler runs fn after d on the goroutine that owns the Controller.
// cancel prevents a pending fn from running.
type Scheduler interface {
	After(d time.Duration, fn func(ctx context.Context)) (cancel func())
}

type Capturer interface {
	Start(kind string) error
	Stop() (*Clip, error)
}

type ClipSender interface {
	PublishAudio(ctx context.Context, msg types.AudioMessage) error
}

// ClipInfo describes a published clip.
type ClipInfo struct {
	MessageKind  string
	Duration     time.Duration
	EncodedBytes int
}

// Controller is the microphone state machine. It is not safe for
// concurrent use; every method runs on the render loop.
type Controller struct {
	agentID  string
	capturer Capturer
	toggle   MuteToggle
	sender   ClipSender
	sched    Scheduler
	window   time.Duration
	logger   *zap.Logger

	// OnPublished, if set, is called after a clip is sent.
	OnPublished func(ClipInfo)

	state       MicState
	pendingKind string
	gen         uint64
	cancel      func()
}

func NewController(agentID string, capturer Capturer, toggle MuteToggle, sender ClipSender, sched Scheduler, window time.Duration, logger *zap.Logger) *Controller {
	if window <= 0 {
		window = DefaultAutoMute
	}
	if toggle == nil {
		toggle = NopToggle{}
	}
	return &Controller{
		agentID:  agentID,
		capturer: capturer,
		toggle:   toggle,
		sender:   sender,
		sched:    sched,
		window:   window,
		logger:   logger,
		state:    Muted,
	}
}

func (c *Controller) State() MicState { return c.state }

// PendingKind is the message kind of the clip being recorded, or "".
func (c *Controller) PendingKind() string { return c.pendingKind }

// Trigger reacts to a communication action. While muted it unmutes and
// starts recording; while unmuted it only pushes the auto-mute deadline out
// by a full window. Non-communication actions are ignored.
func (c *Controller) Trigger(ctx context.Context, a action.Action) {
	if !a.IsCommunication() {
		return
	}

	if c.state == Unmuted {
		c.arm()
		c.logger.Debug("auto-mute extended", zap.String("action", a.String()))
		return
	}

	kind := a.MessageKind()
	if err := c.toggle.Toggle(ctx); err != nil {
		c.logger.Warn("unmute toggle failed", zap.Error(err))
	}
	if err := c.capturer.Start(kind); err != nil {
		c.logger.Error("capture start failed", zap.String("message_kind", kind), zap.Error(err))
	}
	c.state = Unmuted
	c.pendingKind = kind
	c.arm()
	c.logger.Info("microphone unmuted", zap.String("message_kind", kind), zap.Duration("window", c.window))
}

func (c *Controller) arm() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	gen := c.gen
	c.cancel = c.sched.After(c.window, func(ctx context.Context) {
		c.expire(ctx, gen)
	})
}

func (c *Controller) expire(ctx context.Context, gen uint64) {
	if gen != c.gen || c.state != Unmuted {
		return
	}
	c.cancel = nil
	if err := c.Mute(ctx); err != nil {
		c.logger.Warn("auto-mute", zap.Error(err))
	}
}

// Mute stops recording and publishes the clip. It is a no-op while muted.
// An empty capture publishes nothing.
func (c *Controller) Mute(ctx context.Context) error {
	if c.state != Unmuted {
		return nil
	}
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	clip, stopErr := c.capturer.Stop()
	switch {
	case errors.Is(stopErr, ErrCaptureJoinTimeout):
		c.logger.Warn("capture join timed out; publishing partial clip")
	case errors.Is(stopErr, ErrNotRecording):
	case stopErr != nil:
		c.logger.Warn("capture stop", zap.Error(stopErr))
	}

	kind := c.pendingKind
	c.state = Muted
	c.pendingKind = ""

	pubErr := c.publish(ctx, kind, clip)

	if err := c.toggle.Toggle(ctx); err != nil {
		c.logger.Warn("mute toggle failed", zap.Error(err))
	}
	c.logger.Info("microphone muted", zap.String("message_kind", kind))
	return pubErr
}

func (c *Controller) publish(ctx context.Context, kind string, clip *Clip) error {
	if clip.Empty() {
		c.logger.Info("no audio captured", zap.String("message_kind", kind))
		return nil
	}

	wavBytes, err := EncodeWAV(clip.Samples())
	if err != nil {
		return err
	}
	msg := types.AudioMessage{
		Audio:       base64.StdEncoding.EncodeToString(wavBytes),
		AgentID:     c.agentID,
		MessageKind: kind,
	}
	if err := c.sender.PublishAudio(ctx, msg); err != nil {
		return err
	}
	if c.OnPublished != nil {
		c.OnPublished(ClipInfo{MessageKind: kind, Duration: clip.Duration(), EncodedBytes: len(msg.Audio)})
	}
	return nil
}
