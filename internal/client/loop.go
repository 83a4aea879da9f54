// Package client is the render loop: the single goroutine that drains
// snapshots, drives the session engine, renders frames, gates operator
// actions and owns the microphone controller.
package client

import (
	"context"
	"errors"
	"image"
	"maps"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/internal/audio"
	"github.com/DoyleJ11/commons-client/internal/clock"
	"github.com/DoyleJ11/commons-client/internal/engine"
	"github.com/DoyleJ11/commons-client/internal/imaging"
	"github.com/DoyleJ11/commons-client/internal/journal"
	"github.com/DoyleJ11/commons-client/internal/queue"
	itypes "github.com/DoyleJ11/commons-client/internal/types"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	shutdownTimeout     = 3 * time.Second
)

var ErrLoopStopped = errors.New("render loop stopped")

type ActionPublisher interface {
	PublishAction(ctx context.Context, agentID string, a action.Action) error
}

type Microphone interface {
	Trigger(ctx context.Context, a action.Action)
	Mute(ctx context.Context) error
	State() audio.MicState
	PendingKind() string
}

type ViewSink interface {
	Publish(v itypes.View) bool
}

type Journal interface {
	Record(e journal.Entry)
}

type Msg interface{ isLoopMsg() }

// Input is an operator intent from any front-end.
type Input struct{ Action action.Action }

type Shutdown struct{}

func (Input) isLoopMsg()    {}
func (Shutdown) isLoopMsg() {}

type Options struct {
	AgentID       string
	ShowAllAgents bool
	TickInterval  time.Duration
}

type Deps struct {
	Clock     clock.Clock
	Queue     *queue.Inbound[types.Snapshot]
	Pipeline  *imaging.Pipeline
	Publisher ActionPublisher
	Mic       Microphone
	Views     ViewSink
	Journal   Journal
	Scheduler *Scheduler
	Logger    *zap.Logger
}

type Loop struct {
	opts Options
	Deps

	inbox   chan Msg
	ticker  *clock.Ticker
	done    chan struct{}
	imgWarn *rate.Limiter

	state   engine.State
	frames  map[string]image.Image // replaced, never mutated
	version int
	dirty   bool
	label   string
}

func NewLoop(opts Options, deps Deps) *Loop {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if deps.Journal == nil {
		deps.Journal = journal.Nop{}
	}
	return &Loop{
		opts:    opts,
		Deps:    deps,
		inbox:   make(chan Msg, 64),
		ticker:  deps.Clock.NewTicker(opts.TickInterval),
		done:    make(chan struct{}),
		imgWarn: rate.NewLimiter(rate.Every(5*time.Second), 1),
		state:   engine.NewIdleState(),
		frames:  map[string]image.Image{},
		dirty:   true,
		label:   formatClock(0),
	}
}

// Submit hands an operator action to the loop. Whether it is published is
// decided on the loop, against the latest snapshot.
func (l *Loop) Submit(ctx context.Context, a action.Action) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.inbox <- Input{Action: a}:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) Inbox() chan<- Msg { return l.inbox }

func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.ticker.Stop()

	l.Logger.Info("render loop started",
		zap.String("agent_id", l.opts.AgentID),
		zap.Duration("tick", l.opts.TickInterval),
		zap.Bool("show_all_agents", l.opts.ShowAllAgents),
	)
	l.flush()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil

		case <-l.ticker.C:
			l.tick()

		case fn := <-l.Scheduler.C():
			fn(ctx)
			l.flush()

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Input:
				l.handleInput(ctx, msg.Action)
				l.flush()
			case Shutdown:
				l.shutdown()
				return nil
			}
		}
	}
}

func (l *Loop) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.Mic.Mute(ctx); err != nil {
		l.Logger.Warn("mute on shutdown", zap.Error(err))
	}
	l.Logger.Info("render loop stopped")
}

func (l *Loop) tick() {
	now := l.Clock.Now()
	for _, snap := range l.Queue.DrainAll() {
		l.applySnapshot(snap, now)
	}
	if label := formatClock(engine.Elapsed(l.state, now)); label != l.label {
		l.label = label
		l.dirty = true
	}
	l.flush()
}

func (l *Loop) applySnapshot(snap types.Snapshot, now time.Time) {
	events, newState, err := engine.Apply(l.state, engine.Command{
		Type:     engine.CmdSnapshot,
		LocalID:  l.opts.AgentID,
		Snapshot: snap,
		Now:      now,
	})
	if err != nil {
		l.Logger.Error("apply snapshot", zap.Error(err))
		return
	}
	l.state = newState

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtSessionStarted:
			l.Logger.Info("session started")
			l.Journal.Record(journal.Entry{AgentID: l.opts.AgentID, Kind: journal.KindSessionStarted})
			l.dirty = true
		case engine.EvtSessionReset:
			l.Logger.Info("session ended; reset to idle")
			l.Journal.Record(journal.Entry{AgentID: l.opts.AgentID, Kind: journal.KindSessionReset})
			l.frames = map[string]image.Image{}
			l.dirty = true
		case engine.EvtTurnGranted, engine.EvtTurnRevoked, engine.EvtStatusChanged:
			l.dirty = true
		case engine.EvtRenderUpdate:
			l.render(snap)
		}
	}
}

// render transforms the frames this client shows into a fresh map and
// swaps it in. An agent without an image, or whose image fails to decode,
// keeps its previous frame.
func (l *Loop) render(snap types.Snapshot) {
	var ids []string
	if l.opts.ShowAllAgents {
		for id := range snap {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	} else if _, ok := snap[l.opts.AgentID]; ok {
		ids = []string{l.opts.AgentID}
	}
	if len(ids) == 0 {
		return
	}

	next := maps.Clone(l.frames)
	for _, id := range ids {
		agent := snap[id]
		if agent.Image == "" {
			continue
		}
		img, err := l.Pipeline.Transform(agent.Image, agent.Orientation)
		if err != nil {
			if l.imgWarn.Allow() {
				l.Logger.Warn("frame kept after decode failure", zap.String("agent_id", id), zap.Error(err))
			}
			continue
		}
		next[id] = img
	}
	l.frames = next
	l.dirty = true
}

func (l *Loop) handleInput(ctx context.Context, a action.Action) {
	if a == action.Start {
		l.handleStart(ctx)
		return
	}

	// The microphone follows intent, not the turn gate.
	if a.IsCommunication() {
		l.Mic.Trigger(ctx, a)
		l.dirty = true
	}

	_, _, err := engine.Apply(l.state, engine.Command{Type: engine.CmdAction, Action: a, Now: l.Clock.Now()})
	if err != nil {
		l.Logger.Debug("action dropped", zap.String("action", a.String()), zap.Error(err))
		return
	}
	l.publish(ctx, a)
}

func (l *Loop) handleStart(ctx context.Context) {
	events, newState, err := engine.Apply(l.state, engine.Command{Type: engine.CmdStart, Now: l.Clock.Now()})
	if err != nil {
		l.Logger.Debug("start ignored", zap.Error(err))
		return
	}
	l.state = newState
	if engine.ContainsEvent(events, engine.EvtStartRequested) {
		l.publish(ctx, action.Start)
		l.dirty = true
	}
}

func (l *Loop) publish(ctx context.Context, a action.Action) {
	if err := l.Publisher.PublishAction(ctx, l.opts.AgentID, a); err != nil {
		l.Logger.Warn("action publish failed", zap.String("action", a.String()), zap.Error(err))
		return
	}
	l.Journal.Record(journal.Entry{AgentID: l.opts.AgentID, Kind: journal.KindAction, Detail: a.String()})
}

// flush publishes a new view if anything visible changed since the last
// one. A full hub leaves the loop dirty so the next pass retries.
func (l *Loop) flush() {
	if !l.dirty {
		return
	}
	v := l.view(l.Clock.Now())
	if !l.Views.Publish(v) {
		return
	}
	l.version = v.Version
	l.dirty = false
}

func (l *Loop) view(now time.Time) itypes.View {
	elapsed := engine.Elapsed(l.state, now)
	agents := make([]string, 0, len(l.frames))
	for id := range l.frames {
		agents = append(agents, id)
	}
	sort.Strings(agents)

	return itypes.View{
		Version:      l.version + 1,
		AgentID:      l.opts.AgentID,
		Session:      l.state.Session,
		CanAct:       l.state.CanAct,
		StatusText:   l.state.StatusText,
		Elapsed:      elapsed,
		ElapsedLabel: formatClock(elapsed),
		ElapsedHuman: humanize(elapsed),
		Mic:          l.Mic.State(),
		PendingKind:  l.Mic.PendingKind(),
		Agents:       agents,
		Frames:       l.frames,
	}
}
