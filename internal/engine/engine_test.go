package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func snapshotCmd(snap types.Snapshot, now time.Time) Command {
	return Command{Type: CmdSnapshot, LocalID: "1", Snapshot: snap, Now: now}
}

func activeState() State {
	return State{Session: SessionActive, StartTime: t0}
}

func TestStart_FromIdleAndAwaiting(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		wantErr error
	}{
		{name: "idle requests start", setup: NewIdleState()},
		{name: "awaiting resends start", setup: State{Session: SessionAwaitingStart}},
		{name: "active rejects start", setup: activeState(), wantErr: ErrAlreadyActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, Command{Type: CmdStart})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				if next != tc.setup {
					t.Fatalf("state must be unchanged on error, got %+v", next)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.Session != SessionAwaitingStart {
				t.Fatalf("want awaiting_start, got %v", next.Session)
			}
			if !ContainsEvent(events, EvtStartRequested) {
				t.Fatalf("expected EvtStartRequested, got %+v", events)
			}
		})
	}
}

func TestGameStarted_StartsSessionAndClock(t *testing.T) {
	cases := []struct {
		name  string
		setup State
	}{
		{name: "from idle (late join)", setup: NewIdleState()},
		{name: "from awaiting start", setup: State{Session: SessionAwaitingStart}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := types.Snapshot{"1": {AgentID: "1", GameStarted: true}}
			events, next, err := Apply(tc.setup, snapshotCmd(snap, t0))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.Session != SessionActive {
				t.Fatalf("want active, got %v", next.Session)
			}
			if !next.StartTime.Equal(t0) {
				t.Fatalf("want start time %v, got %v", t0, next.StartTime)
			}
			if !ContainsEvent(events, EvtSessionStarted) || !ContainsEvent(events, EvtClockStarted) {
				t.Fatalf("expected started + clock events, got %+v", events)
			}
			if ContainsEvent(events, EvtRenderUpdate) {
				t.Fatalf("control snapshot must not render")
			}
		})
	}
}

func TestGameStarted_WhileActiveIsRenderUpdate(t *testing.T) {
	snap := types.Snapshot{"1": {AgentID: "1", GameStarted: true, IsTurn: true}}
	events, next, err := Apply(activeState(), snapshotCmd(snap, t0.Add(time.Minute)))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ContainsEvent(events, EvtSessionStarted) {
		t.Fatalf("must not restart an active session")
	}
	if !ContainsEvent(events, EvtRenderUpdate) {
		t.Fatalf("expected render update, got %+v", events)
	}
	if !next.StartTime.Equal(t0) {
		t.Fatalf("start time must not move, got %v", next.StartTime)
	}
	if !next.CanAct {
		t.Fatalf("turn flag should be applied")
	}
}

func TestEndGame_ResetsToIdle(t *testing.T) {
	setup := activeState()
	setup.CanAct = true
	setup.StatusText = "harvest the apples"

	snap := types.Snapshot{"1": {AgentID: "1", EndGame: true}}
	events, next, err := Apply(setup, snapshotCmd(snap, t0.Add(time.Minute)))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next != NewIdleState() {
		t.Fatalf("want cleared idle state, got %+v", next)
	}
	if !ContainsEvent(events, EvtSessionEnded) || !ContainsEvent(events, EvtSessionReset) {
		t.Fatalf("expected ended + reset events, got %+v", events)
	}
}

func TestEndGame_WhileIdleIsNoOp(t *testing.T) {
	snap := types.Snapshot{"1": {AgentID: "1", EndGame: true}}
	events, next, err := Apply(NewIdleState(), snapshotCmd(snap, t0))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("want no events, got %+v", events)
	}
	if next != NewIdleState() {
		t.Fatalf("want idle, got %+v", next)
	}
}

func TestEndGame_TakesPrecedenceOverGameStarted(t *testing.T) {
	snap := types.Snapshot{
		"1": {AgentID: "1", GameStarted: true},
		"2": {AgentID: "2", EndGame: true},
		"3": {AgentID: "3", GameStarted: true},
	}
	// Map order is random; repeat to catch order dependence.
	for i := 0; i < 50; i++ {
		_, next, err := Apply(State{Session: SessionAwaitingStart}, snapshotCmd(snap, t0))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if next.Session != SessionIdle {
			t.Fatalf("iteration %d: want idle, got %v", i, next.Session)
		}
	}
}

func TestRestartAfterReset_FreshStartTime(t *testing.T) {
	_, s, _ := Apply(NewIdleState(), snapshotCmd(types.Snapshot{"1": {GameStarted: true}}, t0))
	_, s, _ = Apply(s, snapshotCmd(types.Snapshot{"1": {EndGame: true}}, t0.Add(time.Minute)))
	later := t0.Add(5 * time.Minute)
	_, s, _ = Apply(s, snapshotCmd(types.Snapshot{"1": {GameStarted: true}}, later))

	if s.Session != SessionActive {
		t.Fatalf("want active, got %v", s.Session)
	}
	if !s.StartTime.Equal(later) {
		t.Fatalf("want fresh start time %v, got %v", later, s.StartTime)
	}
}

func TestTurnGate(t *testing.T) {
	cases := []struct {
		name       string
		setup      State
		snap       types.Snapshot
		wantCanAct bool
		wantText   string
		wantEvent  EventType
	}{
		{
			name:       "local agent holds turn",
			setup:      activeState(),
			snap:       types.Snapshot{"1": {IsTurn: true, Text: "go"}, "2": {}},
			wantCanAct: true,
			wantText:   "go",
			wantEvent:  EvtTurnGranted,
		},
		{
			name:       "other agent holds turn",
			setup:      State{Session: SessionActive, StartTime: t0, CanAct: true, StatusText: "old"},
			snap:       types.Snapshot{"1": {Text: "hidden"}, "2": {IsTurn: true, Text: "theirs"}},
			wantCanAct: false,
			wantText:   "old",
			wantEvent:  EvtTurnRevoked,
		},
		{
			name:       "local agent missing",
			setup:      State{Session: SessionActive, StartTime: t0, CanAct: true},
			snap:       types.Snapshot{"2": {IsTurn: true}},
			wantCanAct: false,
			wantEvent:  EvtTurnRevoked,
		},
		{
			name:       "several agents flagged, gate on ours only",
			setup:      activeState(),
			snap:       types.Snapshot{"1": {IsTurn: true}, "2": {IsTurn: true}},
			wantCanAct: true,
			wantEvent:  EvtTurnGranted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, snapshotCmd(tc.snap, t0))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.CanAct != tc.wantCanAct {
				t.Fatalf("CanAct: got %v, want %v", next.CanAct, tc.wantCanAct)
			}
			if next.StatusText != tc.wantText {
				t.Fatalf("StatusText: got %q, want %q", next.StatusText, tc.wantText)
			}
			if !ContainsEvent(events, tc.wantEvent) {
				t.Fatalf("expected %v in %+v", tc.wantEvent, events)
			}
		})
	}
}

func TestRenderUpdate_OnlyWhileActive(t *testing.T) {
	snap := types.Snapshot{"1": {IsTurn: true}}

	events, next, _ := Apply(NewIdleState(), snapshotCmd(snap, t0))
	if ContainsEvent(events, EvtRenderUpdate) {
		t.Fatalf("idle session must not render")
	}
	if !next.CanAct || !next.StartTime.IsZero() {
		t.Fatalf("gate updates but clock stays off while idle: %+v", next)
	}

	events, next, _ = Apply(State{Session: SessionActive}, snapshotCmd(snap, t0))
	if !ContainsEvent(events, EvtRenderUpdate) || !ContainsEvent(events, EvtClockStarted) {
		t.Fatalf("first active render starts clock, got %+v", events)
	}
	if !next.StartTime.Equal(t0) {
		t.Fatalf("want start time %v, got %v", t0, next.StartTime)
	}
}

func TestAction_Gating(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		wantErr error
	}{
		{name: "active with turn", setup: State{Session: SessionActive, CanAct: true}},
		{name: "active without turn", setup: State{Session: SessionActive}, wantErr: ErrNotYourTurn},
		{name: "idle with stale turn", setup: State{Session: SessionIdle, CanAct: true}, wantErr: ErrNotActive},
		{name: "awaiting start", setup: State{Session: SessionAwaitingStart, CanAct: true}, wantErr: ErrNotActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, _, err := Apply(tc.setup, Command{Type: CmdAction, Action: action.MoveUp})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(events) != 1 || events[0].Type != EvtActionAuthorized || events[0].Action != action.MoveUp {
				t.Fatalf("expected authorized MoveUp, got %+v", events)
			}
		})
	}
}

func TestApply_UnsupportedCommand(t *testing.T) {
	_, _, err := Apply(NewIdleState(), Command{Type: "Bogus"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestElapsed(t *testing.T) {
	if got := Elapsed(NewIdleState(), t0); got != 0 {
		t.Fatalf("idle elapsed: got %v", got)
	}
	if got := Elapsed(activeState(), t0.Add(75*time.Second)); got != 75*time.Second {
		t.Fatalf("active elapsed: got %v", got)
	}
}
