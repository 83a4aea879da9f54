package engine

import (
	"errors"
	"time"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/pkg/types"
)

var ErrNotActive = errors.New("session not active")
var ErrNotYourTurn = errors.New("not your turn")
var ErrAlreadyActive = errors.New("session already active")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Session string

const (
	SessionIdle          Session = "idle"
	SessionAwaitingStart Session = "awaiting_start"
	SessionActive        Session = "active"
	SessionEnded         Session = "ended"
)

// State is everything the render loop needs to decide what to show and
// whether the operator may act. Only Apply produces new values.
type State struct {
	Session    Session
	StartTime  time.Time // zero until the session is running
	CanAct     bool
	StatusText string
}

type CommandType string

const (
	CmdStart    CommandType = "Start"
	CmdSnapshot CommandType = "Snapshot"
	CmdAction   CommandType = "Action"
)

/*
	CmdStart    -> EvtStartRequested                      (Idle, AwaitingStart)
	CmdSnapshot -> EvtSessionEnded -> EvtSessionReset      (end_game anywhere)
	            -> EvtSessionStarted [-> EvtClockStarted]  (game_started, not Active)
	            -> EvtTurnGranted | EvtTurnRevoked, EvtStatusChanged, EvtRenderUpdate
	CmdAction   -> EvtActionAuthorized                    (Active and local is_turn)
*/

type Command struct {
	Type     CommandType
	LocalID  string
	Snapshot types.Snapshot
	Action   action.Action
	Now      time.Time
}

type EventType string

const (
	EvtStartRequested   EventType = "StartRequested"
	EvtSessionStarted   EventType = "SessionStarted"
	EvtClockStarted     EventType = "ClockStarted"
	EvtSessionEnded     EventType = "SessionEnded"
	EvtSessionReset     EventType = "SessionReset"
	EvtTurnGranted      EventType = "TurnGranted"
	EvtTurnRevoked      EventType = "TurnRevoked"
	EvtStatusChanged    EventType = "StatusChanged"
	EvtRenderUpdate     EventType = "RenderUpdate"
	EvtActionAuthorized EventType = "ActionAuthorized"
)

type Event struct {
	Type   EventType
	Text   string
	Action action.Action
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStart:
		if s.Session == SessionActive {
			return nil, s, ErrAlreadyActive
		}
		newState := s
		newState.Session = SessionAwaitingStart
		return []Event{{Type: EvtStartRequested}}, newState, nil

	case CmdSnapshot:
		switch controlOf(cmd.Snapshot) {
		case controlEndGame:
			events, newState := reset(s)
			return events, newState, nil
		case controlGameStarted:
			if s.Session != SessionActive {
				events, newState := start(s, cmd.Now)
				return events, newState, nil
			}
			// Already running: an ordinary update that happens to repeat the flag.
		}
		events, newState := render(s, cmd)
		return events, newState, nil

	case CmdAction:
		// Gate only on our own flag; the snapshot may mark several agents.
		if s.Session != SessionActive {
			return nil, s, ErrNotActive
		}
		if !s.CanAct {
			return nil, s, ErrNotYourTurn
		}
		return []Event{{Type: EvtActionAuthorized, Action: cmd.Action}}, s, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// reset collapses Active -> Ended -> Idle. Resetting an idle session only
// re-clears state.
func reset(s State) ([]Event, State) {
	newState := NewIdleState()
	if s.Session == SessionIdle {
		return nil, newState
	}
	return []Event{{Type: EvtSessionEnded}, {Type: EvtSessionReset}}, newState
}

func start(s State, now time.Time) ([]Event, State) {
	newState := s
	newState.Session = SessionActive
	events := []Event{{Type: EvtSessionStarted}}
	if newState.StartTime.IsZero() {
		newState.StartTime = now
		events = append(events, Event{Type: EvtClockStarted})
	}
	return events, newState
}

func render(s State, cmd Command) ([]Event, State) {
	var events []Event
	newState := s

	local, ok := cmd.Snapshot[cmd.LocalID]
	canAct := ok && local.IsTurn
	switch {
	case canAct && !s.CanAct:
		events = append(events, Event{Type: EvtTurnGranted})
	case !canAct && s.CanAct:
		events = append(events, Event{Type: EvtTurnRevoked})
	}
	newState.CanAct = canAct

	// Status text is only surfaced to the turn holder; otherwise the last
	// one stays on screen.
	if canAct && local.Text != s.StatusText {
		newState.StatusText = local.Text
		events = append(events, Event{Type: EvtStatusChanged, Text: local.Text})
	}

	if s.Session == SessionActive {
		if newState.StartTime.IsZero() {
			newState.StartTime = cmd.Now
			events = append(events, Event{Type: EvtClockStarted})
		}
		events = append(events, Event{Type: EvtRenderUpdate})
	}
	return events, newState
}
