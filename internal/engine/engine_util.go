package engine

import (
	"time"

	"github.com/DoyleJ11/commons-client/pkg/types"
)

func NewIdleState() State {
	return State{Session: SessionIdle}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Elapsed is the running session time, zero when no clock is running.
func Elapsed(s State, now time.Time) time.Duration {
	if s.Session != SessionActive || s.StartTime.IsZero() || now.Before(s.StartTime) {
		return 0
	}
	return now.Sub(s.StartTime)
}

type control int

const (
	controlNone control = iota
	controlGameStarted
	controlEndGame
)

// controlOf scans every agent entry. end_game anywhere wins over
// game_started, independent of map iteration order.
func controlOf(snap types.Snapshot) control {
	found := controlNone
	for _, agent := range snap {
		if agent.EndGame {
			return controlEndGame
		}
		if agent.GameStarted {
			found = controlGameStarted
		}
	}
	return found
}
