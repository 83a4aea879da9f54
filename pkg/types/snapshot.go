package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Snapshot (topic/data), server -> client:
//   { "<agent_id>": AgentSnapshot, ... }
//
// AgentSnapshot:
//   is_turn:      boolean
//   image:        base64 string of a compressed still frame (optional)
//   text:         string shown to the turn holder
//   orientation:  "0" | "1" | "2" | "3" (up, right, down, left), numbers accepted
//   game_started: boolean (control event)
//   end_game:     boolean (control event)

var ErrMalformedSnapshot = errors.New("malformed snapshot")

type Orientation int

const (
	OrientationUp Orientation = iota
	OrientationRight
	OrientationDown
	OrientationLeft
)

// Quarter turns counter-clockwise needed to display a frame for this facing.
func (o Orientation) QuarterTurns() int {
	if o < OrientationUp || o > OrientationLeft {
		return 0
	}
	return int(o)
}

// UnmarshalJSON accepts both "2" and 2. Anything unrecognized decodes as up.
func (o *Orientation) UnmarshalJSON(data []byte) error {
	*o = OrientationUp
	raw := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < int(OrientationUp) || n > int(OrientationLeft) {
		return nil
	}
	*o = Orientation(n)
	return nil
}

type AgentSnapshot struct {
	AgentID     string      `json:"-"`
	IsTurn      bool        `json:"is_turn"`
	Image       string      `json:"image,omitempty"`
	Text        string      `json:"text,omitempty"`
	Orientation Orientation `json:"orientation"`
	GameStarted bool        `json:"game_started,omitempty"`
	EndGame     bool        `json:"end_game,omitempty"`
}

// Snapshot is keyed by agent id. Agents come and go between messages, so
// never rely on ordering.
type Snapshot map[string]AgentSnapshot

type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode snapshot (%d bytes): %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrMalformedSnapshot, e.Err} }

func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, &DecodeError{Size: len(payload), Err: err}
	}
	if snap == nil {
		return nil, &DecodeError{Size: len(payload), Err: errors.New("payload is not an object")}
	}
	for id, agent := range snap {
		agent.AgentID = id
		snap[id] = agent
	}
	return snap, nil
}
