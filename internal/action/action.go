package action

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownAction = errors.New("unknown action")
var ErrUnknownDialect = errors.New("unknown dialect")

// Action is the closed set of operator intents. Wire strings only appear
// when a Dialect serializes one.
type Action int

const (
	None Action = iota
	MoveUp
	MoveDown
	MoveLeft
	MoveRight
	TurnLeft
	TurnRight
	Attack
	Start
	EnvironmentInformation
	EnvironmentQuestion
	StrategyIndividual
	StrategyCollective
	AgreementRequest
	AgreementEvaluation
)

type Category string

const (
	CategoryNone        Category = ""
	CategoryEnvironment Category = "environment"
	CategoryStrategy    Category = "strategy"
	CategoryAgreement   Category = "agreement"
)

const commPrefix = "msg-"

var names = map[Action]string{
	MoveUp:                 "move-up",
	MoveDown:               "move-down",
	MoveLeft:               "move-left",
	MoveRight:              "move-right",
	TurnLeft:               "turn-left",
	TurnRight:              "turn-right",
	Attack:                 "attack",
	Start:                  "start",
	EnvironmentInformation: "msg-environment-information",
	EnvironmentQuestion:    "msg-environment-question",
	StrategyIndividual:     "msg-strategy-individual",
	StrategyCollective:     "msg-strategy-collective",
	AgreementRequest:       "msg-agreement-request",
	AgreementEvaluation:    "msg-agreement-evaluation",
}

var byName = func() map[string]Action {
	m := make(map[string]Action, len(names))
	for a, n := range names {
		m[n] = a
	}
	return m
}()

// All lists every action in declaration order.
func All() []Action {
	out := make([]Action, 0, len(names))
	for a := MoveUp; a <= AgreementEvaluation; a++ {
		out = append(out, a)
	}
	return out
}

// String returns the URL-safe canonical name, e.g. "move-up".
func (a Action) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseName validates an input-boundary name. Both the canonical form
// ("move-up") and the spaced form ("move up") are accepted.
func ParseName(name string) (Action, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "-")
	if a, ok := byName[key]; ok {
		return a, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func (a Action) IsCommunication() bool {
	return a >= EnvironmentInformation && a <= AgreementEvaluation
}

func (a Action) IsMovement() bool {
	return a >= MoveUp && a <= MoveRight
}

func (a Action) Category() Category {
	switch a {
	case EnvironmentInformation, EnvironmentQuestion:
		return CategoryEnvironment
	case StrategyIndividual, StrategyCollective:
		return CategoryStrategy
	case AgreementRequest, AgreementEvaluation:
		return CategoryAgreement
	default:
		return CategoryNone
	}
}

// MessageKind is the communication tag without its "msg-" prefix, as sent
// alongside recorded audio. Empty for non-communication actions.
func (a Action) MessageKind() string {
	if !a.IsCommunication() {
		return ""
	}
	return strings.TrimPrefix(names[a], commPrefix)
}

// Dialect selects one of the two lexical forms the simulation servers
// accept for movement and attack. A deployment picks exactly one.
type Dialect string

const (
	DialectKeys    Dialect = "keys"    // "move up", "attack"
	DialectButtons Dialect = "buttons" // "up", "firezap"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectKeys, "":
		return DialectKeys, nil
	case DialectButtons:
		return DialectButtons, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, s)
	}
}

// Wire returns the string sent in the "action" field.
func (d Dialect) Wire(a Action) string {
	switch a {
	case MoveUp, MoveDown, MoveLeft, MoveRight:
		dir := strings.TrimPrefix(names[a], "move-")
		if d == DialectButtons {
			return dir
		}
		return "move " + dir
	case Attack:
		if d == DialectButtons {
			return "firezap"
		}
		return "attack"
	case TurnLeft:
		return "turn left"
	case TurnRight:
		return "turn right"
	default:
		return names[a]
	}
}
