package console

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DoyleJ11/commons-client/internal/action"
)

// KeyMap binds keys to operator actions. Movement, attack and turning
// follow the arrow/space/z/x layout; q through y send the six
// communication tags.
type KeyMap struct {
	MoveUp    key.Binding
	MoveDown  key.Binding
	MoveLeft  key.Binding
	MoveRight key.Binding
	Attack    key.Binding
	TurnLeft  key.Binding
	TurnRight key.Binding
	Start     key.Binding

	EnvironmentInformation key.Binding
	EnvironmentQuestion    key.Binding
	StrategyIndividual     key.Binding
	StrategyCollective     key.Binding
	AgreementRequest       key.Binding
	AgreementEvaluation    key.Binding

	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	MoveUp:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
	MoveDown:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
	MoveLeft:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
	MoveRight: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
	Attack:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "attack")),
	TurnLeft:  key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "turn left")),
	TurnRight: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "turn right")),
	Start:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),

	EnvironmentInformation: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "env info")),
	EnvironmentQuestion:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "env question")),
	StrategyIndividual:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "strategy (self)")),
	StrategyCollective:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "strategy (team)")),
	AgreementRequest:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "agreement req")),
	AgreementEvaluation:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "agreement eval")),

	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
}

func (k KeyMap) bindings() []struct {
	binding key.Binding
	action  action.Action
} {
	return []struct {
		binding key.Binding
		action  action.Action
	}{
		{k.MoveUp, action.MoveUp},
		{k.MoveDown, action.MoveDown},
		{k.MoveLeft, action.MoveLeft},
		{k.MoveRight, action.MoveRight},
		{k.Attack, action.Attack},
		{k.TurnLeft, action.TurnLeft},
		{k.TurnRight, action.TurnRight},
		{k.Start, action.Start},
		{k.EnvironmentInformation, action.EnvironmentInformation},
		{k.EnvironmentQuestion, action.EnvironmentQuestion},
		{k.StrategyIndividual, action.StrategyIndividual},
		{k.StrategyCollective, action.StrategyCollective},
		{k.AgreementRequest, action.AgreementRequest},
		{k.AgreementEvaluation, action.AgreementEvaluation},
	}
}

// Action maps a key press to an operator action.
func (k KeyMap) Action(msg tea.KeyMsg) (action.Action, bool) {
	for _, b := range k.bindings() {
		if key.Matches(msg, b.binding) {
			return b.action, true
		}
	}
	return action.None, false
}

func (k KeyMap) helpLine() []key.Binding {
	return []key.Binding{
		k.Start, k.MoveUp, k.MoveDown, k.MoveLeft, k.MoveRight, k.Attack, k.TurnLeft, k.TurnRight,
		k.EnvironmentInformation, k.EnvironmentQuestion, k.StrategyIndividual,
		k.StrategyCollective, k.AgreementRequest, k.AgreementEvaluation, k.Quit,
	}
}
