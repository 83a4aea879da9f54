// Package console is a terminal front-end: it shows the latest view (status,
// elapsed time, microphone) and turns key presses into operator actions.
// Frames are not drawn here; they are served by the HTTP viewer.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/commons-client/internal/action"
	"github.com/DoyleJ11/commons-client/internal/audio"
	"github.com/DoyleJ11/commons-client/internal/engine"
	"github.com/DoyleJ11/commons-client/internal/types"
)

var (
	// ErrQuit is returned by Run when the operator quits from the console.
	ErrQuit = errors.New("console quit")
	// ErrViewsClosed is returned by Run when the view stream ends while the
	// client is still running, e.g. the hub dropped the console as slow.
	ErrViewsClosed = errors.New("console view stream closed")
)

type Submitter interface {
	Submit(ctx context.Context, a action.Action) error
}

type viewMsg types.View

type viewsClosedMsg struct{}

type submitErrMsg struct{ err error }

type Model struct {
	ctx   context.Context
	keys  KeyMap
	views <-chan types.View
	sub   Submitter
	view  types.View
	err   error
	quit  bool

	viewsClosed bool
}

func NewModel(ctx context.Context, views <-chan types.View, sub Submitter) Model {
	return Model{ctx: ctx, keys: DefaultKeyMap, views: views, sub: sub}
}

func (m Model) Init() tea.Cmd {
	return waitForView(m.views)
}

func waitForView(views <-chan types.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return viewsClosedMsg{}
		}
		return viewMsg(v)
	}
}

func (m Model) submit(a action.Action) tea.Cmd {
	return func() tea.Msg {
		if err := m.sub.Submit(m.ctx, a); err != nil {
			return submitErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = types.View(msg)
		return m, waitForView(m.views)

	case viewsClosedMsg:
		m.viewsClosed = true
		return m, tea.Quit

	case submitErrMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quit = true
			return m, tea.Quit
		}
		if a, ok := m.keys.Action(msg); ok {
			m.err = nil
			return m, m.submit(a)
		}
	}
	return m, nil
}

// Quit reports whether the operator asked to leave.
func (m Model) Quit() bool { return m.quit }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	turnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m Model) View() string {
	v := m.view
	var b strings.Builder

	session := idleStyle.Render(sessionLabel(v.Session))
	if v.Session == engine.SessionActive {
		session = activeStyle.Render(sessionLabel(v.Session))
	}
	fmt.Fprintf(&b, "%s  %s  %s %s\n",
		titleStyle.Render("Agent "+v.AgentID), session, v.ElapsedLabel, faintStyle.Render("("+v.ElapsedHuman+")"))

	if v.CanAct {
		b.WriteString(turnStyle.Render("YOUR TURN"))
	} else {
		b.WriteString(faintStyle.Render("waiting for turn"))
	}
	b.WriteString("\n")

	if v.StatusText != "" {
		b.WriteString(v.StatusText + "\n")
	}

	if v.Mic == audio.Unmuted {
		b.WriteString(recStyle.Render("● REC") + " " + v.PendingKind + "\n")
	} else {
		b.WriteString(faintStyle.Render("mic muted") + "\n")
	}

	if len(v.Agents) > 0 {
		b.WriteString(faintStyle.Render("frames: "+strings.Join(v.Agents, ", ")) + "\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()) + "\n")
	}

	var help []string
	for _, k := range m.keys.helpLine() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString(faintStyle.Render(strings.Join(help, " · ")))

	return boxStyle.Render(b.String()) + "\n"
}

func sessionLabel(s engine.Session) string {
	switch s {
	case engine.SessionActive:
		return "ACTIVE"
	case engine.SessionAwaitingStart:
		return "WAITING FOR START"
	case engine.SessionEnded:
		return "ENDED"
	default:
		return "IDLE"
	}
}

// Run drives the console until ctx ends (nil), the operator quits
// (ErrQuit) or the view stream closes (ErrViewsClosed, nil if ctx ended).
func Run(ctx context.Context, views <-chan types.View, sub Submitter, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(NewModel(ctx, views, sub), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	m, ok := final.(Model)
	switch {
	case !ok:
		return nil
	case m.Quit():
		return ErrQuit
	case m.viewsClosed && ctx.Err() == nil:
		return ErrViewsClosed
	}
	return nil
}
