package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MuteToggle flips the operator's external mute control (for example the
// voice-chat client's push-to-talk hotkey).
type MuteToggle interface {
	Toggle(ctx context.Context) error
}

type CommandToggle struct {
	Argv []string
}

// NewCommandToggle splits command on whitespace. An empty command disables
// the toggle.
func NewCommandToggle(command string) MuteToggle {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return NopToggle{}
	}
	return &CommandToggle{Argv: argv}
}

func (t *CommandToggle) Toggle(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.Argv[0], t.Argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mute toggle %q: %w (%s)", strings.Join(t.Argv, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

type NopToggle struct{}

func (NopToggle) Toggle(context.Context) error { return nil }
