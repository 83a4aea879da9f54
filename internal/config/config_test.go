package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/commons-client/internal/action"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "1", cfg.AgentID)
	assert.Equal(t, 8085, cfg.Broker.Port)
	assert.Equal(t, "topic/data", cfg.Topics.Data)
	assert.Equal(t, 10*time.Second, cfg.Audio.AutoMute)
}

func TestParse_NoInput(t *testing.T) {
	cfg, err := Parse(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.AgentID)
	assert.Equal(t, "commons-client-1", cfg.Broker.ClientID)
}

func TestParse_Layering(t *testing.T) {
	path := writeFile(t, "client.yaml", `
agent_id: "2"
broker:
  host: broker.lab
  port: 1883
tick: 250ms
audio:
  auto_mute: 5s
  mute_toggle: ""
dialect: buttons
`)

	env := map[string]string{
		"CLIENT_CONFIG":   path,
		"CLIENT_AGENT_ID": "3",
		"CLIENT_DEBUG":    "true",
	}

	cfg, err := Parse([]string{"--port", "9001", "--show-all"}, env)
	require.NoError(t, err)

	assert.Equal(t, "3", cfg.AgentID, "env beats file")
	assert.Equal(t, "broker.lab", cfg.Broker.Host, "file beats default")
	assert.Equal(t, 9001, cfg.Broker.Port, "flag beats file")
	assert.Equal(t, 250*time.Millisecond, cfg.Tick)
	assert.Equal(t, 5*time.Second, cfg.Audio.AutoMute)
	assert.Equal(t, time.Second, cfg.Audio.JoinTimeout, "unset keys keep defaults")
	assert.Empty(t, cfg.Audio.MuteToggle)
	assert.Equal(t, string(action.DialectButtons), cfg.Dialect)
	assert.True(t, cfg.Log.Debug)
	assert.True(t, cfg.ShowAllAgents)
}

func TestParse_UnsetFlagsDoNotOverride(t *testing.T) {
	cfg, err := Parse([]string{"--debug"}, map[string]string{"CLIENT_PORT": "8084", "CLIENT_HTTP": ""})
	require.NoError(t, err)
	assert.Equal(t, 8084, cfg.Broker.Port)
	assert.Empty(t, cfg.HTTP.Addr, "empty env value disables the control API")
}

func TestParse_Preset(t *testing.T) {
	cfg, err := Parse([]string{"--map", "Commons Harvest Adversarial", "--subgroup", "2", "--vm", "4"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.Broker.Port)
	assert.Equal(t, "2", cfg.AgentID)

	cfg, err = Parse([]string{"--map", "coins", "--vm", "4", "--agent_id", "7"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8084, cfg.Broker.Port)
	assert.Equal(t, "7", cfg.AgentID, "explicit flag beats preset")

	_, err = Parse([]string{"--map", "commons-harvest-adversarial", "--vm", "4"}, nil)
	assert.ErrorIs(t, err, ErrSubgroupRequired)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "positional", args: []string{"extra"}},
		{name: "bad env int", env: map[string]string{"CLIENT_PORT": "eighty"}},
		{name: "bad env bool", env: map[string]string{"CLIENT_CONSOLE": "sure"}},
		{name: "missing config", args: []string{"--config", "/nonexistent/client.yaml"}},
		{name: "empty agent", args: []string{"--agent_id", " "}},
		{name: "bad dialect", args: []string{"--dialect", "morse"}},
		{name: "bad port", args: []string{"--port", "70000"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.args, tc.env)
			assert.Error(t, err)
		})
	}
}

func TestParse_Help(t *testing.T) {
	_, err := Parse([]string{"--help"}, nil)
	assert.True(t, errors.Is(err, ErrHelp))
	assert.Contains(t, Usage(), "--agent_id")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.AgentID = ""
	cfg.Tick = 0
	cfg.Audio.AutoMute = -time.Second
	cfg.Dialect = "semaphore"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"agent_id", "tick", "auto_mute", "dialect"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEnviron_DotenvAndProcess(t *testing.T) {
	path := writeFile(t, ".env", "CLIENT_AGENT_ID=5\nCLIENT_BROKER=from-file\n")
	t.Setenv("CLIENT_BROKER", "from-process")

	env, err := Environ(path)
	require.NoError(t, err)
	assert.Equal(t, "5", env["CLIENT_AGENT_ID"])
	assert.Equal(t, "from-process", env["CLIENT_BROKER"])

	env, err = Environ(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-process", env["CLIENT_BROKER"])
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "client.yaml", "show_all_agents: true\ndisplay:\n  view_size: 200\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.ShowAllAgents)
	assert.Equal(t, 200, cfg.Display.ViewSize)
	assert.Equal(t, 1000, cfg.Display.Size)
}

func TestResolvePreset(t *testing.T) {
	cases := []struct {
		name     string
		mapName  string
		subgroup int
		vm       int
		want     Preset
		wantErr  error
	}{
		{name: "open", mapName: "Commons Harvest Open", vm: 4, want: Preset{Port: 8084, AgentID: "4"}},
		{name: "adversarial 1, even vm", mapName: "commons-harvest-adversarial", subgroup: 1, vm: 4, want: Preset{Port: 8084, AgentID: "2"}},
		{name: "adversarial 2, odd vm", mapName: "commons-harvest-adversarial", subgroup: 2, vm: 3, want: Preset{Port: 8085, AgentID: "1"}},
		{name: "coins", mapName: "Coins", vm: 2, want: Preset{Port: 8082, AgentID: "1"}},
		{name: "mushrooms", mapName: "Externality  Mushrooms", vm: 6, want: Preset{Port: 8086, AgentID: "1"}},
		{name: "adversarial no subgroup", mapName: "commons-harvest-adversarial", vm: 1, wantErr: ErrSubgroupRequired},
		{name: "unknown", mapName: "chess", vm: 1, wantErr: ErrUnknownMap},
		{name: "no vm", mapName: "coins", wantErr: ErrVMRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolvePreset(tc.mapName, tc.subgroup, tc.vm)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
