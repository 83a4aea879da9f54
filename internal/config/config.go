// Package config loads the client configuration.
//
// Values are layered, later sources winning:
//   - built-in defaults (Default)
//   - a YAML file named by --config or CLIENT_CONFIG
//   - a .env file in the working directory, then CLIENT_* process variables
//   - an experiment preset (--map/--subgroup/--vm) resolving port and agent id
//   - command-line flags that were explicitly set
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/commons-client/internal/action"
)

// ErrHelp is returned by Parse when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

const envPrefix = "CLIENT_"

// Config is the full client configuration.
type Config struct {
	// AgentID is the local agent; only its is_turn flag gates actions.
	AgentID string `yaml:"agent_id"`

	Broker BrokerConfig `yaml:"broker"`
	Topics TopicsConfig `yaml:"topics"`

	// Dialect selects the action wire names: "keys" or "buttons".
	Dialect string `yaml:"dialect"`

	// ShowAllAgents renders every agent's frame instead of only the local one.
	ShowAllAgents bool `yaml:"show_all_agents"`

	Display DisplayConfig `yaml:"display"`

	// Tick is the render loop period.
	Tick time.Duration `yaml:"tick"`

	Audio AudioConfig `yaml:"audio"`
	HTTP  HTTPConfig  `yaml:"http"`

	// Console runs the terminal front-end; logs then go to Log.File.
	Console bool `yaml:"console"`

	Log LogConfig `yaml:"log"`

	// JournalDSN enables the Postgres session journal when set.
	JournalDSN string `yaml:"journal_dsn"`

	Experiment ExperimentConfig `yaml:"experiment"`
}

type BrokerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ClientID       string        `yaml:"client_id"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type TopicsConfig struct {
	Data    string `yaml:"data"`
	Actions string `yaml:"actions"`
	Audio   string `yaml:"audio"`
}

// DisplayConfig sizes the frame pipeline: frames are upscaled to Size and
// then downscaled to ViewSize.
type DisplayConfig struct {
	Size     int `yaml:"size"`
	ViewSize int `yaml:"view_size"`
}

type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	// AutoMute closes the microphone this long after the last
	// communication action.
	AutoMute    time.Duration `yaml:"auto_mute"`
	JoinTimeout time.Duration `yaml:"join_timeout"`
	// MuteToggle is run on every mute and unmute. Empty disables it.
	MuteToggle string `yaml:"mute_toggle"`
}

type HTTPConfig struct {
	// Addr is the control API listen address. Empty disables the server.
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// ExperimentConfig names a lab preset. When Map is set, the broker port and
// agent id are derived from it unless given explicitly on the command line.
type ExperimentConfig struct {
	Map      string `yaml:"map"`
	Subgroup int    `yaml:"subgroup"`
	VM       int    `yaml:"vm"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		AgentID: "1",
		Broker: BrokerConfig{
			Host:           "172.24.98.252",
			Port:           8085,
			KeepAlive:      60 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
		Topics: TopicsConfig{
			Data:    "topic/data",
			Actions: "topic/actions",
			Audio:   "topic/audio",
		},
		Dialect: string(action.DialectKeys),
		Display: DisplayConfig{Size: 1000, ViewSize: 400},
		Tick:    100 * time.Millisecond,
		Audio: AudioConfig{
			Enabled:     true,
			AutoMute:    10 * time.Second,
			JoinTimeout: time.Second,
			MuteToggle:  "xdotool key alt+a",
		},
		HTTP: HTTPConfig{Addr: "127.0.0.1:8090"},
		Log:  LogConfig{File: "commons-client.log"},
	}
}

// Load reads .env and the process environment, then parses args (without
// the program name).
func Load(args []string) (*Config, error) {
	env, err := Environ(".env")
	if err != nil {
		return nil, err
	}
	return Parse(args, env)
}

// Environ merges the dotenv file at path (if present) with the process
// environment. Process variables win, matching godotenv.Load.
func Environ(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		env = make(map[string]string)
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

type flagValues struct {
	config     string
	port       int
	agentID    string
	broker     string
	httpAddr   string
	console    bool
	debug      bool
	dialect    string
	showAll    bool
	mapName    string
	subgroup   int
	vm         int
	journalDSN string
}

func newFlagSet(fv *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet("commons-client", pflag.ContinueOnError)
	fs.StringVar(&fv.config, "config", "", "path to a YAML config file (or CLIENT_CONFIG)")
	fs.IntVar(&fv.port, "port", 0, "broker port")
	fs.StringVar(&fv.agentID, "agent_id", "", "local agent id")
	fs.StringVar(&fv.broker, "broker", "", "broker host")
	fs.StringVar(&fv.httpAddr, "http", "", "control API listen address (empty string disables)")
	fs.BoolVar(&fv.console, "console", false, "run the terminal console")
	fs.BoolVar(&fv.debug, "debug", false, "development logging")
	fs.StringVar(&fv.dialect, "dialect", "", "action wire names: keys or buttons")
	fs.BoolVar(&fv.showAll, "show-all", false, "render every agent's frame")
	fs.StringVar(&fv.mapName, "map", "", "experiment map preset")
	fs.IntVar(&fv.subgroup, "subgroup", 0, "subgroup for the adversarial map (1 or 2)")
	fs.IntVar(&fv.vm, "vm", 0, "lab machine number for map presets")
	fs.StringVar(&fv.journalDSN, "journal", "", "Postgres DSN for the session journal")
	return fs
}

// Usage renders the flag help text.
func Usage() string {
	return newFlagSet(&flagValues{}).FlagUsages()
}

// Parse builds a Config from args and env (KEY=value, CLIENT_* keys).
func Parse(args []string, env map[string]string) (*Config, error) {
	var fv flagValues
	fs := newFlagSet(&fv)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if extra := fs.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", extra[0])
	}

	cfg := Default()

	path := fv.config
	if path == "" {
		path = env[envPrefix+"CONFIG"]
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if fs.Changed("map") {
		cfg.Experiment.Map = fv.mapName
	}
	if fs.Changed("subgroup") {
		cfg.Experiment.Subgroup = fv.subgroup
	}
	if fs.Changed("vm") {
		cfg.Experiment.VM = fv.vm
	}
	if cfg.Experiment.Map != "" {
		p, err := ResolvePreset(cfg.Experiment.Map, cfg.Experiment.Subgroup, cfg.Experiment.VM)
		if err != nil {
			return nil, err
		}
		cfg.Broker.Port = p.Port
		cfg.AgentID = p.AgentID
	}

	if fs.Changed("port") {
		cfg.Broker.Port = fv.port
	}
	if fs.Changed("agent_id") {
		cfg.AgentID = fv.agentID
	}
	if fs.Changed("broker") {
		cfg.Broker.Host = fv.broker
	}
	if fs.Changed("http") {
		cfg.HTTP.Addr = fv.httpAddr
	}
	if fs.Changed("console") {
		cfg.Console = fv.console
	}
	if fs.Changed("debug") {
		cfg.Log.Debug = fv.debug
	}
	if fs.Changed("dialect") {
		cfg.Dialect = fv.dialect
	}
	if fs.Changed("show-all") {
		cfg.ShowAllAgents = fv.showAll
	}
	if fs.Changed("journal") {
		cfg.JournalDSN = fv.journalDSN
	}

	if cfg.Broker.ClientID == "" {
		cfg.Broker.ClientID = "commons-client-" + cfg.AgentID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a YAML file, without env or flags.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv(env map[string]string) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := env[envPrefix+name]; ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := env[envPrefix+name]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := env[envPrefix+name]; ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("AGENT_ID", &c.AgentID)
	str("BROKER", &c.Broker.Host)
	integer("PORT", &c.Broker.Port)
	str("DIALECT", &c.Dialect)
	str("HTTP", &c.HTTP.Addr)
	boolean("CONSOLE", &c.Console)
	boolean("DEBUG", &c.Log.Debug)
	str("LOG_FILE", &c.Log.File)
	str("JOURNAL_DSN", &c.JournalDSN)
	str("MUTE_TOGGLE", &c.Audio.MuteToggle)
	boolean("AUDIO", &c.Audio.Enabled)
	str("MAP", &c.Experiment.Map)
	integer("SUBGROUP", &c.Experiment.Subgroup)
	integer("VM", &c.Experiment.VM)

	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AgentID) == "" {
		errs = append(errs, errors.New("agent_id is required"))
	}
	if c.Broker.Host == "" {
		errs = append(errs, errors.New("broker.host is required"))
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		errs = append(errs, fmt.Errorf("broker.port %d out of range", c.Broker.Port))
	}
	if c.Broker.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("broker.connect_timeout must be positive"))
	}
	if c.Topics.Data == "" || c.Topics.Actions == "" || c.Topics.Audio == "" {
		errs = append(errs, errors.New("topics.data, topics.actions and topics.audio are required"))
	}
	if _, err := action.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, fmt.Errorf("dialect: %w", err))
	}
	if c.Tick <= 0 {
		errs = append(errs, errors.New("tick must be positive"))
	}
	if c.Display.Size <= 0 || c.Display.ViewSize <= 0 {
		errs = append(errs, errors.New("display sizes must be positive"))
	}
	if c.Audio.AutoMute <= 0 {
		errs = append(errs, errors.New("audio.auto_mute must be positive"))
	}
	if c.Audio.JoinTimeout <= 0 {
		errs = append(errs, errors.New("audio.join_timeout must be positive"))
	}
	if c.Console && c.Log.File == "" {
		errs = append(errs, errors.New("log.file is required with the console"))
	}

	return errors.Join(errs...)
}
