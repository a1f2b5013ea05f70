// Package config loads the engine configuration and map files, both TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/logger"
	"github.com/zurustar/intvm/pkg/vm"
	"github.com/zurustar/intvm/pkg/world"
)

// Config is the engine configuration (intvm.toml).
type Config struct {
	Log        Log        `toml:"log"`
	VM         VM         `toml:"vm"`
	Dispatcher Dispatcher `toml:"dispatcher"`
	World      World      `toml:"world"`
	Scripts    Scripts    `toml:"scripts"`
	Messages   Messages   `toml:"messages"`
	Sound      Sound      `toml:"sound"`
	Save       Save       `toml:"save"`

	// Dir is the directory of the configuration file; relative paths are
	// resolved against it.
	Dir string `toml:"-"`
}

// Log configures logging.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// VM configures interpreter limits.
type VM struct {
	StackLimit        int  `toml:"stack_limit"`
	CallDepth         int  `toml:"call_depth"`
	InstructionBudget int  `toml:"instruction_budget"`
	Trace             bool `toml:"trace"`
}

// Dispatcher configures event draining.
type Dispatcher struct {
	MaxPasses int `toml:"max_passes"`
}

// World configures the simulation.
type World struct {
	GlobalVars int    `toml:"global_vars"`
	MapVars    int    `toml:"map_vars"`
	LocalVars  int    `toml:"local_vars"`
	PlayerIQ   int32  `toml:"player_iq"`
	MessageLog int    `toml:"message_log"`
	FloatTicks uint32 `toml:"float_ticks"`
	ViewRadius int32  `toml:"view_radius"`
	Seed       uint64 `toml:"seed"`
	// TickRate is the number of simulation ticks per real second.
	TickRate int `toml:"tick_rate"`
	// MapUpdateTicks is the interval of map_update_p_proc.
	MapUpdateTicks uint32 `toml:"map_update_ticks"`
}

// Scripts locates compiled programs.
type Scripts struct {
	Dir      string `toml:"dir"`
	List     string `toml:"list"`
	Encoding string `toml:"encoding"`
}

// Messages locates message lists. Files maps list numbers to file names
// relative to Dir.
type Messages struct {
	Dir      string            `toml:"dir"`
	Encoding string            `toml:"encoding"`
	Files    map[string]string `toml:"files"`
}

// Sound locates sound effects.
type Sound struct {
	Dir   string `toml:"dir"`
	Muted bool   `toml:"muted"`
}

// Save configures variable persistence. An empty Path disables it.
type Save struct {
	Path string `toml:"path"`
	Slot string `toml:"slot"`
	// Restore loads the slot when a map starts.
	Restore bool `toml:"restore"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	wc := world.DefaultConfig()
	return &Config{
		Log: Log{Level: "info", Format: "text"},
		VM: VM{
			StackLimit:        vm.DefaultStackLimit,
			CallDepth:         vm.DefaultCallDepth,
			InstructionBudget: vm.DefaultInstructionBudget,
		},
		Dispatcher: Dispatcher{MaxPasses: event.DefaultMaxPasses},
		World: World{
			GlobalVars:     wc.GlobalVars,
			MapVars:        wc.MapVars,
			LocalVars:      wc.LocalVars,
			PlayerIQ:       wc.PlayerIQ,
			MessageLog:     wc.MessageLog,
			FloatTicks:     wc.FloatTicks,
			ViewRadius:     wc.ViewRadius,
			TickRate:       world.TicksPerSecond,
			MapUpdateTicks: 10 * world.TicksPerSecond,
		},
		Scripts:  Scripts{Dir: "scripts", List: "scripts.lst", Encoding: fileutil.DefaultEncoding},
		Messages: Messages{Dir: "text/english", Encoding: fileutil.DefaultEncoding},
		Sound:    Sound{Dir: "sound/sfx"},
		Save:     Save{Slot: "autosave"},
		Dir:      ".",
	}
}

// Load reads the configuration at path on top of the defaults. Unknown
// keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes a configuration on top of the defaults.
func Parse(data string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	return c, nil
}

// Validate checks values that would make the engine misbehave.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	positive := []struct {
		key string
		v   int
	}{
		{"vm.stack_limit", c.VM.StackLimit},
		{"vm.call_depth", c.VM.CallDepth},
		{"vm.instruction_budget", c.VM.InstructionBudget},
		{"dispatcher.max_passes", c.Dispatcher.MaxPasses},
		{"world.tick_rate", c.World.TickRate},
		{"world.map_update_ticks", int(c.World.MapUpdateTicks)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.key, p.v))
		}
	}
	nonNegative := []struct {
		key string
		v   int
	}{
		{"world.global_vars", c.World.GlobalVars},
		{"world.map_vars", c.World.MapVars},
		{"world.local_vars", c.World.LocalVars},
		{"world.message_log", c.World.MessageLog},
	}
	for _, p := range nonNegative {
		if p.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", p.key, p.v))
		}
	}
	if _, err := fileutil.Encoding(c.Scripts.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("scripts.encoding: %w", err))
	}
	if _, err := fileutil.Encoding(c.Messages.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("messages.encoding: %w", err))
	}
	if _, err := c.MessageFiles(); err != nil {
		errs = append(errs, err)
	}
	if c.Save.Path != "" && c.Save.Slot == "" {
		errs = append(errs, errors.New("save.slot must be set when save.path is"))
	}
	return errors.Join(errs...)
}

// MessageFiles returns messages.files keyed by list number.
func (c *Config) MessageFiles() (map[int32]string, error) {
	files := make(map[int32]string, len(c.Messages.Files))
	for k, name := range c.Messages.Files {
		n, err := strconv.ParseInt(k, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("messages.files: list number %q is not an integer", k)
		}
		files[int32(n)] = name
	}
	return files, nil
}

// WorldConfig returns the world settings.
func (c *Config) WorldConfig() world.Config {
	return world.Config{
		GlobalVars: c.World.GlobalVars,
		MapVars:    c.World.MapVars,
		LocalVars:  c.World.LocalVars,
		PlayerIQ:   c.World.PlayerIQ,
		MessageLog: c.World.MessageLog,
		FloatTicks: c.World.FloatTicks,
		ViewRadius: c.World.ViewRadius,
		Seed:       c.World.Seed,
	}
}

// VMOptions returns the interpreter options.
func (c *Config) VMOptions() []vm.Option {
	return []vm.Option{
		vm.WithStackLimit(c.VM.StackLimit),
		vm.WithCallDepth(c.VM.CallDepth),
		vm.WithInstructionBudget(c.VM.InstructionBudget),
		vm.WithTrace(c.VM.Trace),
	}
}

// TickInterval is the real time between simulation ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(max(c.World.TickRate, 1))
}

// Path resolves p against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
