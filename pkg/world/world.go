// Package world is the simulation state reachable from script opcodes.
//
// World implements vm.World on top of a generation-checked entity arena.
// Every scripted reaction (use, look, talk, timers, map hooks) is scheduled
// on an event.Dispatcher and runs when the engine drains it, never from
// inside the caller.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/logger"
	"github.com/zurustar/intvm/pkg/vm"
)

// ErrNoObject is returned for handles that do not resolve to a live object.
var ErrNoObject = errors.New("world: no such object")

// Programs resolves script references to shared compiled programs.
type Programs interface {
	ByName(name string) (*vm.Program, error)
	ByID(sid int32) (*vm.Program, error)
}

// Catalog looks up lines of message list files.
type Catalog interface {
	Lookup(file, num int32) (string, bool)
}

// Sound plays sound effects by name.
type Sound interface {
	Play(name string)
}

// Config holds the sizes and limits of a World.
type Config struct {
	GlobalVars int
	MapVars    int
	LocalVars  int
	// PlayerIQ is used when the player object has no critter stats.
	PlayerIQ int32
	// MessageLog is the number of display messages kept.
	MessageLog int
	// FloatTicks is how long a floating message stays over its object.
	FloatTicks uint32
	// ViewRadius is the tile distance from the player considered on screen.
	ViewRadius int32
	// Seed seeds the random number generator. Zero picks a random seed.
	Seed uint64
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		GlobalVars: 1024,
		MapVars:    64,
		LocalVars:  16,
		PlayerIQ:   5,
		MessageLog: 100,
		FloatTicks: 50,
		ViewRadius: 20,
	}
}

// World is the object arena plus the game state scripts can reach.
// It is driven from the simulation goroutine only.
type World struct {
	cfg Config

	objects *entity.Arena[*object]
	protos  map[int32]Spec
	dude    entity.Handle

	machine  *vm.VM
	dispatch *event.Dispatcher
	programs Programs
	catalog  Catalog
	sound    Sound
	rng      *rand.Rand

	clock   clock
	timers  timerQueue
	globals []int32
	mapVars []int32

	messages *messageLog
	floats   map[entity.Handle]FloatMessage
	dialog   DialogState
	start    Start
	exp      int32

	log *slog.Logger
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

// WithVM sets the VM used to create script instances.
func WithVM(machine *vm.VM) Option {
	return func(w *World) {
		w.machine = machine
	}
}

// WithDispatcher sets the dispatcher that runs scripted reactions.
func WithDispatcher(d *event.Dispatcher) Option {
	return func(w *World) {
		w.dispatch = d
	}
}

// WithPrograms sets the program library used to attach scripts.
func WithPrograms(p Programs) Option {
	return func(w *World) {
		w.programs = p
	}
}

// WithCatalog sets the message lists used by message_str.
func WithCatalog(c Catalog) Option {
	return func(w *World) {
		w.catalog = c
	}
}

// WithSound sets the sound effect player.
func WithSound(s Sound) Option {
	return func(w *World) {
		w.sound = s
	}
}

// New creates an empty world.
func New(cfg Config, opts ...Option) *World {
	w := &World{
		cfg:     cfg,
		objects: entity.NewArena[*object](),
		globals: make([]int32, cfg.GlobalVars),
		mapVars: make([]int32, cfg.MapVars),
		floats:  make(map[entity.Handle]FloatMessage),
		clock:   newClock(),
	}
	w.messages = newMessageLog(cfg.MessageLog)

	for _, opt := range opts {
		opt(w)
	}

	if w.log == nil {
		w.log = logger.For("WORLD")
	}
	if w.machine == nil {
		w.machine = vm.New()
	}
	if w.dispatch == nil {
		w.dispatch = event.NewDispatcher(event.WithLiveness(w.Alive))
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	w.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))

	return w
}

// Dispatcher returns the dispatcher scripted reactions are scheduled on.
func (w *World) Dispatcher() *event.Dispatcher {
	return w.dispatch
}

// Alive reports whether h refers to a live object.
func (w *World) Alive(h entity.Handle) bool {
	return w.objects.Valid(h)
}

// Len returns the number of live objects.
func (w *World) Len() int {
	return w.objects.Len()
}

// Script returns the script attached to h, if any.
func (w *World) Script(h entity.Handle) (*vm.Script, bool) {
	o, ok := w.objects.Get(h)
	if !ok || o.script == nil {
		return nil, false
	}
	return o.script, true
}

// Experience returns the experience points given to the player.
func (w *World) Experience() int32 {
	return w.exp
}

// SetExperience sets the experience points, for restoring saved games.
func (w *World) SetExperience(points int32) {
	w.exp = points
}

// Object implements vm.Objects.
func (w *World) Object(h entity.Handle) (vm.Object, bool) {
	o, ok := w.objects.Get(h)
	if !ok {
		return nil, false
	}
	return o, true
}

// Dude returns the player object.
func (w *World) Dude() entity.Handle {
	return w.dude
}

// MoveTo places an object on the map, taking it out of any container.
func (w *World) MoveTo(h entity.Handle, tile, elevation int32) error {
	o, ok := w.objects.Get(h)
	if !ok {
		return fmt.Errorf("move %v: %w", h, ErrNoObject)
	}
	if !validTile(tile) {
		return vm.NewOutOfRangeError("tile", int(tile), GridWidth*GridHeight)
	}
	if elevation < 0 || elevation >= Elevations {
		return vm.NewOutOfRangeError("elevation", int(elevation), Elevations)
	}
	w.takeOut(o)
	o.tile = tile
	o.elevation = elevation
	return nil
}

// OnScreen reports whether h is near enough to the player to be visible.
func (w *World) OnScreen(h entity.Handle) bool {
	o, ok := w.objects.Get(h)
	if !ok || !o.container.IsZero() {
		return false
	}
	dude, ok := w.objects.Get(w.dude)
	if !ok {
		return false
	}
	return o.elevation == dude.elevation && w.TileDistance(o.tile, dude.tile) <= w.cfg.ViewRadius
}

// PlaySound plays a sound effect.
func (w *World) PlaySound(name string) {
	w.log.Debug("play_sfx", "sound", name)
	if w.sound != nil {
		w.sound.Play(name)
	}
}

// GiveExp adds experience points to the player.
func (w *World) GiveExp(points int32) {
	w.exp += points
	w.Display(fmt.Sprintf("You gain %d experience points.", points))
}

// Random returns a number in [min, max].
func (w *World) Random(min, max int32) int32 {
	if max <= min {
		return min
	}
	return min + int32(w.rng.Int64N(int64(max)-int64(min)+1))
}

var _ vm.World = (*World)(nil)
