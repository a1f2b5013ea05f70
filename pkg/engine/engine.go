// Package engine hosts the simulation. It owns the world, its dispatcher
// and the VM, advances them one tick at a time and feeds them input.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zurustar/intvm/pkg/config"
	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/logger"
	"github.com/zurustar/intvm/pkg/store"
	"github.com/zurustar/intvm/pkg/vm"
	"github.com/zurustar/intvm/pkg/world"
)

// ErrTerminated is returned when the engine is terminated.
var ErrTerminated = errors.New("engine terminated")

// Engine runs one map of the world.
type Engine struct {
	cfg      *config.Config
	world    *world.World
	dispatch *event.Dispatcher
	machine  *vm.VM

	programs world.Programs
	catalog  world.Catalog
	sound    world.Sound
	store    *store.Store

	mapName     string
	loaded      bool
	sinceUpdate uint32
	pacer       *pacer

	headless   bool
	terminated atomic.Bool
	timeout    time.Duration
	startTime  time.Time

	log *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithHeadless marks the engine as running without a window.
func WithHeadless(headless bool) Option {
	return func(e *Engine) {
		e.headless = headless
	}
}

// WithTimeout stops the engine after d. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithPrograms sets the program library scripts are loaded from.
func WithPrograms(p world.Programs) Option {
	return func(e *Engine) {
		e.programs = p
	}
}

// WithCatalog sets the message lists.
func WithCatalog(c world.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithSound sets the sound effect player.
func WithSound(s world.Sound) Option {
	return func(e *Engine) {
		e.sound = s
	}
}

// WithStore sets the save database. Without one nothing is persisted.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// New creates an engine with an empty world.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.For("ENGINE")
	}

	e.machine = vm.New(cfg.VMOptions()...)
	e.dispatch = event.NewDispatcher(
		event.WithMaxPasses(cfg.Dispatcher.MaxPasses),
		event.WithLiveness(func(h entity.Handle) bool { return e.world.Alive(h) }),
	)

	wopts := []world.Option{world.WithVM(e.machine), world.WithDispatcher(e.dispatch)}
	if e.programs != nil {
		wopts = append(wopts, world.WithPrograms(e.programs))
	}
	if e.catalog != nil {
		wopts = append(wopts, world.WithCatalog(e.catalog))
	}
	if e.sound != nil {
		wopts = append(wopts, world.WithSound(e.sound))
	}
	e.world = world.New(cfg.WorldConfig(), wopts...)
	return e, nil
}

// World returns the simulation state.
func (e *Engine) World() *world.World {
	return e.world
}

// Dispatcher returns the dispatcher that runs scripted reactions and input.
func (e *Engine) Dispatcher() *event.Dispatcher {
	return e.dispatch
}

// MapName returns the name of the loaded map.
func (e *Engine) MapName() string {
	return e.mapName
}

// IsHeadless returns whether the engine runs without a window.
func (e *Engine) IsHeadless() bool {
	return e.headless
}

// Start records the start time used by the timeout and the tick pacer.
func (e *Engine) Start() {
	e.startTime = time.Now()
	e.pacer = newPacer(e.cfg.TickInterval(), e.startTime, e.cfg.World.TickRate)
	e.log.Info("Engine started", "map", e.mapName, "headless", e.headless, "timeout", e.timeout)
}

// Terminate requests the engine to stop.
func (e *Engine) Terminate() {
	if !e.terminated.Load() {
		e.terminated.Store(true)
		e.log.Info("Engine termination requested")
	}
}

// IsTerminated returns whether termination was requested.
func (e *Engine) IsTerminated() bool {
	return e.terminated.Load()
}

// CheckTermination reports whether the engine should stop, terminating it
// when the timeout has passed.
func (e *Engine) CheckTermination() bool {
	if e.terminated.Load() {
		return true
	}
	if e.timeout > 0 && !e.startTime.IsZero() {
		if elapsed := time.Since(e.startTime); elapsed >= e.timeout {
			e.log.Info("Timeout exceeded", "elapsed", elapsed)
			e.Terminate()
			return true
		}
	}
	return false
}

// Shutdown saves the variables to the store, if one is configured.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Terminate()
	if e.store == nil || !e.loaded {
		return nil
	}
	return e.Save(ctx)
}
