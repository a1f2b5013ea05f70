package event

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/logger"
)

// DefaultMaxPasses bounds the number of passes one Drain makes.
const DefaultMaxPasses = 64

// ErrPassLimit is returned by Drain when handlers kept scheduling new tasks
// for more than the configured number of passes. The remaining tasks stay
// pending for the next Drain.
var ErrPassLimit = errors.New("event: drain pass limit reached")

type task struct {
	target   entity.Handle
	event    Event
	handlers []Handler
}

// Dispatcher queues (target, event, handlers) tasks and runs them later,
// once per simulation tick, through Drain.
//
// Targets are weak: a task whose target has been invalidated, or whose
// target the liveness probe reports dead, is skipped without running any
// handler. Scheduling never runs a handler synchronously.
type Dispatcher struct {
	mu        sync.Mutex
	pending   []*task
	inflight  []*task
	draining  bool
	maxPasses int
	alive     func(entity.Handle) bool
	log       *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithMaxPasses sets the pass limit of Drain. Values below 1 are ignored.
func WithMaxPasses(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxPasses = n
		}
	}
}

// WithLiveness installs a probe consulted before each handler. Tasks whose
// target it reports dead are skipped even if nobody invalidated them.
func WithLiveness(alive func(entity.Handle) bool) Option {
	return func(d *Dispatcher) {
		d.alive = alive
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{maxPasses: DefaultMaxPasses}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.For("EVENT")
	}
	return d
}

// Schedule queues ev for target. The handlers run in order during a later
// Drain. A zero or already dead target is accepted; the task is skipped.
func (d *Dispatcher) Schedule(target entity.Handle, ev Event, handlers ...Handler) {
	if ev == nil || len(handlers) == 0 {
		return
	}
	t := &task{target: target, event: ev, handlers: handlers}

	d.mu.Lock()
	d.pending = append(d.pending, t)
	d.mu.Unlock()
}

// Invalidate removes every pending task addressed to target and detaches
// target from tasks of the pass in progress so they are skipped. It returns
// the number of pending tasks removed.
func (d *Dispatcher) Invalidate(target entity.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.pending[:0]
	for _, t := range d.pending {
		if t.target != target {
			kept = append(kept, t)
		}
	}
	removed := len(d.pending) - len(kept)
	clear(d.pending[len(kept):])
	d.pending = kept

	for _, t := range d.inflight {
		if t.target == target {
			t.target = entity.Handle{}
		}
	}
	return removed
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// PendingFor returns the number of queued tasks addressed to target.
func (d *Dispatcher) PendingFor(target entity.Handle) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, t := range d.pending {
		if t.target == target {
			n++
		}
	}
	return n
}

// Drain runs queued tasks in passes. Each pass takes every pending task, runs
// them in FIFO order and then starts over with whatever the handlers
// scheduled, until nothing is pending. Drain called from inside a handler
// returns immediately; the outer Drain picks up the new tasks.
func (d *Dispatcher) Drain() error {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return nil
	}
	d.draining = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()

	for pass := 0; ; pass++ {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return nil
		}
		if pass >= d.maxPasses {
			n := len(d.pending)
			d.mu.Unlock()
			d.log.Warn("Drain stopped at pass limit", "passes", pass, "deferred", n)
			return fmt.Errorf("%w: %d tasks deferred", ErrPassLimit, n)
		}
		d.inflight, d.pending = d.pending, d.inflight
		tasks := d.inflight
		d.mu.Unlock()

		for _, t := range tasks {
			d.perform(t)
		}

		d.mu.Lock()
		clear(d.inflight)
		d.inflight = d.inflight[:0]
		d.mu.Unlock()
	}
}

// perform runs the handlers of t until one marks the event handled or the
// target goes away. Handled state left by another task sharing the event
// does not carry over.
func (d *Dispatcher) perform(t *task) {
	t.event.resetHandled()
	for _, h := range t.handlers {
		target, ok := d.live(t)
		if !ok {
			d.log.Debug("Skipping task for dead target", "event", t.event.Name(), "target", target)
			return
		}
		d.call(target, t.event, h)
		if t.event.Handled() {
			return
		}
	}
}

func (d *Dispatcher) live(t *task) (entity.Handle, bool) {
	d.mu.Lock()
	target := t.target
	d.mu.Unlock()

	if target.IsZero() {
		return target, false
	}
	if d.alive != nil && !d.alive(target) {
		return target, false
	}
	return target, true
}

func (d *Dispatcher) call(target entity.Handle, ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Event handler panicked",
				"event", ev.Name(),
				"type", ev.Type(),
				"target", target,
				"panic", r,
			)
		}
	}()
	h(ev)
}
