package engine

import (
	"context"
	"errors"
	"time"

	"github.com/zurustar/intvm/pkg/event"
)

// Tick advances the simulation by one tick: the clock moves, due timers
// fire, map_update_p_proc is scheduled every map_update_ticks and the
// dispatcher is drained.
func (e *Engine) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.world.Advance(1)
	e.world.FireTimers(ctx)

	e.sinceUpdate++
	if e.sinceUpdate >= e.cfg.World.MapUpdateTicks {
		e.sinceUpdate = 0
		e.world.MapUpdate(ctx)
	}
	return e.drain(ctx)
}

// drain runs the pending tasks. Tasks left over at the pass limit run on
// the next tick.
func (e *Engine) drain(ctx context.Context) error {
	if err := e.dispatch.Drain(); err != nil && !errors.Is(err, event.ErrPassLimit) {
		return err
	}
	return ctx.Err()
}

// Update runs the ticks that became due since the last call. It is called
// once per frame by the window.
func (e *Engine) Update(ctx context.Context) error {
	if e.CheckTermination() {
		return ErrTerminated
	}
	if e.pacer == nil {
		e.Start()
	}
	for range e.pacer.due(time.Now()) {
		if err := e.Tick(ctx); err != nil {
			return err
		}
	}
	if e.CheckTermination() {
		return ErrTerminated
	}
	return nil
}

// RunHeadless ticks at the configured rate until ticks ticks have run, the
// engine is terminated or the timeout passes. ticks <= 0 runs until
// terminated.
func (e *Engine) RunHeadless(ctx context.Context, ticks int) error {
	e.Start()
	t := time.NewTicker(e.cfg.TickInterval())
	defer t.Stop()

	for n := 0; ticks <= 0 || n < ticks; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if e.CheckTermination() {
			return nil
		}
		if err := e.Tick(ctx); err != nil {
			return err
		}
	}
	e.log.Info("Headless run finished", "ticks", ticks, "game_ticks", e.world.Ticks())
	return nil
}

// pacer converts wall-clock time since start into simulation ticks. Ticks
// are derived from the total elapsed time, not summed per frame.
type pacer struct {
	interval  time.Duration
	start     time.Time
	delivered int64
	// maxBehind caps the ticks run in one call after a stall.
	maxBehind int64
}

func newPacer(interval time.Duration, start time.Time, maxBehind int) *pacer {
	return &pacer{
		interval:  max(interval, time.Millisecond),
		start:     start,
		maxBehind: int64(max(maxBehind, 1)),
	}
}

// due returns the number of ticks that became due at now. When more than
// maxBehind are due the excess is dropped.
func (p *pacer) due(now time.Time) int {
	want := int64(now.Sub(p.start) / p.interval)
	n := want - p.delivered
	if n <= 0 {
		return 0
	}
	p.delivered = want
	return int(min(n, p.maxBehind))
}
