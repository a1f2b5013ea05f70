package world

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/vm"
)

// TicksPerSecond is the game clock resolution.
const TicksPerSecond = 10

// Epoch is the calendar date at tick zero.
var Epoch = time.Date(2241, time.July, 25, 7, 21, 0, 0, time.UTC)

type clock struct {
	ticks uint32
}

func newClock() clock {
	return clock{}
}

func (c clock) now() time.Time {
	return Epoch.Add(time.Duration(c.ticks) * time.Second / TicksPerSecond)
}

// Ticks returns the game time in ticks.
func (w *World) Ticks() uint32 {
	return w.clock.ticks
}

// TimeOfDay returns the time of day as hours*100 + minutes.
func (w *World) TimeOfDay() int32 {
	t := w.clock.now()
	return int32(t.Hour()*100 + t.Minute())
}

// Month returns the calendar month, 1 to 12.
func (w *World) Month() int32 {
	return int32(w.clock.now().Month())
}

// Day returns the day of the month.
func (w *World) Day() int32 {
	return int32(w.clock.now().Day())
}

// Advance moves the clock forward. Timers that become due fire on the next
// call to FireTimers.
func (w *World) Advance(ticks uint32) {
	w.clock.ticks += ticks
}

// SetTicks sets the clock, for restoring saved games.
func (w *World) SetTicks(ticks uint32) {
	w.clock.ticks = ticks
}

type timer struct {
	obj   entity.Handle
	due   uint32
	param int32
	seq   uint64
}

// timerQueue holds pending timed events in due order.
type timerQueue struct {
	timers []timer
	seq    uint64
}

func (q *timerQueue) add(t timer) {
	q.seq++
	t.seq = q.seq
	i, _ := slices.BinarySearchFunc(q.timers, t, func(a, b timer) int {
		if c := cmp.Compare(a.due, b.due); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	q.timers = slices.Insert(q.timers, i, t)
}

func (q *timerQueue) remove(obj entity.Handle) int {
	n := len(q.timers)
	q.timers = slices.DeleteFunc(q.timers, func(t timer) bool { return t.obj == obj })
	return n - len(q.timers)
}

// due removes and returns the timers due at or before now.
func (q *timerQueue) due(now uint32) []timer {
	i := 0
	for i < len(q.timers) && q.timers[i].due <= now {
		i++
	}
	fired := slices.Clone(q.timers[:i])
	q.timers = slices.Delete(q.timers, 0, i)
	return fired
}

// AddTimer schedules obj's timed_event_p_proc delay ticks from now with the
// given fixed parameter.
func (w *World) AddTimer(obj entity.Handle, delay uint32, param int32) error {
	if !w.objects.Valid(obj) {
		return fmt.Errorf("add timer for %v: %w", obj, ErrNoObject)
	}
	w.timers.add(timer{obj: obj, due: w.clock.ticks + delay, param: param})
	return nil
}

// RemoveTimers cancels every pending timer of obj.
func (w *World) RemoveTimers(obj entity.Handle) {
	w.timers.remove(obj)
}

// PendingTimers returns the number of timers not yet fired.
func (w *World) PendingTimers() int {
	return len(w.timers.timers)
}

// FireTimers schedules timed_event_p_proc for every due timer, in due
// order. It returns the number of timers fired.
func (w *World) FireTimers(ctx context.Context) int {
	fired := w.timers.due(w.clock.ticks)
	for _, t := range fired {
		w.request(ctx, t.obj, event.NewProcedure(vm.ProcTimedEvent, t.param, entity.Handle{}))
	}
	return len(fired)
}
