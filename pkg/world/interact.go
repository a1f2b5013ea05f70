package world

import (
	"context"
	"fmt"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/vm"
)

// request schedules ev on target. The script's procedure runs first; the
// engine's default behaviour follows unless the script called
// script_overrides.
func (w *World) request(ctx context.Context, target entity.Handle, ev *event.Procedure, fallback ...event.Handler) {
	handlers := append([]event.Handler{w.scriptHandler(ctx, target)}, fallback...)
	w.dispatch.Schedule(target, ev, handlers...)
}

func (w *World) scriptHandler(ctx context.Context, target entity.Handle) event.Handler {
	return event.On(func(p *event.Procedure) {
		s, ok := w.Script(target)
		if !ok || !s.HasProcedure(p.Procedure) {
			return
		}
		s.SetSource(p.Source)
		s.SetTarget(p.Target)
		defer func() {
			s.SetSource(entity.Handle{})
			s.SetTarget(entity.Handle{})
		}()

		if _, err := s.Call(ctx, w, p.Procedure, p.FixedParam); err != nil {
			w.log.Debug("Scripted reaction failed", "object", target, "procedure", p.Procedure, "error", err)
			return
		}
		if s.Overrides() {
			p.StopPropagation()
		}
	})
}

// Use makes user use target: use_p_proc, then doors and containers toggle
// open unless locked.
func (w *World) Use(ctx context.Context, user, target entity.Handle) {
	w.request(ctx, target, event.NewProcedure(vm.ProcUse, 0, user), func(event.Event) {
		o, ok := w.objects.Get(target)
		if !ok || o.open == nil {
			return
		}
		if o.open.locked {
			w.Display("That is locked.")
			return
		}
		o.open.open = !o.open.open
	})
}

// UseObjOn makes source use item on target through the target's
// use_obj_on_p_proc.
func (w *World) UseObjOn(ctx context.Context, item, target, source entity.Handle) error {
	if !w.objects.Valid(item) {
		return fmt.Errorf("use %v: %w", item, ErrNoObject)
	}
	if !w.objects.Valid(target) {
		return fmt.Errorf("use on %v: %w", target, ErrNoObject)
	}
	ev := event.NewProcedure(vm.ProcUseObjOn, 0, source)
	ev.Target = item
	w.request(ctx, target, ev, func(event.Event) {
		w.Display("That does nothing.")
	})
	return nil
}

// Look runs look_at_p_proc; by default the object's name is shown.
func (w *World) Look(ctx context.Context, looker, target entity.Handle) {
	w.request(ctx, target, event.NewProcedure(vm.ProcLookAt, 0, looker), w.describe(target))
}

// Describe runs description_p_proc; by default the object's name is shown.
func (w *World) Describe(ctx context.Context, looker, target entity.Handle) {
	w.request(ctx, target, event.NewProcedure(vm.ProcDescription, 0, looker), w.describe(target))
}

func (w *World) describe(target entity.Handle) event.Handler {
	return func(event.Event) {
		if o, ok := w.objects.Get(target); ok {
			w.Display(fmt.Sprintf("You see: %s.", o.name))
		}
	}
}

// Talk runs talk_p_proc. Only critters answer.
func (w *World) Talk(ctx context.Context, talker, target entity.Handle) {
	w.request(ctx, target, event.NewProcedure(vm.ProcTalk, 0, talker), func(event.Event) {
		if o, ok := w.objects.Get(target); ok && o.crit == nil {
			w.Display("You can't talk to that.")
		}
	})
}

// Pickup runs pickup_p_proc on item; by default it moves into the
// picker's inventory.
func (w *World) Pickup(ctx context.Context, picker, item entity.Handle) {
	w.request(ctx, item, event.NewProcedure(vm.ProcPickup, 0, picker), func(event.Event) {
		p, ok := w.objects.Get(picker)
		if !ok || p.inv == nil {
			return
		}
		if o, ok := w.objects.Get(item); !ok || o.kind != vm.TypeItem {
			return
		}
		if err := p.inv.Add(item, 1); err != nil {
			w.log.Debug("Pickup failed", "item", item, "error", err)
		}
	})
}

// Damage runs damage_p_proc with the damage amount as fixed parameter, then
// lowers a critter's hit points.
func (w *World) Damage(ctx context.Context, source, target entity.Handle, amount int32) {
	w.request(ctx, target, event.NewProcedure(vm.ProcDamage, amount, source), func(event.Event) {
		o, ok := w.objects.Get(target)
		if !ok || o.crit == nil {
			return
		}
		o.crit.stats[StatCurrentHP] = max(0, o.crit.stats[StatCurrentHP]-amount)
	})
}

// MapEnter schedules map_enter_p_proc on every scripted object.
func (w *World) MapEnter(ctx context.Context) { w.broadcast(ctx, vm.ProcMapEnter) }

// MapUpdate schedules map_update_p_proc on every scripted object.
func (w *World) MapUpdate(ctx context.Context) { w.broadcast(ctx, vm.ProcMapUpdate) }

// MapExit schedules map_exit_p_proc on every scripted object.
func (w *World) MapExit(ctx context.Context) { w.broadcast(ctx, vm.ProcMapExit) }

func (w *World) broadcast(ctx context.Context, proc string) {
	var targets []entity.Handle
	w.objects.Each(func(h entity.Handle, o *object) bool {
		if o.script != nil && o.script.HasProcedure(proc) {
			targets = append(targets, h)
		}
		return true
	})
	for _, h := range targets {
		w.request(ctx, h, event.NewProcedure(proc, 0, entity.Handle{}))
	}
}
