package world

import (
	"context"
	"fmt"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/vm"
)

// RegisterPrototype makes spec the template create_object_sid uses for
// spec.PID.
func (w *World) RegisterPrototype(spec Spec) {
	if w.protos == nil {
		w.protos = make(map[int32]Spec)
	}
	w.protos[spec.PID] = spec
}

// Spawn creates an object. When the spec names a script, a Script instance
// is attached, its top-level code is run and its start procedure called.
// Script failures are logged and do not fail the spawn.
func (w *World) Spawn(ctx context.Context, spec Spec) (entity.Handle, error) {
	prog, err := w.program(spec)
	if err != nil {
		return entity.Handle{}, fmt.Errorf("spawn %s: %w", spec.Name, err)
	}
	if !validTile(spec.Tile) {
		return entity.Handle{}, fmt.Errorf("spawn %s: %w", spec.Name,
			vm.NewOutOfRangeError("tile", int(spec.Tile), GridWidth*GridHeight))
	}

	o := newObject(w, spec)
	h := w.objects.Insert(o)
	o.handle = h
	if o.inv != nil {
		o.inv.owner = h
	}
	if spec.Player {
		w.dude = h
	}

	for _, it := range spec.Inventory {
		item, err := w.Spawn(ctx, Spec{
			Name:      it.Name,
			PID:       it.PID,
			Type:      vm.TypeItem,
			Tile:      spec.Tile,
			Elevation: spec.Elevation,
		})
		if err != nil {
			return h, err
		}
		if o.inv == nil {
			return h, fmt.Errorf("spawn %s: object has no inventory", spec.Name)
		}
		if err := o.inv.Add(item, max(it.Count, 1)); err != nil {
			return h, err
		}
	}

	if prog != nil {
		o.script = w.machine.NewScript(prog, h)
		if err := w.startScript(ctx, o); err != nil {
			return h, err
		}
	}

	w.log.Debug("Object spawned", "object", h, "name", o.name, "pid", o.pid, "tile", o.tile)
	return h, nil
}

func (w *World) program(spec Spec) (*vm.Program, error) {
	if spec.Program != nil {
		return spec.Program, nil
	}
	if spec.Script == "" {
		return nil, nil
	}
	if w.programs == nil {
		return nil, fmt.Errorf("script %q: no program library", spec.Script)
	}
	return w.programs.ByName(spec.Script)
}

// startScript initializes a new script and runs its start procedure.
// Only cancellation is reported; script faults were logged by the VM.
func (w *World) startScript(ctx context.Context, o *object) error {
	if err := o.script.Initialize(ctx, w); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if _, err := o.script.Call(ctx, w, vm.ProcStart, 0); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// CreateObject implements create_object_sid. The object type is taken from
// the high byte of pid; a registered prototype supplies the rest. sid < 0
// creates an object without a script.
func (w *World) CreateObject(ctx context.Context, pid, tile, elevation, sid int32) (entity.Handle, error) {
	spec, ok := w.protos[pid]
	if !ok {
		kind := vm.ObjectType(pid >> 24)
		if kind < vm.TypeItem || kind > vm.TypeMisc {
			return entity.Handle{}, vm.NewOutOfRangeError("object type", int(kind), int(vm.TypeMisc)+1)
		}
		spec = Spec{PID: pid, Type: kind}
	}
	spec.Tile = tile
	spec.Elevation = elevation
	spec.Player = false

	if sid >= 0 {
		if w.programs == nil {
			return entity.Handle{}, fmt.Errorf("script %d: no program library", sid)
		}
		prog, err := w.programs.ByID(sid)
		if err != nil {
			return entity.Handle{}, err
		}
		spec.Program = prog
	}
	return w.Spawn(ctx, spec)
}

// DestroyObject runs the object's destroy_p_proc and removes it together
// with everything it carries. Tasks and timers addressed to it are dropped
// and its handle goes stale.
func (w *World) DestroyObject(ctx context.Context, h entity.Handle) error {
	o, ok := w.objects.Get(h)
	if !ok {
		return fmt.Errorf("destroy %v: %w", h, ErrNoObject)
	}
	if o.destroying {
		return nil
	}
	o.destroying = true

	if o.script != nil {
		if _, err := o.script.Call(ctx, w, vm.ProcDestroy, 0); err != nil && ctx.Err() != nil {
			w.remove(o)
			return ctx.Err()
		}
	}
	w.remove(o)
	w.log.Debug("Object destroyed", "object", h, "name", o.name)
	return nil
}

func (w *World) remove(o *object) {
	if !w.objects.Valid(o.handle) {
		return
	}
	if o.inv != nil {
		for _, s := range append([]Stack(nil), o.inv.stacks...) {
			if item, ok := w.objects.Get(s.Item); ok {
				w.remove(item)
			}
		}
	}
	w.takeOut(o)

	w.dispatch.Invalidate(o.handle)
	w.timers.remove(o.handle)
	delete(w.floats, o.handle)
	if w.dialog.Active && w.dialog.Speaker == o.handle {
		w.EndDialog()
	}
	if w.dude == o.handle {
		w.dude = entity.Handle{}
	}
	w.objects.Remove(o.handle)
}
