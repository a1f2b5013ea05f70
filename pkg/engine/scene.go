package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zurustar/intvm/pkg/config"
	"github.com/zurustar/intvm/pkg/store"
)

// LoadMap replaces the objects of the world with those of m. The previous
// map, if any, gets map_exit_p_proc and is cleared first. Saved variables
// are restored before the objects spawn, so start procedures see them.
// map_enter_p_proc runs before LoadMap returns.
func (e *Engine) LoadMap(ctx context.Context, m *config.Map) error {
	if e.loaded {
		if err := e.unload(ctx); err != nil {
			return err
		}
	}

	e.mapName = m.Name
	e.sinceUpdate = 0
	e.world.ResetMapVars(e.cfg.World.MapVars, m.MapVars)
	if m.Start != (config.Start{}) {
		e.world.OverrideMapStart(m.Start.Tile, m.Start.Elevation, m.Start.Orientation)
	}
	if err := e.restore(ctx); err != nil {
		return err
	}

	for i, p := range m.Prototypes {
		spec, err := p.Spec()
		if err != nil {
			return fmt.Errorf("prototype %d (%s): %w", i, p.Name, err)
		}
		e.world.RegisterPrototype(spec)
	}
	for i, o := range m.Objects {
		spec, err := o.Spec()
		if err != nil {
			return fmt.Errorf("object %d (%s): %w", i, o.Name, err)
		}
		if _, err := e.world.Spawn(ctx, spec); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	e.loaded = true

	e.world.MapEnter(ctx)
	if err := e.drain(ctx); err != nil {
		return err
	}
	e.log.Info("Map loaded", "map", m.Name, "objects", e.world.Len())
	return nil
}

// unload runs map_exit_p_proc and destroys every object of the map.
func (e *Engine) unload(ctx context.Context) error {
	e.world.MapExit(ctx)
	if err := e.drain(ctx); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.Save(ctx); err != nil {
			return err
		}
	}
	for _, v := range e.world.Objects() {
		if err := e.world.DestroyObject(ctx, v.Handle); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	e.log.Debug("Map unloaded", "map", e.mapName)
	e.loaded = false
	return nil
}

// restore loads the configured save slot. A missing slot is not an error.
// Map variables are only restored when the slot was saved on this map.
func (e *Engine) restore(ctx context.Context) error {
	if e.store == nil || !e.cfg.Save.Restore {
		return nil
	}
	snap, err := e.store.Load(ctx, e.cfg.Save.Slot)
	if errors.Is(err, store.ErrNoSlot) {
		e.log.Debug("No saved game to restore", "slot", e.cfg.Save.Slot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	e.world.LoadGlobalVars(snap.Globals)
	e.world.SetTicks(snap.Ticks)
	e.world.SetExperience(snap.Experience)
	if snap.Map == e.mapName {
		e.world.ResetMapVars(e.cfg.World.MapVars, snap.MapVars)
	}
	e.log.Info("Saved game restored", "slot", snap.Slot, "map", snap.Map, "saved_at", snap.SavedAt)
	return nil
}

// Save writes the variables to the configured save slot.
func (e *Engine) Save(ctx context.Context) error {
	if e.store == nil {
		return errors.New("save: no store configured")
	}
	snap := store.Snapshot{
		Slot:       e.cfg.Save.Slot,
		Map:        e.mapName,
		Ticks:      e.world.Ticks(),
		Experience: e.world.Experience(),
		Globals:    e.world.GlobalVars(),
		MapVars:    e.world.MapVars(),
		SavedAt:    time.Now(),
	}
	if err := e.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	e.log.Info("Game saved", "slot", snap.Slot, "map", snap.Map, "ticks", snap.Ticks)
	return nil
}
