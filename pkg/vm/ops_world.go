package vm

import (
	"fmt"
	"math"

	"github.com/zurustar/intvm/pkg/opcode"
)

// GridWidth is the number of tiles per map row.
const GridWidth = 200

// popInts pops n Integers and returns them in push order.
func popInts(e *Exec, n int) ([]int32, error) {
	out := make([]int32, n)
	for i := n - 1; i >= 0; i-- {
		v, err := e.PopInteger()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// pushInt builds a handler pushing a world-provided integer.
func pushInt(fn func(w World) int32) Handler {
	return func(e *Exec) error {
		return e.Push(Int(fn(e.world)))
	}
}

// pushTicks pushes the game clock. A clock past the int32 range fails with
// ARITHMETIC_OVERFLOW.
func pushTicks(e *Exec) error {
	ticks := e.world.Ticks()
	if ticks > math.MaxInt32 {
		return NewRuntimeError(ErrorArithmeticOverflow, fmt.Sprintf("game ticks %d overflow int32", ticks))
	}
	return e.Push(Int(int32(ticks)))
}

// registerWorldOps registers opcodes that mutate or query shared world state.
func registerWorldOps(t *Table) {
	t.Register(opcode.GiveExpPoints, func(e *Exec) error {
		points, err := e.PopInteger()
		if err != nil {
			return err
		}
		e.world.GiveExp(points)
		return nil
	})

	t.Register(opcode.PlaySfx, func(e *Exec) error {
		name, err := e.PopText()
		if err != nil {
			return err
		}
		e.world.PlaySound(name)
		return nil
	})

	t.Register(opcode.OverrideMapStart, func(e *Exec) error {
		args, err := popInts(e, 4) // x, y, elevation, orientation
		if err != nil {
			return err
		}
		e.world.OverrideMapStart(args[1]*GridWidth+args[0], args[2], args[3])
		return nil
	})

	t.Register(opcode.Random, func(e *Exec) error {
		args, err := popInts(e, 2)
		if err != nil {
			return err
		}
		lo, hi := args[0], args[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		return e.Push(Int(e.world.Random(lo, hi)))
	})

	t.Register(opcode.MoveTo, func(e *Exec) error {
		args, err := popInts(e, 2) // tile, elevation
		if err != nil {
			return err
		}
		h, err := e.PopHandle()
		if err != nil {
			return err
		}
		if err := e.world.MoveTo(h, args[0], args[1]); err != nil {
			return err
		}
		return e.Push(Int(0))
	})

	t.Register(opcode.CreateObjectSid, func(e *Exec) error {
		args, err := popInts(e, 4) // pid, tile, elevation, sid
		if err != nil {
			return err
		}
		h, err := e.world.CreateObject(e.ctx, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		return e.Push(Object(h))
	})

	t.Register(opcode.DestroyObject, func(e *Exec) error {
		h, err := e.PopHandle()
		if err != nil {
			return err
		}
		return e.world.DestroyObject(e.ctx, h)
	})

	t.Register(opcode.UseObjOnObj, func(e *Exec) error {
		target, err := e.PopHandle()
		if err != nil {
			return err
		}
		item, err := e.PopHandle()
		if err != nil {
			return err
		}
		return e.world.UseObjOn(e.ctx, item, target, e.script.owner)
	})

	// Variables.
	t.Register(opcode.GlobalVar, func(e *Exec) error {
		n, err := e.PopInteger()
		if err != nil {
			return err
		}
		v, err := e.world.GlobalVar(int(n))
		if err != nil {
			return err
		}
		return e.Push(Int(v))
	})
	t.Register(opcode.SetGlobalVar, func(e *Exec) error {
		v, err := popVarValue(e)
		if err != nil {
			return err
		}
		n, err := e.PopInteger()
		if err != nil {
			return err
		}
		return e.world.SetGlobalVar(int(n), v)
	})
	t.Register(opcode.MapVar, func(e *Exec) error {
		n, err := e.PopInteger()
		if err != nil {
			return err
		}
		v, err := e.world.MapVar(int(n))
		if err != nil {
			return err
		}
		return e.Push(Int(v))
	})
	t.Register(opcode.SetMapVar, func(e *Exec) error {
		v, err := popVarValue(e)
		if err != nil {
			return err
		}
		n, err := e.PopInteger()
		if err != nil {
			return err
		}
		return e.world.SetMapVar(int(n), v)
	})

	// Hex grid.
	t.Register(opcode.TileDistance, func(e *Exec) error {
		args, err := popInts(e, 2)
		if err != nil {
			return err
		}
		return e.Push(Int(e.world.TileDistance(args[0], args[1])))
	})
	t.Register(opcode.TileDistanceObjs, func(e *Exec) error {
		b, err := e.PopObject()
		if err != nil {
			return err
		}
		a, err := e.PopObject()
		if err != nil {
			return err
		}
		return e.Push(Int(e.world.TileDistance(a.Tile(), b.Tile())))
	})
	t.Register(opcode.TileNumInDirection, func(e *Exec) error {
		args, err := popInts(e, 3) // start tile, direction, distance
		if err != nil {
			return err
		}
		start, dir, dist := args[0], args[1], args[2]
		if dir < 0 || dir > 5 || dist < 0 {
			return e.Push(Int(start))
		}
		return e.Push(Int(e.world.TileInDirection(start, dir, dist)))
	})

	// Clock.
	t.Register(opcode.GameTicks, pushTicks)
	t.Register(opcode.GameTime, pushTicks)
	t.Register(opcode.GameTimeHour, pushInt(World.TimeOfDay))
	t.Register(opcode.GetMonth, pushInt(World.Month))
	t.Register(opcode.GetDay, pushInt(World.Day))
	t.Register(opcode.GameTimeAdvance, func(e *Exec) error {
		ticks, err := e.PopInteger()
		if err != nil {
			return err
		}
		if ticks < 0 {
			return e.Fail("negative time advance %d", ticks)
		}
		e.world.Advance(uint32(ticks))
		return nil
	})

	// Timers.
	t.Register(opcode.AddTimerEvent, func(e *Exec) error {
		args, err := popInts(e, 2) // delay, param
		if err != nil {
			return err
		}
		h, err := e.PopHandle()
		if err != nil {
			return err
		}
		if args[0] < 0 {
			return e.Fail("negative timer delay %d", args[0])
		}
		return e.world.AddTimer(h, uint32(args[0]), args[1])
	})
	t.Register(opcode.RmTimerEvent, func(e *Exec) error {
		h, err := e.PopHandle()
		if err != nil {
			return err
		}
		e.world.RemoveTimers(h)
		return nil
	})
}
