package vm

import (
	"math"

	"github.com/zurustar/intvm/pkg/opcode"
)

// objectQuery builds a handler popping one object and pushing fn's result.
func objectQuery(fn func(obj Object) Value) Handler {
	return func(e *Exec) error {
		obj, err := e.PopObject()
		if err != nil {
			return err
		}
		return e.Push(fn(obj))
	}
}

// openable resolves a door or container operand.
func openable(e *Exec) (Openable, error) {
	obj, err := e.PopObject()
	if err != nil {
		return nil, err
	}
	o, ok := obj.Openable()
	if !ok {
		return nil, e.Fail("%s is neither a door nor a container", obj.Handle())
	}
	return o, nil
}

func openableQuery(fn func(o Openable) bool) Handler {
	return func(e *Exec) error {
		o, err := openable(e)
		if err != nil {
			return err
		}
		return e.Push(Bool(fn(o)))
	}
}

func openableAction(fn func(o Openable)) Handler {
	return func(e *Exec) error {
		o, err := openable(e)
		if err != nil {
			return err
		}
		fn(o)
		return nil
	}
}

// popInventory pops an object that must carry an inventory.
func popInventory(e *Exec) (Inventory, error) {
	obj, err := e.PopObject()
	if err != nil {
		return nil, err
	}
	inv, ok := obj.Inventory()
	if !ok {
		return nil, e.Fail("%s is neither a critter nor a container", obj.Handle())
	}
	return inv, nil
}

// popCritter pops an object that must be a critter.
func popCritter(e *Exec) (Critter, error) {
	obj, err := e.PopObject()
	if err != nil {
		return nil, err
	}
	c, ok := obj.Critter()
	if !ok {
		return nil, e.Fail("%s is not a critter", obj.Handle())
	}
	return c, nil
}

// registerObjectOps registers object queries and capability opcodes.
func registerObjectOps(t *Table) {
	t.Register(opcode.DudeObj, func(e *Exec) error {
		return e.Push(Object(e.world.Dude()))
	})

	t.Register(opcode.ObjName, objectQuery(func(o Object) Value { return String(o.Name()) }))
	t.Register(opcode.ObjPid, objectQuery(func(o Object) Value { return Int(o.PID()) }))
	t.Register(opcode.ObjType, objectQuery(func(o Object) Value { return Int(int32(o.Type())) }))
	t.Register(opcode.TileNum, objectQuery(func(o Object) Value { return Int(o.Tile()) }))
	t.Register(opcode.Elevation, objectQuery(func(o Object) Value { return Int(o.Elevation()) }))
	t.Register(opcode.AnimBusy, objectQuery(func(o Object) Value { return Bool(o.AnimBusy()) }))

	t.Register(opcode.ObjOnScreen, func(e *Exec) error {
		h, err := e.PopHandle()
		if err != nil {
			return err
		}
		return e.Push(Bool(e.world.OnScreen(h)))
	})

	t.Register(opcode.ObjIsCarryingObjPid, func(e *Exec) error {
		pid, err := e.PopInteger()
		if err != nil {
			return err
		}
		inv, err := popInventory(e)
		if err != nil {
			return err
		}
		return e.Push(Int(inv.CountPID(pid)))
	})

	t.Register(opcode.AddObjToInven, func(e *Exec) error {
		item, err := e.PopHandle()
		if err != nil {
			return err
		}
		inv, err := popInventory(e)
		if err != nil {
			return err
		}
		return inv.Add(item, 1)
	})
	t.Register(opcode.AddMultObjsToInven, func(e *Exec) error {
		count, err := e.PopInteger()
		if err != nil {
			return err
		}
		item, err := e.PopHandle()
		if err != nil {
			return err
		}
		inv, err := popInventory(e)
		if err != nil {
			return err
		}
		if count <= 0 {
			return nil
		}
		return inv.Add(item, count)
	})
	t.Register(opcode.RmObjFromInven, func(e *Exec) error {
		item, err := e.PopHandle()
		if err != nil {
			return err
		}
		inv, err := popInventory(e)
		if err != nil {
			return err
		}
		return inv.Remove(item)
	})

	t.Register(opcode.IsLocked, openableQuery(Openable.IsLocked))
	t.Register(opcode.ObjIsOpen, openableQuery(Openable.IsOpen))
	t.Register(opcode.Lock, openableAction(func(o Openable) { o.SetLocked(true) }))
	t.Register(opcode.Unlock, openableAction(func(o Openable) { o.SetLocked(false) }))
	t.Register(opcode.ObjOpen, openableAction(func(o Openable) { o.SetOpen(true) }))
	t.Register(opcode.ObjClose, openableAction(func(o Openable) { o.SetOpen(false) }))

	t.Register(opcode.GetCritterStat, func(e *Exec) error {
		stat, err := e.PopInteger()
		if err != nil {
			return err
		}
		c, err := popCritter(e)
		if err != nil {
			return err
		}
		v, err := c.Stat(stat)
		if err != nil {
			return err
		}
		return e.Push(Int(v))
	})
	t.Register(opcode.SetCritterStat, func(e *Exec) error {
		value, err := e.PopInteger()
		if err != nil {
			return err
		}
		stat, err := e.PopInteger()
		if err != nil {
			return err
		}
		c, err := popCritter(e)
		if err != nil {
			return err
		}
		if err := c.SetStat(stat, value); err != nil {
			return err
		}
		return e.Push(Int(0))
	})
	t.Register(opcode.Poison, func(e *Exec) error {
		amount, err := e.PopInteger()
		if err != nil {
			return err
		}
		c, err := popCritter(e)
		if err != nil {
			return err
		}
		c.AddPoison(amount)
		return nil
	})
	t.Register(opcode.GetPoison, func(e *Exec) error {
		c, err := popCritter(e)
		if err != nil {
			return err
		}
		return e.Push(Int(c.Poison()))
	})

	t.Register(opcode.LocalVar, func(e *Exec) error {
		n, err := e.PopInteger()
		if err != nil {
			return err
		}
		self, err := selfObject(e)
		if err != nil {
			return err
		}
		v, err := self.LocalVar(int(n))
		if err != nil {
			return err
		}
		return e.Push(Int(v))
	})
	t.Register(opcode.SetLocalVar, func(e *Exec) error {
		v, err := popVarValue(e)
		if err != nil {
			return err
		}
		n, err := e.PopInteger()
		if err != nil {
			return err
		}
		self, err := selfObject(e)
		if err != nil {
			return err
		}
		return self.SetLocalVar(int(n), v)
	})
}

// selfObject resolves the owner of the running script.
func selfObject(e *Exec) (Object, error) {
	obj, ok := e.world.Object(e.script.owner)
	if !ok {
		return nil, e.Fail("script owner %s is not valid", e.script.owner)
	}
	return obj, nil
}

// popVarValue pops a variable value. Variables hold integers; floats are
// truncated toward zero and fail with ARITHMETIC_OVERFLOW outside int32.
func popVarValue(e *Exec) (int32, error) {
	v, err := e.Pop()
	if err != nil {
		return 0, err
	}
	switch v.kind {
	case KindInteger:
		return v.i, nil
	case KindFloat:
		return toInt32(e.instr.Op.String(), math.Trunc(float64(v.f)))
	}
	return 0, NewInvalidOperandError(e.instr.Op.String()+" expects number", v)
}
