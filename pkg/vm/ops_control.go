package vm

import (
	"github.com/zurustar/intvm/pkg/opcode"
)

// registerStackOps registers literal pushes and stack shuffling.
func registerStackOps(t *Table) {
	noop := func(e *Exec) error { return nil }
	t.Register(opcode.Noop, noop)
	// Execution is single-threaded, so critical sections need no locking.
	t.Register(opcode.CriticalStart, noop)
	t.Register(opcode.CriticalDone, noop)

	t.Register(opcode.PushInt, func(e *Exec) error {
		return e.Push(Int(e.Arg()))
	})
	t.Register(opcode.PushFloat, func(e *Exec) error {
		floats := e.script.prog.Floats
		if int(e.Arg()) >= len(floats) || e.Arg() < 0 {
			return NewOutOfRangeError("float literal", int(e.Arg()), len(floats))
		}
		return e.Push(Float(floats[e.Arg()]))
	})
	t.Register(opcode.PushString, func(e *Exec) error {
		strs := e.script.prog.Strings
		if int(e.Arg()) >= len(strs) || e.Arg() < 0 {
			return NewOutOfRangeError("string literal", int(e.Arg()), len(strs))
		}
		return e.Push(String(strs[e.Arg()]))
	})

	t.Register(opcode.Pop, func(e *Exec) error {
		_, err := e.Pop()
		return err
	})
	t.Register(opcode.Dup, func(e *Exec) error {
		v, err := e.Pop()
		if err != nil {
			return err
		}
		if err := e.Push(v); err != nil {
			return err
		}
		return e.Push(v)
	})
	t.Register(opcode.Swap, func(e *Exec) error {
		a, b, err := e.Pop2()
		if err != nil {
			return err
		}
		if err := e.Push(b); err != nil {
			return err
		}
		return e.Push(a)
	})
}

// registerControlOps registers jumps, procedure calls and variable access.
func registerControlOps(t *Table) {
	t.Register(opcode.Jump, func(e *Exec) error {
		e.Jump(int(e.Arg()))
		return nil
	})

	branch := func(e *Exec) error {
		cond, err := e.Pop()
		if err != nil {
			return err
		}
		if !cond.Truthy() {
			e.Jump(int(e.Arg()))
		}
		return nil
	}
	t.Register(opcode.If, branch)
	t.Register(opcode.While, branch)

	t.Register(opcode.Call, opCall)
	t.Register(opcode.Return, opReturn)

	t.Register(opcode.Exit, func(e *Exec) error {
		e.script.exit = true
		e.script.initialized = true
		return nil
	})

	t.Register(opcode.LookupStringProc, func(e *Exec) error {
		name, err := e.PopText()
		if err != nil {
			return err
		}
		_, idx, ok := e.script.prog.Procedure(name)
		if !ok {
			return e.Fail("procedure %q not found", name)
		}
		return e.Push(Int(int32(idx)))
	})

	t.Register(opcode.Fetch, func(e *Exec) error {
		slot, err := e.Local(e.Arg())
		if err != nil {
			return err
		}
		return e.Push(*slot)
	})
	t.Register(opcode.Store, func(e *Exec) error {
		v, err := e.Pop()
		if err != nil {
			return err
		}
		slot, err := e.Local(e.Arg())
		if err != nil {
			return err
		}
		*slot = v
		return nil
	})
	t.Register(opcode.FetchGlobal, func(e *Exec) error {
		slot, err := e.Global(e.Arg())
		if err != nil {
			return err
		}
		return e.Push(*slot)
	})
	t.Register(opcode.StoreGlobal, func(e *Exec) error {
		v, err := e.Pop()
		if err != nil {
			return err
		}
		slot, err := e.Global(e.Arg())
		if err != nil {
			return err
		}
		*slot = v
		return nil
	})

	t.Register(opcode.FixedParam, func(e *Exec) error {
		return e.Push(Int(e.script.fixedParam))
	})
	t.Register(opcode.ScriptOverrides, func(e *Exec) error {
		e.script.overrides = true
		return nil
	})
	t.Register(opcode.SelfObj, func(e *Exec) error {
		return e.Push(Object(e.script.owner))
	})
	t.Register(opcode.SourceObj, func(e *Exec) error {
		return e.Push(Object(e.script.source))
	})
	t.Register(opcode.TargetObj, func(e *Exec) error {
		return e.Push(Object(e.script.target))
	})
}

// opCall pops a procedure index and the procedure's arguments, last
// argument first, and enters the procedure.
func opCall(e *Exec) error {
	idx, err := e.PopInteger()
	if err != nil {
		return err
	}
	procs := e.script.prog.Procedures
	if idx < 0 || int(idx) >= len(procs) {
		return NewOutOfRangeError("procedure", int(idx), len(procs))
	}
	proc := procs[idx]

	args := make([]Value, proc.ArgCount)
	for i := proc.ArgCount - 1; i >= 0; i-- {
		if args[i], err = e.Pop(); err != nil {
			return err
		}
	}

	if err := e.script.enter(int(idx), args, e.next); err != nil {
		return err
	}
	e.Jump(proc.Entry)
	return nil
}

// opReturn leaves the current procedure, keeping its result if it has one.
func opReturn(e *Exec) error {
	s := e.script
	cur := s.calls.Current()
	if cur == nil {
		return NewCallStackUnderflowError()
	}

	result := None
	returns := s.prog.Procedures[cur.Procedure].Returns
	if returns {
		v, err := e.Pop()
		if err != nil {
			return err
		}
		result = v
	}

	frame, err := s.calls.PopFrame()
	if err != nil {
		return err
	}
	s.stack.Truncate(frame.Base)
	if returns {
		if err := s.stack.Push(result); err != nil {
			return err
		}
	}
	e.Jump(frame.ReturnAddress)
	return nil
}
