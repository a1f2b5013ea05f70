package vm

import (
	"context"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/opcode"
)

// ctxCheckInterval is how many instructions run between context checks.
const ctxCheckInterval = 1024

// run executes instructions until the call depth drops below stopBelow,
// exit_prog is executed, or (with no active frame) pc reaches end.
func (s *Script) run(ctx context.Context, w World, stopBelow, end int) error {
	code := s.prog.Code
	exec := &Exec{script: s, world: w, ctx: ctx}
	budget := s.vm.budget

	for steps := 1; ; steps++ {
		if s.exit || s.calls.Depth() < stopBelow {
			return nil
		}
		if s.calls.Depth() == 0 && s.pc >= end {
			return nil
		}
		if s.pc < 0 || s.pc >= len(code) {
			return s.annotate(NewOutOfRangeError("program counter", s.pc, len(code)), opcode.Instruction{})
		}
		if budget > 0 && steps > budget {
			return s.annotate(NewRuntimeError(ErrorBudgetExceeded, "instruction budget exhausted"), code[s.pc])
		}
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return s.annotate(err, code[s.pc])
			}
		}

		in := code[s.pc]
		h, ok := s.vm.table.Lookup(in.Op)
		if !ok {
			return s.annotate(NewUnknownOpcodeError(in.Op), in)
		}

		if s.vm.trace {
			s.log.Debug("exec", "pc", s.pc, "op", in.String(), "depth", s.stack.Len(), "calls", s.calls.Depth())
		}

		exec.instr = in
		exec.next = s.pc + 1
		if err := h(exec); err != nil {
			return s.annotate(err, in)
		}
		s.pc = exec.next
	}
}

// annotate attaches the location of the fault to err.
func (s *Script) annotate(err error, in opcode.Instruction) error {
	re := wrapError(err)
	re.Script = s.prog.Name
	re.Procedure = s.procedureName()
	re.PC = s.pc
	re.Op = in.Op
	return re
}

// Exec is the view of the running script handed to opcode handlers.
type Exec struct {
	script *Script
	world  World
	ctx    context.Context
	instr  opcode.Instruction
	next   int
}

// Script returns the running script.
func (e *Exec) Script() *Script { return e.script }

// World returns the collaborator handlers act on.
func (e *Exec) World() World { return e.world }

// Context returns the context of the invocation.
func (e *Exec) Context() context.Context { return e.ctx }

// Instruction returns the instruction being executed.
func (e *Exec) Instruction() opcode.Instruction { return e.instr }

// Arg returns the immediate operand.
func (e *Exec) Arg() int32 { return e.instr.Arg }

// Jump sets the next instruction.
func (e *Exec) Jump(target int) { e.next = target }

// floor is the lowest operand depth the current frame may pop to.
func (e *Exec) floor() int {
	if f := e.script.calls.Current(); f != nil {
		return f.Base
	}
	return 0
}

// Push pushes v.
func (e *Exec) Push(v Value) error {
	return e.script.stack.Push(v)
}

// Pop pops one value. A procedure cannot pop values owned by its caller.
func (e *Exec) Pop() (Value, error) {
	if e.script.stack.Len() <= e.floor() {
		return None, NewStackUnderflowError()
	}
	return e.script.stack.Pop()
}

// Pop2 pops the right operand and then the left one.
func (e *Exec) Pop2() (a, b Value, err error) {
	if b, err = e.Pop(); err != nil {
		return
	}
	a, err = e.Pop()
	return
}

// PopInteger pops an Integer.
func (e *Exec) PopInteger() (int32, error) {
	v, err := e.Pop()
	if err != nil {
		return 0, err
	}
	i, ok := v.Integer()
	if !ok {
		return 0, NewInvalidOperandError(e.instr.Op.String()+" expects integer", v)
	}
	return i, nil
}

// PopText pops a Text value.
func (e *Exec) PopText() (string, error) {
	v, err := e.Pop()
	if err != nil {
		return "", err
	}
	s, ok := v.Text()
	if !ok {
		return "", NewInvalidOperandError(e.instr.Op.String()+" expects string", v)
	}
	return s, nil
}

// PopHandle pops an entity reference. Integer 0 is the empty reference.
func (e *Exec) PopHandle() (entity.Handle, error) {
	v, err := e.Pop()
	if err != nil {
		return entity.Handle{}, err
	}
	h, ok := v.Handle()
	if !ok {
		return entity.Handle{}, NewInvalidOperandError(e.instr.Op.String()+" expects object", v)
	}
	return h, nil
}

// PopObject pops an entity reference and resolves it. Empty or stale
// references fail with a script error.
func (e *Exec) PopObject() (Object, error) {
	h, err := e.PopHandle()
	if err != nil {
		return nil, err
	}
	obj, ok := e.world.Object(h)
	if !ok {
		return nil, NewScriptError("%s: object %s is not valid", e.instr.Op, h)
	}
	return obj, nil
}

// Local returns a pointer to local slot n of the current frame.
func (e *Exec) Local(n int32) (*Value, error) {
	f := e.script.calls.Current()
	if f == nil {
		return nil, NewScriptError("%s outside of a procedure", e.instr.Op)
	}
	if n < 0 || int(n) >= len(f.Locals) {
		return nil, NewOutOfRangeError("local", int(n), len(f.Locals))
	}
	return &f.Locals[n], nil
}

// Global returns a pointer to script global n.
func (e *Exec) Global(n int32) (*Value, error) {
	g := e.script.globals
	if n < 0 || int(n) >= len(g) {
		return nil, NewOutOfRangeError("global", int(n), len(g))
	}
	return &g[n], nil
}

// Fail raises the non-fatal script error used by _error.
func (e *Exec) Fail(format string, args ...any) error {
	return NewScriptError(e.instr.Op.String()+": "+format, args...)
}
