package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zurustar/intvm/pkg/entity"
)

// Script is the execution state of one Program attached to one entity.
// A Script is owned by its entity and is not safe for concurrent use.
type Script struct {
	vm    *VM
	prog  *Program
	owner entity.Handle

	stack   *Stack
	calls   *CallStack
	globals []Value
	pc      int

	// Registers set by the caller of an invocation.
	fixedParam int32
	source     entity.Handle
	target     entity.Handle

	initialized bool
	overrides   bool
	exit        bool

	log *slog.Logger
}

// invocation is the state restored when an invocation faults.
type invocation struct {
	pc         int
	depth      int
	calls      int
	fixedParam int32
	overrides  bool
}

func (s *Script) save() invocation {
	return invocation{
		pc:         s.pc,
		depth:      s.stack.Len(),
		calls:      s.calls.Depth(),
		fixedParam: s.fixedParam,
		overrides:  s.overrides,
	}
}

func (s *Script) restore(inv invocation) {
	s.stack.Truncate(inv.depth)
	s.calls.Truncate(inv.calls)
	s.pc = inv.pc
	s.fixedParam = inv.fixedParam
	s.overrides = inv.overrides
	s.exit = false
}

func zeroValues(n int) []Value {
	vs := make([]Value, n)
	for i := range vs {
		vs[i] = Int(0)
	}
	return vs
}

// Program returns the shared program.
func (s *Script) Program() *Program { return s.prog }

// Owner returns the entity the script is attached to.
func (s *Script) Owner() entity.Handle { return s.owner }

// Initialized reports whether Initialize has run.
func (s *Script) Initialized() bool { return s.initialized }

// HasProcedure reports whether the program defines name.
func (s *Script) HasProcedure(name string) bool { return s.prog.HasProcedure(name) }

// FixedParam returns the fixed parameter register.
func (s *Script) FixedParam() int32 { return s.fixedParam }

// SetSource sets the object returned by source_obj.
func (s *Script) SetSource(h entity.Handle) { s.source = h }

// SetTarget sets the object returned by target_obj.
func (s *Script) SetTarget(h entity.Handle) { s.target = h }

// Overrides reports whether the last invocation called script_overrides,
// asking the engine to skip its default behaviour.
func (s *Script) Overrides() bool { return s.overrides }

// StackDepth returns the operand stack depth.
func (s *Script) StackDepth() int { return s.stack.Len() }

// CallDepth returns the number of active procedure frames.
func (s *Script) CallDepth() int { return s.calls.Depth() }

// Global returns script global n.
func (s *Script) Global(n int) (Value, bool) {
	if n < 0 || n >= len(s.globals) {
		return None, false
	}
	return s.globals[n], true
}

// Initialize runs the top-level code once. Later calls do nothing, also
// when the first run failed.
func (s *Script) Initialize(ctx context.Context, w World) error {
	if s.initialized {
		return nil
	}
	s.initialized = true

	saved := s.save()
	s.pc = 0
	err := s.run(ctx, w, 0, s.prog.initEnd())
	if err != nil {
		s.restore(saved)
		s.report(err, "<init>")
		return fmt.Errorf("initialize %s: %w", s.prog.Name, err)
	}
	s.restore(saved)

	s.log.Debug("Script initialized")
	return nil
}

// Call runs the named procedure to completion. A procedure that is not
// defined is not an error: Call returns None, nil.
func (s *Script) Call(ctx context.Context, w World, name string, fixedParam int32) (Value, error) {
	return s.CallWithArgs(ctx, w, name, fixedParam)
}

// CallWithArgs is Call for procedures declaring arguments.
func (s *Script) CallWithArgs(ctx context.Context, w World, name string, fixedParam int32, args ...Value) (Value, error) {
	proc, idx, ok := s.prog.Procedure(name)
	if !ok {
		s.log.Debug("Procedure not defined", "procedure", name)
		return None, nil
	}

	saved := s.save()
	s.fixedParam = fixedParam
	s.overrides = false

	result, err := s.invoke(ctx, w, proc, idx, args)
	if err != nil {
		s.restore(saved)
		s.report(err, name)
		return None, fmt.Errorf("call %s.%s: %w", s.prog.Name, name, err)
	}

	s.pc = saved.pc
	s.fixedParam = saved.fixedParam
	// A call made while another invocation of s is running leaves that
	// invocation's script_overrides alone.
	if saved.calls > 0 {
		s.overrides = saved.overrides
	}
	return result, nil
}

// CallIndex runs the procedure at index idx, as chosen by a dialog option.
func (s *Script) CallIndex(ctx context.Context, w World, idx int, fixedParam int32) (Value, error) {
	if idx < 0 || idx >= len(s.prog.Procedures) {
		return None, NewOutOfRangeError("procedure", idx, len(s.prog.Procedures))
	}
	return s.CallWithArgs(ctx, w, s.prog.Procedures[idx].Name, fixedParam)
}

// invoke pushes a frame for proc, runs it and pops its result.
func (s *Script) invoke(ctx context.Context, w World, proc Procedure, idx int, args []Value) (Value, error) {
	if len(args) != proc.ArgCount {
		return None, NewRuntimeError(ErrorOutOfRange,
			fmt.Sprintf("procedure %s takes %d arguments, got %d", proc.Name, proc.ArgCount, len(args)))
	}

	depth := s.stack.Len()
	base := s.calls.Depth()
	if err := s.enter(idx, args, -1); err != nil {
		return None, err
	}
	if err := s.run(ctx, w, base+1, 0); err != nil {
		return None, err
	}

	if s.exit {
		s.exit = false
		s.calls.Truncate(base)
		s.stack.Truncate(depth)
		return None, nil
	}

	if !proc.Returns {
		return None, nil
	}
	return s.stack.Pop()
}

// enter pushes a frame for procedure idx and moves pc to its entry.
func (s *Script) enter(idx int, args []Value, returnAddress int) error {
	if idx < 0 || idx >= len(s.prog.Procedures) {
		return NewOutOfRangeError("procedure", idx, len(s.prog.Procedures))
	}
	proc := s.prog.Procedures[idx]

	locals := make([]Value, proc.ArgCount+proc.Locals)
	copy(locals, args)
	for i := len(args); i < len(locals); i++ {
		locals[i] = Int(0)
	}

	if err := s.calls.PushFrame(Frame{
		ReturnAddress: returnAddress,
		Procedure:     idx,
		Base:          s.stack.Len(),
		Locals:        locals,
	}); err != nil {
		return err
	}
	s.pc = proc.Entry
	return nil
}

// procedureName returns the name of the running procedure.
func (s *Script) procedureName() string {
	if f := s.calls.Current(); f != nil {
		return s.prog.Procedures[f.Procedure].Name
	}
	return "<init>"
}

// report logs a failed invocation. Fatal errors are logged at error level.
func (s *Script) report(err error, name string) {
	attrs := []any{"procedure", name, "error", err}
	var re *RuntimeError
	if errors.As(err, &re) {
		attrs = append(attrs, "type", string(re.Type), "pc", re.PC, "opcode", fmt.Sprintf("0x%04X", uint16(re.Op)), "opname", re.Op.String())
		if len(re.Operands) > 0 {
			attrs = append(attrs, "operands", re.Operands)
		}
		if re.IsFatal() {
			s.log.Error("Script invocation aborted", attrs...)
			return
		}
	}
	s.log.Warn("Script invocation failed", attrs...)
}
