// Package vm provides the virtual machine for executing compiled scripts.
// It implements a stack-based interpreter with:
// - A dynamically typed operand stack with explicit coercion tables
// - A call stack of procedure frames
// - A dispatch table mapping opcodes to handlers
// - Per-entity Script instances sharing one immutable Program
package vm

import (
	"log/slog"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/logger"
)

// VM holds the configuration shared by every Script it creates.
// A VM is immutable after New and may be shared freely.
type VM struct {
	table      *Table
	stackLimit int
	callDepth  int
	budget     int
	trace      bool
	log        *slog.Logger
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithStackLimit sets the operand stack bound of each Script.
func WithStackLimit(n int) Option {
	return func(vm *VM) {
		vm.stackLimit = n
	}
}

// WithCallDepth sets the maximum procedure nesting of each Script.
func WithCallDepth(n int) Option {
	return func(vm *VM) {
		vm.callDepth = n
	}
}

// WithInstructionBudget caps the number of instructions one invocation may
// execute. Zero disables the cap.
func WithInstructionBudget(n int) Option {
	return func(vm *VM) {
		vm.budget = n
	}
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(trace bool) Option {
	return func(vm *VM) {
		vm.trace = trace
	}
}

// WithTable replaces the opcode dispatch table.
func WithTable(t *Table) Option {
	return func(vm *VM) {
		vm.table = t
	}
}

// New creates a VM with the default dispatch table and limits.
func New(opts ...Option) *VM {
	vm := &VM{
		stackLimit: DefaultStackLimit,
		callDepth:  DefaultCallDepth,
		budget:     DefaultInstructionBudget,
		log:        logger.For("SCRIPT"),
	}

	for _, opt := range opts {
		opt(vm)
	}

	if vm.table == nil {
		vm.table = DefaultTable()
	}
	if vm.log == nil {
		vm.log = logger.GetLogger()
	}

	return vm
}

// Table returns the dispatch table in use.
func (vm *VM) Table() *Table {
	return vm.table
}

// NewScript creates a Script instance of prog owned by the given entity.
func (vm *VM) NewScript(prog *Program, owner entity.Handle) *Script {
	return &Script{
		vm:      vm,
		prog:    prog,
		owner:   owner,
		stack:   NewStack(vm.stackLimit),
		calls:   NewCallStack(vm.callDepth),
		globals: zeroValues(prog.Globals),
		log:     vm.log.With("script", prog.Name, "owner", owner.String()),
	}
}
