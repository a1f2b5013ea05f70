package vm

import (
	"github.com/zurustar/intvm/pkg/opcode"
)

// Handler implements one opcode. It pops its operands from e, performs its
// effect and pushes at most one result.
type Handler func(e *Exec) error

// Table maps opcodes to handlers.
type Table struct {
	handlers map[opcode.Code]Handler
}

// NewTable creates an empty dispatch table.
func NewTable() *Table {
	return &Table{handlers: make(map[opcode.Code]Handler)}
}

// Register installs h for code, replacing any previous handler.
func (t *Table) Register(code opcode.Code, h Handler) {
	t.handlers[code] = h
}

// Lookup returns the handler for code.
func (t *Table) Lookup(code opcode.Code) (Handler, bool) {
	h, ok := t.handlers[code]
	return h, ok
}

// Len returns the number of registered opcodes.
func (t *Table) Len() int {
	return len(t.handlers)
}

// Clone returns an independent copy that can be extended.
func (t *Table) Clone() *Table {
	c := NewTable()
	for code, h := range t.handlers {
		c.handlers[code] = h
	}
	return c
}

// DefaultTable returns a table with every built-in opcode registered.
func DefaultTable() *Table {
	t := NewTable()
	registerStackOps(t)
	registerControlOps(t)
	registerArithmeticOps(t)
	registerComparisonOps(t)
	registerLogicOps(t)
	registerObjectOps(t)
	registerWorldOps(t)
	registerMessageOps(t)
	return t
}
