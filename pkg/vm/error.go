package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/intvm/pkg/opcode"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Fatal errors - the invocation is aborted and logged at error level
	ErrorCallStackOverflow ErrorType = "CALL_STACK_OVERFLOW"
	ErrorBudgetExceeded    ErrorType = "BUDGET_EXCEEDED"

	// Non-fatal errors - the invocation is aborted, the script stays usable
	ErrorStackUnderflow     ErrorType = "STACK_UNDERFLOW"
	ErrorStackOverflow      ErrorType = "STACK_OVERFLOW"
	ErrorCallStackUnderflow ErrorType = "CALL_STACK_UNDERFLOW"
	ErrorUnknownOpcode      ErrorType = "UNKNOWN_OPCODE"
	ErrorInvalidOperandType ErrorType = "INVALID_OPERAND_TYPE"
	ErrorOutOfRange         ErrorType = "OUT_OF_RANGE"
	ErrorArithmeticOverflow ErrorType = "ARITHMETIC_OVERFLOW"
	ErrorDivisionByZero     ErrorType = "DIVISION_BY_ZERO"
	ErrorScript             ErrorType = "SCRIPT_ERROR"
)

// Sentinels for errors.Is. A *RuntimeError matches the sentinel of the same type.
var (
	ErrStackUnderflow     = &RuntimeError{Type: ErrorStackUnderflow}
	ErrStackOverflow      = &RuntimeError{Type: ErrorStackOverflow}
	ErrCallStackUnderflow = &RuntimeError{Type: ErrorCallStackUnderflow}
	ErrCallStackOverflow  = &RuntimeError{Type: ErrorCallStackOverflow}
	ErrUnknownOpcode      = &RuntimeError{Type: ErrorUnknownOpcode}
	ErrInvalidOperandType = &RuntimeError{Type: ErrorInvalidOperandType}
	ErrOutOfRange         = &RuntimeError{Type: ErrorOutOfRange}
	ErrArithmeticOverflow = &RuntimeError{Type: ErrorArithmeticOverflow}
	ErrDivisionByZero     = &RuntimeError{Type: ErrorDivisionByZero}
	ErrBudgetExceeded     = &RuntimeError{Type: ErrorBudgetExceeded}
	ErrScript             = &RuntimeError{Type: ErrorScript}
)

// RuntimeError represents a failed procedure invocation.
// Script, Procedure, PC and Op are filled in by the interpreter loop when the
// error leaves a handler; handlers only set Type and Message.
type RuntimeError struct {
	Type      ErrorType
	Message   string
	Script    string
	Procedure string
	PC        int // -1 when not known
	Op        opcode.Code
	Operands  []string // type names of the operands involved
	Cause     error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	switch {
	case e.PC >= 0 && e.Procedure != "":
		return fmt.Sprintf("[%s] %s in %s:%s at pc %d (%s)", e.Type, msg, e.Script, e.Procedure, e.PC, e.Op)
	case e.PC >= 0:
		return fmt.Sprintf("[%s] %s at pc %d (%s)", e.Type, msg, e.PC, e.Op)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, msg)
	}
}

// Unwrap returns the collaborator error that caused the fault, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Is matches any RuntimeError with the same Type.
func (e *RuntimeError) Is(target error) bool {
	var t *RuntimeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// IsFatal reports whether the error belongs to the resource-exhaustion class.
// Fatal errors still only abort the current invocation; they are reported
// at error level so runaway scripts stand out in the log.
func (e *RuntimeError) IsFatal() bool {
	switch e.Type {
	case ErrorCallStackOverflow, ErrorBudgetExceeded:
		return true
	default:
		return false
	}
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		PC:      -1,
	}
}

// Error helper functions for common error types

// NewStackUnderflowError creates a stack underflow error.
func NewStackUnderflowError() *RuntimeError {
	return NewRuntimeError(ErrorStackUnderflow, "pop from empty operand stack")
}

// NewStackOverflowError creates an operand stack overflow error.
func NewStackOverflowError(limit int) *RuntimeError {
	return NewRuntimeError(ErrorStackOverflow, fmt.Sprintf("operand stack exceeds %d values", limit))
}

// NewCallStackOverflowError creates a call stack overflow error.
func NewCallStackOverflowError(limit int) *RuntimeError {
	return NewRuntimeError(ErrorCallStackOverflow, fmt.Sprintf("call depth exceeds maximum %d", limit))
}

// NewCallStackUnderflowError creates a return-without-call error.
func NewCallStackUnderflowError() *RuntimeError {
	return NewRuntimeError(ErrorCallStackUnderflow, "return with empty call stack")
}

// NewUnknownOpcodeError creates an unknown opcode error.
func NewUnknownOpcodeError(op opcode.Code) *RuntimeError {
	e := NewRuntimeError(ErrorUnknownOpcode, fmt.Sprintf("no handler for opcode 0x%04X", uint16(op)))
	e.Op = op
	return e
}

// NewInvalidOperandError creates an operand type error listing the offending values.
func NewInvalidOperandError(what string, operands ...Value) *RuntimeError {
	e := NewRuntimeError(ErrorInvalidOperandType, what)
	for _, v := range operands {
		e.Operands = append(e.Operands, v.TypeName())
	}
	if len(e.Operands) > 0 {
		e.Message = fmt.Sprintf("%s: %v", what, e.Operands)
	}
	return e
}

// NewOutOfRangeError creates an index out of range error.
func NewOutOfRangeError(what string, index, length int) *RuntimeError {
	return NewRuntimeError(ErrorOutOfRange, fmt.Sprintf("%s %d out of range (length %d)", what, index, length))
}

// NewArithmeticOverflowError creates an integer overflow error.
func NewArithmeticOverflowError(op string, a, b int64) *RuntimeError {
	return NewRuntimeError(ErrorArithmeticOverflow, fmt.Sprintf("%d %s %d overflows int32", a, op, b))
}

// NewDivisionByZeroError creates a division by zero error.
func NewDivisionByZeroError() *RuntimeError {
	return NewRuntimeError(ErrorDivisionByZero, "division by zero")
}

// wrapError converts an error returned by a collaborator into a script error.
// A RuntimeError wrapped by the collaborator keeps its type.
func wrapError(err error) *RuntimeError {
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	var inner *RuntimeError
	if errors.As(err, &inner) {
		e := NewRuntimeError(inner.Type, err.Error())
		e.Operands = inner.Operands
		e.Cause = err
		return e
	}
	e := NewRuntimeError(ErrorScript, err.Error())
	e.Cause = err
	return e
}

// NewScriptError creates the error raised by _error in opcode handlers.
func NewScriptError(format string, args ...any) *RuntimeError {
	return NewRuntimeError(ErrorScript, fmt.Sprintf(format, args...))
}
