// Package asm assembles script programs from a line-oriented text form.
//
// Each line holds an optional label, then a directive or an instruction:
//
//	; door script
//	.globals 1
//	        push 0
//	        store_global 0          ; top-level code, ends with exit_prog
//	.proc use_p_proc
//	        push @describe
//	        call
//	        return
//	.proc describe args=0 locals=1 returns
//	loop:   fetch 0
//	        if done
//	        push "still here"
//	        display_msg
//	        jmp loop
//	done:   push 1.5
//	        return
//
// Directives are .name, .globals and .proc (with optional args=N, locals=N
// and returns). Code before the first .proc is the top-level code; exit_prog
// is appended to it when missing. push infers the literal kind: quoted text,
// integers, floats, and @proc for a procedure index. Branch operands are
// labels or instruction numbers. Unknown opcodes can be written as op_XXXX.
package asm

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/zurustar/intvm/pkg/fileutil"
	"github.com/zurustar/intvm/pkg/opcode"
	"github.com/zurustar/intvm/pkg/vm"
)

// Assemble builds a program from source. All errors found are returned
// joined; each is an *Error.
func Assemble(name, source string) (*vm.Program, error) {
	a := &assembler{
		source:  source,
		prog:    vm.Program{Name: name},
		strings: make(map[string]int32),
		floats:  make(map[uint32]int32),
		labels:  make(map[string]int),
		procs:   make(map[string]int),
	}
	for i, line := range strings.Split(source, "\n") {
		a.line(i+1, line)
	}
	a.finish()
	if len(a.errs) > 0 {
		return nil, errors.Join(a.errs...)
	}

	prog, err := vm.NewProgram(a.prog)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", name, err)
	}
	return prog, nil
}

// MustAssemble is like Assemble but panics on error.
func MustAssemble(name, source string) *vm.Program {
	prog, err := Assemble(name, source)
	if err != nil {
		panic(err)
	}
	return prog
}

// AssembleFS reads file from fsys, decodes it with enc and assembles it.
// The program is named after the file, lower case without extension.
func AssembleFS(fsys fs.FS, file string, enc encoding.Encoding) (*vm.Program, error) {
	source, err := fileutil.ReadTextFS(fsys, file, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	base := path.Base(file)
	name := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
	return Assemble(name, source)
}

type fixup struct {
	pc     int
	name   string
	proc   bool
	line   int
	column int
}

type assembler struct {
	source string
	prog   vm.Program

	strings map[string]int32
	floats  map[uint32]int32
	labels  map[string]int
	procs   map[string]int
	// procLines holds the .proc line of each procedure for error reports.
	procLines []int

	fixups []fixup
	inProc bool
	errs   []error
}

func (a *assembler) errorf(line, column int, format string, args ...any) {
	a.errs = append(a.errs, &Error{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
		Context: ErrorContext(a.source, line, column),
	})
}

func (a *assembler) emit(op opcode.Code, arg int32) int {
	a.prog.Code = append(a.prog.Code, opcode.Instruction{Op: op, Arg: arg})
	return len(a.prog.Code) - 1
}

func (a *assembler) line(n int, text string) {
	toks, col, err := tokenize(text)
	if err != nil {
		a.errorf(n, col, "%v", err)
		return
	}
	if len(toks) == 0 {
		return
	}

	if first := toks[0]; !first.quoted && strings.HasSuffix(first.text, ":") {
		label := strings.TrimSuffix(first.text, ":")
		switch {
		case !isIdent(label):
			a.errorf(n, first.col, "invalid label %q", label)
		case a.hasLabel(label):
			a.errorf(n, first.col, "duplicate label %q", label)
		default:
			a.labels[label] = len(a.prog.Code)
		}
		toks = toks[1:]
		if len(toks) == 0 {
			return
		}
	}

	if strings.HasPrefix(toks[0].text, ".") && !toks[0].quoted {
		a.directive(n, toks)
		return
	}
	a.instruction(n, toks)
}

func (a *assembler) hasLabel(name string) bool {
	_, ok := a.labels[name]
	return ok
}

func (a *assembler) directive(n int, toks []token) {
	d := toks[0]
	switch d.text {
	case ".name":
		if len(toks) != 2 {
			a.errorf(n, d.col, ".name takes one operand")
			return
		}
		a.prog.Name = toks[1].text
	case ".globals":
		if len(toks) != 2 {
			a.errorf(n, d.col, ".globals takes one operand")
			return
		}
		v, ok := a.count(n, toks[1])
		if ok {
			a.prog.Globals = v
		}
	case ".proc":
		a.proc(n, toks)
	default:
		a.errorf(n, d.col, "unknown directive %s", d.text)
	}
}

func (a *assembler) proc(n int, toks []token) {
	if len(toks) < 2 {
		a.errorf(n, toks[0].col, ".proc needs a name")
		return
	}
	name := toks[1]
	if !isIdent(name.text) {
		a.errorf(n, name.col, "invalid procedure name %q", name.text)
		return
	}
	if _, dup := a.procs[name.text]; dup {
		a.errorf(n, name.col, "duplicate procedure %s", name.text)
		return
	}
	a.endInit()

	p := vm.Procedure{Name: name.text, Entry: len(a.prog.Code)}
	for _, opt := range toks[2:] {
		key, val, hasVal := strings.Cut(opt.text, "=")
		switch {
		case key == "returns" && !hasVal:
			p.Returns = true
		case key == "args" && hasVal:
			p.ArgCount, _ = a.count(n, token{text: val, col: opt.col + len(key) + 1})
		case key == "locals" && hasVal:
			p.Locals, _ = a.count(n, token{text: val, col: opt.col + len(key) + 1})
		default:
			a.errorf(n, opt.col, "unknown procedure option %q", opt.text)
		}
	}

	a.procs[name.text] = len(a.prog.Procedures)
	a.prog.Procedures = append(a.prog.Procedures, p)
	a.procLines = append(a.procLines, n)
}

// endInit closes the top-level code.
func (a *assembler) endInit() {
	if a.inProc {
		return
	}
	a.inProc = true
	if k := len(a.prog.Code); k == 0 || a.prog.Code[k-1].Op != opcode.Exit {
		a.emit(opcode.Exit, 0)
	}
	a.prog.InitEnd = len(a.prog.Code)
}

func (a *assembler) instruction(n int, toks []token) {
	mn := toks[0]
	if mn.quoted {
		a.errorf(n, mn.col, "expected instruction, got string")
		return
	}
	args := toks[1:]

	if mn.text == "push" {
		if len(args) != 1 {
			a.errorf(n, mn.col, "push takes one operand")
			return
		}
		a.push(n, args[0])
		return
	}

	op, ok := lookup(mn.text)
	if !ok {
		a.errorf(n, mn.col, "unknown instruction %s", mn.text)
		return
	}
	if !opcode.Known(op) {
		// Raw codes keep an optional operand.
		var arg int32
		if len(args) == 1 {
			arg, _ = a.integer(n, args[0])
		} else if len(args) > 1 {
			a.errorf(n, args[1].col, "too many operands")
		}
		a.emit(op, arg)
		return
	}

	if !opcode.HasArg(op) {
		if len(args) != 0 {
			a.errorf(n, args[0].col, "%s takes no operand", op)
			return
		}
		a.emit(op, 0)
		return
	}
	if len(args) != 1 {
		a.errorf(n, mn.col, "%s takes one operand", op)
		return
	}

	arg := args[0]
	switch {
	case op == opcode.PushString:
		if !arg.quoted {
			a.errorf(n, arg.col, "push_string needs a quoted string")
			return
		}
		a.push(n, arg)
	case op == opcode.PushFloat:
		f, err := strconv.ParseFloat(arg.text, 32)
		if err != nil || arg.quoted {
			a.errorf(n, arg.col, "invalid float %q", arg.text)
			return
		}
		a.emit(opcode.PushFloat, a.floatIndex(float32(f)))
	case op == opcode.PushInt:
		if strings.HasPrefix(arg.text, "@") && !arg.quoted {
			a.push(n, arg)
			return
		}
		if v, ok := a.integer(n, arg); ok {
			a.emit(opcode.PushInt, v)
		}
	case opcode.IsBranch(op):
		if v, err := strconv.ParseInt(arg.text, 0, 32); err == nil && !arg.quoted {
			a.emit(op, int32(v))
			return
		}
		if !isIdent(arg.text) || arg.quoted {
			a.errorf(n, arg.col, "invalid branch target %q", arg.text)
			return
		}
		pc := a.emit(op, 0)
		a.fixups = append(a.fixups, fixup{pc: pc, name: arg.text, line: n, column: arg.col})
	default:
		if v, ok := a.integer(n, arg); ok {
			a.emit(op, v)
		}
	}
}

// push emits the literal push matching the operand's form.
func (a *assembler) push(n int, arg token) {
	if arg.quoted {
		a.emit(opcode.PushString, a.stringIndex(arg.text))
		return
	}
	if name, ok := strings.CutPrefix(arg.text, "@"); ok {
		if !isIdent(name) {
			a.errorf(n, arg.col, "invalid procedure reference %q", arg.text)
			return
		}
		pc := a.emit(opcode.PushInt, 0)
		a.fixups = append(a.fixups, fixup{pc: pc, name: name, proc: true, line: n, column: arg.col})
		return
	}
	if v, err := strconv.ParseInt(arg.text, 0, 32); err == nil {
		a.emit(opcode.PushInt, int32(v))
		return
	}
	if f, err := strconv.ParseFloat(arg.text, 32); err == nil {
		a.emit(opcode.PushFloat, a.floatIndex(float32(f)))
		return
	}
	a.errorf(n, arg.col, "invalid literal %q", arg.text)
}

func (a *assembler) stringIndex(s string) int32 {
	if i, ok := a.strings[s]; ok {
		return i
	}
	i := int32(len(a.prog.Strings))
	a.strings[s] = i
	a.prog.Strings = append(a.prog.Strings, s)
	return i
}

func (a *assembler) floatIndex(f float32) int32 {
	bits := math.Float32bits(f)
	if i, ok := a.floats[bits]; ok {
		return i
	}
	i := int32(len(a.prog.Floats))
	a.floats[bits] = i
	a.prog.Floats = append(a.prog.Floats, f)
	return i
}

func (a *assembler) integer(n int, t token) (int32, bool) {
	v, err := strconv.ParseInt(t.text, 0, 32)
	if err != nil || t.quoted {
		a.errorf(n, t.col, "invalid integer %q", t.text)
		return 0, false
	}
	return int32(v), true
}

func (a *assembler) count(n int, t token) (int, bool) {
	v, ok := a.integer(n, t)
	if ok && v < 0 {
		a.errorf(n, t.col, "count must not be negative")
		return 0, false
	}
	return int(v), ok
}

func (a *assembler) finish() {
	a.endInit()

	for i, p := range a.prog.Procedures {
		if p.Entry >= len(a.prog.Code) {
			a.errorf(a.procLines[i], 1, "procedure %s has no body", p.Name)
		}
	}

	for _, f := range a.fixups {
		if f.proc {
			i, ok := a.procs[f.name]
			if !ok {
				a.errorf(f.line, f.column, "undefined procedure %s", f.name)
				continue
			}
			a.prog.Code[f.pc].Arg = int32(i)
			continue
		}
		pc, ok := a.labels[f.name]
		if !ok {
			a.errorf(f.line, f.column, "undefined label %s", f.name)
			continue
		}
		a.prog.Code[f.pc].Arg = int32(pc)
	}
}

// lookup resolves a mnemonic or a raw op_XXXX code.
func lookup(name string) (opcode.Code, bool) {
	if op, ok := opcode.Lookup(name); ok {
		return op, true
	}
	hex, ok := strings.CutPrefix(name, "op_")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, false
	}
	return opcode.Code(v), true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
