package vm

import (
	"fmt"

	"github.com/zurustar/intvm/pkg/opcode"
)

// Standard procedure names probed by the engine.
const (
	ProcStart          = "start"
	ProcMapEnter       = "map_enter_p_proc"
	ProcMapUpdate      = "map_update_p_proc"
	ProcMapExit        = "map_exit_p_proc"
	ProcUse            = "use_p_proc"
	ProcUseObjOn       = "use_obj_on_p_proc"
	ProcUseSkillOn     = "use_skill_on_p_proc"
	ProcLookAt         = "look_at_p_proc"
	ProcDescription    = "description_p_proc"
	ProcTalk           = "talk_p_proc"
	ProcTimedEvent     = "timed_event_p_proc"
	ProcPickup         = "pickup_p_proc"
	ProcCritter        = "critter_p_proc"
	ProcDestroy        = "destroy_p_proc"
	ProcDamage         = "damage_p_proc"
	ProcSpatial        = "spatial_p_proc"
	ProcCombat         = "combat_p_proc"
	ProcPush           = "push_p_proc"
	ProcIsDropping     = "is_dropping_p_proc"
	ProcBarterInitProc = "barter_init_p_proc"
)

// Procedure is a named entry point inside a Program.
type Procedure struct {
	Name     string `cbor:"1,keyasint"`
	Entry    int    `cbor:"2,keyasint"`
	ArgCount int    `cbor:"3,keyasint"`
	Locals   int    `cbor:"4,keyasint"` // local slots beyond the arguments
	Returns  bool   `cbor:"5,keyasint"`
}

// Program is an immutable compiled unit shared by every Script built from it.
type Program struct {
	Name       string               `cbor:"1,keyasint"`
	Code       []opcode.Instruction `cbor:"2,keyasint"`
	Strings    []string             `cbor:"3,keyasint"`
	Floats     []float32            `cbor:"4,keyasint"`
	Procedures []Procedure          `cbor:"5,keyasint"`
	Globals    int                  `cbor:"6,keyasint"`
	InitEnd    int                  `cbor:"7,keyasint"` // end of top-level code; 0 means len(Code)

	byName map[string]int
}

// NewProgram validates a compiled unit and builds its procedure index.
// Unknown opcodes are accepted here; they fault at run time.
func NewProgram(p Program) (*Program, error) {
	prog := p
	if err := prog.index(); err != nil {
		return nil, err
	}
	return &prog, nil
}

// index validates references and fills byName.
func (p *Program) index() error {
	n := len(p.Code)
	if p.InitEnd < 0 || p.InitEnd > n {
		return fmt.Errorf("program %s: init end %d out of range", p.Name, p.InitEnd)
	}
	if p.Globals < 0 {
		return fmt.Errorf("program %s: negative global count", p.Name)
	}

	p.byName = make(map[string]int, len(p.Procedures))
	for i, proc := range p.Procedures {
		if proc.Entry < 0 || proc.Entry >= n {
			return fmt.Errorf("program %s: procedure %s entry %d out of range", p.Name, proc.Name, proc.Entry)
		}
		if proc.ArgCount < 0 || proc.Locals < 0 {
			return fmt.Errorf("program %s: procedure %s has negative slot count", p.Name, proc.Name)
		}
		if _, dup := p.byName[proc.Name]; dup {
			return fmt.Errorf("program %s: duplicate procedure %s", p.Name, proc.Name)
		}
		p.byName[proc.Name] = i
	}

	for pc, in := range p.Code {
		switch {
		case opcode.IsBranch(in.Op):
			if in.Arg < 0 || int(in.Arg) > n {
				return fmt.Errorf("program %s: pc %d: %s target %d out of range", p.Name, pc, in.Op, in.Arg)
			}
		case in.Op == opcode.PushString:
			if in.Arg < 0 || int(in.Arg) >= len(p.Strings) {
				return fmt.Errorf("program %s: pc %d: string %d out of range", p.Name, pc, in.Arg)
			}
		case in.Op == opcode.PushFloat:
			if in.Arg < 0 || int(in.Arg) >= len(p.Floats) {
				return fmt.Errorf("program %s: pc %d: float %d out of range", p.Name, pc, in.Arg)
			}
		case in.Op == opcode.FetchGlobal || in.Op == opcode.StoreGlobal:
			if in.Arg < 0 || int(in.Arg) >= p.Globals {
				return fmt.Errorf("program %s: pc %d: global %d out of range", p.Name, pc, in.Arg)
			}
		}
	}
	return nil
}

// Reindex rebuilds the procedure index after decoding.
func (p *Program) Reindex() error {
	return p.index()
}

// Procedure returns the procedure with the given name.
func (p *Program) Procedure(name string) (Procedure, int, bool) {
	i, ok := p.byName[name]
	if !ok {
		return Procedure{}, -1, false
	}
	return p.Procedures[i], i, true
}

// HasProcedure reports whether name is defined.
func (p *Program) HasProcedure(name string) bool {
	_, ok := p.byName[name]
	return ok
}

// initEnd returns the first offset past the top-level code.
func (p *Program) initEnd() int {
	if p.InitEnd == 0 {
		return len(p.Code)
	}
	return p.InitEnd
}

// Listing returns a human readable disassembly.
func (p *Program) Listing() []string {
	entries := make(map[int]string, len(p.Procedures))
	for _, proc := range p.Procedures {
		entries[proc.Entry] = proc.Name
	}
	out := make([]string, 0, len(p.Code)+len(p.Procedures))
	for pc, in := range p.Code {
		if name, ok := entries[pc]; ok {
			out = append(out, name+":")
		}
		line := fmt.Sprintf("%5d  %s", pc, in)
		switch in.Op {
		case opcode.PushString:
			line += fmt.Sprintf("\t; %q", p.Strings[in.Arg])
		case opcode.PushFloat:
			line += fmt.Sprintf("\t; %g", p.Floats[in.Arg])
		}
		out = append(out, line)
	}
	return out
}
