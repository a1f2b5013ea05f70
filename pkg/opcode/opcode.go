// Package opcode defines the instruction set for the script virtual machine.
// This package is the foundation that both the assembler and VM depend on.
// The assembler generates Instruction sequences, and the VM executes them.
//
// Opcode numbers follow the numbering used by compiled Fallout scripts so
// that listings and logs can be cross-referenced with existing tooling.
package opcode

import (
	"fmt"
	"sort"
)

// Code identifies a single VM operation.
type Code uint16

// Literal pushes.
const (
	// PushString pushes Program.Strings[Arg].
	PushString Code = 0x9001
	// PushFloat pushes Program.Floats[Arg].
	PushFloat Code = 0xA001
	// PushInt pushes Arg as an integer.
	PushInt Code = 0xC001
)

// Stack and control flow.
const (
	Noop          Code = 0x8000
	CriticalStart Code = 0x8002
	CriticalDone  Code = 0x8003

	// Jump continues execution at instruction Arg.
	Jump Code = 0x8004

	// Call pops a procedure index, then that procedure's arguments.
	Call Code = 0x8005

	// Exit ends the current invocation and marks the script initialized.
	Exit Code = 0x8010

	// FetchGlobal / StoreGlobal access script-global slot Arg.
	FetchGlobal Code = 0x8012
	StoreGlobal Code = 0x8013

	Swap Code = 0x8018
	Pop  Code = 0x801A
	Dup  Code = 0x801B

	// Return leaves the current procedure.
	Return Code = 0x801C

	// LookupStringProc pops a procedure name and pushes its index.
	LookupStringProc Code = 0x8028

	// If pops a condition and jumps to Arg when it is false.
	If Code = 0x802F
	// While is encoded like If; compilers emit it at loop heads.
	While Code = 0x8030

	// Store / Fetch access local slot Arg of the current procedure.
	Store Code = 0x8031
	Fetch Code = 0x8032
)

// Comparison, arithmetic and logic.
const (
	Equal        Code = 0x8033
	NotEqual     Code = 0x8034
	LessEqual    Code = 0x8035
	GreaterEqual Code = 0x8036
	Less         Code = 0x8037
	Greater      Code = 0x8038
	Add          Code = 0x8039
	Sub          Code = 0x803A
	Mul          Code = 0x803B
	Div          Code = 0x803C
	Mod          Code = 0x803D
	And          Code = 0x803E
	Or           Code = 0x803F
	BitAnd       Code = 0x8040
	BitOr        Code = 0x8041
	BitXor       Code = 0x8042
	BitNot       Code = 0x8043
	Floor        Code = 0x8044
	Not          Code = 0x8045
	Negate       Code = 0x8046
)

// Game procedures.
const (
	GiveExpPoints       Code = 0x80A1
	PlaySfx             Code = 0x80A3
	ObjName             Code = 0x80A4
	OverrideMapStart    Code = 0x80A9
	Random              Code = 0x80B4
	MoveTo              Code = 0x80B6
	CreateObjectSid     Code = 0x80B7
	DisplayMsg          Code = 0x80B8
	ScriptOverrides     Code = 0x80B9
	ObjIsCarryingObjPid Code = 0x80BA
	SelfObj             Code = 0x80BC
	SourceObj           Code = 0x80BD
	TargetObj           Code = 0x80BE
	DudeObj             Code = 0x80BF
	LocalVar            Code = 0x80C1
	SetLocalVar         Code = 0x80C2
	MapVar              Code = 0x80C3
	SetMapVar           Code = 0x80C4
	GlobalVar           Code = 0x80C5
	SetGlobalVar        Code = 0x80C6
	ObjType             Code = 0x80C8
	GetCritterStat      Code = 0x80CA
	SetCritterStat      Code = 0x80CB
	TileDistance        Code = 0x80D2
	TileDistanceObjs    Code = 0x80D3
	TileNum             Code = 0x80D4
	TileNumInDirection  Code = 0x80D5
	AddObjToInven       Code = 0x80D8
	RmObjFromInven      Code = 0x80D9
	AnimBusy            Code = 0x80E7
	GameTime            Code = 0x80EA
	Elevation           Code = 0x80EC
	AddTimerEvent       Code = 0x80F0
	RmTimerEvent        Code = 0x80F1
	GameTicks           Code = 0x80F2
	DestroyObject       Code = 0x80F4
	GameTimeHour        Code = 0x80F6
	FixedParam          Code = 0x80F7
	GameTimeAdvance     Code = 0x80FC
	ObjPid              Code = 0x8100
	MessageStr          Code = 0x8105
	FloatMsg            Code = 0x810A
	AddMultObjsToInven  Code = 0x8116
	GetMonth            Code = 0x8118
	GetDay              Code = 0x8119
	GsayStart           Code = 0x811C
	GsayEnd             Code = 0x811D
	GsayReply           Code = 0x811E
	GiqOption           Code = 0x8121
	Poison              Code = 0x8122
	GetPoison           Code = 0x8123
	IsLocked            Code = 0x812D
	Lock                Code = 0x812E
	Unlock              Code = 0x812F
	ObjIsOpen           Code = 0x8130
	ObjOpen             Code = 0x8131
	ObjClose            Code = 0x8132
	UseObjOnObj         Code = 0x8145
	ObjOnScreen         Code = 0x8150
	DebugMsg            Code = 0x8154
)

// Instruction is a single decoded VM instruction.
// Arg carries the immediate operand: an integer literal, a literal pool
// index, a variable slot or a jump target, depending on Op.
type Instruction struct {
	_   struct{} `cbor:",toarray"`
	Op  Code
	Arg int32
}

// String returns a listing form such as "push_int 5".
func (in Instruction) String() string {
	if HasArg(in.Op) {
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	}
	return in.Op.String()
}

var names = map[Code]string{
	PushString: "push_string",
	PushFloat:  "push_float",
	PushInt:    "push_int",

	Noop:             "noop",
	CriticalStart:    "critical_start",
	CriticalDone:     "critical_done",
	Jump:             "jmp",
	Call:             "call",
	Exit:             "exit_prog",
	FetchGlobal:      "fetch_global",
	StoreGlobal:      "store_global",
	Swap:             "swap",
	Pop:              "pop",
	Dup:              "dup",
	Return:           "return",
	LookupStringProc: "lookup_string_proc",
	If:               "if",
	While:            "while",
	Store:            "store",
	Fetch:            "fetch",

	Equal:        "equal",
	NotEqual:     "not_equal",
	LessEqual:    "less_equal",
	GreaterEqual: "greater_equal",
	Less:         "less",
	Greater:      "greater",
	Add:          "add",
	Sub:          "sub",
	Mul:          "mul",
	Div:          "div",
	Mod:          "mod",
	And:          "and",
	Or:           "or",
	BitAnd:       "bwand",
	BitOr:        "bwor",
	BitXor:       "bwxor",
	BitNot:       "bwnot",
	Floor:        "floor",
	Not:          "not",
	Negate:       "negate",

	GiveExpPoints:       "give_exp_points",
	PlaySfx:             "play_sfx",
	ObjName:             "obj_name",
	OverrideMapStart:    "override_map_start",
	Random:              "random",
	MoveTo:              "move_to",
	CreateObjectSid:     "create_object_sid",
	DisplayMsg:          "display_msg",
	ScriptOverrides:     "script_overrides",
	ObjIsCarryingObjPid: "obj_is_carrying_obj_pid",
	SelfObj:             "self_obj",
	SourceObj:           "source_obj",
	TargetObj:           "target_obj",
	DudeObj:             "dude_obj",
	LocalVar:            "local_var",
	SetLocalVar:         "set_local_var",
	MapVar:              "map_var",
	SetMapVar:           "set_map_var",
	GlobalVar:           "global_var",
	SetGlobalVar:        "set_global_var",
	ObjType:             "obj_type",
	GetCritterStat:      "get_critter_stat",
	SetCritterStat:      "set_critter_stat",
	TileDistance:        "tile_distance",
	TileDistanceObjs:    "tile_distance_objs",
	TileNum:             "tile_num",
	TileNumInDirection:  "tile_num_in_direction",
	AddObjToInven:       "add_obj_to_inven",
	RmObjFromInven:      "rm_obj_from_inven",
	AnimBusy:            "anim_busy",
	GameTime:            "game_time",
	Elevation:           "elevation",
	AddTimerEvent:       "add_timer_event",
	RmTimerEvent:        "rm_timer_event",
	GameTicks:           "game_ticks",
	DestroyObject:       "destroy_object",
	GameTimeHour:        "game_time_hour",
	FixedParam:          "fixed_param",
	GameTimeAdvance:     "game_time_advance",
	ObjPid:              "obj_pid",
	MessageStr:          "message_str",
	FloatMsg:            "float_msg",
	AddMultObjsToInven:  "add_mult_objs_to_inven",
	GetMonth:            "get_month",
	GetDay:              "get_day",
	GsayStart:           "gsay_start",
	GsayEnd:             "gsay_end",
	GsayReply:           "gsay_reply",
	GiqOption:           "giq_option",
	Poison:              "poison",
	GetPoison:           "get_poison",
	IsLocked:            "is_locked",
	Lock:                "lock",
	Unlock:              "unlock",
	ObjIsOpen:           "obj_is_open",
	ObjOpen:             "obj_open",
	ObjClose:            "obj_close",
	UseObjOnObj:         "use_obj_on_obj",
	ObjOnScreen:         "obj_on_screen",
	DebugMsg:            "debug_msg",
}

var byName map[string]Code

func init() {
	byName = make(map[string]Code, len(names))
	for c, n := range names {
		byName[n] = c
	}
}

// String returns the mnemonic, or the hex number for unknown codes.
func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("op_%04X", uint16(c))
}

// Known reports whether c is part of the instruction set.
func Known(c Code) bool {
	_, ok := names[c]
	return ok
}

// Lookup returns the code for a mnemonic.
func Lookup(name string) (Code, bool) {
	c, ok := byName[name]
	return c, ok
}

// HasArg reports whether the immediate operand of c is meaningful.
func HasArg(c Code) bool {
	switch c {
	case PushString, PushFloat, PushInt,
		Jump, If, While,
		FetchGlobal, StoreGlobal, Store, Fetch:
		return true
	default:
		return false
	}
}

// IsBranch reports whether Arg of c is an instruction index.
func IsBranch(c Code) bool {
	switch c {
	case Jump, If, While:
		return true
	default:
		return false
	}
}

// All returns every known code in ascending order.
func All() []Code {
	codes := make([]Code, 0, len(names))
	for c := range names {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
