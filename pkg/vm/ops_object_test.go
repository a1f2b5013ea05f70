package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/opcode"
)

// runOn runs code as a returning procedure of a script owned by owner.
func runOn(t *testing.T, w *fakeWorld, owner entity.Handle, code ...opcode.Instruction) (Value, error) {
	t.Helper()
	code = append(code, ins(opcode.Return))
	prog := program(t, "f", true, code...)
	return New().NewScript(prog, owner).Call(context.Background(), w, "f", 0)
}

func TestObjectOps_Inventory(t *testing.T) {
	w := newFakeWorld()
	stimpak := w.add(&fakeObject{name: "stimpak", pid: 40})
	scenery := w.add(&fakeObject{name: "rock", typ: TypeScenery})
	_ = w.objects[w.dude].Add(stimpak, 3)

	v, err := runOn(t, w, w.dude,
		ins(opcode.SelfObj), ins(opcode.PushInt, 40), ins(opcode.ObjIsCarryingObjPid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(Int(3)) {
		t.Errorf("obj_is_carrying_obj_pid = %#v, want 3", v)
	}

	_, err = runOn(t, w, scenery,
		ins(opcode.SelfObj), ins(opcode.PushInt, 40), ins(opcode.ObjIsCarryingObjPid))
	if !errors.Is(err, ErrScript) {
		t.Errorf("inventory query on scenery: got %v, want SCRIPT_ERROR", err)
	}
}

func TestObjectOps_Openable(t *testing.T) {
	w := newFakeWorld()
	opened := false
	door := w.add(&fakeObject{name: "door", typ: TypeScenery, open: &opened})

	v, err := runOn(t, w, door,
		ins(opcode.SelfObj), ins(opcode.ObjOpen),
		ins(opcode.SelfObj), ins(opcode.Lock),
		ins(opcode.SelfObj), ins(opcode.ObjIsOpen),
		ins(opcode.SelfObj), ins(opcode.IsLocked),
		ins(opcode.And))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(Int(1)) || !opened {
		t.Errorf("door should be open and locked: %#v open=%v", v, opened)
	}

	_, err = runOn(t, w, w.dude, ins(opcode.SelfObj), ins(opcode.ObjIsOpen))
	if !errors.Is(err, ErrScript) {
		t.Errorf("obj_is_open on critter: got %v, want SCRIPT_ERROR", err)
	}
}

func TestObjectOps_StaleReference(t *testing.T) {
	w := newFakeWorld()
	box := w.add(&fakeObject{name: "box"})

	// The script destroys its owner and then queries it.
	_, err := runOn(t, w, box,
		ins(opcode.SelfObj), ins(opcode.DestroyObject),
		ins(opcode.SelfObj), ins(opcode.ObjPid))
	if !errors.Is(err, ErrScript) {
		t.Errorf("query on destroyed object: got %v, want SCRIPT_ERROR", err)
	}

	// A destroyed reference still compares equal to itself and unequal to 0.
	v, err := runOn(t, w, box,
		ins(opcode.SelfObj), ins(opcode.PushInt, 0), ins(opcode.NotEqual))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(Int(1)) {
		t.Errorf("self_obj != 0 = %#v, want 1", v)
	}
}

func TestObjectOps_CritterStats(t *testing.T) {
	w := newFakeWorld()

	v, err := runOn(t, w, w.dude,
		ins(opcode.SelfObj), ins(opcode.PushInt, 4), ins(opcode.PushInt, 8), ins(opcode.SetCritterStat), ins(opcode.Pop),
		ins(opcode.SelfObj), ins(opcode.PushInt, 3), ins(opcode.Poison),
		ins(opcode.SelfObj), ins(opcode.PushInt, 4), ins(opcode.GetCritterStat),
		ins(opcode.SelfObj), ins(opcode.GetPoison), ins(opcode.Add))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(Int(11)) {
		t.Errorf("stat + poison = %#v, want 11", v)
	}
}

func TestWorldOps(t *testing.T) {
	tests := []struct {
		name string
		code []opcode.Instruction
		want Value
	}{
		{
			name: "tile_num_in_direction invalid direction",
			code: []opcode.Instruction{ins(opcode.PushInt, 100), ins(opcode.PushInt, 7), ins(opcode.PushInt, 2), ins(opcode.TileNumInDirection)},
			want: Int(100),
		},
		{
			name: "tile_num_in_direction negative distance",
			code: []opcode.Instruction{ins(opcode.PushInt, 100), ins(opcode.PushInt, 1), ins(opcode.PushInt, -1), ins(opcode.TileNumInDirection)},
			want: Int(100),
		},
		{
			name: "tile_num_in_direction",
			code: []opcode.Instruction{ins(opcode.PushInt, 100), ins(opcode.PushInt, 2), ins(opcode.PushInt, 3), ins(opcode.TileNumInDirection)},
			want: Int(2103),
		},
		{
			name: "global var round trip",
			code: []opcode.Instruction{ins(opcode.PushInt, 3), ins(opcode.PushInt, 77), ins(opcode.SetGlobalVar), ins(opcode.PushInt, 3), ins(opcode.GlobalVar)},
			want: Int(77),
		},
		{
			name: "map var takes float",
			code: []opcode.Instruction{ins(opcode.PushInt, 1), ins(opcode.PushFloat, 0), ins(opcode.SetMapVar), ins(opcode.PushInt, 1), ins(opcode.MapVar)},
			want: Int(2),
		},
		{
			name: "game_time_hour",
			code: []opcode.Instruction{ins(opcode.GameTimeHour)},
			want: Int(1230),
		},
		{
			name: "message_str missing",
			code: []opcode.Instruction{ins(opcode.PushInt, 9), ins(opcode.PushInt, 9), ins(opcode.MessageStr)},
			want: String(MessageNotFound),
		},
		{
			name: "message_str",
			code: []opcode.Instruction{ins(opcode.PushInt, 1), ins(opcode.PushInt, 100), ins(opcode.MessageStr)},
			want: String("Hello there."),
		},
		{
			name: "random",
			code: []opcode.Instruction{ins(opcode.PushInt, 6), ins(opcode.PushInt, 1), ins(opcode.Random)},
			want: Int(1),
		},
		{
			name: "dude is not null",
			code: []opcode.Instruction{ins(opcode.DudeObj), ins(opcode.PushInt, 0), ins(opcode.Equal)},
			want: Int(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			got, err := runOn(t, w, w.dude, tt.code...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestWorldOps_SideEffects(t *testing.T) {
	w := newFakeWorld()
	_, err := runOn(t, w, w.dude,
		ins(opcode.PushInt, 10), ins(opcode.PushInt, 20), ins(opcode.PushInt, 0), ins(opcode.PushInt, 2), ins(opcode.OverrideMapStart),
		ins(opcode.PushInt, 25), ins(opcode.GiveExpPoints),
		ins(opcode.PushString, 2), ins(opcode.PlaySfx),
		ins(opcode.PushString, 2), ins(opcode.DisplayMsg),
		ins(opcode.SelfObj), ins(opcode.PushInt, 30), ins(opcode.PushInt, 5), ins(opcode.AddTimerEvent),
		ins(opcode.PushInt, 50), ins(opcode.GameTimeAdvance),
		ins(opcode.PushInt, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.globals[7] != 20*GridWidth+10 {
		t.Errorf("override_map_start tile = %d, want %d", w.globals[7], 20*GridWidth+10)
	}
	if w.exp != 25 {
		t.Errorf("exp = %d, want 25", w.exp)
	}
	if len(w.sounds) != 1 || w.sounds[0] != "hello" {
		t.Errorf("sounds = %v", w.sounds)
	}
	if len(w.displayed) != 1 {
		t.Errorf("displayed = %v", w.displayed)
	}
	if w.timers[w.dude] != 5 {
		t.Errorf("timer param = %d, want 5", w.timers[w.dude])
	}
	if w.ticks != 50 {
		t.Errorf("ticks = %d, want 50", w.ticks)
	}
}

func TestMessageOps_FloatMsgType(t *testing.T) {
	w := newFakeWorld()
	_, err := runOn(t, w, w.dude,
		ins(opcode.SelfObj), ins(opcode.PushString, 2), ins(opcode.PushInt, 99), ins(opcode.FloatMsg), ins(opcode.PushInt, 0))
	if !errors.Is(err, ErrScript) {
		t.Errorf("got %v, want SCRIPT_ERROR", err)
	}

	_, err = runOn(t, w, w.dude,
		ins(opcode.SelfObj), ins(opcode.PushString, 2), ins(opcode.PushInt, 3), ins(opcode.FloatMsg), ins(opcode.PushInt, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.floats) != 1 || w.floats[0] != "hello" {
		t.Errorf("floats = %v", w.floats)
	}
}

func TestMessageOps_GiqOption(t *testing.T) {
	tests := []struct {
		iq      int32
		offered bool
	}{
		{4, true},
		{5, true},
		{6, false},
		{-3, false},
		{-6, true},
		{0, true},
	}

	for _, tt := range tests {
		w := newFakeWorld() // player IQ 5
		_, err := runOn(t, w, w.dude,
			ins(opcode.PushInt, tt.iq),
			ins(opcode.PushInt, 1), ins(opcode.PushInt, 100),
			ins(opcode.PushInt, 0),
			ins(opcode.PushInt, 50),
			ins(opcode.GiqOption),
			ins(opcode.PushInt, 0))
		if err != nil {
			t.Fatalf("iq %d: unexpected error: %v", tt.iq, err)
		}
		if got := len(w.options) == 1; got != tt.offered {
			t.Errorf("iq %d: offered = %v, want %v", tt.iq, got, tt.offered)
		}
		if tt.offered && w.options[0].Text != "Hello there." {
			t.Errorf("iq %d: option text = %q", tt.iq, w.options[0].Text)
		}
	}
}

func TestMessageOps_GsayReplyLiteral(t *testing.T) {
	w := newFakeWorld()
	_, err := runOn(t, w, w.dude,
		ins(opcode.GsayStart),
		ins(opcode.PushInt, 1), ins(opcode.PushString, 2), ins(opcode.GsayReply),
		ins(opcode.GsayEnd),
		ins(opcode.PushInt, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.replies) != 1 || w.replies[0] != "hello" {
		t.Errorf("replies = %v", w.replies)
	}
}

func TestCompare_Table(t *testing.T) {
	obj := Object(entity.Handle{Index: 1, Gen: 1})
	tests := []struct {
		name    string
		a, b    Value
		cmp     int
		eqOnly  bool
		invalid bool
	}{
		{"int int", Int(1), Int(2), -1, false, false},
		{"int float", Int(2), Float(1.5), 1, false, false},
		{"text text", String("a"), String("b"), -1, false, false},
		{"text int", String("5"), Int(5), 0, false, false},
		{"int text", Int(5), String("5"), 0, false, true},
		{"object zero", obj, Int(0), 1, true, false},
		{"zero object", Int(0), obj, 1, true, false},
		{"object object", obj, obj, 0, true, false},
		{"object one", obj, Int(1), 0, false, true},
		{"none", None, None, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, eqOnly, err := Compare(tt.a, tt.b)
			if tt.invalid {
				if !errors.Is(err, ErrInvalidOperandType) {
					t.Errorf("got %v, want INVALID_OPERAND_TYPE", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c != tt.cmp || eqOnly != tt.eqOnly {
				t.Errorf("Compare = %d, %v; want %d, %v", c, eqOnly, tt.cmp, tt.eqOnly)
			}
		})
	}
}

func TestCompare_OrderingObjectsFails(t *testing.T) {
	w := newFakeWorld()
	_, err := runOn(t, w, w.dude, ins(opcode.SelfObj), ins(opcode.PushInt, 0), ins(opcode.Less))
	if !errors.Is(err, ErrInvalidOperandType) {
		t.Errorf("got %v, want INVALID_OPERAND_TYPE", err)
	}
}
