package vm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/opcode"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"runtime error", NewOutOfRangeError("tile", 40000, 40000), ErrorOutOfRange},
		{"wrapped runtime error", fmt.Errorf("spawn pid 7: %w", NewOutOfRangeError("tile", -1, 40000)), ErrorOutOfRange},
		{"plain error", errors.New("disk on fire"), ErrorScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := wrapError(tt.err)
			if re.Type != tt.want {
				t.Errorf("Type = %s, want %s", re.Type, tt.want)
			}
			if !strings.Contains(re.Error(), tt.err.Error()) {
				t.Errorf("message %q lost %q", re.Error(), tt.err.Error())
			}
		})
	}
}

// spawnFailWorld rejects every spawn with a wrapped range error.
type spawnFailWorld struct {
	*fakeWorld
}

func (w spawnFailWorld) CreateObject(ctx context.Context, pid, tile, elevation, sid int32) (entity.Handle, error) {
	return entity.Handle{}, fmt.Errorf("spawn pid %d: %w", pid, NewOutOfRangeError("tile", int(tile), 40000))
}

func TestScript_CollaboratorErrorKeepsType(t *testing.T) {
	prog := program(t, "spawn", false,
		ins(opcode.PushInt, 7), ins(opcode.PushInt, -5), ins(opcode.PushInt, 0), ins(opcode.PushInt, 0),
		ins(opcode.CreateObjectSid), ins(opcode.Pop), ins(opcode.Return))

	_, err := New().NewScript(prog, entity.Handle{}).Call(context.Background(), spawnFailWorld{newFakeWorld()}, "spawn", 0)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want OUT_OF_RANGE", err)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || re.PC < 0 || re.Op != opcode.CreateObjectSid {
		t.Errorf("fault location not recorded: %v", err)
	}
}

func TestIntegerConversionOverflow(t *testing.T) {
	tests := []struct {
		name   string
		ticks  uint32
		code   []opcode.Instruction
		want   error
		global int32
	}{
		{
			name:  "game_ticks in range",
			ticks: math.MaxInt32,
			code:  []opcode.Instruction{ins(opcode.GameTicks), ins(opcode.Pop)},
		},
		{
			name:  "game_ticks past int32",
			ticks: math.MaxInt32 + 1,
			code:  []opcode.Instruction{ins(opcode.GameTicks), ins(opcode.Pop)},
			want:  ErrArithmeticOverflow,
		},
		{
			name:  "game_time past int32",
			ticks: math.MaxUint32,
			code:  []opcode.Instruction{ins(opcode.GameTime), ins(opcode.Pop)},
			want:  ErrArithmeticOverflow,
		},
		{
			name:   "set_global_var truncates a float",
			code:   []opcode.Instruction{ins(opcode.PushInt, 0), ins(opcode.PushFloat, 0), ins(opcode.SetGlobalVar)},
			global: 2,
		},
		{
			name: "set_global_var with a float past int32",
			code: []opcode.Instruction{
				ins(opcode.PushInt, 0),
				ins(opcode.PushFloat, 0), ins(opcode.PushFloat, 2), ins(opcode.Mul),
				ins(opcode.SetGlobalVar),
			},
			want: ErrArithmeticOverflow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustProgram(t, Program{
				Name:       "convert",
				Code:       append(append([]opcode.Instruction{{Op: opcode.Exit}}, tt.code...), ins(opcode.Return)),
				Floats:     []float32{2.5, 0.5, 1e10},
				Procedures: []Procedure{{Name: "f", Entry: 1}},
				InitEnd:    1,
			})
			w := newFakeWorld()
			w.ticks = tt.ticks

			_, err := New().NewScript(prog, entity.Handle{}).Call(context.Background(), w, "f", 0)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w.globals[0] != tt.global {
				t.Errorf("global 0 = %d, want %d", w.globals[0], tt.global)
			}
		})
	}
}

// reentrantWorld runs destroy_p_proc of the destroyed object's script
// synchronously, as the world does.
type reentrantWorld struct {
	*fakeWorld
	script *Script
}

func (w reentrantWorld) DestroyObject(ctx context.Context, h entity.Handle) error {
	if _, err := w.script.Call(ctx, w, ProcDestroy, 0); err != nil {
		return err
	}
	return w.fakeWorld.DestroyObject(ctx, h)
}

func TestScript_NestedCallKeepsOverrides(t *testing.T) {
	prog := mustProgram(t, Program{
		Name: "overrides",
		Code: []opcode.Instruction{
			{Op: opcode.Exit},
			ins(opcode.ScriptOverrides), ins(opcode.SelfObj), ins(opcode.DestroyObject), ins(opcode.Return), // use
			ins(opcode.Return), // destroy
		},
		Procedures: []Procedure{
			{Name: "use", Entry: 1},
			{Name: ProcDestroy, Entry: 5},
		},
		InitEnd: 1,
	})
	fw := newFakeWorld()
	box := fw.add(&fakeObject{name: "box"})
	s := New().NewScript(prog, box)
	w := reentrantWorld{fakeWorld: fw, script: s}

	if _, err := s.Call(context.Background(), w, "use", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Overrides() {
		t.Error("script_overrides of use was cleared by the nested destroy_p_proc call")
	}
	if len(fw.destroyed) != 1 {
		t.Errorf("destroyed = %v, want the box", fw.destroyed)
	}

	if _, err := s.Call(context.Background(), w, ProcDestroy, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Overrides() {
		t.Error("a new top-level call must start without script_overrides")
	}
}
