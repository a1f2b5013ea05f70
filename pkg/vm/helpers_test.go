package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/opcode"
)

// ins builds an instruction.
func ins(op opcode.Code, arg ...int32) opcode.Instruction {
	in := opcode.Instruction{Op: op}
	if len(arg) > 0 {
		in.Arg = arg[0]
	}
	return in
}

func mustProgram(t *testing.T, p Program) *Program {
	t.Helper()
	prog, err := NewProgram(p)
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	return prog
}

// exitOnly is top-level code that does nothing.
var exitOnly = []opcode.Instruction{{Op: opcode.Exit}}

// program builds a one-procedure program whose body is code.
func program(t *testing.T, name string, returns bool, code ...opcode.Instruction) *Program {
	t.Helper()
	body := append(append([]opcode.Instruction{}, exitOnly...), code...)
	return mustProgram(t, Program{
		Name:       "test",
		Code:       body,
		Strings:    []string{"x=", "y", "hello"},
		Floats:     []float32{2.0, 0.5},
		Procedures: []Procedure{{Name: name, Entry: 1, Returns: returns}},
		Globals:    2,
		InitEnd:    1,
	})
}

type fakeObject struct {
	h       entity.Handle
	name    string
	pid     int32
	typ     ObjectType
	tile    int32
	lvars   []int32
	items   map[entity.Handle]int32
	open    *bool
	locked  bool
	stats   map[int32]int32
	poison  int32
	critter bool
	w       *fakeWorld
}

func (o *fakeObject) Handle() entity.Handle { return o.h }
func (o *fakeObject) Name() string          { return o.name }
func (o *fakeObject) PID() int32            { return o.pid }
func (o *fakeObject) Type() ObjectType      { return o.typ }
func (o *fakeObject) Tile() int32           { return o.tile }
func (o *fakeObject) Elevation() int32      { return 0 }
func (o *fakeObject) AnimBusy() bool        { return false }

func (o *fakeObject) LocalVar(n int) (int32, error) {
	if n < 0 || n >= len(o.lvars) {
		return 0, errors.New("no such local var")
	}
	return o.lvars[n], nil
}

func (o *fakeObject) SetLocalVar(n int, v int32) error {
	if n < 0 || n >= len(o.lvars) {
		return errors.New("no such local var")
	}
	o.lvars[n] = v
	return nil
}

func (o *fakeObject) Inventory() (Inventory, bool) {
	if o.items == nil {
		return nil, false
	}
	return o, true
}

func (o *fakeObject) CountPID(pid int32) int32 {
	var n int32
	for h, c := range o.items {
		if o.w.objects[h] != nil && o.w.objects[h].pid == pid {
			n += c
		}
	}
	return n
}

func (o *fakeObject) Add(item entity.Handle, count int32) error {
	if o.w.objects[item] == nil {
		return errors.New("invalid item")
	}
	o.items[item] += count
	return nil
}

func (o *fakeObject) Remove(item entity.Handle) error {
	delete(o.items, item)
	return nil
}

func (o *fakeObject) Openable() (Openable, bool) {
	if o.open == nil {
		return nil, false
	}
	return o, true
}

func (o *fakeObject) IsOpen() bool             { return *o.open }
func (o *fakeObject) SetOpen(open bool)        { *o.open = open }
func (o *fakeObject) IsLocked() bool           { return o.locked }
func (o *fakeObject) SetLocked(locked bool)    { o.locked = locked }
func (o *fakeObject) Critter() (Critter, bool) { return o, o.critter }

func (o *fakeObject) Stat(n int32) (int32, error) { return o.stats[n], nil }
func (o *fakeObject) SetStat(n, v int32) error {
	o.stats[n] = v
	return nil
}
func (o *fakeObject) Poison() int32          { return o.poison }
func (o *fakeObject) AddPoison(amount int32) { o.poison += amount }

// fakeWorld records what handlers asked of it.
type fakeWorld struct {
	objects   map[entity.Handle]*fakeObject
	next      uint32
	dude      entity.Handle
	globals   []int32
	mapVars   []int32
	ticks     uint32
	displayed []string
	floats    []string
	replies   []string
	options   []DialogOption
	iq        int32
	sounds    []string
	timers    map[entity.Handle]int32
	exp       int32
	messages  map[[2]int32]string
	destroyed []entity.Handle
	used      [][3]entity.Handle
}

func newFakeWorld() *fakeWorld {
	w := &fakeWorld{
		objects:  make(map[entity.Handle]*fakeObject),
		globals:  make([]int32, 8),
		mapVars:  make([]int32, 8),
		timers:   make(map[entity.Handle]int32),
		messages: map[[2]int32]string{{1, 100}: "Hello there."},
		iq:       5,
	}
	w.dude = w.add(&fakeObject{name: "dude", critter: true, stats: map[int32]int32{}, items: map[entity.Handle]int32{}})
	return w
}

func (w *fakeWorld) add(o *fakeObject) entity.Handle {
	w.next++
	o.h = entity.Handle{Index: w.next, Gen: 1}
	o.w = w
	if o.lvars == nil {
		o.lvars = make([]int32, 4)
	}
	w.objects[o.h] = o
	return o.h
}

func (w *fakeWorld) Object(h entity.Handle) (Object, bool) {
	o, ok := w.objects[h]
	if !ok {
		return nil, false
	}
	return o, true
}

func (w *fakeWorld) Dude() entity.Handle { return w.dude }

func (w *fakeWorld) CreateObject(ctx context.Context, pid, tile, elevation, sid int32) (entity.Handle, error) {
	return w.add(&fakeObject{pid: pid, tile: tile}), nil
}

func (w *fakeWorld) DestroyObject(ctx context.Context, h entity.Handle) error {
	delete(w.objects, h)
	w.destroyed = append(w.destroyed, h)
	return nil
}

func (w *fakeWorld) MoveTo(h entity.Handle, tile, elevation int32) error {
	o, ok := w.objects[h]
	if !ok {
		return errors.New("invalid object")
	}
	o.tile = tile
	return nil
}

func (w *fakeWorld) UseObjOn(ctx context.Context, item, target, source entity.Handle) error {
	w.used = append(w.used, [3]entity.Handle{item, target, source})
	return nil
}

func (w *fakeWorld) OnScreen(h entity.Handle) bool { return true }

func (w *fakeWorld) GlobalVar(n int) (int32, error) {
	if n < 0 || n >= len(w.globals) {
		return 0, errors.New("no such global var")
	}
	return w.globals[n], nil
}

func (w *fakeWorld) SetGlobalVar(n int, v int32) error {
	if n < 0 || n >= len(w.globals) {
		return errors.New("no such global var")
	}
	w.globals[n] = v
	return nil
}

func (w *fakeWorld) MapVar(n int) (int32, error)       { return w.mapVars[n], nil }
func (w *fakeWorld) Ticks() uint32                     { return w.ticks }
func (w *fakeWorld) TimeOfDay() int32                  { return 1230 }
func (w *fakeWorld) Month() int32                      { return 12 }
func (w *fakeWorld) Day() int32                        { return 5 }
func (w *fakeWorld) Advance(ticks uint32)              { w.ticks += ticks }
func (w *fakeWorld) RemoveTimers(obj entity.Handle)    { delete(w.timers, obj) }
func (w *fakeWorld) Display(text string)               { w.displayed = append(w.displayed, text) }
func (w *fakeWorld) Debug(text string)                 {}
func (w *fakeWorld) StartDialog(speaker entity.Handle) {}
func (w *fakeWorld) EndDialog()                        {}
func (w *fakeWorld) Reply(text string)                 { w.replies = append(w.replies, text) }
func (w *fakeWorld) AddOption(opt DialogOption)        { w.options = append(w.options, opt) }
func (w *fakeWorld) PlayerIQ() int32                   { return w.iq }
func (w *fakeWorld) PlaySound(name string)             { w.sounds = append(w.sounds, name) }
func (w *fakeWorld) GiveExp(points int32)              { w.exp += points }
func (w *fakeWorld) Random(min, max int32) int32       { return min }

func (w *fakeWorld) SetMapVar(n int, v int32) error {
	w.mapVars[n] = v
	return nil
}

func (w *fakeWorld) AddTimer(obj entity.Handle, delay uint32, param int32) error {
	w.timers[obj] = param
	return nil
}

func (w *fakeWorld) Float(obj entity.Handle, text string, kind int32) {
	w.floats = append(w.floats, text)
}

func (w *fakeWorld) MessageString(file, num int32) (string, bool) {
	s, ok := w.messages[[2]int32{file, num}]
	return s, ok
}

func (w *fakeWorld) TileDistance(a, b int32) int32 {
	if a > b {
		return a - b
	}
	return b - a
}

func (w *fakeWorld) TileInDirection(tile, dir, distance int32) int32 {
	return tile + dir*1000 + distance
}

func (w *fakeWorld) OverrideMapStart(tile, elevation, orientation int32) {
	w.globals[7] = tile
}
