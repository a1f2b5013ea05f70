package world

import (
	"fmt"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/vm"
)

// Critter stat numbers used by the engine itself.
const (
	StatStrength     int32 = 0
	StatIntelligence int32 = 4
	StatMaxHP        int32 = 7
	StatCurrentHP    int32 = 35
	StatPoison       int32 = 36
	StatRadiation    int32 = 37
	StatCount        int32 = 38
)

// Item describes a stack of items placed in a new object's inventory.
type Item struct {
	Name  string
	PID   int32
	Count int32
}

// Spec describes an object to spawn.
type Spec struct {
	Name        string
	PID         int32
	Type        vm.ObjectType
	Tile        int32
	Elevation   int32
	Orientation int32

	// Script names a program of the library. Program, when set, is used
	// instead.
	Script  string
	Program *vm.Program

	// Player marks the object controlled by the player.
	Player bool
	// Door and Container add the Openable capability; Container also
	// adds an inventory.
	Door      bool
	Container bool
	Locked    bool
	Opened    bool

	Stats     map[int32]int32
	Inventory []Item
}

// object is an entity of the world. It implements vm.Object.
type object struct {
	w      *World
	handle entity.Handle

	name        string
	pid         int32
	kind        vm.ObjectType
	tile        int32
	elevation   int32
	orientation int32
	animBusy    bool
	locals      []int32

	script *vm.Script
	// container is the object whose inventory holds this one.
	container  entity.Handle
	destroying bool

	inv  *inventory
	open *openable
	crit *critter
}

func newObject(w *World, spec Spec) *object {
	o := &object{
		w:           w,
		name:        spec.Name,
		pid:         spec.PID,
		kind:        spec.Type,
		tile:        spec.Tile,
		elevation:   spec.Elevation,
		orientation: spec.Orientation,
		locals:      make([]int32, w.cfg.LocalVars),
	}
	if o.name == "" {
		o.name = fmt.Sprintf("pid %d", spec.PID&0xFFFFFF)
	}
	if spec.Door || spec.Container {
		o.open = &openable{open: spec.Opened, locked: spec.Locked}
	}
	if spec.Type == vm.TypeCritter {
		o.crit = &critter{}
		for n, v := range spec.Stats {
			if n >= 0 && n < StatCount {
				o.crit.stats[n] = v
			}
		}
	}
	if spec.Container || spec.Type == vm.TypeCritter {
		o.inv = &inventory{w: w}
	}
	return o
}

func (o *object) Handle() entity.Handle    { return o.handle }
func (o *object) Name() string             { return o.name }
func (o *object) PID() int32               { return o.pid }
func (o *object) Type() vm.ObjectType      { return o.kind }
func (o *object) Elevation() int32         { return o.elevation }
func (o *object) AnimBusy() bool           { return o.animBusy }
func (o *object) Orientation() int32       { return o.orientation }
func (o *object) Container() entity.Handle { return o.container }

// Tile returns the object's tile, or its holder's tile while it is carried.
func (o *object) Tile() int32 {
	if holder, ok := o.w.objects.Get(o.container); ok {
		return holder.Tile()
	}
	return o.tile
}

func (o *object) LocalVar(n int) (int32, error) {
	if n < 0 || n >= len(o.locals) {
		return 0, vm.NewOutOfRangeError("local var", n, len(o.locals))
	}
	return o.locals[n], nil
}

func (o *object) SetLocalVar(n int, v int32) error {
	if n < 0 || n >= len(o.locals) {
		return vm.NewOutOfRangeError("local var", n, len(o.locals))
	}
	o.locals[n] = v
	return nil
}

func (o *object) Inventory() (vm.Inventory, bool) {
	if o.inv == nil {
		return nil, false
	}
	return o.inv, true
}

func (o *object) Openable() (vm.Openable, bool) {
	if o.open == nil {
		return nil, false
	}
	return o.open, true
}

func (o *object) Critter() (vm.Critter, bool) {
	if o.crit == nil {
		return nil, false
	}
	return o.crit, true
}

type openable struct {
	open   bool
	locked bool
}

func (d *openable) IsOpen() bool          { return d.open }
func (d *openable) SetOpen(open bool)     { d.open = open }
func (d *openable) IsLocked() bool        { return d.locked }
func (d *openable) SetLocked(locked bool) { d.locked = locked }

type critter struct {
	stats [StatCount]int32
}

func (c *critter) Stat(n int32) (int32, error) {
	if n < 0 || n >= StatCount {
		return 0, vm.NewOutOfRangeError("stat", int(n), int(StatCount))
	}
	return c.stats[n], nil
}

func (c *critter) SetStat(n int32, v int32) error {
	if n < 0 || n >= StatCount {
		return vm.NewOutOfRangeError("stat", int(n), int(StatCount))
	}
	c.stats[n] = v
	return nil
}

func (c *critter) Poison() int32 { return c.stats[StatPoison] }

func (c *critter) AddPoison(amount int32) {
	c.stats[StatPoison] = max(0, c.stats[StatPoison]+amount)
}

// Stack is a number of one item held in an inventory.
type Stack struct {
	Item  entity.Handle
	Count int32
}

type inventory struct {
	w      *World
	owner  entity.Handle
	stacks []Stack
}

// CountPID returns how many items with the given prototype are held.
func (inv *inventory) CountPID(pid int32) int32 {
	var n int32
	for _, s := range inv.stacks {
		if o, ok := inv.w.objects.Get(s.Item); ok && o.pid == pid {
			n += s.Count
		}
	}
	return n
}

// Add moves item into the inventory, count times.
func (inv *inventory) Add(item entity.Handle, count int32) error {
	if count <= 0 {
		return fmt.Errorf("add %d of %v: count must be positive", count, item)
	}
	o, ok := inv.w.objects.Get(item)
	if !ok {
		return fmt.Errorf("add %v: %w", item, ErrNoObject)
	}
	for h := inv.owner; !h.IsZero(); {
		if h == item {
			return fmt.Errorf("add %v: an object cannot hold itself", item)
		}
		holder, ok := inv.w.objects.Get(h)
		if !ok {
			break
		}
		h = holder.container
	}

	if o.container == inv.owner {
		for i := range inv.stacks {
			if inv.stacks[i].Item == item {
				inv.stacks[i].Count += count
				return nil
			}
		}
	}
	inv.w.takeOut(o)
	o.container = inv.owner
	inv.stacks = append(inv.stacks, Stack{Item: item, Count: count})
	return nil
}

// Remove takes item out of the inventory and drops it at the owner's tile.
func (inv *inventory) Remove(item entity.Handle) error {
	if !inv.detach(item) {
		return fmt.Errorf("remove %v: not in inventory", item)
	}
	if o, ok := inv.w.objects.Get(item); ok {
		if owner, ok := inv.w.objects.Get(inv.owner); ok {
			o.tile = owner.Tile()
			o.elevation = owner.elevation
		}
	}
	return nil
}

func (inv *inventory) detach(item entity.Handle) bool {
	for i, s := range inv.stacks {
		if s.Item != item {
			continue
		}
		inv.stacks = append(inv.stacks[:i], inv.stacks[i+1:]...)
		if o, ok := inv.w.objects.Get(item); ok {
			o.container = entity.Handle{}
		}
		return true
	}
	return false
}

// takeOut removes o from the inventory holding it, if any.
func (w *World) takeOut(o *object) {
	if o.container.IsZero() {
		return
	}
	if holder, ok := w.objects.Get(o.container); ok && holder.inv != nil {
		holder.inv.detach(o.handle)
	}
	o.container = entity.Handle{}
}

// Contents returns the stacks held by h.
func (w *World) Contents(h entity.Handle) []Stack {
	o, ok := w.objects.Get(h)
	if !ok || o.inv == nil {
		return nil
	}
	return append([]Stack(nil), o.inv.stacks...)
}

// View is a read-only snapshot of an object for display.
type View struct {
	Handle    entity.Handle
	Name      string
	Type      vm.ObjectType
	Tile      int32
	Elevation int32
	Open      bool
	Locked    bool
	Scripted  bool
}

// Objects returns a snapshot of every object lying on the map.
func (w *World) Objects() []View {
	var views []View
	w.objects.Each(func(h entity.Handle, o *object) bool {
		if !o.container.IsZero() {
			return true
		}
		v := View{
			Handle:    h,
			Name:      o.name,
			Type:      o.kind,
			Tile:      o.tile,
			Elevation: o.elevation,
			Scripted:  o.script != nil,
		}
		if o.open != nil {
			v.Open, v.Locked = o.open.open, o.open.locked
		}
		views = append(views, v)
		return true
	})
	return views
}
