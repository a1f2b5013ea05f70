package vm

import (
	"context"

	"github.com/zurustar/intvm/pkg/entity"
)

// ObjectType is the value returned by obj_type.
type ObjectType int32

const (
	TypeItem    ObjectType = 0
	TypeCritter ObjectType = 1
	TypeScenery ObjectType = 2
	TypeWall    ObjectType = 3
	TypeTile    ObjectType = 4
	TypeMisc    ObjectType = 5
)

// Object is the view of a world entity available to opcode handlers.
// Optional behaviour is discovered through the capability accessors,
// never by type assertion.
type Object interface {
	Handle() entity.Handle
	Name() string
	PID() int32
	Type() ObjectType
	Tile() int32
	Elevation() int32
	AnimBusy() bool

	// LocalVar and SetLocalVar address the per-object variable slots.
	LocalVar(n int) (int32, error)
	SetLocalVar(n int, v int32) error

	Inventory() (Inventory, bool)
	Openable() (Openable, bool)
	Critter() (Critter, bool)
}

// Inventory is implemented by critters and containers.
type Inventory interface {
	CountPID(pid int32) int32
	Add(item entity.Handle, count int32) error
	Remove(item entity.Handle) error
}

// Openable is implemented by doors and containers.
type Openable interface {
	IsOpen() bool
	SetOpen(open bool)
	IsLocked() bool
	SetLocked(locked bool)
}

// Critter exposes stats of living objects.
type Critter interface {
	Stat(n int32) (int32, error)
	SetStat(n int32, v int32) error
	Poison() int32
	AddPoison(amount int32)
}

// Objects resolves and mutates entities.
type Objects interface {
	Object(h entity.Handle) (Object, bool)
	Dude() entity.Handle
	CreateObject(ctx context.Context, pid, tile, elevation, sid int32) (entity.Handle, error)
	DestroyObject(ctx context.Context, h entity.Handle) error
	MoveTo(h entity.Handle, tile, elevation int32) error
	// UseObjOn makes source use item on target. It runs the target's
	// use_obj_on_p_proc through the event dispatcher.
	UseObjOn(ctx context.Context, item, target, source entity.Handle) error
	OnScreen(h entity.Handle) bool
}

// Variables holds global and map variables.
type Variables interface {
	GlobalVar(n int) (int32, error)
	SetGlobalVar(n int, v int32) error
	MapVar(n int) (int32, error)
	SetMapVar(n int, v int32) error
}

// Clock is the game calendar. One second is 10 ticks.
type Clock interface {
	Ticks() uint32
	TimeOfDay() int32 // hours*100 + minutes
	Month() int32
	Day() int32
	Advance(ticks uint32)
}

// Timers schedules timed_event_p_proc invocations.
type Timers interface {
	AddTimer(obj entity.Handle, delay uint32, param int32) error
	RemoveTimers(obj entity.Handle)
}

// Messages receives text produced by scripts.
type Messages interface {
	Display(text string)
	Float(obj entity.Handle, text string, kind int32)
	Debug(text string)
	// MessageString looks up line num of message list file.
	MessageString(file, num int32) (string, bool)
}

// DialogOption is one player reply offered by giq_option.
type DialogOption struct {
	Text      string
	Procedure int // procedure index in the offering script; -1 ends the dialog
	Reaction  int32
	Owner     entity.Handle
}

// Dialog collects the state of the conversation window.
type Dialog interface {
	StartDialog(speaker entity.Handle)
	EndDialog()
	Reply(text string)
	AddOption(opt DialogOption)
	PlayerIQ() int32
}

// Grid is the hexagonal tile map.
type Grid interface {
	TileDistance(a, b int32) int32
	TileInDirection(tile, dir, distance int32) int32
	OverrideMapStart(tile, elevation, orientation int32)
}

// World is the capability set an opcode handler can reach.
type World interface {
	Objects
	Variables
	Clock
	Timers
	Messages
	Dialog
	Grid

	PlaySound(name string)
	GiveExp(points int32)
	Random(min, max int32) int32
}
