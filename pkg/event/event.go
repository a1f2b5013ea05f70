// Package event provides the events exchanged between input, the world and
// scripts, and the Dispatcher that runs their handlers once per tick.
//
// Events are created by their constructors and are not modified afterwards,
// except for the handled flag, which a handler sets to stop the remaining
// handlers of the same task from running. The flag belongs to the task being
// performed: the Dispatcher clears it before each task, so one event may be
// scheduled for several targets.
package event

import (
	"fmt"
	"time"

	"github.com/zurustar/intvm/pkg/entity"
)

// Type identifies the kind of an event.
type Type string

const (
	// TypeGeneric is an event with no payload beyond its name.
	TypeGeneric Type = "EVENT"

	TypeMouseDown Type = "MOUSE_DOWN"
	TypeMouseUp   Type = "MOUSE_UP"
	TypeMouseMove Type = "MOUSE_MOVE"

	TypeKeyDown Type = "KEY_DOWN"
	TypeKeyUp   Type = "KEY_UP"

	// TypeState reports a state transition such as "activate" or "deactivate".
	TypeState Type = "STATE"

	// TypeProcedure asks the target's script to run a named procedure.
	TypeProcedure Type = "PROCEDURE"
)

// Event is a message delivered to the handlers of one scheduled task.
type Event interface {
	Type() Type
	Name() string
	Timestamp() time.Time
	Handled() bool
	// StopPropagation marks the event handled.
	StopPropagation()

	resetHandled()
}

// Base carries the fields shared by every event. Concrete events embed it;
// Event can only be implemented through Base.
type Base struct {
	kind      Type
	name      string
	timestamp time.Time
	handled   bool
}

// NewBase creates a named event of the given type.
func NewBase(kind Type, name string) Base {
	return Base{kind: kind, name: name, timestamp: time.Now()}
}

// New creates a generic event.
func New(name string) *Base {
	b := NewBase(TypeGeneric, name)
	return &b
}

func (b *Base) Type() Type           { return b.kind }
func (b *Base) Name() string         { return b.name }
func (b *Base) Timestamp() time.Time { return b.timestamp }
func (b *Base) Handled() bool        { return b.handled }
func (b *Base) StopPropagation()     { b.handled = true }
func (b *Base) resetHandled()        { b.handled = false }

func (b *Base) String() string {
	return fmt.Sprintf("%s(%s)", b.kind, b.name)
}

// MouseButton identifies a mouse button.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "none"
	}
}

// Mouse is a pointer event in screen coordinates.
type Mouse struct {
	Base
	Button MouseButton
	X, Y   int
}

// NewMouse creates a mouse event. kind is one of the TypeMouse* constants.
func NewMouse(kind Type, button MouseButton, x, y int) *Mouse {
	return &Mouse{
		Base:   NewBase(kind, button.String()),
		Button: button,
		X:      x,
		Y:      y,
	}
}

// Keyboard is a key press or release. Key is the key's name, e.g. "Enter".
type Keyboard struct {
	Base
	Key     string
	Pressed bool
}

// NewKeyboard creates a keyboard event.
func NewKeyboard(key string, pressed bool) *Keyboard {
	kind := TypeKeyUp
	if pressed {
		kind = TypeKeyDown
	}
	return &Keyboard{Base: NewBase(kind, key), Key: key, Pressed: pressed}
}

// State reports that a component entered the named state.
type State struct {
	Base
}

// NewState creates a state event.
func NewState(name string) *State {
	return &State{Base: NewBase(TypeState, name)}
}

// Procedure asks a script to run one of its procedures. Source is the object
// that caused the request and Target the object it acted with, for example
// the item used in use_obj_on_p_proc. Either may be the zero handle.
type Procedure struct {
	Base
	Procedure  string
	FixedParam int32
	Source     entity.Handle
	Target     entity.Handle
}

// NewProcedure creates a procedure request.
func NewProcedure(name string, fixedParam int32, source entity.Handle) *Procedure {
	return &Procedure{
		Base:       NewBase(TypeProcedure, name),
		Procedure:  name,
		FixedParam: fixedParam,
		Source:     source,
	}
}

// Handler observes an event.
type Handler func(Event)

// On adapts a handler for a concrete event type. Events of any other type
// are ignored.
func On[T Event](fn func(T)) Handler {
	return func(e Event) {
		if ev, ok := e.(T); ok {
			fn(ev)
		}
	}
}
