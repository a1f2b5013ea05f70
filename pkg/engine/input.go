package engine

import (
	"context"
	"strconv"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/vm"
)

// KeyEscape terminates the engine.
const KeyEscape = "Escape"

// Input schedules an input event on target; it takes effect at the next
// tick. Pressing a mouse button on an object makes the player act on it:
// left talks to critters and uses anything else, right looks at it, middle
// describes it. Keys 1 to 9 pick a dialog option and are sent to the
// speaker whatever target is given. Escape terminates the engine at once.
func (e *Engine) Input(ctx context.Context, ev event.Event, target entity.Handle) {
	if k, ok := ev.(*event.Keyboard); ok {
		if k.Pressed && k.Key == KeyEscape {
			e.Terminate()
			return
		}
		if d := e.world.Dialog(); d.Active {
			target = d.Speaker
		}
	}
	e.dispatch.Schedule(target, ev, e.onMouse(ctx, target), e.onKey(ctx))
}

func (e *Engine) onMouse(ctx context.Context, target entity.Handle) event.Handler {
	return event.On(func(m *event.Mouse) {
		if m.Type() != event.TypeMouseDown {
			return
		}
		dude := e.world.Dude()
		switch m.Button {
		case event.ButtonLeft:
			if o, ok := e.world.Object(target); ok && o.Type() == vm.TypeCritter && target != dude {
				e.world.Talk(ctx, dude, target)
			} else {
				e.world.Use(ctx, dude, target)
			}
		case event.ButtonRight:
			e.world.Look(ctx, dude, target)
		case event.ButtonMiddle:
			e.world.Describe(ctx, dude, target)
		default:
			return
		}
		m.StopPropagation()
	})
}

func (e *Engine) onKey(ctx context.Context) event.Handler {
	return event.On(func(k *event.Keyboard) {
		if !k.Pressed {
			return
		}
		n, err := strconv.Atoi(k.Key)
		if err != nil || n < 1 || n > 9 {
			return
		}
		if err := e.world.ChooseOption(ctx, n-1); err != nil {
			e.log.Debug("Dialog option ignored", "key", k.Key, "error", err)
			return
		}
		k.StopPropagation()
	})
}
