package world

import (
	"context"
	"fmt"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/event"
	"github.com/zurustar/intvm/pkg/vm"
)

// DialogState is the content of the conversation window.
type DialogState struct {
	Active  bool
	Speaker entity.Handle
	Reply   string
	Options []vm.DialogOption
}

// StartDialog opens the conversation window for speaker.
func (w *World) StartDialog(speaker entity.Handle) {
	w.dialog = DialogState{Active: true, Speaker: speaker}
}

// EndDialog closes the conversation window.
func (w *World) EndDialog() {
	w.dialog = DialogState{}
}

// Reply sets the speaker's line and clears the previous options.
func (w *World) Reply(text string) {
	w.dialog.Reply = text
	w.dialog.Options = nil
}

// AddOption offers a player reply.
func (w *World) AddOption(opt vm.DialogOption) {
	w.dialog.Options = append(w.dialog.Options, opt)
}

// PlayerIQ returns the player's intelligence.
func (w *World) PlayerIQ() int32 {
	if dude, ok := w.objects.Get(w.dude); ok && dude.crit != nil {
		return dude.crit.stats[StatIntelligence]
	}
	return w.cfg.PlayerIQ
}

// Dialog returns the conversation window state.
func (w *World) Dialog() DialogState {
	d := w.dialog
	d.Options = append([]vm.DialogOption(nil), w.dialog.Options...)
	return d
}

// ChooseOption schedules the procedure of option i on the script that
// offered it. Options without a procedure end the conversation.
func (w *World) ChooseOption(ctx context.Context, i int) error {
	if !w.dialog.Active {
		return fmt.Errorf("choose option %d: no dialog", i)
	}
	if i < 0 || i >= len(w.dialog.Options) {
		return vm.NewOutOfRangeError("dialog option", i, len(w.dialog.Options))
	}
	opt := w.dialog.Options[i]
	w.dialog.Options = nil

	if opt.Procedure < 0 {
		w.EndDialog()
		return nil
	}
	w.dispatch.Schedule(opt.Owner, event.New("dialog_option"), func(event.Event) {
		s, ok := w.Script(opt.Owner)
		if !ok {
			return
		}
		if _, err := s.CallIndex(ctx, w, opt.Procedure, 0); err != nil {
			w.log.Debug("Dialog option failed", "object", opt.Owner, "error", err)
		}
	})
	return nil
}
