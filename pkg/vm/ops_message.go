package vm

import (
	"github.com/zurustar/intvm/pkg/opcode"
)

// MessageNotFound is pushed by message_str for lines missing from the list.
const MessageNotFound = "Error"

// Float message kinds accepted by float_msg.
const (
	FloatRotating = -1
	FloatWarning  = -2
	FloatMaxKind  = 13
)

// popMessage pops a message operand: either literal text preceded by an
// ignored list number, or a message number preceded by its list number.
func popMessage(e *Exec) (string, error) {
	v, err := e.Pop()
	if err != nil {
		return "", err
	}
	if text, ok := v.Text(); ok {
		if _, err := e.PopInteger(); err != nil {
			return "", err
		}
		return text, nil
	}
	num, ok := v.Integer()
	if !ok {
		return "", NewInvalidOperandError(e.instr.Op.String()+" expects message", v)
	}
	file, err := e.PopInteger()
	if err != nil {
		return "", err
	}
	text, ok := e.world.MessageString(file, num)
	if !ok {
		return MessageNotFound, nil
	}
	return text, nil
}

// registerMessageOps registers text output and dialog opcodes.
func registerMessageOps(t *Table) {
	t.Register(opcode.DisplayMsg, func(e *Exec) error {
		text, err := e.PopText()
		if err != nil {
			return err
		}
		e.world.Display(text)
		return nil
	})

	t.Register(opcode.DebugMsg, func(e *Exec) error {
		text, err := e.PopText()
		if err != nil {
			return err
		}
		e.world.Debug(text)
		return nil
	})

	t.Register(opcode.FloatMsg, func(e *Exec) error {
		kind, err := e.PopInteger()
		if err != nil {
			return err
		}
		if kind < FloatWarning || kind > FloatMaxKind {
			return e.Fail("wrong type %d", kind)
		}
		text, err := e.PopText()
		if err != nil {
			return err
		}
		h, err := e.PopHandle()
		if err != nil {
			return err
		}
		e.world.Float(h, text, kind)
		return nil
	})

	t.Register(opcode.MessageStr, func(e *Exec) error {
		args, err := popInts(e, 2) // list, number
		if err != nil {
			return err
		}
		text, ok := e.world.MessageString(args[0], args[1])
		if !ok {
			text = MessageNotFound
		}
		return e.Push(String(text))
	})

	t.Register(opcode.GsayStart, func(e *Exec) error {
		e.world.StartDialog(e.script.owner)
		return nil
	})
	t.Register(opcode.GsayEnd, func(e *Exec) error {
		e.world.EndDialog()
		return nil
	})
	t.Register(opcode.GsayReply, func(e *Exec) error {
		text, err := popMessage(e)
		if err != nil {
			return err
		}
		e.world.Reply(text)
		return nil
	})

	// giq_option offers a reply when the player's intelligence passes the
	// test: at least iq for positive values, at most -iq for negative ones.
	t.Register(opcode.GiqOption, func(e *Exec) error {
		reaction, err := e.PopInteger()
		if err != nil {
			return err
		}
		proc, err := e.PopInteger()
		if err != nil {
			return err
		}
		text, err := popMessage(e)
		if err != nil {
			return err
		}
		iq, err := e.PopInteger()
		if err != nil {
			return err
		}

		player := e.world.PlayerIQ()
		if (iq >= 0 && player < iq) || (iq < 0 && player > -iq) {
			return nil
		}
		e.world.AddOption(DialogOption{
			Text:      text,
			Procedure: int(proc),
			Reaction:  reaction,
			Owner:     e.script.owner,
		})
		return nil
	})
}
