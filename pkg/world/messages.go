package world

import (
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/intvm/pkg/entity"
	"github.com/zurustar/intvm/pkg/vm"
)

// FloatWidth is the width in pixels floating text is wrapped to.
const FloatWidth = 200

// messageLog keeps the most recent display messages.
type messageLog struct {
	lines []string
	next  int
	full  bool
}

func newMessageLog(size int) *messageLog {
	return &messageLog{lines: make([]string, max(size, 1))}
}

func (l *messageLog) add(line string) {
	l.lines[l.next] = line
	l.next = (l.next + 1) % len(l.lines)
	if l.next == 0 {
		l.full = true
	}
}

// all returns the kept lines, oldest first.
func (l *messageLog) all() []string {
	if !l.full {
		return append([]string(nil), l.lines[:l.next]...)
	}
	out := make([]string, 0, len(l.lines))
	out = append(out, l.lines[l.next:]...)
	return append(out, l.lines[:l.next]...)
}

// Display adds a line to the message window.
func (w *World) Display(text string) {
	w.messages.add(text)
	w.log.Info("display_msg", "text", text)
}

// Messages returns the message window lines, oldest first.
func (w *World) Messages() []string {
	return w.messages.all()
}

// Debug writes script debug output to the log.
func (w *World) Debug(text string) {
	w.log.Debug("debug_msg", "text", strings.TrimRight(text, "\n"))
}

// MessageString looks up line num of message list file.
func (w *World) MessageString(file, num int32) (string, bool) {
	if w.catalog == nil {
		return "", false
	}
	return w.catalog.Lookup(file, num)
}

// FloatMessage is text shown above an object.
type FloatMessage struct {
	Lines   []string
	Color   color.RGBA
	Expires uint32
}

var floatColors = map[int32]color.RGBA{
	vm.FloatWarning:  {0xff, 0x00, 0x00, 0xff},
	vm.FloatRotating: {0xff, 0x00, 0x00, 0xff},
	0:                {0xff, 0xff, 0x7f, 0xff},
	1:                {0x55, 0x55, 0x55, 0xff},
	2:                {0xff, 0x00, 0x00, 0xff},
	3:                {0x3c, 0xfb, 0x00, 0xff},
	4:                {0x30, 0x59, 0x8e, 0xff},
	5:                {0x55, 0x55, 0x55, 0xff},
	6:                {0xa2, 0xa2, 0xa2, 0xff},
	7:                {0xff, 0x49, 0x49, 0xff},
	8:                {0xff, 0xff, 0x7f, 0xff},
	9:                {0xff, 0xff, 0xff, 0xff},
	10:               {0x55, 0x55, 0x55, 0xff},
	11:               {0x3c, 0x3c, 0x3c, 0xff},
	12:               {0x75, 0x75, 0x75, 0xff},
	13:               {0xff, 0xff, 0x7f, 0xff},
}

// Float shows text above obj until FloatTicks have passed. A new message
// replaces the previous one.
func (w *World) Float(obj entity.Handle, text string, kind int32) {
	if !w.objects.Valid(obj) {
		return
	}
	c, ok := floatColors[kind]
	if !ok {
		c = floatColors[0]
	}
	if kind == vm.FloatWarning {
		text = strings.ToUpper(text)
	}
	w.floats[obj] = FloatMessage{
		Lines:   Wrap(text, FloatWidth),
		Color:   c,
		Expires: w.clock.ticks + w.cfg.FloatTicks,
	}
}

// Floats returns the floating messages that have not expired.
func (w *World) Floats() map[entity.Handle]FloatMessage {
	out := make(map[entity.Handle]FloatMessage, len(w.floats))
	for h, f := range w.floats {
		if f.Expires < w.clock.ticks {
			delete(w.floats, h)
			continue
		}
		out[h] = f
	}
	return out
}

// Wrap breaks text into lines no wider than width pixels in the default
// font. A single word wider than width gets a line of its own.
func Wrap(text string, width int) []string {
	face := basicfont.Face7x13
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && font.MeasureString(face, candidate).Ceil() > width {
				lines = append(lines, line)
				line = word
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}
