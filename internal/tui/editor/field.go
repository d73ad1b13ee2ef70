// Package editor provides the multi-line text field used by the composer.
//
// Field wraps tview.TextArea. It reads and writes the draft only through a
// styled-text binding, reports its wrapped content size to subscribers, and
// turns Enter into a submit gesture.
package editor

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/binding"
	"github.com/matheus3301/parley/internal/composer"
	"github.com/rivo/tview"
	"github.com/rivo/uniseg"
)

// Options configures a Field.
type Options struct {
	Text             binding.Binding[composer.StyledText]
	Editing          binding.Binding[bool]
	Placeholder      string
	PlaceholderStyle tcell.Style
	// OnSubmit runs when the user presses Enter without Alt or Shift.
	OnSubmit func()
}

// Field is a growable multi-line text input.
type Field struct {
	*tview.TextArea

	text     binding.Binding[composer.StyledText]
	editing  binding.Binding[bool]
	onSubmit func()
	handlers []func(composer.Size)

	style    tcell.Style
	width    int
	size     composer.Size
	reported bool
	syncing  bool
}

// New creates a field and loads the bound text into it.
func New(opts Options) *Field {
	ta := tview.NewTextArea().
		SetWrap(true).
		SetWordWrap(false).
		SetPlaceholder(opts.Placeholder).
		SetPlaceholderStyle(opts.PlaceholderStyle)

	f := &Field{
		TextArea: ta,
		text:     opts.Text,
		editing:  opts.Editing,
		onSubmit: opts.OnSubmit,
		style:    opts.Text.Get().Style,
	}
	ta.SetTextStyle(f.style)
	ta.SetChangedFunc(f.changed)
	ta.SetInputCapture(f.capture)
	f.pull()
	return f
}

// OnContentSizeChange registers fn to be called whenever the wrapped content
// size changes.
func (f *Field) OnContentSizeChange(fn func(composer.Size)) {
	f.handlers = append(f.handlers, fn)
}

// Layout measures the content for the given inner width. Containers call it
// before sizing the field.
func (f *Field) Layout(width int) {
	f.pull()
	f.width = width
	f.measure()
}

// Draw implements tview.Primitive.
func (f *Field) Draw(screen tcell.Screen) {
	f.pull()
	f.TextArea.Draw(screen)
	if _, _, w, _ := f.GetInnerRect(); w != f.width {
		f.width = w
		f.measure()
	}
}

// Focus implements tview.Primitive.
func (f *Field) Focus(delegate func(p tview.Primitive)) {
	f.TextArea.Focus(delegate)
	f.editing.Set(true)
}

// Blur implements tview.Primitive.
func (f *Field) Blur() {
	f.TextArea.Blur()
	f.editing.Set(false)
}

// MouseHandler implements tview.Primitive. Clicks focus the Field rather than
// the embedded TextArea so focus changes reach the editing binding.
func (f *Field) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (bool, tview.Primitive) {
	inner := f.TextArea.MouseHandler()
	return func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (bool, tview.Primitive) {
		return inner(action, event, func(p tview.Primitive) {
			if p == f.TextArea {
				p = f
			}
			setFocus(p)
		})
	}
}

func (f *Field) capture(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() != tcell.KeyEnter {
		return event
	}
	if event.Modifiers()&(tcell.ModAlt|tcell.ModShift) != 0 {
		return event
	}
	if f.onSubmit != nil {
		f.onSubmit()
	}
	f.pull()
	return nil
}

// changed copies user edits back through the binding.
func (f *Field) changed() {
	if f.syncing {
		return
	}
	f.text.Set(composer.StyledText{Text: f.GetText(), Style: f.style})
	f.measure()
}

// pull applies the bound text and style when the owner changed them.
func (f *Field) pull() {
	st := f.text.Get()
	if st.Style != f.style {
		f.style = st.Style
		f.SetTextStyle(st.Style)
	}
	if st.Text == f.GetText() {
		return
	}
	f.syncing = true
	f.SetText(st.Text, true)
	f.syncing = false
	f.measure()
}

func (f *Field) measure() {
	if f.width <= 0 {
		return
	}
	size := Measure(f.GetText(), f.width)
	if f.reported && size == f.size {
		return
	}
	f.size, f.reported = size, true
	for _, fn := range f.handlers {
		fn(size)
	}
}

// Measure returns the size text occupies when wrapped at width cells. Every
// line, including an empty buffer, takes at least one row.
func Measure(text string, width int) composer.Size {
	if width <= 0 {
		return composer.Size{}
	}
	rows, widest := 0, 0
	for _, line := range strings.Split(text, "\n") {
		r, w := wrapLine(line, width)
		rows += r
		widest = max(widest, w)
	}
	return composer.Size{
		Width:  float64(min(widest, width)),
		Height: float64(rows),
	}
}

// wrapLine returns how many rows line fills at width columns and the widest
// row. A grapheme cluster is never split across rows.
func wrapLine(line string, width int) (rows, widest int) {
	rows, col, state := 1, 0, -1
	for line != "" {
		var w int
		_, line, w, state = uniseg.FirstGraphemeClusterInString(line, state)
		if col > 0 && col+w > width {
			rows++
			col = 0
		}
		col += w
		widest = max(widest, col)
	}
	return rows, widest
}
