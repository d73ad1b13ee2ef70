package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/composer"
	"github.com/matheus3301/parley/internal/tui/editor"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

const sendLabel = "Send"

// sendWidth is the send button column, label plus padding.
const sendWidth = len(sendLabel) + 4

// Composer is the message input row: a growing editor next to a send button.
// Enter in the editor is gated exactly like the button, so it commits only
// while the draft can be sent.
type Composer struct {
	*tview.Flex
	theme  *ui.Theme
	state  *composer.State
	field  *editor.Field
	button *tview.Button
}

// NewComposer builds the composer widget around state.
func NewComposer(state *composer.State, theme *ui.Theme) *Composer {
	c := &Composer{
		theme: theme,
		state: state,
	}

	c.field = editor.New(editor.Options{
		Text:             state.Styled(),
		Editing:          state.Editing(),
		Placeholder:      state.Placeholder(),
		PlaceholderStyle: theme.PlaceholderStyle(),
		OnSubmit:         c.send,
	})
	c.field.SetBackgroundColor(theme.ComposerBgColor)
	c.field.OnContentSizeChange(state.SetMeasuredSize)

	c.button = tview.NewButton(sendLabel).SetSelectedFunc(c.send)
	c.button.SetStyle(theme.SendActiveStyle())
	c.button.SetActivatedStyle(theme.SendActiveStyle().Reverse(true))
	c.button.SetDisabledStyle(theme.SendMutedStyle())

	c.Flex = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(c.field, 0, 1, true).
		AddItem(tview.NewBox().SetBackgroundColor(theme.ComposerBgColor), 1, 0, false).
		AddItem(c.button, sendWidth, 0, false)
	c.SetBorder(true)
	c.SetBackgroundColor(theme.ComposerBgColor)
	c.SetBorderColor(theme.BorderColor)
	c.SetTitle(" Message ")
	c.SetTitleColor(theme.TitleColor)

	c.refreshButton()
	return c
}

// Field returns the editor (for focus management).
func (c *Composer) Field() *editor.Field { return c.field }

// Button returns the send button (for focus management).
func (c *Composer) Button() *tview.Button { return c.button }

// State returns the composer state.
func (c *Composer) State() *composer.State { return c.state }

// Height returns the rows the composer needs inside a screen of viewport rows
// when given width columns, borders included.
func (c *Composer) Height(width, viewport int) int {
	c.field.Layout(c.editorWidth(width))
	return composer.Rows(c.state.EditorHeight(float64(viewport))) + 2
}

// Draw implements tview.Primitive. Send availability is evaluated on every
// draw, so the button follows both the draft and the enabled flag.
func (c *Composer) Draw(screen tcell.Screen) {
	c.refreshButton()
	c.Flex.Draw(screen)
}

// Focus implements tview.Primitive. Focus goes to the editor.
func (c *Composer) Focus(delegate func(p tview.Primitive)) {
	delegate(c.field)
}

func (c *Composer) editorWidth(width int) int {
	// Borders, spacer and button.
	return max(1, width-2-1-sendWidth)
}

func (c *Composer) send() {
	c.state.Send()
	c.refreshButton()
}

func (c *Composer) refreshButton() {
	c.button.SetDisabled(!c.state.CanSend())
}
