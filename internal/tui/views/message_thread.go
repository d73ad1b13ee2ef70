package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/store"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays the transcript of one chat above the composer.
type MessageThread struct {
	*tview.Flex
	theme      *ui.Theme
	transcript *tview.TextView
	composer   *Composer
	chatName   string
	chatID     string
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme, composer *Composer) *MessageThread {
	transcript := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	transcript.SetBorder(true)
	transcript.SetBorderColor(theme.BorderColor)
	transcript.SetBackgroundColor(theme.BgColor)
	transcript.SetTextColor(theme.FgColor)
	transcript.SetTitle(" Messages ")
	transcript.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(transcript, 0, 1, false).
		AddItem(composer, 3, 0, true)

	return &MessageThread{
		Flex:       flex,
		theme:      theme,
		transcript: transcript,
		composer:   composer,
	}
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chatName != "" {
		return mt.chatName
	}
	return "Messages"
}

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Alt-Enter", Description: "Newline"},
		{Key: "Tab", Description: "Transcript"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
	}
}

// Draw implements tview.Primitive. The composer is resized to its content on
// every draw, capped relative to the screen height.
func (mt *MessageThread) Draw(screen tcell.Screen) {
	_, screenHeight := screen.Size()
	_, _, width, _ := mt.GetRect()
	mt.ResizeItem(mt.composer, mt.composer.Height(width, screenHeight), 0)
	mt.Flex.Draw(screen)
}

// SetChat shows chat in the title.
func (mt *MessageThread) SetChat(chat store.Chat) {
	mt.chatID = chat.ID
	mt.chatName = chat.DisplayName()
	mt.transcript.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(mt.chatName))))
}

// ChatID returns the current chat ID.
func (mt *MessageThread) ChatID() string {
	return mt.chatID
}

// Update re-renders the transcript. msgs are newest first.
func (mt *MessageThread) Update(msgs []store.Message) {
	mt.transcript.Clear()

	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		sender := m.SenderName
		if sender == "" {
			sender = m.ChatID
		}
		color := mt.theme.PeerMessageColor
		if m.FromMe {
			sender = "You"
			color = mt.theme.OwnMessageColor
		}
		if m.Status == store.StatusFailed {
			color = mt.theme.FailedMessageColor
		}

		_, _ = fmt.Fprintf(mt.transcript, "[%s::b]%s[-:-:-] [::d]%s%s[-:-:-]\n%s\n\n",
			colorTag(color),
			tview.Escape(sanitizeForTerminal(sender)),
			formatTimestamp(m.Timestamp),
			statusMark(m),
			tview.Escape(sanitizeForTerminal(m.Body)))
	}

	mt.transcript.ScrollToEnd()
}

// Transcript returns the messages text view (for focus management).
func (mt *MessageThread) Transcript() *tview.TextView {
	return mt.transcript
}

// Composer returns the composer widget.
func (mt *MessageThread) Composer() *Composer {
	return mt.composer
}

func statusMark(m store.Message) string {
	if !m.FromMe {
		return ""
	}
	switch m.Status {
	case store.StatusQueued, store.StatusSending:
		return " …"
	case store.StatusSent:
		return " ✓"
	case store.StatusFailed:
		return " failed"
	}
	return ""
}

func colorTag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
