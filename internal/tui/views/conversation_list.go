package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/store"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the main chat list view.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	chats  []store.Chat
	filter string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Hints implements Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "1-9", Description: "Jump"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// Update refreshes the chat list with new data, keeping the selected chat
// selected when it is still visible.
func (cl *ConversationList) Update(chats []store.Chat) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.render()
	if selected == "" {
		return
	}
	for i, c := range cl.visible() {
		if c.ID == selected {
			cl.Select(i+1, 0)
			return
		}
	}
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

// Filter returns the active filter text.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) visible() []store.Chat {
	if cl.filter == "" {
		return cl.chats
	}
	var out []store.Chat
	for _, c := range cl.chats {
		if containsFold(c.DisplayName(), cl.filter) || containsFold(c.LastMessagePreview, cl.filter) {
			out = append(out, c)
		}
	}
	return out
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	visible := cl.visible()
	for i, chat := range visible {
		row := i + 1
		name := chat.DisplayName()
		if chat.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", chat.UnreadCount, name)
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(chat.LastMessagePreview))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(chat.LastMessageAt)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the ID of the currently selected chat.
func (cl *ConversationList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the ID of the Nth visible conversation (1-based).
func (cl *ConversationList) ChatByIndex(n int) string {
	visible := cl.visible()
	if n < 1 || n > len(visible) {
		return ""
	}
	return visible[n-1].ID
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
