package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

type helpEntry struct {
	key  string
	desc string
}

type helpSection struct {
	title   string
	entries []helpEntry
}

var helpSections = []helpSection{
	{"Global Keys", []helpEntry{
		{":", "Command mode"},
		{"/", "Filter conversations"},
		{"?", "Help"},
		{"Esc", "Cancel / Go back"},
		{"q", "Quit (conversation list)"},
		{"Ctrl-C", "Quit immediately"},
	}},
	{"Conversation List", []helpEntry{
		{"Enter", "Open conversation"},
		{"1-9", "Open Nth conversation"},
		{"j/k", "Move down / up"},
	}},
	{"Message Thread", []helpEntry{
		{"Enter", "Send message"},
		{"Alt-Enter", "New line"},
		{"Tab", "Switch between transcript and composer"},
		{"i", "Focus composer"},
	}},
	{"Commands", []helpEntry{
		{":chat <name>", "Open or start a chat"},
		{":search <query>", "Search messages"},
		{":offline", "Disconnect from the peer"},
		{":online", "Reconnect to the peer"},
		{":help", "Show this help"},
		{":quit", "Quit application"},
	}},
}

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := colorTag(hv.theme.MenuKeyColor)

	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, e := range s.entries {
			fmt.Fprintf(&b, "  [%s]%-18s[-:-:-] %s\n", kc, tview.Escape(e.key), e.desc)
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
