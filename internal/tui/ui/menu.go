package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Menu shows the key hints of the current view on one line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints as "<key> description" pairs.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	keyColor := colorName(m.theme.MenuKeyColor)
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", keyColor, tview.Escape(h.Key), h.Description))
	}
	_, _ = fmt.Fprint(m, " "+strings.Join(parts, "  "))
}
