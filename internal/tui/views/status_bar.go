package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays the session name, connection state and clock.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	session string
	state   status.State
	chat    string
	now     func() time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.CrumbInactiveBg)
	tv.SetTextColor(theme.CrumbInactiveFg)

	sb := &StatusBar{TextView: tv, theme: theme, state: status.Booting, now: time.Now}
	sb.render()
	return sb
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetState updates the connection state display.
func (sb *StatusBar) SetState(s status.State) {
	sb.state = s
	sb.render()
}

// SetChat shows the open chat, or nothing for "".
func (sb *StatusBar) SetChat(name string) {
	sb.chat = name
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	color := colorTag(sb.theme.FlashWarnColor)
	switch sb.state {
	case status.Ready:
		color = colorTag(sb.theme.FlashInfoColor)
	case status.Error:
		color = colorTag(sb.theme.FlashErrColor)
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-]", tview.Escape(sb.session), color, sb.state)
	if sb.chat != "" {
		line += " | " + tview.Escape(sanitizeForTerminal(sb.chat))
	}
	line += " | " + sb.now().Format("15:04")
	_, _ = fmt.Fprint(sb, line)
}
