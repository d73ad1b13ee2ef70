package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/store"
	"github.com/matheus3301/parley/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchView lists full-text search results.
type SearchView struct {
	*tview.Table
	theme *ui.Theme
	query string
	data  []store.SearchResult
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Search ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	return &SearchView{
		Table: results,
		theme: theme,
	}
}

// Name implements Component.
func (sv *SearchView) Name() string { return "Search" }

// Hints implements Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open chat"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
	}
}

// Update shows the results for query.
func (sv *SearchView) Update(query string, results []store.SearchResult) {
	sv.query = query
	sv.data = results
	sv.Clear()

	headers := []string{" CHAT", " MATCH", " TIME"}
	for col, h := range headers {
		sv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, r := range results {
		row := i + 1
		sv.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(r.Message.ChatID))).SetMaxWidth(25).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 1, tview.NewTableCell(" "+highlight(sanitizeForTerminal(r.Snippet), colorTag(sv.theme.MenuKeyColor))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(r.Message.Timestamp)).SetMaxWidth(12).SetTextColor(sv.theme.FgColor))
	}
	sv.SetTitle(fmt.Sprintf(" Search: %s (%d) ", tview.Escape(query), len(results)))
	if len(results) > 0 {
		sv.Select(1, 0)
	}
}

// SelectedChat returns the chat ID of the selected result.
func (sv *SearchView) SelectedChat() string {
	row, _ := sv.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(sv.data) {
		return sv.data[idx].Message.ChatID
	}
	return ""
}

// highlight escapes snippet and colors the <<match>> markers the store puts
// around search hits.
func highlight(snippet, color string) string {
	s := tview.Escape(snippet)
	s = strings.ReplaceAll(s, "<<", "["+color+"::b]")
	return strings.ReplaceAll(s, ">>", "[-:-:-]")
}
