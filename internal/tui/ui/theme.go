package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color

	// Composer.
	ComposerBgColor    tcell.Color
	ComposerFgColor    tcell.Color
	PlaceholderColor   tcell.Color
	SendActiveBg       tcell.Color
	SendActiveFg       tcell.Color
	SendMutedBg        tcell.Color
	SendMutedFg        tcell.Color
	OwnMessageColor    tcell.Color
	PeerMessageColor   tcell.Color
	FailedMessageColor tcell.Color
}

// DarkTheme returns a k9s-inspired dark theme.
func DarkTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,

		ComposerBgColor:    tcell.ColorBlack,
		ComposerFgColor:    tcell.ColorWhite,
		PlaceholderColor:   tcell.ColorDimGray,
		SendActiveBg:       tcell.ColorDodgerBlue,
		SendActiveFg:       tcell.ColorWhite,
		SendMutedBg:        tcell.ColorDimGray,
		SendMutedFg:        tcell.ColorSilver,
		OwnMessageColor:    tcell.ColorLightSkyBlue,
		PeerMessageColor:   tcell.ColorPapayaWhip,
		FailedMessageColor: tcell.ColorOrangeRed,
	}
}

// LightTheme returns a light theme with a white composer, matching the
// default look of mobile chat inputs.
func LightTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorWhite,
		FgColor:           tcell.ColorBlack,
		BorderColor:       tcell.ColorSilver,
		BorderFocusColor:  tcell.ColorRoyalBlue,
		TableHeaderFg:     tcell.ColorBlack,
		TableHeaderBg:     tcell.ColorGainsboro,
		TableCursorFg:     tcell.ColorWhite,
		TableCursorBg:     tcell.ColorRoyalBlue,
		CrumbActiveFg:     tcell.ColorWhite,
		CrumbActiveBg:     tcell.ColorRoyalBlue,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorGainsboro,
		MenuKeyColor:      tcell.ColorRoyalBlue,
		TitleColor:        tcell.ColorNavy,
		CounterColor:      tcell.ColorDarkSlateGray,
		FlashInfoColor:    tcell.ColorDarkGreen,
		FlashWarnColor:    tcell.ColorDarkOrange,
		FlashErrColor:     tcell.ColorRed,
		PromptBorderColor: tcell.ColorRoyalBlue,

		ComposerBgColor:    tcell.ColorWhite,
		ComposerFgColor:    tcell.ColorBlack,
		PlaceholderColor:   tcell.ColorGray,
		SendActiveBg:       tcell.ColorDodgerBlue,
		SendActiveFg:       tcell.ColorWhite,
		SendMutedBg:        tcell.ColorSilver,
		SendMutedFg:        tcell.ColorWhite,
		OwnMessageColor:    tcell.ColorRoyalBlue,
		PeerMessageColor:   tcell.ColorDarkSlateGray,
		FailedMessageColor: tcell.ColorRed,
	}
}

// ThemeFor maps a config background name to a theme. Unknown names fall back
// to the light theme.
func ThemeFor(background string) *Theme {
	switch strings.ToLower(strings.TrimSpace(background)) {
	case "dark":
		return DarkTheme()
	default:
		return LightTheme()
	}
}

// ComposerTextStyle is the body style of draft text.
func (t *Theme) ComposerTextStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(t.ComposerFgColor).Background(t.ComposerBgColor)
}

// PlaceholderStyle is the style of the composer's empty-draft hint.
func (t *Theme) PlaceholderStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(t.PlaceholderColor).Background(t.ComposerBgColor)
}

// SendActiveStyle is the send button style when sending is possible.
func (t *Theme) SendActiveStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(t.SendActiveFg).Background(t.SendActiveBg).Bold(true)
}

// SendMutedStyle is the send button style when sending is not possible.
func (t *Theme) SendMutedStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(t.SendMutedFg).Background(t.SendMutedBg)
}
