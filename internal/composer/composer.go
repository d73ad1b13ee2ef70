// Package composer holds the state and rules of the chat message composer:
// the styled projection of the draft, the editor height policy, send gating
// and the commit sequence. Rendering lives in internal/tui/views.
package composer

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/binding"
	"github.com/matheus3301/parley/internal/message"
)

// MaxViewportFraction caps the editor height relative to the viewport.
const MaxViewportFraction = 0.25

// Size is a measured content size in terminal cells.
type Size struct {
	Width  float64
	Height float64
}

// StyledText is the display form of the draft: the plain text plus the fixed
// body style. It carries no state of its own.
type StyledText struct {
	Text  string
	Style tcell.Style
}

// Options configures a composer. Text, Editing and Enabled are owned by the
// caller.
type Options struct {
	Text        binding.Binding[string]
	Editing     binding.Binding[bool]
	Enabled     binding.Binding[bool]
	Placeholder string
	// Style is applied to every read of the styled text.
	Style tcell.Style
	// OnCommit receives committed messages. May be nil.
	OnCommit func(message.Kind)
}

// State is the composer's view of the world. It must only be used from the UI
// goroutine.
type State struct {
	text        binding.Binding[string]
	editing     binding.Binding[bool]
	enabled     binding.Binding[bool]
	placeholder string
	style       tcell.Style
	onCommit    func(message.Kind)

	measured Size
}

// New creates composer state. The measured size starts at zero.
func New(opts Options) *State {
	return &State{
		text:        opts.Text,
		editing:     opts.Editing,
		enabled:     opts.Enabled,
		placeholder: opts.Placeholder,
		style:       opts.Style,
		onCommit:    opts.OnCommit,
	}
}

// Text returns the current draft.
func (s *State) Text() string { return s.text.Get() }

// Enabled reports whether the parent currently permits sending.
func (s *State) Enabled() bool { return s.enabled.Get() }

// Placeholder returns the hint shown while the draft is empty.
func (s *State) Placeholder() string { return s.placeholder }

// Editing returns the editing-flag binding handed to the editor.
func (s *State) Editing() binding.Binding[bool] { return s.editing }

// Styled returns the styled projection of the draft. Reads wrap the current
// text in the body style; writes keep only the plain text.
func (s *State) Styled() binding.Binding[StyledText] {
	return binding.Map(s.text,
		func(text string) StyledText {
			return StyledText{Text: text, Style: s.style}
		},
		func(st StyledText) string {
			return st.Text
		},
	)
}

// SetOnCommit replaces the commit callback. nil is allowed.
func (s *State) SetOnCommit(fn func(message.Kind)) {
	s.onCommit = fn
}

// SetMeasuredSize records the editor's reported content size. It is the
// handler for the editor's content-size notifications.
func (s *State) SetMeasuredSize(size Size) {
	s.measured = size
}

// MeasuredSize returns the last size reported by the editor.
func (s *State) MeasuredSize() Size { return s.measured }

// EditorHeight applies the height policy to the last measured size.
func (s *State) EditorHeight(viewport float64) float64 {
	return EditorHeight(s.measured.Height, viewport)
}

// CanSend reports whether the send action is available.
func (s *State) CanSend() bool {
	return s.text.Get() != "" && s.enabled.Get()
}

// Commit emits the current draft as a text message and clears it. It has no
// guard; callers that need one use Send.
func (s *State) Commit() {
	if s.onCommit != nil {
		s.onCommit(message.Text{Body: s.text.Get()})
	}
	s.text.Set("")
}

// Send commits when CanSend allows it and reports whether it did. Both the
// editor's submit key and the send button go through here.
func (s *State) Send() bool {
	if !s.CanSend() {
		return false
	}
	s.Commit()
	return true
}

// EditorHeight returns the displayed editor height for a measured content
// height: the content height, capped at a quarter of the viewport.
func EditorHeight(measured, viewport float64) float64 {
	return math.Min(measured, MaxViewportFraction*viewport)
}

// Rows converts a displayed height to whole terminal rows. A focused editor
// needs at least one row to show the cursor.
func Rows(height float64) int {
	rows := int(math.Floor(height))
	if rows < 1 {
		return 1
	}
	return rows
}
