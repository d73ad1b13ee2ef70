package composer

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/parley/internal/binding"
	"github.com/matheus3301/parley/internal/message"
)

type fixture struct {
	text    string
	editing bool
	enabled bool
	commits []message.Kind
	state   *State
}

func newFixture(text string, enabled bool) *fixture {
	f := &fixture{text: text, enabled: enabled}
	f.state = New(Options{
		Text:        binding.Var(&f.text),
		Editing:     binding.Var(&f.editing),
		Enabled:     binding.Var(&f.enabled),
		Placeholder: "Type a message",
		Style:       tcell.StyleDefault.Foreground(tcell.ColorBlack),
		OnCommit: func(k message.Kind) {
			f.commits = append(f.commits, k)
		},
	})
	return f
}

func TestStyledRoundTrip(t *testing.T) {
	inputs := []string{"", "hello", "multi\nline\ntext", "  spaced  ", "émoji 👍"}
	for _, s := range inputs {
		f := newFixture(s, true)
		styled := f.state.Styled()
		styled.Set(styled.Get())
		if f.text != s {
			t.Errorf("round trip of %q left text = %q", s, f.text)
		}
	}
}

func TestStyledReadReflectsText(t *testing.T) {
	f := newFixture("one", true)
	styled := f.state.Styled()

	f.text = "two"
	got := styled.Get()
	if got.Text != "two" {
		t.Errorf("styled text = %q, want two", got.Text)
	}
	want := tcell.StyleDefault.Foreground(tcell.ColorBlack)
	if got.Style != want {
		t.Errorf("styled style = %v, want %v", got.Style, want)
	}
}

func TestStyledWriteDropsStyle(t *testing.T) {
	f := newFixture("", true)
	f.state.Styled().Set(StyledText{Text: "typed", Style: tcell.StyleDefault.Bold(true)})
	if f.text != "typed" {
		t.Errorf("text = %q, want typed", f.text)
	}
	// The style written is not retained: reads use the fixed body style.
	if got := f.state.Styled().Get().Style; got != f.state.style {
		t.Errorf("style after write = %v, want fixed body style", got)
	}
}

func TestSendActive(t *testing.T) {
	f := newFixture("Hello", true)
	if !f.state.CanSend() {
		t.Fatal("CanSend() = false, want true")
	}
	if !f.state.Send() {
		t.Fatal("Send() = false, want true")
	}
	if len(f.commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(f.commits))
	}
	if got, ok := f.commits[0].(message.Text); !ok || got.Body != "Hello" {
		t.Errorf("commit = %#v, want Text{Hello}", f.commits[0])
	}
	if f.text != "" {
		t.Errorf("text after send = %q, want empty", f.text)
	}
}

func TestSendGated(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		enabled bool
	}{
		{"empty text", "", true},
		{"disabled", "Hi", false},
		{"empty and disabled", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.text, tt.enabled)
			if f.state.CanSend() {
				t.Error("CanSend() = true, want false")
			}
			if f.state.Send() {
				t.Error("Send() = true, want false")
			}
			if len(f.commits) != 0 {
				t.Errorf("got %d commits, want 0", len(f.commits))
			}
			if f.text != tt.text {
				t.Errorf("text = %q, want unchanged %q", f.text, tt.text)
			}
		})
	}
}

func TestCanSendEvaluatedFresh(t *testing.T) {
	f := newFixture("", false)
	if f.state.CanSend() {
		t.Fatal("CanSend() = true before any change")
	}
	f.text = "x"
	f.enabled = true
	if !f.state.CanSend() {
		t.Error("CanSend() did not follow owner changes")
	}
	f.enabled = false
	if f.state.CanSend() {
		t.Error("CanSend() did not follow enabled=false")
	}
}

func TestCommitWithoutCallback(t *testing.T) {
	text := "Bye"
	s := New(Options{Text: binding.Var(&text), Enabled: binding.Constant(true)})
	s.Commit()
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestCommitIsUnguarded(t *testing.T) {
	f := newFixture("", false)
	f.state.Commit()
	if len(f.commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(f.commits))
	}
	if got := f.commits[0].(message.Text); got.Body != "" {
		t.Errorf("commit body = %q, want empty", got.Body)
	}
}

func TestSetOnCommit(t *testing.T) {
	f := newFixture("a", true)
	var got []message.Kind
	f.state.SetOnCommit(func(k message.Kind) { got = append(got, k) })
	f.state.Send()
	if len(f.commits) != 0 || len(got) != 1 {
		t.Errorf("old callback calls = %d, new = %d; want 0 and 1", len(f.commits), len(got))
	}
}

func TestMeasuredSizeStartsAtZero(t *testing.T) {
	f := newFixture("", true)
	if f.state.MeasuredSize() != (Size{}) {
		t.Errorf("MeasuredSize() = %v, want zero", f.state.MeasuredSize())
	}
	f.state.SetMeasuredSize(Size{Width: 10, Height: 3})
	if f.state.MeasuredSize() != (Size{Width: 10, Height: 3}) {
		t.Errorf("MeasuredSize() = %v, want {10 3}", f.state.MeasuredSize())
	}
}

func TestEditorHeight(t *testing.T) {
	tests := []struct {
		measured, viewport, want float64
	}{
		{0, 800, 0},
		{1, 800, 1},
		{199, 800, 199},
		{200, 800, 200},
		{500, 800, 200},
		{3, 40, 3},
		{12, 40, 10},
	}
	for _, tt := range tests {
		if got := EditorHeight(tt.measured, tt.viewport); got != tt.want {
			t.Errorf("EditorHeight(%v, %v) = %v, want %v", tt.measured, tt.viewport, got, tt.want)
		}
	}
}

func TestEditorHeightMonotonic(t *testing.T) {
	const viewport = 60
	prev := -1.0
	for m := 0.0; m <= 40; m += 0.5 {
		h := EditorHeight(m, viewport)
		if h < prev {
			t.Fatalf("EditorHeight decreased at measured=%v: %v < %v", m, h, prev)
		}
		if m >= MaxViewportFraction*viewport && h != MaxViewportFraction*viewport {
			t.Fatalf("EditorHeight(%v) = %v, want cap %v", m, h, MaxViewportFraction*viewport)
		}
		prev = h
	}
}

func TestStateEditorHeight(t *testing.T) {
	f := newFixture("", true)
	f.state.SetMeasuredSize(Size{Height: 500})
	if got := f.state.EditorHeight(800); got != 200 {
		t.Errorf("EditorHeight(800) = %v, want 200", got)
	}
}

func TestRows(t *testing.T) {
	tests := []struct {
		height float64
		want   int
	}{
		{0, 1},
		{0.75, 1},
		{1, 1},
		{2.5, 2},
		{10, 10},
	}
	for _, tt := range tests {
		if got := Rows(tt.height); got != tt.want {
			t.Errorf("Rows(%v) = %d, want %d", tt.height, got, tt.want)
		}
	}
}
