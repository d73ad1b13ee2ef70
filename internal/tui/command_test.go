package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in        string
		name      string
		args      string
		canonical string
	}{
		{"chat Alice", "chat", "Alice", "chat"},
		{":c  Bob Smith ", "c", "Bob Smith", "chat"},
		{"SEARCH hello world", "search", "hello world", "search"},
		{"offline", "offline", "", "offline"},
		{"q", "q", "", "quit"},
		{"", "", "", ""},
		{"frobnicate x", "frobnicate", "x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd := ParseCommand(tt.in)
			if cmd.Name != tt.name || cmd.Args != tt.args {
				t.Errorf("ParseCommand(%q) = %+v, want {%s %s}", tt.in, cmd, tt.name, tt.args)
			}
			if got := cmd.Canonical(); got != tt.canonical {
				t.Errorf("Canonical() = %q, want %q", got, tt.canonical)
			}
		})
	}
}
