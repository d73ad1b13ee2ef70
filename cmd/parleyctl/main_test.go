package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matheus3301/parley/internal/session"
)

func runCtl(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestSendThenInspect(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())
	t.Setenv(session.SessionEnv, "")

	out, errOut, code := runCtl(t, "send", "alice", "hello", "there")
	if code != 0 {
		t.Fatalf("send exit = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "for alice") {
		t.Errorf("send output = %q", out)
	}

	out, _, code = runCtl(t, "chats")
	if code != 0 || !strings.Contains(out, "alice") || !strings.Contains(out, "hello there") {
		t.Errorf("chats exit = %d, output = %q", code, out)
	}

	out, _, code = runCtl(t, "history", "alice")
	if code != 0 || !strings.Contains(out, "me") || !strings.Contains(out, "hello there") {
		t.Errorf("history exit = %d, output = %q", code, out)
	}

	out, _, code = runCtl(t, "search", "hello")
	if code != 0 || !strings.Contains(out, "<<hello>>") {
		t.Errorf("search exit = %d, output = %q", code, out)
	}

	out, errOut, code = runCtl(t, "--json", "status")
	if code != 0 {
		t.Fatalf("status exit = %d, stderr = %q", code, errOut)
	}
	var st statusOutput
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("status json: %v (%q)", err, out)
	}
	want := statusOutput{Session: "main", Chats: 1, Messages: 1, Pending: 1, Schema: 2}
	if st != want {
		t.Errorf("status = %+v, want %+v", st, want)
	}
}

func TestSessionsList(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())
	t.Setenv(session.SessionEnv, "")

	out, _, code := runCtl(t, "sessions", "list")
	if code != 0 || !strings.Contains(out, "No sessions found.") {
		t.Errorf("empty list exit = %d, output = %q", code, out)
	}

	if _, errOut, code := runCtl(t, "--session", "work", "chats"); code != 0 {
		t.Fatalf("chats exit = %d, stderr = %q", code, errOut)
	}
	out, _, code = runCtl(t, "sessions", "list")
	if code != 0 || !strings.Contains(out, "work") || !strings.Contains(out, "stopped") {
		t.Errorf("list exit = %d, output = %q", code, out)
	}
}

func TestUsageErrors(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())
	t.Setenv(session.SessionEnv, "")

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"history without chat", []string{"history"}},
		{"send without text", []string{"send", "alice"}},
		{"bad session name", []string{"--session", "Bad Name", "chats"}},
		{"unknown chat", []string{"history", "nobody"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := runCtl(t, tt.args...)
			if code == 0 {
				t.Errorf("exit = 0, want failure")
			}
			if errOut == "" {
				t.Error("expected a message on stderr")
			}
		})
	}
}
