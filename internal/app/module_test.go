package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/session"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"github.com/matheus3301/parley/internal/tui"
	"go.uber.org/fx"
)

func TestModuleValidates(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())

	if err := fx.ValidateApp(Module(Params{SessionName: "test"})); err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())

	var (
		db      *store.DB
		machine *status.Machine
		ui      *tui.App
	)
	app := fx.New(
		Module(Params{SessionName: "test"}),
		WithLogger(),
		fx.Populate(&db, &machine, &ui),
	)
	if err := app.Err(); err != nil {
		t.Fatalf("fx.New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := machine.Current(); got != status.Ready {
		t.Errorf("state after start = %s, want %s", got, status.Ready)
	}
	if ui == nil {
		t.Error("TUI was not provided")
	}

	// A second instance of the same session must be refused.
	if _, err := lock.Acquire(session.LockPath("test")); err == nil {
		t.Error("second Acquire() succeeded while the session is running")
	} else {
		var held *lock.LockHeldError
		if !errors.As(err, &held) {
			t.Errorf("second Acquire() error = %v, want LockHeldError", err)
		}
	}

	// The peer's welcome history is ingested in the background.
	deadline := time.Now().Add(3 * time.Second)
	for {
		chat, err := db.GetChat("echo")
		if err != nil {
			t.Fatal(err)
		}
		if chat != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("welcome chat was not ingested")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := machine.Current(); got != status.Offline {
		t.Errorf("state after stop = %s, want %s", got, status.Offline)
	}
	pid, err := lock.Holder(session.LockPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	if pid != 0 {
		t.Errorf("lock holder after stop = %d, want 0", pid)
	}
}
