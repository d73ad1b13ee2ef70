// Package app wires a parley session together with fx: configuration,
// logging, the session lock, the store, the loopback peer, the workers and
// the TUI.
package app

import (
	"context"
	"fmt"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/logging"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/peer"
	"github.com/matheus3301/parley/internal/session"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	intsync "github.com/matheus3301/parley/internal/sync"
	"github.com/matheus3301/parley/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	// Console also logs to stderr. It must stay off while the TUI owns the
	// terminal.
	Console bool
}

// Module returns the fx module for a parley session.
func Module(p Params) fx.Option {
	return fx.Module("parley",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			providePeer,
			provideSyncEngine,
			provideSender,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

// WithLogger routes fx's own events to the session logger instead of stderr.
func WithLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	})
}

func provideConfig() (*config.Config, error) {
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.Log.ZapLevel()
	if err != nil {
		return nil, err
	}
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Console, level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is never opened by a second
// instance.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(session.AppDBPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", db.Path()))
	return db, nil
}

func providePeer(cfg *config.Config, b *bus.Bus, m *status.Machine, logger *zap.Logger) *peer.Loopback {
	return peer.New(b, m, logger, peer.Options{
		Echo:        cfg.Peer.Echo,
		EchoDelay:   cfg.Peer.EchoDelay(),
		DisplayName: cfg.Peer.DisplayName,
	})
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger)
}

func provideSender(db *store.DB, lp *peer.Loopback, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, lp, b, logger)
}

func provideTUI(p Params, cfg *config.Config, db *store.DB, b *bus.Bus, m *status.Machine, sender *outbox.Sender, lp *peer.Loopback, logger *zap.Logger) *tui.App {
	return tui.New(tui.Deps{
		Session: p.SessionName,
		Config:  cfg,
		DB:      db,
		Bus:     b,
		Machine: m,
		Queue:   sender,
		Peer:    lp,
		Logger:  logger.Named("tui"),
	})
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, b *bus.Bus, lp *peer.Loopback, engine *intsync.Engine, sender *outbox.Sender, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The engine must be subscribed before the peer replays history.
			engine.Start(context.Background())
			sender.Start(context.Background())
			if err := lp.Connect(ctx); err != nil {
				return fmt.Errorf("connect peer: %w", err)
			}
			logger.Info("session started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			lp.Disconnect()
			sender.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("session stopped", zap.Uint64("dropped_events", b.Dropped()))
			_ = logger.Sync()
			return nil
		},
	})
}
