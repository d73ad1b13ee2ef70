// Package peer provides the remote end of parley chats. Loopback answers
// every message locally, which keeps the whole send path exercised without a
// network service.
package peer

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

// WelcomeMsgID is the fixed ID of the greeting seeded on first connect, so
// reconnecting never duplicates it.
const WelcomeMsgID = "welcome"

// Options configures a Loopback.
type Options struct {
	Echo        bool
	EchoDelay   time.Duration
	DisplayName string
}

// Loopback is an in-process peer. It implements outbox.TextSender and drives
// the session state machine the way a network transport would.
type Loopback struct {
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	opts    Options

	mu      gosync.Mutex
	timers  map[string]*time.Timer
	held    []*store.Message
	greeted bool
}

var _ outbox.TextSender = (*Loopback)(nil)

// New creates a loopback peer.
func New(b *bus.Bus, m *status.Machine, logger *zap.Logger, opts Options) *Loopback {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DisplayName == "" {
		opts.DisplayName = "echo"
	}
	return &Loopback{
		bus:     b,
		machine: m,
		logger:  logger,
		opts:    opts,
		timers:  make(map[string]*time.Timer),
	}
}

// ChatID returns the chat the peer greets on first connect.
func (l *Loopback) ChatID() string {
	return l.opts.DisplayName
}

// Connect brings the session to READY. Replies that arrived while offline
// are delivered once connected.
func (l *Loopback) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.machine.Current() != status.Connecting {
		if err := l.machine.Transition(status.Connecting); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}
	if err := l.machine.Transition(status.Ready); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	l.logger.Info("peer connected", zap.String("peer", l.opts.DisplayName))

	l.mu.Lock()
	greet := !l.greeted
	l.greeted = true
	held := l.held
	l.held = nil
	l.mu.Unlock()

	if greet {
		l.bus.Emit(bus.KindPeerHistory, []*store.Message{l.welcome()})
	}
	for _, m := range held {
		l.bus.Emit(bus.KindPeerMessage, m)
	}
	return nil
}

// GoOffline drops the connection. Sends fail with outbox.ErrNotConnected
// until Reconnect.
func (l *Loopback) GoOffline() error {
	if err := l.machine.Transition(status.Offline); err != nil {
		return fmt.Errorf("go offline: %w", err)
	}
	l.logger.Info("peer offline")
	return nil
}

// Reconnect walks OFFLINE through RECONNECTING back to READY.
func (l *Loopback) Reconnect(ctx context.Context) error {
	if l.machine.IsReady() {
		return nil
	}
	if err := l.machine.Transition(status.Reconnecting); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	return l.Connect(ctx)
}

// Disconnect cancels pending replies and leaves the session offline.
func (l *Loopback) Disconnect() {
	l.mu.Lock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	l.mu.Unlock()
	if l.machine.Current() != status.Offline {
		_ = l.machine.Transition(status.Offline)
	}
}

// Pending returns the number of scheduled replies.
func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// SendText accepts a message for chatID and, with echo enabled, schedules the
// peer's reply.
func (l *Loopback) SendText(ctx context.Context, chatID string, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !l.machine.IsReady() {
		return "", outbox.ErrNotConnected
	}
	serverMsgID := uuid.NewString()
	l.logger.Debug("peer accepted message", zap.String("chat", chatID), zap.String("server_msg_id", serverMsgID))

	if l.opts.Echo {
		reply := &store.Message{
			ChatID:     chatID,
			MsgID:      "echo-" + serverMsgID,
			SenderName: chatID,
			Body:       text,
			Status:     store.StatusReceived,
		}
		l.mu.Lock()
		l.timers[serverMsgID] = time.AfterFunc(l.opts.EchoDelay, func() { l.deliver(serverMsgID, reply) })
		l.mu.Unlock()
	}
	return serverMsgID, nil
}

func (l *Loopback) deliver(id string, reply *store.Message) {
	reply.Timestamp = time.Now().UnixMilli()

	l.mu.Lock()
	delete(l.timers, id)
	if !l.machine.IsReady() {
		l.held = append(l.held, reply)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.bus.Emit(bus.KindPeerMessage, reply)
}

func (l *Loopback) welcome() *store.Message {
	name := l.opts.DisplayName
	body := fmt.Sprintf("Hi, this is %s. Anything you send here comes straight back.", name)
	if !l.opts.Echo {
		body = fmt.Sprintf("Hi, this is %s. Replies are turned off in config.toml.", name)
	}
	return &store.Message{
		ChatID:     name,
		MsgID:      WelcomeMsgID,
		SenderName: name,
		Body:       body,
		Status:     store.StatusReceived,
		Timestamp:  time.Now().UnixMilli(),
	}
}
