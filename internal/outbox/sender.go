package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/message"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedKind is returned by Queue for message kinds the outbox
	// cannot deliver.
	ErrUnsupportedKind = errors.New("unsupported message kind")
	// ErrEmptyMessage is returned by Queue for a text message with no body.
	ErrEmptyMessage = errors.New("empty message")
	// ErrNotConnected is returned by a TextSender that cannot deliver right
	// now. Entries failing with it stay queued.
	ErrNotConnected = errors.New("peer not connected")
)

const pollInterval = 500 * time.Millisecond

// TextSender delivers text messages to the peer of a chat.
type TextSender interface {
	SendText(ctx context.Context, chatID string, text string) (serverMsgID string, err error)
}

// SendAck is the payload of message.send_ack.
type SendAck struct {
	ChatID      string
	ClientMsgID string
	ServerMsgID string
}

// SendFailed is the payload of message.send_failed.
type SendFailed struct {
	ChatID      string
	ClientMsgID string
	Err         string
}

// Sender stores committed messages and drains them to the peer.
type Sender struct {
	db     *store.DB
	sender TextSender
	bus    *bus.Bus
	logger *zap.Logger
	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	interval time.Duration
	statusCh <-chan bus.Event
	unsub    func()
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, sender TextSender, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:     db,
		sender: sender,
		bus:    b,
		logger: logger,
		wake:   make(chan struct{}, 1),

		interval: pollInterval,
	}
}

// Queue stores a committed message for delivery to chatID and returns its
// client message ID. The message shows up in the chat right away with the
// queued status.
func (s *Sender) Queue(ctx context.Context, chatID string, kind message.Kind) (string, error) {
	text, ok := kind.(message.Text)
	if !ok {
		return "", fmt.Errorf("queue %v: %w", kindType(kind), ErrUnsupportedKind)
	}
	if text.Body == "" {
		return "", ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clientMsgID := uuid.NewString()
	now := time.Now().UnixMilli()
	// The message row must exist before the loop can pick up the entry.
	if err := s.db.QueueMessage(&store.Message{
		ChatID:    chatID,
		MsgID:     clientMsgID,
		Body:      text.Body,
		Kind:      text.Type(),
		FromMe:    true,
		Status:    store.StatusQueued,
		Timestamp: now,
	}); err != nil {
		return "", fmt.Errorf("queue message: %w", err)
	}
	if err := s.db.TouchChat(chatID, now, message.Preview(text, 80), 0); err != nil {
		s.logger.Warn("failed to update chat", zap.Error(err), zap.String("chat", chatID))
	}
	s.publishUpserted(chatID, clientMsgID)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return clientMsgID, nil
}

// Start begins draining the outbox. Pending entries are also flushed each
// time the session becomes ready.
func (s *Sender) Start(ctx context.Context) {
	s.statusCh, s.unsub = s.bus.SubscribeKinds(4, status.KindStatusChanged)
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for it to exit.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.unsub()
	}
}

// Flush wakes the loop so pending entries are retried immediately.
func (s *Sender) Flush() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending(ctx)
		case <-s.wake:
			s.processPending(ctx)
		case evt := <-s.statusCh:
			if c, ok := evt.Payload.(status.StatusChange); ok && c.To == status.Ready {
				s.logger.Debug("session ready, flushing outbox", zap.String("from", string(c.From)))
				s.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending(ctx context.Context) {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if ctx.Err() != nil {
			return
		}
		if !s.deliver(ctx, entry) {
			// Transport is down; keep the rest queued in order.
			return
		}
	}
}

// deliver sends one entry and reports whether the transport accepted work.
func (s *Sender) deliver(ctx context.Context, entry store.OutboxEntry) bool {
	log := s.logger.With(zap.String("client_msg_id", entry.ClientMsgID), zap.String("chat", entry.ChatID))

	if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
		log.Error("failed to mark sending", zap.Error(err))
		return true
	}
	s.setMessageStatus(entry, store.StatusSending)

	serverMsgID, err := s.sender.SendText(ctx, entry.ChatID, entry.Body)
	if errors.Is(err, ErrNotConnected) {
		log.Debug("peer not connected, keeping message queued")
		_ = s.db.MarkOutboxQueued(entry.ClientMsgID)
		s.setMessageStatus(entry, store.StatusQueued)
		return false
	}
	if err != nil {
		log.Error("failed to send message", zap.Error(err))
		_ = s.db.MarkOutboxFailed(entry.ClientMsgID, err.Error())
		s.setMessageStatus(entry, store.StatusFailed)
		s.bus.Emit(bus.KindSendFailed, SendFailed{
			ChatID:      entry.ChatID,
			ClientMsgID: entry.ClientMsgID,
			Err:         err.Error(),
		})
		return true
	}

	if err := s.db.MarkOutboxSent(entry.ClientMsgID, serverMsgID); err != nil {
		log.Error("failed to mark sent", zap.Error(err))
	}
	s.setMessageStatus(entry, store.StatusSent)

	log.Info("message sent", zap.String("server_msg_id", serverMsgID))
	s.bus.Emit(bus.KindSendAck, SendAck{
		ChatID:      entry.ChatID,
		ClientMsgID: entry.ClientMsgID,
		ServerMsgID: serverMsgID,
	})
	return true
}

func (s *Sender) setMessageStatus(entry store.OutboxEntry, status string) {
	// The timestamp is ignored on conflict, so the original position is kept.
	err := s.db.UpsertMessage(&store.Message{
		ChatID:    entry.ChatID,
		MsgID:     entry.ClientMsgID,
		Body:      entry.Body,
		Kind:      entry.Kind,
		FromMe:    true,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		s.logger.Error("failed to update message status", zap.Error(err), zap.String("status", status))
		return
	}
	s.publishUpserted(entry.ChatID, entry.ClientMsgID)
}

func (s *Sender) publishUpserted(chatID, msgID string) {
	s.bus.Emit(bus.KindMessageUpserted, bus.MessageRef{ChatID: chatID, MsgID: msgID})
}

func kindType(k message.Kind) message.Type {
	if k == nil {
		return "nil"
	}
	return k.Type()
}
