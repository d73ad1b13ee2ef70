package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/message"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

const previewLen = 100

// HistoryStats is the payload of sync.history_batch.
type HistoryStats struct {
	Messages int
	Chats    int
}

// Engine handles idempotent ingestion of peer messages into the store.
// It subscribes to "peer." events on the bus and processes them.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to inbound peer events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe("peer.", 256)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the event loop to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindPeerMessage:
		msg, ok := evt.Payload.(*store.Message)
		if !ok {
			return
		}
		if err := e.IngestMessage(msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", msg.MsgID))
		}
	case bus.KindPeerHistory:
		msgs, ok := evt.Payload.([]*store.Message)
		if !ok {
			return
		}
		if err := e.IngestHistoryBatch(msgs); err != nil {
			e.logger.Error("failed to ingest history batch", zap.Error(err), zap.Int("count", len(msgs)))
		} else {
			e.logger.Info("history batch ingested", zap.Int("messages", len(msgs)))
		}
	}
}

// IngestMessage processes a single message into the store (idempotent on the
// message row). Messages from the peer bump the chat's unread counter.
func (e *Engine) IngestMessage(msg *store.Message) error {
	if msg.Kind == "" {
		msg.Kind = message.TypeText
	}
	unread := 0
	if !msg.FromMe {
		unread = 1
	}
	if err := e.db.TouchChat(msg.ChatID, msg.Timestamp, preview(msg.Body), unread); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}

	if err := e.db.UpsertMessage(msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	e.bus.Emit(bus.KindMessageUpserted, bus.MessageRef{ChatID: msg.ChatID, MsgID: msg.MsgID})
	return nil
}

// IngestHistoryBatch processes a batch of history messages in a transaction.
// History does not count as unread.
func (e *Engine) IngestHistoryBatch(msgs []*store.Message) error {
	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	chats := make(map[string]struct{})

	for _, sm := range msgs {
		if sm.Kind == "" {
			sm.Kind = message.TypeText
		}
		if _, err := tx.Exec(`
			INSERT INTO chats (id, name, last_message_at, last_message_preview, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				last_message_preview = CASE WHEN excluded.last_message_at >= chats.last_message_at
					THEN excluded.last_message_preview ELSE chats.last_message_preview END,
				last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
				updated_at = excluded.updated_at`,
			sm.ChatID, sm.ChatID, sm.Timestamp, preview(sm.Body), now, now); err != nil {
			return fmt.Errorf("upsert chat in batch: %w", err)
		}
		chats[sm.ChatID] = struct{}{}

		if _, err := tx.Exec(`
			INSERT INTO messages (chat_id, msg_id, sender_name, body, kind, from_me, status, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chat_id, msg_id) DO UPDATE SET
				sender_name = excluded.sender_name,
				body = excluded.body,
				status = excluded.status`,
			sm.ChatID, sm.MsgID, sm.SenderName, sm.Body, string(sm.Kind), sm.FromMe, sm.Status, sm.Timestamp, now); err != nil {
			return fmt.Errorf("upsert message in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	e.bus.Emit(bus.KindHistoryIngested, HistoryStats{Messages: len(msgs), Chats: len(chats)})
	return nil
}

func preview(body string) string {
	return message.Preview(message.Text{Body: body}, previewLen)
}
