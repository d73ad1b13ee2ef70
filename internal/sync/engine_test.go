package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/message"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEngineIngestMessage(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, nil)

	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	msg := &store.Message{
		ChatID: "alice", MsgID: "m1", Body: "hello\nsecond line",
		Kind: message.TypeText, Timestamp: 1000, Status: store.StatusReceived,
	}
	if err := e.IngestMessage(msg); err != nil {
		t.Fatal(err)
	}

	chat, err := db.GetChat("alice")
	if err != nil {
		t.Fatal(err)
	}
	if chat == nil {
		t.Fatal("chat not created")
	}
	if chat.UnreadCount != 1 || chat.LastMessagePreview != "hello" {
		t.Errorf("chat = %+v, want unread 1 and preview hello", chat)
	}

	msgs, err := db.ListMessages("alice", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello\nsecond line" {
		t.Errorf("got %+v, want 1 message with full body", msgs)
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindMessageUpserted {
			t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindMessageUpserted)
		}
		if ref := evt.Payload.(bus.MessageRef); ref.ChatID != "alice" || ref.MsgID != "m1" {
			t.Errorf("ref = %+v, want alice/m1", ref)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message.upserted event")
	}
}

func TestEngineIngestOwnMessageNotUnread(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil)

	if err := e.IngestMessage(&store.Message{ChatID: "alice", MsgID: "m1", Body: "mine", FromMe: true, Timestamp: 1000}); err != nil {
		t.Fatal(err)
	}
	chat, _ := db.GetChat("alice")
	if chat.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", chat.UnreadCount)
	}
	msgs, _ := db.ListMessages("alice", 0, 10)
	if msgs[0].Kind != message.TypeText {
		t.Errorf("kind = %q, want text default", msgs[0].Kind)
	}
}

func TestEngineIngestMessageIdempotent(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil)

	msg := &store.Message{ChatID: "alice", MsgID: "m1", Body: "v1", Kind: message.TypeText, Timestamp: 1000}
	if err := e.IngestMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Body = "v2"
	if err := e.IngestMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("alice", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Body != "v2" {
		t.Errorf("body = %q, want v2 (updated)", msgs[0].Body)
	}
}

func TestEngineIngestHistoryBatch(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, nil)

	ch, unsub := b.Subscribe("sync.", 10)
	defer unsub()

	msgs := []*store.Message{
		{ChatID: "a", MsgID: "m1", Body: "one", Timestamp: 1000, Status: store.StatusReceived},
		{ChatID: "a", MsgID: "m2", Body: "two", Timestamp: 2000, Status: store.StatusReceived},
		{ChatID: "b", MsgID: "m3", Body: "three", Timestamp: 3000, Status: store.StatusReceived},
	}
	if err := e.IngestHistoryBatch(msgs); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[1].ID != "a" || chats[1].LastMessagePreview != "two" || chats[1].UnreadCount != 0 {
		t.Errorf("chat a = %+v, want preview two and no unread", chats[1])
	}

	msgsA, _ := db.ListMessages("a", 0, 10)
	msgsB, _ := db.ListMessages("b", 0, 10)
	if len(msgsA) != 2 || len(msgsB) != 1 {
		t.Errorf("got %d+%d messages, want 2+1", len(msgsA), len(msgsB))
	}

	select {
	case evt := <-ch:
		stats := evt.Payload.(HistoryStats)
		if stats.Messages != 3 || stats.Chats != 2 {
			t.Errorf("stats = %+v, want 3 messages in 2 chats", stats)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sync.history_batch event")
	}
}

func TestEngineHistoryBatchIdempotent(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil)

	msgs := []*store.Message{
		{ChatID: "a", MsgID: "m1", Body: "hello", Timestamp: 1000, Status: store.StatusReceived},
	}
	if err := e.IngestHistoryBatch(msgs); err != nil {
		t.Fatal(err)
	}
	if err := e.IngestHistoryBatch(msgs); err != nil {
		t.Fatal(err)
	}

	stored, _ := db.ListMessages("a", 0, 10)
	if len(stored) != 1 {
		t.Errorf("got %d messages, want 1 (idempotent batch)", len(stored))
	}
}

func waitForMessages(t *testing.T, db *store.DB, chatID string, want int) []store.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, err := db.ListMessages(chatID, 0, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) >= want || time.Now().After(deadline) {
			return msgs
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestEngineBusSubscription verifies the engine processes events from the bus.
func TestEngineBusSubscription(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, zap.NewNop())

	e.Start(context.Background())
	defer e.Stop()

	b.Emit(bus.KindPeerMessage, &store.Message{
		ChatID: "echo", MsgID: "bm1", Body: "from bus", Timestamp: 5000, Status: store.StatusReceived,
	})

	msgs := waitForMessages(t, db, "echo", 1)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (bus subscription)", len(msgs))
	}
	if msgs[0].Body != "from bus" {
		t.Errorf("body = %q, want 'from bus'", msgs[0].Body)
	}

	b.Emit(bus.KindPeerHistory, []*store.Message{
		{ChatID: "batch", MsgID: "hm1", Body: "history", Timestamp: 6000, Status: store.StatusReceived},
		{ChatID: "batch", MsgID: "hm2", Body: "history2", Timestamp: 7000, Status: store.StatusReceived},
	})

	if msgs := waitForMessages(t, db, "batch", 2); len(msgs) != 2 {
		t.Errorf("got %d messages, want 2 (history batch via bus)", len(msgs))
	}
}
