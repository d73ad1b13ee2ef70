package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/parley/internal/message"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if v, err := db.SchemaVersion(); err != nil || v != 0 {
		t.Errorf("SchemaVersion() before migrate = %d, %v; want 0", v, err)
	}

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed {
		t.Error("first Migrate() should report Changed=true")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + fts)", result.Version)
	}

	result, err = db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("result = %+v, want version 2", result)
	}
	if v, err := db.SchemaVersion(); err != nil || v != 2 {
		t.Errorf("SchemaVersion() = %d, %v; want 2", v, err)
	}
}

func TestMigrateRefusesDirtySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Migrate(); !errors.Is(err, ErrDirtySchema) {
		t.Errorf("Migrate() error = %v, want ErrDirtySchema", err)
	}
	if _, err := db.SchemaVersion(); !errors.Is(err, ErrDirtySchema) {
		t.Errorf("SchemaVersion() error = %v, want ErrDirtySchema", err)
	}
}

func TestChatUpsertAndList(t *testing.T) {
	db := testDB(t)

	chat := &Chat{ID: "alice", Name: "Alice", LastMessageAt: 1000, LastMessagePreview: "hello"}
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}
	chat.Name = "Alice Updated"
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertChat(&Chat{ID: "bob", Name: "Bob", LastMessageAt: 2000}); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[0].ID != "bob" {
		t.Errorf("first chat = %q, want bob (most recent)", chats[0].ID)
	}
	if chats[1].Name != "Alice Updated" {
		t.Errorf("name = %q, want Alice Updated", chats[1].Name)
	}
}

func TestTouchChat(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{ID: "alice", Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	if err := db.TouchChat("alice", 2000, "newer", 1); err != nil {
		t.Fatal(err)
	}
	if err := db.TouchChat("alice", 1000, "older", 1); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetChat("alice")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Alice" {
		t.Errorf("name = %q, want Alice (kept)", c.Name)
	}
	if c.LastMessageAt != 2000 || c.LastMessagePreview != "newer" {
		t.Errorf("last = (%d, %q), want (2000, newer)", c.LastMessageAt, c.LastMessagePreview)
	}
	if c.UnreadCount != 2 {
		t.Errorf("unread = %d, want 2", c.UnreadCount)
	}

	if err := db.MarkChatRead("alice"); err != nil {
		t.Fatal(err)
	}
	c, _ = db.GetChat("alice")
	if c.UnreadCount != 0 {
		t.Errorf("unread after read = %d, want 0", c.UnreadCount)
	}

	// Unknown chats are created with their ID as name.
	if err := db.TouchChat("carol", 500, "hi", 0); err != nil {
		t.Fatal(err)
	}
	c, _ = db.GetChat("carol")
	if c == nil || c.DisplayName() != "carol" {
		t.Errorf("got %+v, want created chat carol", c)
	}
}

func TestGetChat(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{ID: "a", Name: "Alpha"}); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetChat("a")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Name != "Alpha" {
		t.Errorf("got %v, want Alpha", c)
	}

	c, err = db.GetChat("missing")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("expected nil for missing chat")
	}
}

func TestGetChatByName(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{ID: "c1", Name: "Alice"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		wantID string
	}{
		{"Alice", "c1"},
		{"alice", "c1"},
		{"c1", "c1"},
		{"nobody", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := db.GetChatByName(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			got := ""
			if c != nil {
				got = c.ID
			}
			if got != tt.wantID {
				t.Errorf("GetChatByName(%q) = %q, want %q", tt.name, got, tt.wantID)
			}
		})
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{ChatID: "chat", MsgID: "msg1", Body: "hello", Kind: message.TypeText, Timestamp: 1000}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Body = "hello updated"
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("chat", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent upsert failed)", len(msgs))
	}
	if msgs[0].Body != "hello updated" {
		t.Errorf("body = %q, want hello updated", msgs[0].Body)
	}
	if msgs[0].Kind != message.TypeText {
		t.Errorf("kind = %q, want text", msgs[0].Kind)
	}
}

func TestListMessagesPagination(t *testing.T) {
	db := testDB(t)

	for i, ts := range []int64{1000, 2000, 3000} {
		m := &Message{ChatID: "chat", MsgID: string(rune('a' + i)), Body: "m", Kind: message.TypeText, Timestamp: ts}
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListMessages("chat", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Timestamp != 3000 || page[1].Timestamp != 2000 {
		t.Fatalf("first page = %+v, want [3000 2000]", page)
	}
	page, err = db.ListMessages("chat", page[1].Timestamp, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Timestamp != 1000 {
		t.Fatalf("second page = %+v, want [1000]", page)
	}

	n, err := db.CountMessages("chat")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	n, _ = db.CountMessages("other")
	if n != 0 {
		t.Errorf("count(other) = %d, want 0", n)
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)

	seed := []*Message{
		{ChatID: "a", MsgID: "m1", Body: "hello world", Kind: message.TypeText, Timestamp: 1000},
		{ChatID: "a", MsgID: "m2", Body: "goodbye world", Kind: message.TypeText, Timestamp: 2000},
		{ChatID: "b", MsgID: "m3", Body: "hello again", Kind: message.TypeText, Timestamp: 3000},
	}
	for _, m := range seed {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.SearchMessages("hello", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Message.MsgID != "m3" {
		t.Errorf("first result = %q, want m3 (newest)", results[0].Message.MsgID)
	}
	if !strings.Contains(results[0].Snippet, "<<hello>>") {
		t.Errorf("snippet = %q, want highlighted term", results[0].Snippet)
	}

	results, err = db.SearchMessages("hello", "a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Message.MsgID != "m1" {
		t.Fatalf("chat-scoped results = %+v, want [m1]", results)
	}

	// Updated bodies are reindexed.
	seed[1].Body = "goodbye hello"
	if err := db.UpsertMessage(seed[1]); err != nil {
		t.Fatal(err)
	}
	results, _ = db.SearchMessages("goodbye", "", 10)
	if len(results) != 1 || results[0].Message.Body != "goodbye hello" {
		t.Fatalf("results after update = %+v", results)
	}
}

func TestOutbox(t *testing.T) {
	db := testDB(t)

	for i, body := range []string{"test msg", "second"} {
		m := &Message{ChatID: "chat", MsgID: fmt.Sprintf("client%d", i+1), Body: body, Kind: message.TypeText, FromMe: true, Status: StatusQueued, Timestamp: int64(i + 1)}
		if err := db.QueueMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ClientMsgID != "client1" || pending[0].Kind != message.TypeText {
		t.Errorf("first pending = %+v, want client1/text", pending[0])
	}

	if err := db.MarkOutboxSending("client1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("client1", "server1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("client2", "offline"); err != nil {
		t.Fatal(err)
	}

	pending, err = db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending after sent, want 0", len(pending))
	}

	var errMsg string
	if err := db.QueryRow(`SELECT error_message FROM outbox WHERE client_msg_id = ?`, "client2").Scan(&errMsg); err != nil {
		t.Fatal(err)
	}
	if errMsg != "offline" {
		t.Errorf("error_message = %q, want offline", errMsg)
	}
}

func TestQueueMessageWritesBothRows(t *testing.T) {
	db := testDB(t)

	m := &Message{ChatID: "chat", MsgID: "c1", Body: "hi", Kind: message.TypeText, FromMe: true, Status: StatusQueued, Timestamp: 10}
	if err := db.QueueMessage(m); err != nil {
		t.Fatal(err)
	}
	msgs, err := db.ListMessages("chat", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Status != StatusQueued || !msgs[0].FromMe {
		t.Fatalf("messages = %+v, want one queued own message", msgs)
	}
	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ClientMsgID != "c1" || pending[0].Body != "hi" {
		t.Fatalf("pending = %+v, want c1", pending)
	}

	// A duplicate ID rolls back, leaving no second outbox entry.
	if err := db.QueueMessage(m); err == nil {
		t.Fatal("expected error for duplicate message")
	}
	pending, _ = db.PendingOutbox()
	if len(pending) != 1 {
		t.Errorf("got %d pending after rollback, want 1", len(pending))
	}
}
