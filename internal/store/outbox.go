package store

import (
	"fmt"
	"time"
)

// QueueMessage stores an own message and its outbox entry in one
// transaction, so the outbox poller never sees an entry without its message.
// The message row is written first and keeps m.Status; the entry is queued.
func (db *DB) QueueMessage(m *Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO messages (chat_id, msg_id, sender_name, body, kind, from_me, status, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		m.ChatID, m.MsgID, m.SenderName, m.Body, string(m.Kind), m.Status, m.Timestamp, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO outbox (client_msg_id, chat_id, kind, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.MsgID, m.ChatID, string(m.Kind), m.Body, StatusQueued, now, now); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return tx.Commit()
}

// MarkOutboxSending updates an outbox entry to 'sending' status.
func (db *DB) MarkOutboxSending(clientMsgID string) error {
	return db.setOutboxStatus(clientMsgID, StatusSending, "", "")
}

// MarkOutboxQueued puts an entry back in the queue for a later attempt.
func (db *DB) MarkOutboxQueued(clientMsgID string) error {
	return db.setOutboxStatus(clientMsgID, StatusQueued, "", "")
}

// MarkOutboxSent updates an outbox entry to 'sent' with the peer's message ID.
func (db *DB) MarkOutboxSent(clientMsgID, serverMsgID string) error {
	return db.setOutboxStatus(clientMsgID, StatusSent, "", serverMsgID)
}

// MarkOutboxFailed updates an outbox entry to 'failed' with an error message.
func (db *DB) MarkOutboxFailed(clientMsgID, errMsg string) error {
	return db.setOutboxStatus(clientMsgID, StatusFailed, errMsg, "")
}

func (db *DB) setOutboxStatus(clientMsgID, status, errMsg, serverMsgID string) error {
	_, err := db.Exec(`
		UPDATE outbox SET status = ?, error_message = ?, server_msg_id = ?, updated_at = ?
		WHERE client_msg_id = ?`,
		status, errMsg, serverMsgID, time.Now().UnixMilli(), clientMsgID)
	return err
}

// PendingOutbox returns outbox entries that are still queued, oldest first.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, chat_id, kind, body, status, error_message, server_msg_id
		FROM outbox WHERE status = ? ORDER BY created_at ASC, id ASC`, StatusQueued)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.ChatID, &e.Kind, &e.Body, &e.Status, &e.ErrorMessage, &e.ServerMsgID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
