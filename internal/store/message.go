package store

import "time"

// UpsertMessage inserts or updates a message (idempotent on chat_id + msg_id).
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (chat_id, msg_id, sender_name, body, kind, from_me, status, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, msg_id) DO UPDATE SET
			sender_name = excluded.sender_name,
			body = excluded.body,
			status = excluded.status`,
		m.ChatID, m.MsgID, m.SenderName, m.Body, string(m.Kind), m.FromMe, m.Status, m.Timestamp, now)
	return err
}

// ListMessages returns messages of a chat newer-first, using keyset
// pagination on timestamp. beforeTs <= 0 starts from the newest message.
func (db *DB) ListMessages(chatID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, chat_id, msg_id, sender_name, body, kind, from_me, status, timestamp
		FROM messages
		WHERE chat_id = ? AND timestamp < ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, chatID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.MsgID, &m.SenderName, &m.Body, &m.Kind, &m.FromMe, &m.Status, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns the number of stored messages. An empty chatID counts
// all chats.
func (db *DB) CountMessages(chatID string) (int, error) {
	var n int
	var err error
	if chatID == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&n)
	}
	return n, err
}
