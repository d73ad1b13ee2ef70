package store

import (
	"database/sql"
	"time"
)

// UpsertChat inserts or updates a chat record.
func (db *DB) UpsertChat(c *Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (id, name, unread_count, last_message_at, last_message_preview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			unread_count = excluded.unread_count,
			last_message_at = excluded.last_message_at,
			last_message_preview = excluded.last_message_preview,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.UnreadCount, c.LastMessageAt, c.LastMessagePreview, now, now)
	return err
}

// TouchChat records a new message in a chat, creating the chat if needed.
// The name of an existing chat is kept. Older timestamps do not replace the
// preview.
func (db *DB) TouchChat(id string, ts int64, preview string, unreadDelta int) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (id, name, unread_count, last_message_at, last_message_preview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unread_count = chats.unread_count + excluded.unread_count,
			last_message_preview = CASE WHEN excluded.last_message_at >= chats.last_message_at
				THEN excluded.last_message_preview ELSE chats.last_message_preview END,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			updated_at = excluded.updated_at`,
		id, id, unreadDelta, ts, preview, now, now)
	return err
}

// MarkChatRead resets the unread counter of a chat.
func (db *DB) MarkChatRead(id string) error {
	_, err := db.Exec(`UPDATE chats SET unread_count = 0, updated_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	return err
}

// ListChats returns chats sorted by last activity, most recent first.
func (db *DB) ListChats(limit, offset int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, name, unread_count, last_message_at, last_message_preview
		FROM chats
		ORDER BY last_message_at DESC, created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.UnreadCount, &c.LastMessageAt, &c.LastMessagePreview); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by ID, or nil if it does not exist.
func (db *DB) GetChat(id string) (*Chat, error) {
	return db.getChat(`WHERE id = ?`, id)
}

// GetChatByName looks a chat up by its display name (case-insensitive), then
// by ID. It returns nil if neither matches.
func (db *DB) GetChatByName(name string) (*Chat, error) {
	c, err := db.getChat(`WHERE name = ? COLLATE NOCASE ORDER BY last_message_at DESC LIMIT 1`, name)
	if c != nil || err != nil {
		return c, err
	}
	return db.GetChat(name)
}

func (db *DB) getChat(where string, args ...any) (*Chat, error) {
	var c Chat
	err := db.QueryRow(`
		SELECT id, name, unread_count, last_message_at, last_message_preview
		FROM chats `+where, args...).
		Scan(&c.ID, &c.Name, &c.UnreadCount, &c.LastMessageAt, &c.LastMessagePreview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountChats returns the number of known chats.
func (db *DB) CountChats() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&n)
	return n, err
}
