package domain

import "time"

type Message struct {
	ID         string    `db:"id"`
	ChatRoomID string    `db:"chatroom_id"`
	UserID     int64     `db:"user_id"`
	Content    string    `db:"content"`
	ReplyTo    *string   `db:"reply_to"`
	CreatedAt  time.Time `db:"created_at"`
}

// MessageReaction rows are unique per (message, user, emoji); that
// constraint is what makes re-adding the same reaction a toggle.
type MessageReaction struct {
	ID        int64     `db:"id"`
	MessageID string    `db:"message_id"`
	UserID    int64     `db:"user_id"`
	Emoji     string    `db:"emoji"`
	CreatedAt time.Time `db:"created_at"`
}
