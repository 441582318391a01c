package domain

import "time"

type ChatRoom struct {
	ID        string    `db:"id"`
	ProjectID string    `db:"project_id"`
	Name      *string   `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type ChatRoomMember struct {
	ChatRoomID string    `db:"chatroom_id"`
	UserID     int64     `db:"user_id"`
	JoinedAt   time.Time `db:"joined_at"`
}
